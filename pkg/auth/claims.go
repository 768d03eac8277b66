package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims represents the signed token that scopes storefront state to
// one browser session.
type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}
