package auth

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintSessionToken issues a signed session token for sessionID. A nil
// sessionID gets a fresh random identifier.
func MintSessionToken(cfg config.SessionConfig, now time.Time, sessionID uuid.UUID) (string, uuid.UUID, error) {
	if cfg.Secret == "" {
		return "", uuid.Nil, fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return "", uuid.Nil, fmt.Errorf("session issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", uuid.Nil, fmt.Errorf("session ttl must be positive")
	}
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}

	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("signing session token: %w", err)
	}
	return signed, sessionID, nil
}

// ParseSessionToken validates the token string and returns typed claims.
func ParseSessionToken(cfg config.SessionConfig, tokenString string) (*SessionClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == uuid.Nil {
		return nil, fmt.Errorf("session token missing sid")
	}
	return claims, nil
}
