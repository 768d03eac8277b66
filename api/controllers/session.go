package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func sessionFrom(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "session missing")
	}
	return sessionID, nil
}
