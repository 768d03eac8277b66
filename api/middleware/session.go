package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/responses"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// SessionHeader carries the signed storefront session token both ways.
const SessionHeader = "X-Storefront-Session"

// Session binds every request to a storefront session. A missing, expired
// or tampered token starts a new session; the current token is always
// returned in SessionHeader.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := strings.TrimSpace(r.Header.Get(SessionHeader))

			var sessionID uuid.UUID
			if token != "" {
				claims, err := pkgAuth.ParseSessionToken(cfg, token)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "reason", err.Error()), "session.token.rejected")
					}
					token = ""
				} else {
					sessionID = claims.SessionID
				}
			}

			if token == "" {
				minted, id, err := pkgAuth.MintSessionToken(cfg, time.Now(), uuid.Nil)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session"))
					return
				}
				token, sessionID = minted, id
				if logg != nil {
					logg.Info(logg.WithSessionID(ctx, id.String()), "session.started")
				}
			}

			w.Header().Set(SessionHeader, token)
			ctx = WithSession(ctx, sessionID.String(), token)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
