package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a Pinger in the readiness report. A nil Pinger is
// reported as "disabled".
type Dependency struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]string, len(deps))
		g, gctx := errgroup.WithContext(ctx)
		for i, dep := range deps {
			if dep.Pinger == nil {
				results[i] = "disabled"
				continue
			}
			g.Go(func() error {
				if err := dep.Pinger.Ping(gctx); err != nil {
					results[i] = "down"
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.Name+" unavailable")
				}
				results[i] = "up"
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checks := make(map[string]string, len(deps))
		for i, dep := range deps {
			checks[dep.Name] = results[i]
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
