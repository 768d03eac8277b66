// Package state persists the per-session values a browser storefront would
// keep in local storage: the cart and the customer auth state.
package state

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Store is a durable key-value store scoped to a session. Get reports
// found=false for absent or expired keys.
type Store interface {
	Get(ctx context.Context, sessionID string, key enums.StateKey) (value []byte, found bool, err error)
	Set(ctx context.Context, sessionID string, key enums.StateKey, value []byte) error
	Delete(ctx context.Context, sessionID string, keys ...enums.StateKey) error
}

type clock func() time.Time
