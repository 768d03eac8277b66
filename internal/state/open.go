package state

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/redis"
	"gorm.io/gorm"
)

// Open picks the backend named by driver. The redis and sql handles may be
// nil when their driver is not selected.
func Open(driver string, ttl time.Duration, redisClient *redis.Client, db *gorm.DB) (Store, error) {
	switch driver {
	case config.StateDriverRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("state driver %q requires redis", driver)
		}
		return NewRedisStore(redisClient, ttl), nil
	case config.StateDriverSQL:
		if db == nil {
			return nil, fmt.Errorf("state driver %q requires a database", driver)
		}
		return NewSQLStore(db, ttl), nil
	case config.StateDriverMemory:
		return NewMemoryStore(ttl), nil
	default:
		return nil, fmt.Errorf("unknown state driver %q", driver)
	}
}
