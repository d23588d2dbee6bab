package store

import (
	"context"
	"time"

	"github.com/AlessandroMondin/Journey/internal/profile"
	"github.com/AlessandroMondin/Journey/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// inTx is set on stores handed out by RunInTx; caches are bypassed there
	// so nothing uncommitted leaks into them.
	inTx bool

	userCache  *cache.Cache // user_id -> *User
	agentCache *cache.Cache // elevenlabs agent id -> agent_id string
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL: 10 * time.Minute,
		MaxItems:   1000,
	}

	return &Store{
		driver:     driver,
		profile:    profile,
		userCache:  cache.New(cacheConfig),
		agentCache: cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// RunInTx runs fn against a store bound to one transaction.
// Nested calls reuse the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	var txStore *Store
	if err := s.driver.RunInTx(ctx, func(driver Driver) error {
		txStore = &Store{
			profile:    s.profile,
			driver:     driver,
			inTx:       true,
			userCache:  s.userCache,
			agentCache: s.agentCache,
		}
		return fn(txStore)
	}); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error {
	s.userCache.Close()
	s.agentCache.Close()

	return s.driver.Close()
}
