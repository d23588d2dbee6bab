package db

import (
	"github.com/pkg/errors"

	"github.com/AlessandroMondin/Journey/internal/profile"
	"github.com/AlessandroMondin/Journey/store"
	"github.com/AlessandroMondin/Journey/store/db/postgres"
	"github.com/AlessandroMondin/Journey/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// PostgreSQL: production, including pgvector memory search.
// SQLite: development and single-instance deployments, no vector search.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
