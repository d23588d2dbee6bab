package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/AlessandroMondin/Journey/internal/profile"
	"github.com/AlessandroMondin/Journey/internal/version"
	"github.com/AlessandroMondin/Journey/store"
	"github.com/AlessandroMondin/Journey/store/db"
)

// NewTestingStore opens a migrated store for the driver named by DRIVER
// (sqlite by default). Postgres tests need POSTGRES_TEST_DSN and are skipped otherwise.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	profile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, profile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		ts.Close()
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	mode := "prod"
	driver := getDriverFromEnv()
	profile := &profile.Profile{
		Mode:    mode,
		Driver:  driver,
		Version: version.GetCurrentVersion(mode),
		Secret:  "test-secret",
	}

	switch driver {
	case "sqlite":
		dir := t.TempDir()
		profile.Data = dir
		profile.DSN = filepath.Join(dir, "journey_test.db")
	case "postgres":
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
		profile.DSN = dsn
	default:
		t.Fatalf("unsupported DRIVER %q", driver)
	}
	return profile
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}

// CreateTestingUser inserts a credential, api key, user and agent chain.
func CreateTestingUser(ctx context.Context, ts *store.Store, username string) (*store.User, *store.Agent, error) {
	var user *store.User
	var agent *store.Agent
	err := ts.RunInTx(ctx, func(tx *store.Store) error {
		credential, err := tx.CreateCredential(ctx, &store.Credential{Username: username, PasswordHash: "hash"})
		if err != nil {
			return err
		}
		apiKey, err := tx.CreateAPIKey(ctx, &store.APIKey{Key: uuid.NewString(), AuthID: credential.ID, IsActive: true})
		if err != nil {
			return err
		}
		user, err = tx.CreateUser(ctx, &store.User{UserID: "user_" + uuid.NewString(), APIKeyID: apiKey.ID, Name: username})
		if err != nil {
			return err
		}
		agent, err = tx.CreateAgent(ctx, &store.Agent{
			AgentID:         "agent_" + uuid.NewString(),
			UserID:          user.UserID,
			Name:            fmt.Sprintf("%s's Agent", username),
			Description:     "Personal assistant",
			ExternalAgentID: "el_" + uuid.NewString(),
			Memory:          "initial memory",
		})
		return err
	})
	return user, agent, err
}
