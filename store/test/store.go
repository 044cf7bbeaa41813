package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/cogniflow/internal/profile"
	"github.com/hrygo/cogniflow/store"
	"github.com/hrygo/cogniflow/store/db"
)

// NewTestingStore returns a migrated store. It uses an in-memory SQLite
// database unless DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	if getDriverFromEnv() == "postgres" {
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN is not set")
		}
		return &profile.Profile{Mode: "dev", Driver: "postgres", DSN: dsn}
	}
	return &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"}
}

func getDriverFromEnv() string {
	driver := os.Getenv("DRIVER")
	if driver == "" {
		return "sqlite"
	}
	return driver
}
