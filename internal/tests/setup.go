// Package tests holds integration tests that need a running PostgreSQL.
// They skip unless DATABASE_URL points at a disposable database.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/db"
	"github.com/lockerhub/server/internal/notify"
)

// OpenTestDB connects to DATABASE_URL, resets the schema and applies all migrations.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	pool, err := db.Open(context.Background(), url, db.DefaultPool, zap.NewNop())
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, db.Reset(pool), "reset schema")
	require.NoError(t, db.Migrate(pool, zap.NewNop()), "migrations must run successfully")
	return pool
}

// TruncateTables empties all locker tables for a clean test state.
func TruncateTables(ctx context.Context, pool *sql.DB) error {
	_, err := pool.ExecContext(ctx, "TRUNCATE TABLE transactions, items, lockers CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// recordingSink keeps every delivered message so tests can read OTPs back
type recordingSink struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (s *recordingSink) Deliver(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) byKind(kind notify.Kind) []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Message
	for _, m := range s.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}
