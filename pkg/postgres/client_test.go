package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default().Postgres
	cfg.Host = envOrDefault("TEST_POSTGRES_HOST", cfg.Host)
	if v, err := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT")); err == nil {
		cfg.Port = v
	}
	cfg.Database = envOrDefault("TEST_POSTGRES_DB", "activelearn_test")
	cfg.User = envOrDefault("TEST_POSTGRES_USER", cfg.User)
	cfg.Password = envOrDefault("TEST_POSTGRES_PASSWORD", cfg.Password)

	c, err := New(cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestNewUnreachable(t *testing.T) {
	cfg := config.Default().Postgres
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	_, err := New(cfg)
	assert.ErrorContains(t, err, "pinging postgres")
}

func TestMigrateIsIdempotent(t *testing.T) {
	c := skipIfNoPostgres(t)
	ctx := context.Background()
	require.NoError(t, c.Migrate(ctx))
	require.NoError(t, c.Migrate(ctx))
	assert.NoError(t, c.Ping(ctx))
}

func TestInTx(t *testing.T) {
	c := skipIfNoPostgres(t)
	ctx := context.Background()
	require.NoError(t, c.Migrate(ctx))

	runID := fmt.Sprintf("tx-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		c.DB.Exec(`DELETE FROM learning_curves WHERE run_id = $1`, runID)
	})
	insert := func(tx *sql.Tx, strategy string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO learning_curves (run_id, strategy, points) VALUES ($1, $2, '[]')`,
			runID, strategy)
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, c.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM learning_curves WHERE run_id = $1`, runID).Scan(&n))
		return n
	}

	boom := errors.New("boom")
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if err := insert(tx, "random"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, count(), "a failed transaction is rolled back")

	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if err := insert(tx, "random"); err != nil {
			return err
		}
		return insert(tx, "entropy-based")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count())
}
