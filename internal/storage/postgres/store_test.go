package postgres

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meghavibansod/HealthLedger/pkg/config"
	"github.com/Meghavibansod/HealthLedger/pkg/database"
	"github.com/Meghavibansod/HealthLedger/pkg/logger"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
)

// The postgres store needs a reachable database; the test skips unless
// TEST_DB_HOST is set, the way the integration suite is gated.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres store test")
	}

	port := 5432
	if raw := os.Getenv("TEST_DB_PORT"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		require.NoError(t, err)
		port = parsed
	}

	cfg := &config.DatabaseConfig{
		Host:            host,
		Port:            port,
		Name:            envOr("TEST_DB_NAME", "healthledger_test"),
		User:            envOr("TEST_DB_USER", "healthledger"),
		Password:        os.Getenv("TEST_DB_PASSWORD"),
		SSLMode:         envOr("TEST_DB_SSLMODE", "disable"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 60,
	}

	db, err := database.NewConnection(cfg, logger.New("error"))
	require.NoError(t, err)

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec("DELETE FROM ledger_state")
		s.Close()
	})
	return s
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func TestStore(t *testing.T) {
	s := openTestStore(t)

	t.Run("get returns nil for absent keys", func(t *testing.T) {
		value, err := s.Get("missing")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("apply commits a batch in one transaction", func(t *testing.T) {
		batch := state.NewBatch()
		batch.Put("record:1", []byte("a"))
		batch.Put("audit:1", []byte("b"))
		require.NoError(t, s.Apply(batch))

		value, err := s.Get("record:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), value)
	})

	t.Run("upsert replaces existing values", func(t *testing.T) {
		batch := state.NewBatch()
		batch.Put("k", []byte("old"))
		require.NoError(t, s.Apply(batch))

		batch = state.NewBatch()
		batch.Put("k", []byte("new"))
		require.NoError(t, s.Apply(batch))

		value, err := s.Get("k")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("iterate visits prefix keys in order", func(t *testing.T) {
		batch := state.NewBatch()
		batch.Put("audit:2", []byte("2"))
		batch.Put("audit:3", []byte("3"))
		require.NoError(t, s.Apply(batch))

		var keys []string
		require.NoError(t, s.Iterate("audit:", func(key string, _ []byte) bool {
			keys = append(keys, key)
			return true
		}))
		assert.Equal(t, []string{"audit:1", "audit:2", "audit:3"}, keys)
	})
}
