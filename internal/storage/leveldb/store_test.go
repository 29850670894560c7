package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Meghavibansod/HealthLedger/pkg/state"
)

func TestStore(t *testing.T) {
	openStore := func(t *testing.T) *Store {
		t.Helper()
		s, err := Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("get returns nil for absent keys", func(t *testing.T) {
		s := openStore(t)
		value, err := s.Get("missing")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("apply commits a batch atomically", func(t *testing.T) {
		s := openStore(t)

		batch := state.NewBatch()
		batch.Put("record:1", []byte("a"))
		batch.Put("audit:1", []byte("b"))
		require.NoError(t, s.Apply(batch))

		value, err := s.Get("record:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), value)

		value, err = s.Get("audit:1")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), value)
	})

	t.Run("iterate visits prefix keys in order", func(t *testing.T) {
		s := openStore(t)

		batch := state.NewBatch()
		batch.Put("audit:2", []byte("2"))
		batch.Put("audit:1", []byte("1"))
		batch.Put("record:1", []byte("r"))
		require.NoError(t, s.Apply(batch))

		var keys []string
		require.NoError(t, s.Iterate("audit:", func(key string, _ []byte) bool {
			keys = append(keys, key)
			return true
		}))
		assert.Equal(t, []string{"audit:1", "audit:2"}, keys)
	})

	t.Run("state survives reopen", func(t *testing.T) {
		dir := t.TempDir()

		s, err := Open(dir)
		require.NoError(t, err)
		batch := state.NewBatch()
		batch.Put("admin", []byte("0xaa"))
		require.NoError(t, s.Apply(batch))
		require.NoError(t, s.Close())

		reopened, err := Open(dir)
		require.NoError(t, err)
		defer reopened.Close()

		value, err := reopened.Get("admin")
		require.NoError(t, err)
		assert.Equal(t, []byte("0xaa"), value)
	})
}
