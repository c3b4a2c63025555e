package selection

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "selection.db")
	st, err := OpenSQLiteStorage(ctx, path, 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	s := NewStore(ctx, st, "k", nil)
	s.Toggle(ctx, "4")
	s.Toggle(ctx, "1")
	require.NoError(t, s.LastPersistError())

	// reopen to prove durability across processes
	require.NoError(t, st.Close())
	st2, err := OpenSQLiteStorage(ctx, path, 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })

	restored := NewStore(ctx, st2, "k", nil)
	require.Equal(t, []string{"4", "1"}, restored.IDs())

	err = st2.Set(ctx, "big", make([]byte, 65))
	require.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRedisStorageRoundTrip(t *testing.T) {
	addr := os.Getenv("ROUTINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ROUTINE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	st := NewRedisStorage(client, RedisOptions{KeyPrefix: "routine-test:", TTL: time.Minute})
	key := "k-" + time.Now().Format("150405.000000")
	_, err := st.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	s := NewStore(ctx, st, key, nil)
	s.Toggle(ctx, 8)
	require.NoError(t, s.LastPersistError())
	require.Equal(t, []string{"8"}, NewStore(ctx, st, key, nil).IDs())
}
