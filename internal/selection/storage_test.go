package selection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorageExpiresIdleSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewExpiringMemoryStorage(0, 50*time.Millisecond)

	require.NoError(t, st.Set(ctx, "selectedProducts:a", []byte(`["1"]`)))
	got, err := st.Get(ctx, "selectedProducts:a")
	require.NoError(t, err)
	require.Equal(t, `["1"]`, string(got))

	time.Sleep(150 * time.Millisecond)
	_, err = st.Get(ctx, "selectedProducts:a")
	require.ErrorIs(t, err, ErrNotFound)

	// a restored visitor starts empty once the snapshot is gone
	s := NewStore(ctx, st, "selectedProducts:a", nil)
	require.Zero(t, s.Len())
}

func TestMemoryStorageWithoutTTLKeepsSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemoryStorage(0)
	require.NoError(t, st.Set(ctx, "k", []byte(`[]`)))
	time.Sleep(20 * time.Millisecond)
	_, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 1, st.Len())
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemoryStorage(0)
	in := []byte(`["1"]`)
	require.NoError(t, st.Set(ctx, "k", in))
	in[2] = '9'

	out, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `["1"]`, string(out))
	out[2] = '8'

	again, err := st.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `["1"]`, string(again))
}
