package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/pubky-agent/tests/testutil"
)

func newTestStore(t *testing.T) (*Store, *testutil.MemoryObjectStore) {
	t.Helper()
	objects := testutil.NewMemoryObjectStore()
	return NewStore(objects, "bot123", zaptest.NewLogger(t).Sugar()), objects
}

func TestStore_GetNoCheckpoint(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCheckpoint),
		"first run must be distinguishable from a store failure")
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 12345))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got)
}

func TestStore_UndecodableObjectIsNoCheckpoint(t *testing.T) {
	store, objects := newTestStore(t)
	objects.Seed("pubky://bot123/pub/pubky.app/last_read", []byte("not json"))

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCheckpoint))
}

func TestStore_GetTransportError(t *testing.T) {
	store, objects := newTestStore(t)
	objects.GetErr = errors.New("connection refused")

	_, err := store.Get(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoCheckpoint),
		"an unavailable store is not a missing checkpoint")
}

func TestStore_SetTransportError(t *testing.T) {
	store, objects := newTestStore(t)
	objects.PutErr = errors.New("connection refused")

	err := store.Set(context.Background(), 42)
	require.Error(t, err)
}
