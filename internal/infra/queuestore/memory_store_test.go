package queuestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	initial, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, initial)

	entries := []syncqueue.QueuedSubmission{
		{LocalID: 1, Result: prediction.Result{PredictedYield: 3.2}},
		{LocalID: 2, Synced: true},
	}
	require.NoError(t, store.Save(ctx, entries))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, entries, loaded)

	// The store keeps its own copy; later mutation of the input is invisible.
	entries[0].Synced = true
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.False(t, loaded[0].Synced)
}
