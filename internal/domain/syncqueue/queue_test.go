package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

type memStore struct {
	entries []QueuedSubmission
	saves   int
	failing bool
}

func (m *memStore) Load(_ context.Context) ([]QueuedSubmission, error) {
	return m.entries, nil
}

func (m *memStore) Save(_ context.Context, entries []QueuedSubmission) error {
	if m.failing {
		return errors.New("disk full")
	}
	m.entries = entries
	m.saves++
	return nil
}

type scriptedTransport struct {
	failIDs     map[int64]error
	delivered   []int64
	unavailable bool
	block       chan struct{}
}

func (s *scriptedTransport) Deliver(_ context.Context, sub QueuedSubmission) (prediction.Result, error) {
	if s.block != nil {
		<-s.block
	}
	if s.unavailable {
		return prediction.Result{}, fmt.Errorf("%w: connection refused", ErrUnavailable)
	}
	if err, ok := s.failIDs[sub.LocalID]; ok {
		return prediction.Result{}, err
	}
	s.delivered = append(s.delivered, sub.LocalID)
	return prediction.Result{
		PredictedYield: sub.Result.PredictedYield + 0.1,
		RiskLevel:      sub.Result.RiskLevel,
		Source:         prediction.SourceRemote,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func measurement() prediction.MeasurementRecord {
	return prediction.MeasurementRecord{CropType: "rice", Region: "Thanjavur", RainfallMM: 220, TemperatureC: 29, SoilPH: 6.5}
}

func offlineResult() prediction.Result {
	return prediction.Result{PredictedYield: 3.2, RiskLevel: prediction.RiskGreen, Source: prediction.SourceOffline}
}

func newQueue(t *testing.T, store Store) *Queue {
	t.Helper()
	q, err := New(context.Background(), store, testLogger())
	require.NoError(t, err)
	return q
}

func TestEnqueueAssignsUniqueIDsWithinSameMillisecond(t *testing.T) {
	q := newQueue(t, &memStore{})
	frozen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return frozen }

	first, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	second, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	third, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	require.Equal(t, frozen.UnixMilli(), first.LocalID)
	require.Equal(t, first.LocalID+1, second.LocalID)
	require.Equal(t, second.LocalID+1, third.LocalID)
}

func TestEnqueuePersistsWriteThrough(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)

	sub, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	require.Equal(t, sub.LocalID, store.entries[0].LocalID)
	require.False(t, store.entries[0].Synced)
}

func TestEnqueueRollsBackWhenPersistFails(t *testing.T) {
	store := &memStore{failing: true}
	q := newQueue(t, store)

	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "queue_error"))
	require.Equal(t, 0, q.Stats().Total)
}

func TestSyncPartialFailureKeepsFailedEntries(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	frozen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return frozen }

	var ids []int64
	for i := 0; i < 3; i++ {
		sub, err := q.Enqueue(context.Background(), measurement(), offlineResult())
		require.NoError(t, err)
		ids = append(ids, sub.LocalID)
	}

	transport := &scriptedTransport{failIDs: map[int64]error{ids[1]: errors.New("validation rejected")}}
	report, err := q.Sync(context.Background(), transport)
	require.NoError(t, err)
	require.Equal(t, Report{Succeeded: 2, Failed: 1}, report)
	require.Equal(t, []int64{ids[0], ids[2]}, transport.delivered)
	require.Equal(t, 1, q.Stats().Unsynced)

	// Synced entries carry the authoritative server result.
	require.True(t, store.entries[0].Synced)
	require.NotNil(t, store.entries[0].RemoteResult)
	require.Equal(t, prediction.SourceRemote, store.entries[0].RemoteResult.Source)
	require.Nil(t, store.entries[1].RemoteResult)
}

func TestSyncIsIdempotentOncePendingDrained(t *testing.T) {
	q := newQueue(t, &memStore{})
	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	transport := &scriptedTransport{}
	report, err := q.Sync(context.Background(), transport)
	require.NoError(t, err)
	require.Equal(t, Report{Succeeded: 1}, report)

	report, err = q.Sync(context.Background(), transport)
	require.NoError(t, err)
	require.Equal(t, Report{}, report)
	require.Len(t, transport.delivered, 1)
}

func TestSyncUnavailableLeavesQueueUntouched(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	savesBefore := store.saves

	report, err := q.Sync(context.Background(), &scriptedTransport{unavailable: true})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "sync_unavailable"))
	require.Equal(t, Report{}, report)
	require.Equal(t, 1, q.Stats().Unsynced)
	require.Equal(t, savesBefore, store.saves)
}

func TestSyncRejectsConcurrentPass(t *testing.T) {
	q := newQueue(t, &memStore{})
	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	transport := &scriptedTransport{block: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := q.Sync(context.Background(), transport)
		done <- err
	}()

	require.Eventually(t, func() bool { return q.Stats().Syncing }, time.Second, time.Millisecond)

	_, err = q.Sync(context.Background(), &scriptedTransport{})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "sync_in_flight"))

	close(transport.block)
	require.NoError(t, <-done)
}

func TestSyncPersistFailureLeavesEntryUnsynced(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	store.failing = true
	report, err := q.Sync(context.Background(), &scriptedTransport{})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "queue_error"))
	require.Equal(t, Report{}, report)

	// The delivered entry must not look synced when its snapshot never landed.
	require.Equal(t, 1, q.Stats().Unsynced)
	pending := q.Unsynced()
	require.Len(t, pending, 1)
	require.Nil(t, pending[0].RemoteResult)
}

func TestRemoveRollsBackWhenPersistFails(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	sub, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	store.failing = true
	err = q.Remove(context.Background(), sub.LocalID)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "queue_error"))
	require.Equal(t, 1, q.Stats().Total)

	store.failing = false
	require.NoError(t, q.Remove(context.Background(), sub.LocalID))
	require.Equal(t, 0, q.Stats().Total)
}

func TestPruneSyncedRollsBackWhenPersistFails(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	old := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return old }

	_, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	_, err = q.Sync(context.Background(), &scriptedTransport{})
	require.NoError(t, err)

	store.failing = true
	removed, err := q.PruneSynced(context.Background(), old.AddDate(0, 0, 30))
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "queue_error"))
	require.Equal(t, 0, removed)
	require.Equal(t, 1, q.Stats().Total)

	store.failing = false
	removed, err = q.PruneSynced(context.Background(), old.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 0, q.Stats().Total)
}

func TestQueueSurvivesRestart(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	sub, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	restored := newQueue(t, store)
	require.Equal(t, 1, restored.Stats().Unsynced)

	// Ids keep advancing past the restored high-water mark.
	restored.now = func() time.Time { return time.UnixMilli(sub.LocalID) }
	next, err := restored.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	require.Equal(t, sub.LocalID+1, next.LocalID)
}

func TestRemoveDeletesOneEntry(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	sub, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	require.NoError(t, q.Remove(context.Background(), sub.LocalID))
	require.Equal(t, 0, q.Stats().Total)
	require.Empty(t, store.entries)

	require.ErrorIs(t, q.Remove(context.Background(), sub.LocalID), ErrNotFound)
}

func TestPruneSyncedDropsOnlyOldSyncedEntries(t *testing.T) {
	store := &memStore{}
	q := newQueue(t, store)
	old := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return old }

	synced, err := q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), measurement(), offlineResult())
	require.NoError(t, err)

	transport := &scriptedTransport{failIDs: map[int64]error{synced.LocalID + 1: errors.New("rejected")}}
	_, err = q.Sync(context.Background(), transport)
	require.NoError(t, err)

	removed, err := q.PruneSynced(context.Background(), old.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	stats := q.Stats()
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.Unsynced)
}
