package syncqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

// ErrUnavailable marks a transport failure that affects the whole batch, not a
// single entry. A Deliver implementation wraps it when the endpoint cannot be
// reached at all.
var ErrUnavailable = errors.New("transport unavailable")

// ErrNotFound is returned when a local id does not match any queued submission.
var ErrNotFound = errors.New("queued submission not found")

// QueuedSubmission is a measurement plus its offline result awaiting
// reconciliation with the server.
type QueuedSubmission struct {
	LocalID      int64                        `json:"localId"`
	Measurement  prediction.MeasurementRecord `json:"measurement"`
	Result       prediction.Result            `json:"result"`
	RemoteResult *prediction.Result           `json:"remoteResult,omitempty"`
	Synced       bool                         `json:"synced"`
	CreatedAt    time.Time                    `json:"createdAt"`
}

// Store is the durable local persistence surface. The queue writes the full
// snapshot through after every mutation and reads it back once at startup.
type Store interface {
	Load(ctx context.Context) ([]QueuedSubmission, error)
	Save(ctx context.Context, entries []QueuedSubmission) error
}

// Transport delivers one queued submission to the authoritative server and
// returns the server's result for it.
type Transport interface {
	Deliver(ctx context.Context, sub QueuedSubmission) (prediction.Result, error)
}

// Report aggregates the outcome of one sync pass.
type Report struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Stats describes the queue for status displays.
type Stats struct {
	Total    int
	Unsynced int
	Syncing  bool
}

// Queue accumulates offline submissions and reconciles them with the server.
// All mutations persist write-through; Sync calls are serialized by an
// in-flight guard so an automatic trigger and a manual one cannot double-deliver.
type Queue struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []QueuedSubmission
	lastID  int64

	syncing atomic.Bool
}

// New restores the queue from the persisted snapshot.
func New(ctx context.Context, store Store, logger *slog.Logger) (*Queue, error) {
	entries, err := store.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrap("queue_error", "failed to restore sync queue", err)
	}
	var lastID int64
	for _, e := range entries {
		if e.LocalID > lastID {
			lastID = e.LocalID
		}
	}
	return &Queue{
		store:   store,
		logger:  logger.With("component", "syncqueue"),
		now:     time.Now,
		entries: entries,
		lastID:  lastID,
	}, nil
}

// Enqueue appends an unsynced submission and persists the queue. Local ids are
// the enqueue timestamp in milliseconds, bumped past the previous id when two
// enqueues land in the same millisecond.
func (q *Queue) Enqueue(ctx context.Context, m prediction.MeasurementRecord, r prediction.Result) (QueuedSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	id := now.UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id

	sub := QueuedSubmission{
		LocalID:     id,
		Measurement: m,
		Result:      r,
		CreatedAt:   now,
	}
	q.entries = append(q.entries, sub)
	if err := q.persistLocked(ctx); err != nil {
		q.entries = q.entries[:len(q.entries)-1]
		return QueuedSubmission{}, apperrors.Wrap("queue_error", "failed to persist queued submission", err)
	}
	return sub, nil
}

// Unsynced returns the entries still awaiting delivery, in enqueue order.
func (q *Queue) Unsynced() []QueuedSubmission {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueuedSubmission, 0)
	for _, e := range q.entries {
		if !e.Synced {
			out = append(out, e)
		}
	}
	return out
}

// Stats reports queue totals and whether a sync pass is running.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{Total: len(q.entries), Syncing: q.syncing.Load()}
	for _, e := range q.entries {
		if !e.Synced {
			stats.Unsynced++
		}
	}
	return stats
}

// Sync delivers every unsynced entry in enqueue order. A failed entry stays
// unsynced and the pass continues; there is no retry within one call. If the
// transport is unusable before anything was delivered the queue is left
// untouched and the whole call fails as unavailable.
func (q *Queue) Sync(ctx context.Context, transport Transport) (Report, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return Report{}, apperrors.Wrap("sync_in_flight", "a sync pass is already running", nil)
	}
	defer q.syncing.Store(false)

	pending := q.Unsynced()
	var report Report
	for i, entry := range pending {
		remote, err := transport.Deliver(ctx, entry)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				if report.Succeeded == 0 && report.Failed == 0 {
					return Report{}, apperrors.Wrap("sync_unavailable", "transport unavailable, nothing synced", err)
				}
				report.Failed += len(pending) - i
				return report, apperrors.Wrap("sync_unavailable", "transport became unavailable mid-sync", err)
			}
			report.Failed++
			q.logger.Warn("queued submission delivery failed", "localId", entry.LocalID, "error", err)
			continue
		}
		if err := q.markSynced(ctx, entry.LocalID, remote); err != nil {
			return report, err
		}
		report.Succeeded++
	}
	if report.Succeeded > 0 || report.Failed > 0 {
		q.logger.Info("sync pass finished", "succeeded", report.Succeeded, "failed", report.Failed)
	}
	return report, nil
}

// markSynced flips one entry and stores the authoritative server result. The
// offline result is kept for display but superseded by the remote one.
func (q *Queue) markSynced(ctx context.Context, localID int64, remote prediction.Result) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].LocalID != localID {
			continue
		}
		previous := q.entries[i]
		q.entries[i].Synced = true
		q.entries[i].RemoteResult = &remote
		if err := q.persistLocked(ctx); err != nil {
			q.entries[i] = previous
			return apperrors.Wrap("queue_error", "failed to persist synced entry", err)
		}
		return nil
	}
	return ErrNotFound
}

// Remove deletes one entry. Entries are never removed automatically; this
// backs the explicit administrative action.
func (q *Queue) Remove(ctx context.Context, localID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].LocalID != localID {
			continue
		}
		kept := make([]QueuedSubmission, 0, len(q.entries)-1)
		kept = append(kept, q.entries[:i]...)
		kept = append(kept, q.entries[i+1:]...)
		previous := q.entries
		q.entries = kept
		if err := q.persistLocked(ctx); err != nil {
			q.entries = previous
			return apperrors.Wrap("queue_error", "failed to persist queue after removal", err)
		}
		return nil
	}
	return ErrNotFound
}

// PruneSynced drops synced entries created before the cutoff and returns how
// many were removed.
func (q *Queue) PruneSynced(ctx context.Context, olderThan time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := make([]QueuedSubmission, 0, len(q.entries))
	removed := 0
	for _, e := range q.entries {
		if e.Synced && e.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}
	previous := q.entries
	q.entries = kept
	if err := q.persistLocked(ctx); err != nil {
		q.entries = previous
		return 0, apperrors.Wrap("queue_error", "failed to persist queue after prune", err)
	}
	return removed, nil
}

// Flush persists the current snapshot, used during shutdown.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.persistLocked(ctx)
}

func (q *Queue) persistLocked(ctx context.Context) error {
	snapshot := make([]QueuedSubmission, len(q.entries))
	copy(snapshot, q.entries)
	return q.store.Save(ctx, snapshot)
}
