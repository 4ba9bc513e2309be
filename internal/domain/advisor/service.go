package advisor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

// Service exposes the submission flow and the surrounding queue, history and
// weather operations.
type Service interface {
	Submit(ctx context.Context, farmerID string, req prediction.Request) (SubmitResponse, error)
	SyncNow(ctx context.Context) (syncqueue.Report, error)
	QueueStatus(ctx context.Context) (QueueStatus, error)
	RemoveQueued(ctx context.Context, localID int64) error
	PruneQueue(ctx context.Context, olderThan time.Duration) (int, error)
	History(ctx context.Context, farmerID string, limit int) ([]HistoryEntry, error)
	RegionalWeather(ctx context.Context, region string) (WeatherSnapshot, error)
}

// RemotePredictor is the authoritative server-side model, reached over the
// network when connectivity allows.
type RemotePredictor interface {
	Predict(ctx context.Context, rec prediction.MeasurementRecord) (prediction.Result, error)
}

// ConnectivitySignal reports whether the remote side is reachable. It is
// injected so the flow is testable without a real network stack.
type ConnectivitySignal interface {
	Online(ctx context.Context) bool
}

// WeatherLookup fetches current conditions for a region.
type WeatherLookup interface {
	Current(ctx context.Context, region string) (WeatherSnapshot, error)
}

// HistoryRepository persists the authoritative prediction history per farmer.
type HistoryRepository interface {
	Append(ctx context.Context, entry HistoryEntry) error
	ListRecent(ctx context.Context, farmerID string, limit int) ([]HistoryEntry, error)
}

type service struct {
	cfg          Config
	remote       RemotePredictor
	transport    syncqueue.Transport
	queue        *syncqueue.Queue
	connectivity ConnectivitySignal
	history      HistoryRepository
	weather      WeatherLookup
	logger       *slog.Logger
	now          func() time.Time
}

// NewService wires up the advisor domain.
func NewService(cfg Config, remote RemotePredictor, transport syncqueue.Transport, queue *syncqueue.Queue, connectivity ConnectivitySignal, history HistoryRepository, weather WeatherLookup, logger *slog.Logger) Service {
	return &service{
		cfg:          cfg,
		remote:       remote,
		transport:    transport,
		queue:        queue,
		connectivity: connectivity,
		history:      history,
		weather:      weather,
		logger:       logger.With("component", "advisor.service"),
		now:          time.Now,
	}
}

// Submit validates the measurement and routes it to the remote predictor when
// online, or to the offline estimator plus the sync queue otherwise. A remote
// call that fails mid-flight also falls back to the offline path so the farmer
// always gets an answer.
func (s *service) Submit(ctx context.Context, farmerID string, req prediction.Request) (SubmitResponse, error) {
	rec, err := req.Validate()
	if err != nil {
		return SubmitResponse{}, err
	}

	if s.connectivity.Online(ctx) {
		result, err := s.remote.Predict(ctx, rec)
		if err == nil {
			s.recordHistory(ctx, farmerID, rec, result)
			return SubmitResponse{
				Result:        result,
				UnsyncedCount: s.queue.Stats().Unsynced,
			}, nil
		}
		s.logger.Warn("remote prediction failed, using offline estimate", "error", err)
	}

	result := prediction.Estimate(rec, s.now())
	sub, err := s.queue.Enqueue(ctx, rec, result)
	if err != nil {
		return SubmitResponse{}, err
	}
	s.logger.Info("submission queued for sync", "localId", sub.LocalID, "riskLevel", result.RiskLevel)
	return SubmitResponse{
		Result:        result,
		Queued:        true,
		LocalID:       sub.LocalID,
		UnsyncedCount: s.queue.Stats().Unsynced,
	}, nil
}

// SyncNow pushes queued submissions to the server. It refuses up front when
// the connectivity signal says the remote side is unreachable, leaving the
// queue untouched.
func (s *service) SyncNow(ctx context.Context) (syncqueue.Report, error) {
	if !s.connectivity.Online(ctx) {
		return syncqueue.Report{}, apperrors.Wrap("sync_unavailable", "no connectivity, sync not attempted", nil)
	}
	return s.queue.Sync(ctx, s.transport)
}

func (s *service) QueueStatus(_ context.Context) (QueueStatus, error) {
	stats := s.queue.Stats()
	return QueueStatus{Total: stats.Total, Unsynced: stats.Unsynced, Syncing: stats.Syncing}, nil
}

func (s *service) RemoveQueued(ctx context.Context, localID int64) error {
	return s.queue.Remove(ctx, localID)
}

func (s *service) PruneQueue(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, apperrors.Wrap("invalid_input", "prune window cannot be negative", nil)
	}
	return s.queue.PruneSynced(ctx, s.now().Add(-olderThan))
}

func (s *service) History(ctx context.Context, farmerID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	entries, err := s.history.ListRecent(ctx, farmerID, limit)
	if err != nil {
		return nil, apperrors.Wrap("history_error", "failed to load prediction history", err)
	}
	return entries, nil
}

func (s *service) RegionalWeather(ctx context.Context, region string) (WeatherSnapshot, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return WeatherSnapshot{}, apperrors.Wrap("invalid_input", "region cannot be empty", nil)
	}
	snapshot, err := s.weather.Current(ctx, region)
	if err != nil {
		return WeatherSnapshot{}, apperrors.Wrap("weather_error", "failed to fetch regional weather", err)
	}
	return snapshot, nil
}

// recordHistory appends a remote result to the authoritative history. Failures
// here never fail the submission.
func (s *service) recordHistory(ctx context.Context, farmerID string, rec prediction.MeasurementRecord, result prediction.Result) {
	entry := HistoryEntry{
		ID:          uuid.New(),
		FarmerID:    farmerID,
		Measurement: rec,
		Result:      result,
		CreatedAt:   s.now(),
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Error("failed to record prediction history", "error", err)
	}
}
