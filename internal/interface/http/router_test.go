package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/config"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

const validSubmission = `{
	"cropType": "rice",
	"region": "Thanjavur",
	"rainfallMm": 220,
	"temperatureC": 29,
	"soilPh": 6.5,
	"nitrogenKgHa": 90,
	"phosphorusKgHa": 40,
	"potassiumKgHa": 40,
	"sowingOffsetDays": 0
}`

func TestRouter_SubmitOnlineResult(t *testing.T) {
	svc := &stubAdvisor{
		submitFn: func(ctx context.Context, farmerID string, req prediction.Request) (advisor.SubmitResponse, error) {
			require.Equal(t, "anonymous", farmerID)
			require.Equal(t, "rice", *req.CropType)
			return advisor.SubmitResponse{
				Result: prediction.Result{PredictedYield: 3.4, RiskLevel: prediction.RiskGreen, Source: prediction.SourceRemote},
			}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/predictions", validSubmission, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got advisor.SubmitResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.False(t, got.Queued)
	require.InDelta(t, 3.4, got.Result.PredictedYield, 1e-9)
}

func TestRouter_SubmitQueuedResultReturnsAccepted(t *testing.T) {
	svc := &stubAdvisor{
		submitFn: func(ctx context.Context, _ string, _ prediction.Request) (advisor.SubmitResponse, error) {
			return advisor.SubmitResponse{
				Result:        prediction.Result{PredictedYield: 3.2, RiskLevel: prediction.RiskGreen, Source: prediction.SourceOffline},
				Queued:        true,
				LocalID:       1714550400000,
				UnsyncedCount: 1,
			}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/predictions", validSubmission, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var got advisor.SubmitResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.True(t, got.Queued)
	require.Equal(t, int64(1714550400000), got.LocalID)
}

func TestRouter_SubmitInvalidInput(t *testing.T) {
	svc := &stubAdvisor{
		submitFn: func(ctx context.Context, _ string, _ prediction.Request) (advisor.SubmitResponse, error) {
			return advisor.SubmitResponse{}, apperrors.Wrap("invalid_input", "soilPh is required", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/predictions", `{"cropType":"rice"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "soilPh is required")
}

func TestRouter_SyncUnavailable(t *testing.T) {
	svc := &stubAdvisor{
		syncFn: func(ctx context.Context) (syncqueue.Report, error) {
			return syncqueue.Report{}, apperrors.Wrap("sync_unavailable", "transport unavailable, nothing synced", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/queue/sync", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "sync_unavailable", errBody["error"]["code"])
}

func TestRouter_SyncInFlight(t *testing.T) {
	svc := &stubAdvisor{
		syncFn: func(ctx context.Context) (syncqueue.Report, error) {
			return syncqueue.Report{}, apperrors.Wrap("sync_in_flight", "a sync pass is already running", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/queue/sync", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusConflict, recorder.Code)
}

func TestRouter_SyncPartialReport(t *testing.T) {
	svc := &stubAdvisor{
		syncFn: func(ctx context.Context) (syncqueue.Report, error) {
			return syncqueue.Report{Succeeded: 2, Failed: 1}, apperrors.Wrap("sync_unavailable", "transport became unavailable mid-sync", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/queue/sync", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var report syncqueue.Report
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.Equal(t, syncqueue.Report{Succeeded: 2, Failed: 1}, report)
}

func TestRouter_RemoveQueuedNotFound(t *testing.T) {
	svc := &stubAdvisor{
		removeFn: func(ctx context.Context, localID int64) error {
			require.Equal(t, int64(42), localID)
			return syncqueue.ErrNotFound
		},
	}

	recorder := performRequest(http.MethodDelete, "/api/v1/queue/entries/42", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouter_QueueStatus(t *testing.T) {
	svc := &stubAdvisor{
		statusFn: func(ctx context.Context) (advisor.QueueStatus, error) {
			return advisor.QueueStatus{Total: 3, Unsynced: 2}, nil
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/queue", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, recorder.Code)

	var status advisor.QueueStatus
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	require.Equal(t, 3, status.Total)
	require.Equal(t, 2, status.Unsynced)
}

func TestRouter_HealthBypassesAuth(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/healthz", "", newRouterUnderTest(t, &stubAdvisor{}))
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_WeatherError(t *testing.T) {
	svc := &stubAdvisor{
		weatherFn: func(ctx context.Context, region string) (advisor.WeatherSnapshot, error) {
			return advisor.WeatherSnapshot{}, apperrors.Wrap("weather_error", "failed to fetch regional weather", nil)
		},
	}

	recorder := performRequest(http.MethodGet, "/api/v1/weather?region=Thanjavur", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusBadGateway, recorder.Code)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc advisor.Service) *http.Server {
	t.Helper()
	handler := NewHandler(svc, newTestLogger())
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
	return NewRouter(cfg, handler)
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubAdvisor struct {
	submitFn  func(ctx context.Context, farmerID string, req prediction.Request) (advisor.SubmitResponse, error)
	syncFn    func(ctx context.Context) (syncqueue.Report, error)
	statusFn  func(ctx context.Context) (advisor.QueueStatus, error)
	removeFn  func(ctx context.Context, localID int64) error
	pruneFn   func(ctx context.Context, olderThan time.Duration) (int, error)
	historyFn func(ctx context.Context, farmerID string, limit int) ([]advisor.HistoryEntry, error)
	weatherFn func(ctx context.Context, region string) (advisor.WeatherSnapshot, error)
}

func (s *stubAdvisor) Submit(ctx context.Context, farmerID string, req prediction.Request) (advisor.SubmitResponse, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, farmerID, req)
	}
	return advisor.SubmitResponse{}, nil
}

func (s *stubAdvisor) SyncNow(ctx context.Context) (syncqueue.Report, error) {
	if s.syncFn != nil {
		return s.syncFn(ctx)
	}
	return syncqueue.Report{}, nil
}

func (s *stubAdvisor) QueueStatus(ctx context.Context) (advisor.QueueStatus, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx)
	}
	return advisor.QueueStatus{}, nil
}

func (s *stubAdvisor) RemoveQueued(ctx context.Context, localID int64) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, localID)
	}
	return nil
}

func (s *stubAdvisor) PruneQueue(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.pruneFn != nil {
		return s.pruneFn(ctx, olderThan)
	}
	return 0, nil
}

func (s *stubAdvisor) History(ctx context.Context, farmerID string, limit int) ([]advisor.HistoryEntry, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx, farmerID, limit)
	}
	return nil, nil
}

func (s *stubAdvisor) RegionalWeather(ctx context.Context, region string) (advisor.WeatherSnapshot, error) {
	if s.weatherFn != nil {
		return s.weatherFn(ctx, region)
	}
	return advisor.WeatherSnapshot{}, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
