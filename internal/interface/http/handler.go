package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

// Handler wires the HTTP transport to the advisor service.
type Handler struct {
	advisorSvc advisor.Service
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(advisorSvc advisor.Service, logger *slog.Logger) *Handler {
	return &Handler{
		advisorSvc: advisorSvc,
		logger:     logger.With("component", "http.handler"),
	}
}

// SubmitPrediction handles a farm measurement submission.
func (h *Handler) SubmitPrediction(c *gin.Context) {
	var req prediction.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.advisorSvc.Submit(c.Request.Context(), farmerID(c), req)
	if err != nil {
		abortWithError(c, mapServiceError(err, "prediction_failed"))
		return
	}

	status := http.StatusOK
	if resp.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

// PredictionHistory lists recent authoritative predictions for the caller.
func (h *Handler) PredictionHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be an integer", err))
			return
		}
		limit = parsed
	}

	entries, err := h.advisorSvc.History(c.Request.Context(), farmerID(c), limit)
	if err != nil {
		abortWithError(c, mapServiceError(err, "history_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": entries})
}

// QueueStatus reports the sync queue counters.
func (h *Handler) QueueStatus(c *gin.Context) {
	status, err := h.advisorSvc.QueueStatus(c.Request.Context())
	if err != nil {
		abortWithError(c, mapServiceError(err, "queue_failed"))
		return
	}
	c.JSON(http.StatusOK, status)
}

// SyncQueue triggers one synchronous sync pass.
func (h *Handler) SyncQueue(c *gin.Context) {
	report, err := h.advisorSvc.SyncNow(c.Request.Context())
	if err != nil {
		// A mid-pass outage still produced a partial report worth returning.
		if apperrors.IsCode(err, "sync_unavailable") && (report.Succeeded > 0 || report.Failed > 0) {
			c.JSON(http.StatusOK, report)
			return
		}
		abortWithError(c, mapServiceError(err, "sync_failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// RemoveQueued deletes one queued submission by its local id.
func (h *Handler) RemoveQueued(c *gin.Context) {
	localID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "id must be an integer", err))
		return
	}
	if err := h.advisorSvc.RemoveQueued(c.Request.Context(), localID); err != nil {
		abortWithError(c, mapServiceError(err, "queue_failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

// PruneQueue drops synced entries older than the requested window.
func (h *Handler) PruneQueue(c *gin.Context) {
	var req struct {
		OlderThanDays int `json:"olderThanDays"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if req.OlderThanDays == 0 {
		req.OlderThanDays = 30
	}

	removed, err := h.advisorSvc.PruneQueue(c.Request.Context(), time.Duration(req.OlderThanDays)*24*time.Hour)
	if err != nil {
		abortWithError(c, mapServiceError(err, "queue_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// RegionalWeather returns current conditions for a region.
func (h *Handler) RegionalWeather(c *gin.Context) {
	snapshot, err := h.advisorSvc.RegionalWeather(c.Request.Context(), c.Query("region"))
	if err != nil {
		abortWithError(c, mapServiceError(err, "weather_failed"))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Health is the liveness endpoint.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func mapServiceError(err error, fallbackCode string) *HTTPError {
	switch {
	case apperrors.IsCode(err, "invalid_input"):
		return NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err)
	case apperrors.IsCode(err, "sync_unavailable"):
		return NewHTTPError(http.StatusServiceUnavailable, "sync_unavailable", errMessage(err), err)
	case apperrors.IsCode(err, "sync_in_flight"):
		return NewHTTPError(http.StatusConflict, "sync_in_flight", errMessage(err), err)
	case apperrors.IsCode(err, "weather_error"):
		return NewHTTPError(http.StatusBadGateway, "weather_error", errMessage(err), err)
	case errors.Is(err, syncqueue.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "not_found", errMessage(err), err)
	default:
		return NewHTTPError(http.StatusInternalServerError, fallbackCode, errMessage(err), err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
