package advisor

import (
	"time"

	"github.com/google/uuid"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
)

// SubmitResponse is what a farmer gets back from a submission. Queued means
// the result came from the offline estimator and awaits reconciliation.
type SubmitResponse struct {
	Result        prediction.Result `json:"result"`
	Queued        bool              `json:"queued"`
	LocalID       int64             `json:"localId,omitempty"`
	UnsyncedCount int               `json:"unsyncedCount"`
}

// QueueStatus summarizes the sync queue for status displays.
type QueueStatus struct {
	Total    int  `json:"total"`
	Unsynced int  `json:"unsynced"`
	Syncing  bool `json:"syncing"`
}

// HistoryEntry is one authoritative prediction kept per farmer.
type HistoryEntry struct {
	ID          uuid.UUID                    `json:"id"`
	FarmerID    string                       `json:"farmerId"`
	Measurement prediction.MeasurementRecord `json:"measurement"`
	Result      prediction.Result            `json:"result"`
	CreatedAt   time.Time                    `json:"createdAt"`
}

// WeatherSnapshot is the current conditions for a region.
type WeatherSnapshot struct {
	Region      string    `json:"region"`
	Description string    `json:"description"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	RainfallMM  float64   `json:"rainfallMm"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// Config carries the advisor's tunables.
type Config struct {
	HistoryLimit int
}
