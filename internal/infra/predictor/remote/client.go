package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/prediction"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
)

const predictionsPath = "/api/v1/predictions"

// Client talks to the authoritative prediction server. It backs both the
// online submission path and the sync queue transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client for the prediction server.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict submits one measurement and returns the server's result.
func (c *Client) Predict(ctx context.Context, rec prediction.MeasurementRecord) (prediction.Result, error) {
	return c.post(ctx, rec)
}

// Deliver pushes a queued offline submission. The server result supersedes the
// offline one; a connection level failure is reported as transport
// unavailability so the queue can stop the pass.
func (c *Client) Deliver(ctx context.Context, sub syncqueue.QueuedSubmission) (prediction.Result, error) {
	return c.post(ctx, sub.Measurement)
}

func (c *Client) post(ctx context.Context, rec prediction.MeasurementRecord) (prediction.Result, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return prediction.Result{}, fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictionsPath, bytes.NewReader(payload))
	if err != nil {
		return prediction.Result{}, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The endpoint could not be reached at all.
		return prediction.Result{}, fmt.Errorf("%w: %v", syncqueue.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return prediction.Result{}, fmt.Errorf("prediction request error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var result prediction.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return prediction.Result{}, fmt.Errorf("decode prediction response: %w", err)
	}
	result.Source = prediction.SourceRemote
	return result, nil
}
