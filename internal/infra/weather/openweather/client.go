package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client fetches current conditions from OpenWeather. Responses are cached
// per region for the configured TTL to stay inside the free API quota.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snapshot  advisor.WeatherSnapshot
	fetchedAt time.Time
}

// NewClient builds an OpenWeather API client.
func NewClient(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cacheTTL: cacheTTL,
		now:      time.Now,
		cache:    make(map[string]cachedSnapshot),
	}
}

// Current returns the conditions for a region, served from cache when fresh.
func (c *Client) Current(ctx context.Context, region string) (advisor.WeatherSnapshot, error) {
	key := strings.ToLower(strings.TrimSpace(region))

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok && c.now().Sub(cached.fetchedAt) < c.cacheTTL {
		c.mu.Unlock()
		return cached.snapshot, nil
	}
	c.mu.Unlock()

	snapshot, err := c.fetch(ctx, region)
	if err != nil {
		return advisor.WeatherSnapshot{}, err
	}

	c.mu.Lock()
	c.cache[key] = cachedSnapshot{snapshot: snapshot, fetchedAt: c.now()}
	c.mu.Unlock()
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, region string) (advisor.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("q", region)
	query.Set("units", "metric")
	query.Set("appid", c.apiKey)
	endpoint := c.baseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return advisor.WeatherSnapshot{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return advisor.WeatherSnapshot{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return advisor.WeatherSnapshot{}, fmt.Errorf("weather request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return advisor.WeatherSnapshot{}, fmt.Errorf("decode weather response: %w", err)
	}

	snapshot := advisor.WeatherSnapshot{
		Region:      region,
		Temperature: raw.Main.Temp,
		Humidity:    raw.Main.Humidity,
		RainfallMM:  raw.Rain.OneHour,
		FetchedAt:   c.now(),
	}
	if len(raw.Weather) > 0 {
		snapshot.Description = raw.Weather[0].Description
	}
	return snapshot, nil
}

type apiResponse struct {
	Weather []condition `json:"weather"`
	Main    mainBlock   `json:"main"`
	Rain    rainBlock   `json:"rain"`
}

type condition struct {
	Description string `json:"description"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

type rainBlock struct {
	OneHour float64 `json:"1h"`
}

var _ advisor.WeatherLookup = (*Client)(nil)
