package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Probe answers the online/offline question by issuing a cheap HEAD request
// against the prediction server. Results are cached briefly so a burst of
// submissions does not turn into a burst of probes.
type Probe struct {
	url        string
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time

	mu        sync.Mutex
	online    bool
	checkedAt time.Time
	checking  bool
}

// NewProbe builds a probe against the given URL.
func NewProbe(url string, timeout, cacheTTL time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Second
	}
	return &Probe{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// Online reports whether the probe target responded recently. Any HTTP
// response counts as reachable; only a transport failure means offline.
// The lock guards only the cached state: the network check runs outside it,
// and callers arriving while a check is in flight get the last known answer.
func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	if p.now().Sub(p.checkedAt) < p.cacheTTL || p.checking {
		online := p.online
		p.mu.Unlock()
		return online
	}
	p.checking = true
	p.mu.Unlock()

	online := p.check(ctx)

	p.mu.Lock()
	p.online = online
	p.checkedAt = p.now()
	p.checking = false
	p.mu.Unlock()
	return online
}

func (p *Probe) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Static is a fixed connectivity answer, used for tests and for forcing a
// kiosk into offline mode.
type Static bool

// Online implements the connectivity signal.
func (s Static) Online(context.Context) bool { return bool(s) }
