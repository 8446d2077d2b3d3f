package mineru

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

const probeTimeout = 5 * time.Second

// HealthProber checks conversion-service availability. Results are cached
// for a short interval so the scheduler can consult availability on every
// submit without hammering the service.
type HealthProber struct {
	httpClient *http.Client
	url        string
	ttl        time.Duration

	mu        sync.Mutex
	checkedAt time.Time
	healthy   bool
}

func NewHealthProber(endpoint string, ttl time.Duration) *HealthProber {
	return &HealthProber{
		httpClient: &http.Client{Timeout: probeTimeout},
		url:        healthURL(endpoint),
		ttl:        ttl,
	}
}

// healthURL derives the service health endpoint from the conversion
// endpoint.
func healthURL(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	if strings.Contains(endpoint, "/file_parse") {
		return strings.Replace(endpoint, "/file_parse", "/health", 1)
	}
	return strings.TrimRight(endpoint, "/") + "/health"
}

// Healthy reports whether the conversion service answered its health check
// within the cache window.
func (p *HealthProber) Healthy(ctx context.Context) bool {
	if p.url == "" {
		return false
	}

	p.mu.Lock()
	if time.Since(p.checkedAt) < p.ttl {
		ok := p.healthy
		p.mu.Unlock()
		return ok
	}
	p.mu.Unlock()

	ok := p.probe(ctx)

	p.mu.Lock()
	p.checkedAt = time.Now()
	p.healthy = ok
	p.mu.Unlock()
	return ok
}

func (p *HealthProber) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// StatusSnapshot describes the probe state for the status endpoint.
type StatusSnapshot struct {
	URL       string    `json:"url"`
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
}

func (p *HealthProber) Snapshot() StatusSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return StatusSnapshot{URL: p.url, Healthy: p.healthy, CheckedAt: p.checkedAt}
}
