package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"impactgo/pkg/config"
	"impactgo/pkg/tracker"
	"impactgo/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("impactgo/%s (MLB impact play tracker)", version.Version)

// Cacher is the subset of the store the client needs for response caching.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Client handles HTTP requests with per-provider queuing, caching, and
// backoff. Requests to the same provider are serialized by a single worker.
type Client struct {
	httpClient *http.Client
	cache      Cacher
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	retries    int

	// Queues per provider (domain)
	queues map[string]chan job
	mu     sync.Mutex // Protects queues map
}

// job represents a queued request.
type job struct {
	req      *http.Request
	headers  map[string]string
	cacheKey string
	respChan chan jobResult
}

type jobResult struct {
	body []byte
	err  error
}

// New creates a new Client. c may be nil to disable caching.
func New(cfg *config.RequestConfig, c Cacher, t *tracker.Tracker) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		cache:      c,
		tracker:    t,
		backoff: NewProviderBackoff(
			time.Duration(cfg.Backoff.BaseDelay),
			time.Duration(cfg.Backoff.MaxDelay),
		),
		retries: cfg.Retries,
		queues:  make(map[string]chan job),
	}
}

// Get performs a GET request with queuing and caching if key is provided.
func (c *Client) Get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	return c.GetWithHeaders(ctx, u, nil, cacheKey)
}

// GetWithHeaders performs a GET request with custom headers and optional caching.
func (c *Client) GetWithHeaders(ctx context.Context, u string, headers map[string]string, cacheKey string) ([]byte, error) {
	provider, err := providerFor(u)
	if err != nil {
		return nil, err
	}

	// 1. Check Cache (Only if key is provided)
	if cacheKey != "" && c.cache != nil {
		if val, hit := c.cache.GetCache(ctx, cacheKey); hit {
			c.tracker.TrackCacheHit(provider)
			slog.Debug("Cache Hit", "provider", provider, "key", cacheKey)
			return val, nil
		}
		c.tracker.TrackCacheMiss(provider)
		slog.Debug("Cache Miss", "provider", provider, "key", cacheKey)
	}

	// 2. Enqueue Request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.roundTrip(ctx, provider, job{req: req, headers: headers, cacheKey: cacheKey})
}

// Head performs a HEAD request, bypassing the cache. It reports whether the
// resource exists (2xx).
func (c *Client) Head(ctx context.Context, u string) (bool, error) {
	provider, err := providerFor(u)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	_, err = c.roundTrip(ctx, provider, job{req: req})
	if err != nil {
		if errStatus(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Post performs a POST request with queuing.
func (c *Client) Post(ctx context.Context, u string, body []byte, contentType string) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, body, map[string]string{"Content-Type": contentType})
}

// PostWithHeaders performs a POST request with custom headers and queuing.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	provider, err := providerFor(u)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.roundTrip(ctx, provider, job{req: req, headers: headers})
}

// PostMultipart performs a multipart/form-data POST built by the fill
// callback. Used for webhook file uploads.
func (c *Client) PostMultipart(ctx context.Context, u string, fill func(*multipart.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := fill(w); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return c.PostWithHeaders(ctx, u, buf.Bytes(), map[string]string{"Content-Type": w.FormDataContentType()})
}

func (c *Client) roundTrip(ctx context.Context, provider string, j job) ([]byte, error) {
	j.respChan = make(chan jobResult, 1)
	c.dispatch(provider, j)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-j.respChan:
		return res.body, res.err
	}
}

func providerFor(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	return normalizeProvider(parsedURL.Host), nil
}

func normalizeProvider(host string) string {
	// Group MLB API hosts into one provider each so requests serialize
	// per rate-limit domain, not per subdomain.
	switch {
	case strings.HasPrefix(host, "statsapi.mlb.com"):
		return "statsapi"
	case strings.HasPrefix(host, "baseballsavant.mlb.com"),
		strings.HasSuffix(host, "sporty-clips.mlb.com"),
		strings.HasPrefix(host, "fastball-clips.mlb.com"):
		return "savant"
	case strings.HasSuffix(host, "discord.com"), strings.HasSuffix(host, "discordapp.com"):
		return "discord"
	}
	return host
}

// dispatch sends the job to the provider's queue, creating the queue/worker if needed.
func (c *Client) dispatch(provider string, j job) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.queues[provider]
	if !ok {
		// Create new queue and start worker
		q = make(chan job, 100)
		c.queues[provider] = q
		go c.worker(provider, q)
	}

	// We block here if the queue is full, effectively throttling the caller
	select {
	case q <- j:
	case <-j.req.Context().Done():
		// Caller gave up before we could even enqueue
		j.respChan <- jobResult{err: j.req.Context().Err()}
	}
}

// worker processes requests for a specific provider sequentially.
func (c *Client) worker(provider string, q <-chan job) {
	for j := range q {
		// Check context before processing
		if j.req.Context().Err() != nil {
			slog.Warn("Job dropped from queue (context expired)", "provider", provider, "error", j.req.Context().Err())
			j.respChan <- jobResult{err: j.req.Context().Err()}
			continue
		}

		// Apply User-Agent (Default if not provided)
		uaMatch := false
		for k, v := range j.headers {
			j.req.Header.Set(k, v)
			if http.CanonicalHeaderKey(k) == "User-Agent" {
				uaMatch = true
			}
		}
		if !uaMatch {
			j.req.Header.Set("User-Agent", defaultUserAgent)
		}

		c.backoff.Wait(provider)
		body, err := c.execute(j.req)

		if err == nil {
			c.tracker.TrackAPISuccess(provider)
			c.backoff.RecordSuccess(provider)
			// Cache result (Only if key is provided)
			if j.cacheKey != "" && c.cache != nil {
				if err := c.cache.SetCache(context.Background(), j.cacheKey, body); err != nil {
					slog.Error("Failed to cache response", "url", j.req.URL, "error", err)
				}
			}
		} else {
			c.tracker.TrackAPIFailure(provider)
			c.backoff.RecordFailure(provider)
		}

		j.respChan <- jobResult{body: body, err: err}

		// Hardcoded safety gap to prevent hitting rate limits
		time.Sleep(100 * time.Millisecond)
	}
}

// statusError marks HTTP status failures so callers can tell a 404 from a
// network problem.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.code)
}

func errStatus(err error) bool {
	var se *statusError
	return errors.As(err, &se)
}

// execute attempts the request with retries on retryable failures.
func (c *Client) execute(req *http.Request) ([]byte, error) {
	for attempt := 0; attempt < c.retries; attempt++ {
		// Verify context is still alive before dialing
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		// The previous attempt drained the body; rewind it or the retry
		// posts nothing.
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			req.Body = body
		}

		slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)

		if err != nil {
			// Check if the error is a context cancellation from OUR side
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}

			slog.Warn("Request failed, retrying", "url", req.URL, "attempt", attempt+1, "error", err)
			if !c.sleepAttempt(req.Context(), attempt) {
				return nil, req.Context().Err()
			}
			continue
		}

		// 429 and 5xx are retryable
		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			slog.Warn("API Backoff", "status", resp.StatusCode, "url", req.URL, "attempt", attempt+1)
			if !c.sleepAttempt(req.Context(), attempt) {
				return nil, req.Context().Err()
			}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode}
		}

		// Success
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded for %s", req.URL.Host)
}

// sleepAttempt waits the exponential delay for the attempt. Returns false if
// the context expired while waiting.
func (c *Client) sleepAttempt(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(c.backoff.attemptDelay(attempt)):
		return true
	case <-ctx.Done():
		return false
	}
}
