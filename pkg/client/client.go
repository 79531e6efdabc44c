// Package client provides the low-level HTTP fetcher shared by all chemidr
// resolvers, with rate-limit aware bounded retry, response caching, and
// error classification.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chemkit/chemidr/pkg/cache"
	"github.com/chemkit/chemidr/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch operations.
var (
	pugRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chemidr_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	pugRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chemidr_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	pugErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chemidr_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServerBusy represents 503 PUGREST.ServerBusy.
	ErrorClassServerBusy ErrorClass = "server_busy"

	// ErrorClassNotFound represents 404 PUGREST.NotFound.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassClient represents other 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents other 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the shared HTTP fetcher for PubChem PUG-REST and NCBI E-utilities.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	throttle   *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for response caching and shared throttle state.
	// Optional: when nil, caching and cross-process throttle gating are disabled.
	Redis *redis.Client

	// User-Agent header (NCBI asks clients to identify themselves).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// HTTPTimeout bounds each individual request attempt.
	HTTPTimeout time.Duration

	// MaxAttempts caps retries per request (including the initial attempt).
	// Zero selects the per-error-class default.
	MaxAttempts int

	// CacheTTL is how long successful responses stay cached.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		UserAgent:   userAgent,
		HTTPTimeout: 30 * time.Second,
		MaxAttempts: 5,
		CacheTTL:    1 * time.Hour,
	}
}

// New creates a new fetcher client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf("max_attempts must be >= 0 (got %d)", cfg.MaxAttempts)
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 1 * time.Hour
	}

	logger := log.With().Str("component", "fetcher").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		redis:  cfg.Redis,
		config: cfg,
		logger: logger,
	}

	if cfg.Redis != nil {
		c.throttle = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Fetch performs an HTTP GET against rawURL and returns the response body.
//
// Status handling:
//   - 200: the body is returned verbatim.
//   - 404: (nil, nil) - not-found is valid absent data, never an error.
//   - 429/503/other 5xx and network errors: retried with bounded exponential
//     backoff; exhaustion returns an error wrapping ErrRetryExhausted.
//   - other 4xx: returned as *APIError without retry.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	endpoint := u.Path

	startTime := time.Now()
	defer func() {
		pugRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: throttle gate (only with shared state available)
	if c.throttle != nil {
		allowed, err := c.throttle.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Throttle state check failed")
			return nil, fmt.Errorf("throttle check: %w", err)
		}
		if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by throttle gate")
			pugRequestsTotal.WithLabelValues(endpoint, "throttled").Inc()
			return nil, fmt.Errorf("request blocked: upstream throttling critical")
		}
	}

	// Step 2: cache lookup
	var cacheKey cache.Key
	if c.cache != nil {
		cacheKey = cache.KeyForURL(u)
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Msg("Serving response from cache")
			return entry.Data, nil
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Executing upstream request")

	// Step 3: execute with retry
	var body []byte
	var notFound bool
	var errClass ErrorClass

	retryErr := retryWithBackoff(ctx, c.config.MaxAttempts, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = ErrorClassNetwork
			pugErrorsTotal.WithLabelValues(string(errClass)).Inc()
			pugRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{ErrorClass: errClass, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		if c.throttle != nil {
			if err := c.throttle.UpdateFromHeaders(ctx, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update throttle state from headers")
			}
		}

		pugRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		switch {
		case resp.StatusCode == http.StatusOK:
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				errClass = ErrorClassNetwork
				pugErrorsTotal.WithLabelValues(string(errClass)).Inc()
				return &APIError{ErrorClass: errClass, Message: "read body", Err: err}
			}
			body = b
			return nil

		case resp.StatusCode == http.StatusNotFound:
			// PUGREST.NotFound: absent, not an error
			notFound = true
			return nil

		default:
			errClass = ClassifyStatus(resp.StatusCode)
			pugErrorsTotal.WithLabelValues(string(errClass)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Upstream request error")
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}
	}, func(err error) ErrorClass {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.ErrorClass
		}
		return ErrorClassNetwork
	})

	if retryErr != nil {
		return nil, retryErr
	}

	if notFound {
		return nil, nil
	}

	// Step 4: cache successful responses
	if c.cache != nil {
		entry := cache.NewEntry(body, http.StatusOK, c.config.CacheTTL)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return body, nil
}

// ClassifyStatus categorizes a non-2xx HTTP status for retry and observability.
func ClassifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode == http.StatusServiceUnavailable:
		return ErrorClassServerBusy
	case statusCode == http.StatusNotFound:
		return ErrorClassNotFound
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing). Nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
