// Package gutendex provides a client for the Gutendex Project Gutenberg catalog API.
package gutendex

import (
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/gutenshelf/internal/cache"
	"github.com/lepinkainen/gutenshelf/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public Gutendex books endpoint.
	DefaultBaseURL       = "https://gutendex.com/books"
	defaultTimeout       = 15 * time.Second
	defaultRatePerSecond = 2
	defaultUserAgent     = "gutenshelf/1.0"

	cacheTable = "gutendex_cache"
	sourceName = "gutendex"
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a Gutendex API client. Responses are cached when a cache is configured.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  HTTPDoer
	rateLimiter *ratelimit.Limiter
	cache       *cache.CacheDB
	cacheTTL    time.Duration
}

// NewClient creates a new Gutendex client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     DefaultBaseURL,
		userAgent:   defaultUserAgent,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		rateLimiter: ratelimit.New("Gutendex", defaultRatePerSecond),
		cacheTTL:    cache.DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		if timeout > 0 {
			client.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithBaseURL sets a custom base URL, e.g. a self-hosted Gutendex instance.
func WithBaseURL(base string) Option {
	return func(client *Client) {
		if base != "" {
			client.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(client *Client) {
		if ua != "" {
			client.userAgent = ua
		}
	}
}

// WithRateLimiter sets a custom rate limiter for the client.
func WithRateLimiter(limiter *ratelimit.Limiter) Option {
	return func(client *Client) {
		if limiter != nil {
			client.rateLimiter = limiter
		}
	}
}

// WithCache caches successful responses for ttl. A nil cache disables caching.
func WithCache(c *cache.CacheDB, ttl time.Duration) Option {
	return func(client *Client) {
		client.cache = c
		if ttl > 0 {
			client.cacheTTL = ttl
		}
	}
}
