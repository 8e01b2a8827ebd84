// Package catalog checks artwork ids against the Art Institute of Chicago
// public API. Lookups go through a circuit breaker and a verdict cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/sony/gobreaker"
)

// Breaker settings.
const (
	breakerMinRequests  = 3
	breakerFailureRatio = 0.6
	breakerOpenTimeout  = 30 * time.Second
	breakerInterval     = time.Minute
)

var (
	errUpstream   = errors.New("catalog upstream error")
	errCallerGone = errors.New("catalog caller gave up")
)

// Client looks up artwork ids in the catalog.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	cache    Cache
	cacheTTL time.Duration
	log      logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables verdict caching for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient builds a Client for the artworks endpoint at baseURL.
func NewClient(baseURL string, timeout time.Duration, log logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With("module", "catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && failureRatio >= breakerFailureRatio
		},
		// caller cancellation is not an upstream failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

// Exists reports whether the artwork id is known to the catalog. A blank
// id is never known. Outages and an open breaker yield
// common.ErrCatalogUnavailable. A done ctx yields its own error.
func (c *Client) Exists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if c.cache != nil {
		exists, found, err := c.cache.Get(ctx, id)
		if err != nil {
			c.log.Warn(ctx, "catalog cache read failed", "error", err)
		} else if found {
			return exists, nil
		}
	}

	res, err := c.breaker.Execute(func() (any, error) {
		exists, err := c.lookup(ctx, id)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, ctx.Err())
		}
		return exists, err
	})
	if err != nil {
		if errors.Is(err, errCallerGone) {
			return false, ctx.Err()
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Warn(ctx, "catalog call short-circuited", "external_id", id)
		} else {
			c.log.Error(ctx, "catalog lookup failed", "external_id", id, "error", err)
		}
		return false, common.ErrCatalogUnavailable
	}
	exists := res.(bool)

	if c.cache != nil {
		if err := c.cache.Set(ctx, id, exists, c.cacheTTL); err != nil {
			c.log.Warn(ctx, "catalog cache write failed", "error", err)
		}
	}

	return exists, nil
}

// lookup treats 4xx as a definite "no" so it does not count against the breaker.
func (c *Client) lookup(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(id), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %d", errUpstream, resp.StatusCode)
	}
}
