// Package cms reads published content from a microCMS-style headless CMS
// through a bounded, expiring response cache.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Errors returned by the client
var (
	ErrNotConfigured      = errors.New("cms not configured")
	ErrEndpointNotAllowed = errors.New("cms endpoint not allowed")
	ErrNotFound           = errors.New("cms content not found")
	ErrUpstream           = errors.New("cms upstream error")
)

const (
	apiKeyHeader    = "X-MICROCMS-API-KEY"
	maxResponseSize = 4 << 20
)

// passthroughParams are the query parameters forwarded to the CMS
var passthroughParams = []string{"limit", "offset", "orders", "q", "fields", "ids", "filters", "depth"}

// Config configures the client
type Config struct {
	BaseURL          string
	APIKey           string
	AllowedEndpoints []string
	CacheTTL         time.Duration
	CacheSize        int
	Timeout          time.Duration
}

// Client fetches CMS JSON and caches it per endpoint and query
type Client struct {
	baseURL string
	apiKey  string
	allowed map[string]struct{}
	http    *http.Client
	cache   *expirable.LRU[string, json.RawMessage]
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewClient creates a CMS client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedEndpoints))
	for _, e := range cfg.AllowedEndpoints {
		allowed[strings.TrimSpace(e)] = struct{}{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		allowed: allowed,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   expirable.NewLRU[string, json.RawMessage](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger,
	}
}

// Enabled reports whether a CMS endpoint is configured
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// List fetches a list endpoint
func (c *Client) List(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	return c.get(ctx, endpoint, "", query)
}

// Get fetches one content item
func (c *Client) Get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error) {
	if contentID == "" || strings.ContainsAny(contentID, "/?#") {
		return nil, ErrNotFound
	}
	return c.get(ctx, endpoint, contentID, query)
}

// Purge drops every cached response and returns how many were removed
func (c *Client) Purge() int {
	n := c.cache.Len()
	c.cache.Purge()
	return n
}

// Len returns the number of cached responses
func (c *Client) Len() int {
	return c.cache.Len()
}

func (c *Client) get(ctx context.Context, endpoint, contentID string, query url.Values) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if _, ok := c.allowed[endpoint]; !ok {
		return nil, ErrEndpointNotAllowed
	}

	path := endpoint
	if contentID != "" {
		path += "/" + url.PathEscape(contentID)
	}
	key := path
	if q := filterQuery(query).Encode(); q != "" {
		key += "?" + q
	}

	if body, ok := c.cache.Get(key); ok {
		return body, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if body, ok := c.cache.Get(key); ok {
			return body, nil
		}
		// shared by every waiting caller, so the first caller's cancellation must not fail the rest
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.http.Timeout)
		defer cancel()
		body, err := c.fetch(sharedCtx, key)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (c *Client) fetch(ctx context.Context, pathAndQuery string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("build cms request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", pathAndQuery).Msg("CMS request failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", pathAndQuery).Msg("CMS returned non-200")
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrUpstream)
	}
	return json.RawMessage(body), nil
}

// filterQuery keeps only forwarded parameters; Encode sorts keys so the cache key is stable
func filterQuery(query url.Values) url.Values {
	out := url.Values{}
	for _, k := range passthroughParams {
		if v := query.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out
}
