// Package dictionary checks English words against the public dictionary API.
package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL   = "https://api.dictionaryapi.dev/api/v2/entries/en/"
	DefaultTimeout   = 5 * time.Second
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 24 * time.Hour

	// maxBodySize caps how much of a response is decoded.
	maxBodySize = 1 << 20
)

// Config holds configuration for the dictionary client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	CacheSize  int
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client answers whether a word exists. Definite answers are cached;
// lookups that fail count as invalid and are retried on the next call.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	cache   *expirable.LRU[string, bool]
	group   singleflight.Group
}

// New creates a dictionary client.
func New(cfg *Config) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    http.DefaultClient,
	}
	size, ttl := DefaultCacheSize, DefaultCacheTTL
	if cfg != nil {
		if cfg.BaseURL != "" {
			c.baseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			c.timeout = cfg.Timeout
		}
		if cfg.HTTPClient != nil {
			c.http = cfg.HTTPClient
		}
		if cfg.CacheSize > 0 {
			size = cfg.CacheSize
		}
		if cfg.CacheTTL > 0 {
			ttl = cfg.CacheTTL
		}
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	c.cache = expirable.NewLRU[string, bool](size, nil, ttl)
	return c
}

// IsValid reports whether the dictionary has an entry for word.
func (c *Client) IsValid(ctx context.Context, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false
	}
	if valid, ok := c.cache.Get(word); ok {
		return valid
	}

	v, err, _ := c.group.Do(word, func() (any, error) {
		valid, err := c.lookup(ctx, word)
		if err != nil {
			return false, err
		}
		c.cache.Add(word, valid)
		return valid, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("word", word).Msg("Dictionary lookup failed")
		return false
	}
	return v.(bool)
}

// lookup queries the API. A 2xx response with a JSON array body means the
// word exists; 404 means it does not. Anything else, including a 2xx body
// that is not an entry list, is an error and must not be cached.
func (c *Client) lookup(ctx context.Context, word string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(word), nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query dictionary: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("dictionary returned status %d", resp.StatusCode)
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&entries); err != nil {
		return false, fmt.Errorf("failed to decode dictionary response: %w", err)
	}
	return entries != nil, nil
}
