package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/kart-io/logger"
)

// Value is one resolved config entry as served by the read endpoint.
type Value struct {
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
	Group       string `json:"group,omitempty"`
	SourceAppID string `json:"source_app_id"`
}

// envelope is the server's uniform response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client reads resolved configuration for one (app, environment), backed by
// a verified local file cache. Reads never block on network I/O once a valid
// snapshot is in memory; the only blocking fetch is the cold start with no
// usable cache.
type Client struct {
	opts  *Options
	cache *fileCache
	http  *http.Client

	mu      sync.RWMutex
	configs map[string]Value
}

// New creates a Client. It does not touch network or disk; call Load.
func New(opts *Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		opts:  opts,
		cache: newFileCache(opts),
		http:  &http.Client{Timeout: opts.HTTPTimeout},
	}, nil
}

// Load initializes the in-memory snapshot: from the local cache when it
// passes verification, otherwise through a blocking network fetch.
func (c *Client) Load(ctx context.Context) error {
	if configs, ok := c.cache.Load(); ok {
		c.setConfigs(configs)
		logger.Infow("config loaded from local cache",
			"app_id", c.opts.AppID, "environment", c.opts.Environment, "keys", len(configs))
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches fresh resolved config and overwrites the local cache.
func (c *Client) Refresh(ctx context.Context) error {
	configs, err := c.fetch(ctx)
	if err != nil {
		return err
	}
	c.setConfigs(configs)
	if err := c.cache.Store(configs); err != nil {
		// A cache write failure degrades persistence, not correctness.
		logger.Warnw("failed to persist config cache", "error", err)
	}
	logger.Infow("config refreshed from server",
		"app_id", c.opts.AppID, "environment", c.opts.Environment, "keys", len(configs))
	return nil
}

// Get returns the resolved value for key.
func (c *Client) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.configs[key]
	return v, ok
}

// All returns a copy of the resolved mapping.
func (c *Client) All() map[string]Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Value, len(c.configs))
	for k, v := range c.configs {
		out[k] = v
	}
	return out
}

// ClearCache deletes the local cache file pair.
func (c *Client) ClearCache() error {
	return c.cache.Clear()
}

// RegisterApp self-registers the client's app id. If the id already exists
// the server reports an error status but returns the stored secret; both
// outcomes are success from the client's point of view, and the returned
// secret is stored on the options.
func (c *Client) RegisterApp(ctx context.Context) error {
	body, err := sonic.Marshal(map[string]string{
		"id":   c.opts.AppID,
		"name": c.opts.AppID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/apps/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed registration response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("registration failed: %s", env.Message)
	}

	var result struct {
		ID     string `json:"id"`
		Secret string `json:"secret"`
	}
	if err := sonic.Unmarshal(env.Data, &result); err != nil {
		return fmt.Errorf("malformed registration response: %w", err)
	}
	if result.Secret == "" {
		return fmt.Errorf("registration failed: %s", env.Message)
	}

	c.opts.Secret = result.Secret
	logger.Infow("app registered", "app_id", result.ID)
	return nil
}

func (c *Client) fetch(ctx context.Context) (map[string]Value, error) {
	url := fmt.Sprintf("%s/config/%s/%s", c.baseURL(), c.opts.AppID, c.opts.Environment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config fetch returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed config response: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("config fetch failed: %s", env.Message)
	}

	configs := make(map[string]Value)
	if len(env.Data) > 0 {
		if err := sonic.Unmarshal(env.Data, &configs); err != nil {
			return nil, fmt.Errorf("malformed config payload: %w", err)
		}
	}
	return configs, nil
}

func (c *Client) setConfigs(configs map[string]Value) {
	c.mu.Lock()
	c.configs = configs
	c.mu.Unlock()
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.opts.ServiceURL, "/")
}
