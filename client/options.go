// Package client is the confcenter SDK for consuming processes: it fetches
// resolved configuration, verifies and persists a local cache, and keeps the
// cache fresh through the push protocol and TTL revalidation.
package client

import (
	"fmt"
	"time"
)

// Options configures a confcenter client.
type Options struct {
	// AppID is the application this process consumes config for.
	AppID string

	// Environment is the deployment tier (Development|Staging|Production).
	Environment string

	// Secret is the app credential obtained from registration. Reserved for
	// authenticated surfaces; the resolved-config read endpoint is anonymous.
	Secret string

	// ServiceURL is the confcenter base URL, e.g. "http://confcenter:8080".
	ServiceURL string

	// LocalCacheDirectory is where the cache file pair lives.
	LocalCacheDirectory string

	// CacheExpirationMinutes bounds how long a cached snapshot is trusted.
	CacheExpirationMinutes int

	// HTTPTimeout bounds each fetch request.
	HTTPTimeout time.Duration

	// HeartbeatInterval is how often the sync agent heartbeats the hub.
	HeartbeatInterval time.Duration

	// ReconnectMaxDelay caps the jittered reconnect backoff.
	ReconnectMaxDelay time.Duration

	// ClientID identifies this process to the hub; defaults to a generated id.
	ClientID string
}

// Validate checks the options and fills defaults.
func (o *Options) Validate() error {
	if o.AppID == "" {
		return fmt.Errorf("AppID is required")
	}
	if o.Environment == "" {
		return fmt.Errorf("Environment is required")
	}
	if o.ServiceURL == "" {
		return fmt.Errorf("ServiceURL is required")
	}
	if o.LocalCacheDirectory == "" {
		o.LocalCacheDirectory = "."
	}
	if o.CacheExpirationMinutes <= 0 {
		o.CacheExpirationMinutes = 60
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 10 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.ReconnectMaxDelay <= 0 {
		o.ReconnectMaxDelay = 5 * time.Second
	}
	return nil
}
