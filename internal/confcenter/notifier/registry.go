package notifier

import (
	"sync"
	"time"

	"github.com/kart-io/confcenter/internal/model"
)

// ClientConnection describes one live client connection. Entries live in
// process memory only; none survive a restart or outlive their connection.
type ClientConnection struct {
	ConnectionID     string            `json:"connection_id"`
	ClientID         string            `json:"client_id"`
	AppID            string            `json:"app_id"`
	Environment      model.Environment `json:"environment"`
	HostName         string            `json:"host_name"`
	Version          string            `json:"version"`
	ConnectedTime    time.Time         `json:"connected_time"`
	LastActiveTime   time.Time         `json:"last_active_time"`
	SubscribedGroups []string          `json:"subscribed_groups"`
}

// Registry is the server-side concurrent registry of live client connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*ClientConnection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*ClientConnection)}
}

// Register adds a connection, or merges into an existing entry when the
// client re-announces itself without a full reconnect: ConnectedTime and any
// previously known field that the new announcement leaves blank are kept.
func (r *Registry) Register(c *ClientConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	existing, ok := r.conns[c.ConnectionID]
	if !ok {
		cp := *c
		if cp.ConnectedTime.IsZero() {
			cp.ConnectedTime = now
		}
		cp.LastActiveTime = now
		r.conns[cp.ConnectionID] = &cp
		return
	}

	if c.ClientID != "" {
		existing.ClientID = c.ClientID
	}
	if c.AppID != "" {
		existing.AppID = c.AppID
	}
	if c.Environment != "" {
		existing.Environment = c.Environment
	}
	if c.HostName != "" {
		existing.HostName = c.HostName
	}
	if c.Version != "" {
		existing.Version = c.Version
	}
	existing.LastActiveTime = now
}

// Subscribe records group membership on the connection entry.
func (r *Registry) Subscribe(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	for _, g := range c.SubscribedGroups {
		if g == group {
			return
		}
	}
	c.SubscribedGroups = append(c.SubscribedGroups, group)
	c.LastActiveTime = time.Now()
}

// Unsubscribe removes group membership from the connection entry.
func (r *Registry) Unsubscribe(connID, group string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	for i, g := range c.SubscribedGroups {
		if g == group {
			c.SubscribedGroups = append(c.SubscribedGroups[:i], c.SubscribedGroups[i+1:]...)
			break
		}
	}
	c.LastActiveTime = time.Now()
}

// Touch updates the last-activity timestamp, e.g. on heartbeat.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.conns[connID]; ok {
		c.LastActiveTime = time.Now()
	}
}

// Remove deletes the connection entry.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connID)
}

// Get returns a copy of the connection entry.
func (r *Registry) Get(connID string) (ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return ClientConnection{}, false
	}
	return *c, true
}

// List returns copies of entries matching the optional appID and env
// filters; empty filter values match everything.
func (r *Registry) List(appID string, env model.Environment) []ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ClientConnection
	for _, c := range r.conns {
		if appID != "" && c.AppID != appID {
			continue
		}
		if env != "" && c.Environment != env {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// StaleBefore returns connection ids whose last activity predates cutoff.
func (r *Registry) StaleBefore(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, c := range r.conns {
		if c.LastActiveTime.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
