// Package notifier implements the server-side publish/subscribe hub that
// fans out config change events to connected clients, grouped by
// (app, environment), plus the in-memory client connection registry.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"

	"github.com/kart-io/confcenter/internal/model"
	hubv1 "github.com/kart-io/confcenter/pkg/api/hub/v1"
)

const (
	// heartbeatCutoff is how long a connection may stay silent before the
	// eviction sweep removes it. Clients heartbeat every 30 seconds.
	heartbeatCutoff = 90 * time.Second

	sweepInterval = 30 * time.Second

	// sendBuffer is the per-session outbound queue. Change events carry no
	// payload, so a full queue means the client is not reading at all; the
	// event is dropped (at-most-once) and TTL revalidation covers the miss.
	sendBuffer = 8

	broadcastWorkers = 64
)

// sender is the minimal surface the hub needs to push a frame to one
// connection. Satisfied by *Session and by test fakes.
type sender interface {
	ID() string
	Send(payload []byte) bool
	Close()
}

// Hub is the pub/sub fan-out keyed by group name "{AppID}:{Environment}".
type Hub struct {
	registry *Registry

	mu       sync.RWMutex
	groups   map[string]map[string]sender
	sessions map[string]sender

	pool *ants.Pool
}

// NewHub creates a Hub. The ants pool bounds broadcast fan-out concurrency
// so one broadcast to a large group cannot spawn unbounded goroutines.
func NewHub(registry *Registry) (*Hub, error) {
	pool, err := ants.NewPool(broadcastWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Hub{
		registry: registry,
		groups:   make(map[string]map[string]sender),
		sessions: make(map[string]sender),
		pool:     pool,
	}, nil
}

// Attach tracks a live connection so the eviction sweep can close it even if
// it never joins a group.
func (h *Hub) Attach(s sender) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.mu.Unlock()
}

// Registry exposes the connection registry for the management API.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join adds a connection to a group.
func (h *Hub) Join(group string, s sender) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]sender)
		h.groups[group] = members
	}
	members[s.ID()] = s
}

// Leave removes a connection from a group.
func (h *Hub) Leave(group string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Drop removes a connection from every group and from the registry. Called
// when the connection closes.
func (h *Hub) Drop(connID string) {
	h.mu.Lock()
	for group, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(h.sessions, connID)
	h.mu.Unlock()

	h.registry.Remove(connID)
}

// NotifyConfigChanged broadcasts a ConfigChanged frame to every connection in
// the (appID, env) group. Delivery is best-effort, at-most-once: the member
// list is snapshotted under the read lock, then the fan-out I/O runs on the
// worker pool without holding any lock. A disconnected or stalled client
// simply misses the push and converges via its TTL revalidation.
func (h *Hub) NotifyConfigChanged(appID string, env model.Environment) {
	group := hubv1.GroupName(appID, string(env))

	h.mu.RLock()
	members := make([]sender, 0, len(h.groups[group]))
	for _, s := range h.groups[group] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	if len(members) == 0 {
		return
	}

	payload, err := sonic.Marshal(&hubv1.Frame{Action: hubv1.ActionConfigChanged})
	if err != nil {
		logger.Errorf("failed to marshal ConfigChanged frame: %v", err)
		return
	}

	logger.Infow("broadcasting config change", "group", group, "members", len(members))
	for _, s := range members {
		s := s
		if err := h.pool.Submit(func() {
			if !s.Send(payload) {
				logger.Warnw("dropping config change for slow connection", "connection_id", s.ID())
			}
		}); err != nil {
			// Pool saturated; fall back to inline send rather than losing
			// the event for this member.
			if !s.Send(payload) {
				logger.Warnw("dropping config change for slow connection", "connection_id", s.ID())
			}
		}
	}
}

// Run sweeps stale connections until ctx is done. Connections whose last
// heartbeat predates the cutoff are closed; closing triggers Drop via the
// session's read loop.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.pool.Release()
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-heartbeatCutoff)
			for _, id := range h.registry.StaleBefore(cutoff) {
				logger.Infow("evicting stale client connection", "connection_id", id)
				h.closeConnection(id)
			}
		}
	}
}

func (h *Hub) closeConnection(connID string) {
	h.mu.RLock()
	target := h.sessions[connID]
	h.mu.RUnlock()

	if target != nil {
		target.Close()
	}
	h.Drop(connID)
}
