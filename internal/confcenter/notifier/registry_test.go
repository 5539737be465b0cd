package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/confcenter/internal/model"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	r.Register(&ClientConnection{
		ConnectionID: "c1",
		ClientID:     "client-a",
		AppID:        "identity",
		Environment:  model.EnvProduction,
		HostName:     "host-1",
	})

	got, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "client-a", got.ClientID)
	assert.False(t, got.ConnectedTime.IsZero())
	assert.False(t, got.LastActiveTime.IsZero())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RegisterMergesExisting(t *testing.T) {
	r := NewRegistry()

	r.Register(&ClientConnection{
		ConnectionID: "c1",
		ClientID:     "client-a",
		AppID:        "identity",
		Environment:  model.EnvProduction,
		HostName:     "host-1",
		Version:      "1.0.0",
	})
	first, _ := r.Get("c1")

	// Re-announcement with partial fields keeps what it does not restate.
	r.Register(&ClientConnection{
		ConnectionID: "c1",
		HostName:     "host-2",
	})

	got, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "host-2", got.HostName)
	assert.Equal(t, "client-a", got.ClientID)
	assert.Equal(t, "identity", got.AppID)
	assert.Equal(t, model.EnvProduction, got.Environment)
	assert.Equal(t, "1.0.0", got.Version)
	assert.Equal(t, first.ConnectedTime, got.ConnectedTime, "merge keeps the original connect time")
	assert.Equal(t, 1, r.Len(), "merge must not duplicate the entry")
}

func TestRegistry_SubscribeUnsubscribe(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ConnectionID: "c1"})

	r.Subscribe("c1", "identity:Production")
	r.Subscribe("c1", "identity:Production") // idempotent
	r.Subscribe("c1", "public:Production")

	got, _ := r.Get("c1")
	assert.Equal(t, []string{"identity:Production", "public:Production"}, got.SubscribedGroups)

	r.Unsubscribe("c1", "identity:Production")
	got, _ = r.Get("c1")
	assert.Equal(t, []string{"public:Production"}, got.SubscribedGroups)

	// Unknown connection ids are ignored.
	r.Subscribe("nope", "g")
	r.Unsubscribe("nope", "g")
}

func TestRegistry_ListFilters(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ConnectionID: "c1", AppID: "identity", Environment: model.EnvProduction})
	r.Register(&ClientConnection{ConnectionID: "c2", AppID: "identity", Environment: model.EnvStaging})
	r.Register(&ClientConnection{ConnectionID: "c3", AppID: "billing", Environment: model.EnvProduction})

	assert.Len(t, r.List("", ""), 3)
	assert.Len(t, r.List("identity", ""), 2)
	assert.Len(t, r.List("identity", model.EnvProduction), 1)
	assert.Empty(t, r.List("billing", model.EnvStaging))
}

func TestRegistry_TouchAndStaleBefore(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ConnectionID: "c1"})
	r.Register(&ClientConnection{ConnectionID: "c2"})

	// Backdate c1 so it looks silent.
	r.mu.Lock()
	r.conns["c1"].LastActiveTime = time.Now().Add(-2 * time.Minute)
	r.mu.Unlock()

	stale := r.StaleBefore(time.Now().Add(-time.Minute))
	assert.Equal(t, []string{"c1"}, stale)

	r.Touch("c1")
	stale = r.StaleBefore(time.Now().Add(-time.Minute))
	assert.Empty(t, stale)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Register(&ClientConnection{ConnectionID: "c1"})
	r.Remove("c1")

	_, ok := r.Get("c1")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}
