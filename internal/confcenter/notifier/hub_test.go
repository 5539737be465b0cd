package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/confcenter/internal/model"
	hubv1 "github.com/kart-io/confcenter/pkg/api/hub/v1"
)

// fakeSender records pushed frames; full simulates a stalled client.
type fakeSender struct {
	id     string
	full   bool
	closed bool

	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.payloads = append(f.payloads, payload)
	return true
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakeSender) lastFrame(t *testing.T) hubv1.Frame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.payloads)
	var frame hubv1.Frame
	require.NoError(t, sonic.Unmarshal(f.payloads[len(f.payloads)-1], &frame))
	return frame
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub, err := NewHub(NewRegistry())
	require.NoError(t, err)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHub_NotifyReachesGroupMembersOnly(t *testing.T) {
	hub := newTestHub(t)

	inGroup := &fakeSender{id: "c1"}
	alsoIn := &fakeSender{id: "c2"}
	other := &fakeSender{id: "c3"}

	hub.Join("identity:Production", inGroup)
	hub.Join("identity:Production", alsoIn)
	hub.Join("identity:Staging", other)

	hub.NotifyConfigChanged("identity", model.EnvProduction)

	waitFor(t, func() bool { return inGroup.received() == 1 && alsoIn.received() == 1 })
	assert.Zero(t, other.received(), "other environments must not receive the event")

	frame := inGroup.lastFrame(t)
	assert.Equal(t, hubv1.ActionConfigChanged, frame.Action)
	assert.Empty(t, frame.AppID, "change events carry no payload")
}

func TestHub_NotifyEmptyGroupIsNoop(t *testing.T) {
	hub := newTestHub(t)
	hub.NotifyConfigChanged("nobody", model.EnvProduction)
}

func TestHub_SlowMemberDoesNotBlockOthers(t *testing.T) {
	hub := newTestHub(t)

	stalled := &fakeSender{id: "c1", full: true}
	healthy := &fakeSender{id: "c2"}
	hub.Join("app:Production", stalled)
	hub.Join("app:Production", healthy)

	hub.NotifyConfigChanged("app", model.EnvProduction)

	waitFor(t, func() bool { return healthy.received() == 1 })
	assert.Zero(t, stalled.received())
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := newTestHub(t)

	s := &fakeSender{id: "c1"}
	hub.Join("app:Production", s)
	hub.Leave("app:Production", "c1")

	hub.NotifyConfigChanged("app", model.EnvProduction)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, s.received())
}

func TestHub_DropRemovesEverywhere(t *testing.T) {
	hub := newTestHub(t)

	s := &fakeSender{id: "c1"}
	hub.Attach(s)
	hub.Join("app:Production", s)
	hub.Join("public:Production", s)
	hub.Registry().Register(&ClientConnection{ConnectionID: "c1"})

	hub.Drop("c1")

	hub.NotifyConfigChanged("app", model.EnvProduction)
	hub.NotifyConfigChanged("public", model.EnvProduction)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, s.received())

	_, ok := hub.Registry().Get("c1")
	assert.False(t, ok, "dropping removes the registry entry")
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "identity:Production", hubv1.GroupName("identity", "Production"))
}
