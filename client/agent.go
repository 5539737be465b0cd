package client

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	hubv1 "github.com/kart-io/confcenter/pkg/api/hub/v1"
)

// SyncAgent keeps a Client's cache fresh: it holds the persistent push
// connection, re-fetches on ConfigChanged, heartbeats the hub, revalidates
// on TTL expiry, and reconnects with jittered backoff after connection loss.
// None of this blocks application reads, which are always served from the
// in-memory snapshot.
type SyncAgent struct {
	client   *Client
	opts     *Options
	hostName string
}

// NewSyncAgent creates a SyncAgent for the client.
func NewSyncAgent(client *Client) *SyncAgent {
	hostname := "unknown"
	if h, err := osHostname(); err == nil {
		hostname = h
	}
	return &SyncAgent{
		client:   client,
		opts:     client.opts,
		hostName: hostname,
	}
}

// Start runs the agent until ctx is done. It performs self-registration and
// the initial load, then maintains the push connection and the TTL
// revalidation loop in the background. Start only fails when no usable
// config can be obtained at all: with a valid local cache it succeeds even
// if the server is unreachable.
func (a *SyncAgent) Start(ctx context.Context) error {
	if err := a.client.RegisterApp(ctx); err != nil {
		logger.Warnw("app self-registration failed, continuing", "error", err)
	}

	if err := a.client.Load(ctx); err != nil {
		return fmt.Errorf("initial config load failed: %w", err)
	}

	go a.connectLoop(ctx)
	go a.revalidateLoop(ctx)
	return nil
}

// connectLoop dials the hub and serves the connection, reconnecting with
// jittered backoff. The jitter spreads a fleet's reconnects after a shared
// outage so the hub is not hit by a thundering herd.
func (a *SyncAgent) connectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := a.runConnection(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := time.Duration(rand.Int63n(int64(a.opts.ReconnectMaxDelay)))
		logger.Warnw("push connection lost, reconnecting",
			"error", err, "delay", delay.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runConnection dials, registers, then pumps frames until failure.
func (a *SyncAgent) runConnection(ctx context.Context) error {
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := a.register(conn); err != nil {
		return err
	}
	logger.Infow("push connection established",
		"app_id", a.opts.AppID, "environment", a.opts.Environment)

	// Heartbeats keep the server-side connection entry alive; silence gets
	// the connection evicted.
	done := make(chan struct{})
	defer close(done)
	go a.heartbeatLoop(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame hubv1.Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			logger.Warnw("discarding malformed push frame", "error", err)
			continue
		}
		if frame.Action != hubv1.ActionConfigChanged {
			continue
		}

		// The event carries no payload; pull fresh state.
		if err := a.client.Refresh(ctx); err != nil {
			logger.Warnw("refresh after config change failed, keeping cached config", "error", err)
		}
	}
}

func (a *SyncAgent) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := a.hubURL()
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	return conn, err
}

func (a *SyncAgent) register(conn *websocket.Conn) error {
	frames := []*hubv1.Frame{
		{
			Action:      hubv1.ActionRegisterClientInfo,
			ClientID:    a.clientID(),
			AppID:       a.opts.AppID,
			Environment: a.opts.Environment,
			HostName:    a.hostName,
			Version:     sdkVersion,
		},
		{
			Action:      hubv1.ActionRegisterListener,
			AppID:       a.opts.AppID,
			Environment: a.opts.Environment,
		},
	}
	for _, f := range frames {
		payload, err := sonic.Marshal(f)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return err
		}
	}
	return nil
}

func (a *SyncAgent) heartbeatLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(a.opts.HeartbeatInterval)
	defer ticker.Stop()

	payload, err := sonic.Marshal(&hubv1.Frame{Action: hubv1.ActionHeartbeat})
	if err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				// The read loop will observe the broken connection.
				return
			}
		}
	}
}

// revalidateLoop refreshes the snapshot when its TTL elapses. This is the
// convergence path for pushes missed while disconnected.
func (a *SyncAgent) revalidateLoop(ctx context.Context) {
	interval := time.Duration(a.opts.CacheExpirationMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.client.Refresh(ctx); err != nil {
				logger.Warnw("ttl revalidation failed, keeping cached config", "error", err)
			}
		}
	}
}

func (a *SyncAgent) hubURL() (string, error) {
	u, err := url.Parse(a.opts.ServiceURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("appId", a.opts.AppID)
	q.Set("env", a.opts.Environment)
	q.Set("clientId", a.clientID())
	q.Set("hostName", a.hostName)
	q.Set("version", sdkVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (a *SyncAgent) clientID() string {
	if a.opts.ClientID == "" {
		a.opts.ClientID = ulid.Make().String()
	}
	return a.opts.ClientID
}

const sdkVersion = "1.0.0"

// osHostname is separated for tests.
var osHostname = os.Hostname
