package notifier

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"
	"github.com/oklog/ulid/v2"

	"github.com/kart-io/confcenter/internal/model"
	hubv1 "github.com/kart-io/confcenter/pkg/api/hub/v1"
)

const (
	writeWait    = 10 * time.Second
	readDeadline = 2 * time.Minute
)

// Session owns one websocket connection: a read loop dispatching client
// action frames and a write loop draining the outbound queue. All writes go
// through the queue so only one goroutine ever touches conn writes.
type Session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// Serve registers the connection with the hub and runs its pumps. It blocks
// until the connection closes; callers run it from the HTTP handler
// goroutine after upgrading.
func (h *Hub) Serve(conn *websocket.Conn, info ClientConnection) {
	s := &Session{
		id:   ulid.Make().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	info.ConnectionID = s.id
	h.registry.Register(&info)
	h.Attach(s)

	// Join the connection's own (app, environment) group immediately; an
	// explicit RegisterAppConfigListener for the same group is a no-op.
	if info.AppID != "" && info.Environment != "" {
		group := hubv1.GroupName(info.AppID, string(info.Environment))
		h.Join(group, s)
		h.registry.Subscribe(s.id, group)
	}

	logger.Infow("client connected",
		"connection_id", s.id, "client_id", info.ClientID,
		"app_id", info.AppID, "environment", info.Environment, "host", info.HostName)

	go s.writeLoop()
	s.readLoop()

	h.Drop(s.id)
	s.Close()
	logger.Infow("client disconnected", "connection_id", s.id)
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Send queues a payload for delivery. Returns false when the session is
// closed or its queue is full; the frame is dropped in that case.
func (s *Session) Send(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// Close tears the session down. Safe to call multiple times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.Close()
				return
			}
		}
	}
}

func (s *Session) readLoop() {
	_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))

		var frame hubv1.Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			logger.Warnw("discarding malformed frame", "connection_id", s.id, "error", err)
			continue
		}
		s.dispatch(&frame)
	}
}

func (s *Session) dispatch(frame *hubv1.Frame) {
	switch frame.Action {
	case hubv1.ActionRegisterListener:
		group := hubv1.GroupName(frame.AppID, frame.Environment)
		s.hub.Join(group, s)
		s.hub.registry.Subscribe(s.id, group)

	case hubv1.ActionUnregisterListener:
		group := hubv1.GroupName(frame.AppID, frame.Environment)
		s.hub.Leave(group, s.id)
		s.hub.registry.Unsubscribe(s.id, group)

	case hubv1.ActionRegisterClientInfo:
		s.hub.registry.Register(&ClientConnection{
			ConnectionID: s.id,
			ClientID:     frame.ClientID,
			AppID:        frame.AppID,
			Environment:  model.Environment(frame.Environment),
			HostName:     frame.HostName,
			Version:      frame.Version,
		})

	case hubv1.ActionHeartbeat:
		s.hub.registry.Touch(s.id)

	default:
		logger.Warnw("unknown frame action", "connection_id", s.id, "action", frame.Action)
	}
}
