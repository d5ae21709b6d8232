// Package events fans JSON events out to TCP and WebSocket subscribers.
package events

import (
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 2 * time.Second
	historySize  = 50
)

// subscriber is one connected client, whichever transport it uses.
type subscriber interface {
	send(line []byte) error
	close()
	remote() string
	transport() string
}

type tcpSubscriber struct{ conn net.Conn }

func (s tcpSubscriber) send(line []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := s.conn.Write(line)
	return err
}
func (s tcpSubscriber) close() { _ = s.conn.Close() }
func (s tcpSubscriber) remote() string { return s.conn.RemoteAddr().String() }
func (s tcpSubscriber) transport() string { return "tcp" }

type wsSubscriber struct{ conn *websocket.Conn }

func (s wsSubscriber) send(line []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, line)
}
func (s wsSubscriber) close() { _ = s.conn.Close() }
func (s wsSubscriber) remote() string { return s.conn.RemoteAddr().String() }
func (s wsSubscriber) transport() string { return "websocket" }

// Hub tracks subscribers and the last historySize published events.
// Writes happen under mu, so a subscriber never sees interleaved lines.
type Hub struct {
	mu      sync.Mutex
	subs    map[any]subscriber
	history []Event
	logger  *slog.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[any]subscriber),
		logger: logger.With("component", "events"),
	}
}

func (h *Hub) add(key any, s subscriber) {
	h.mu.Lock()
	h.subs[key] = s
	h.mu.Unlock()
}

func (h *Hub) remove(key any) {
	h.mu.Lock()
	s, ok := h.subs[key]
	delete(h.subs, key)
	h.mu.Unlock()
	if ok {
		s.close()
	}
}

func (h *Hub) Add(conn net.Conn) { h.add(conn, tcpSubscriber{conn}) }
func (h *Hub) AddWS(ws *websocket.Conn) { h.add(ws, wsSubscriber{ws}) }
func (h *Hub) RemoveWS(ws *websocket.Conn) { h.remove(ws) }

// Remove unsubscribes conn and closes it, even if it was never added.
func (h *Hub) Remove(conn net.Conn) {
	h.remove(conn)
	_ = conn.Close()
}

// Publish broadcasts a new event of type t and keeps it in the recent
// history.
func (h *Hub) Publish(t Type, data any) {
	ev := New(t, data)
	h.mu.Lock()
	h.history = append(h.history, ev)
	if n := len(h.history); n > historySize {
		h.history = append(h.history[:0], h.history[n-historySize:]...)
	}
	h.mu.Unlock()
	h.BroadcastJSON(ev)
}

// Recent returns up to the last 50 published events, oldest first.
func (h *Hub) Recent() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.history...)
}

// BroadcastJSON writes v as one JSON line to every subscriber. A subscriber
// whose write fails is dropped.
func (h *Hub) BroadcastJSON(v any) {
	line, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("marshal event", "error", err)
		return
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	for key, s := range h.subs {
		if err := s.send(line); err != nil {
			h.logger.Debug("dropping client", "transport", s.transport(), "remote", s.remote(), "error", err)
			s.close()
			delete(h.subs, key)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	var st Stats
	for _, s := range h.subs {
		if s.transport() == "tcp" {
			st.TCPClients++
		} else {
			st.WSClients++
		}
	}
	return st
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[any]subscriber)
	h.mu.Unlock()
	for _, s := range subs {
		s.close()
	}
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

func (h *Hub) welcome(transport string) []byte {
	st := h.Stats()
	b, _ := json.Marshal(welcome{
		Type:      "welcome",
		Transport: transport,
		Clients:   st.TCPClients + st.WSClients,
	})
	return append(b, '\n')
}
