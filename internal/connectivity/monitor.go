// Package connectivity tracks network reachability and tells interested
// parties when it changes.
//
// A Monitor is an ordinary value: construct one, feed it from a Source
// with Run, and pass it to whatever needs to check or watch the state.
package connectivity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"imagehub/pkg/metrics"
)

type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Transport is the class of interface carrying traffic.
type Transport int

const (
	TransportUnknown Transport = iota
	TransportWiFi
	TransportCellular
	TransportWired
)

func (t Transport) String() string {
	switch t {
	case TransportWiFi:
		return "wifi"
	case TransportCellular:
		return "cellular"
	case TransportWired:
		return "wired"
	default:
		return "unknown"
	}
}

// Path is one observation of the network.
type Path struct {
	State     State
	Transport Transport
}

func (p Path) Connected() bool { return p.State == Connected }

// Source delivers observations. The channel is closed when the source
// stops.
type Source interface {
	Watch(ctx context.Context) <-chan Path
}

// Checker reports the last observed state.
type Checker interface {
	IsConnected() bool
}

// Notifier hands out change notifications.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

// Monitor holds the most recent Path and notifies subscribers every time
// a new observation arrives, whether or not it differs from the last one.
type Monitor struct {
	logger *slog.Logger

	mu       sync.RWMutex
	path     Path
	observed bool
	subs     map[string]chan struct{}
}

// NewMonitor returns a monitor that reports Disconnected until its first
// observation.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.SetConnected(false)
	return &Monitor{
		logger: logger.With("component", "connectivity"),
		subs:   make(map[string]chan struct{}),
	}
}

// Run applies observations from src until ctx is done or src closes.
func (m *Monitor) Run(ctx context.Context, src Source) error {
	ch := src.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-ch:
			if !ok {
				return nil
			}
			m.observe(p)
		}
	}
}

func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path.Connected()
}

func (m *Monitor) Path() Path {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Subscribe returns a channel that receives a value after observations.
// Notifications carry no payload: read IsConnected or Path on receipt.
// Pending notifications coalesce, so a slow subscriber sees at most one
// queued signal and always reads the newest state. If an observation has
// already arrived, the channel starts with one signal queued so a late
// subscriber still sees the current state. Call the returned function to
// unsubscribe.
func (m *Monitor) Subscribe() (<-chan struct{}, func()) {
	id := uuid.NewString()
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	m.subs[id] = ch
	if m.observed {
		ch <- struct{}{}
	}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (m *Monitor) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

func (m *Monitor) observe(p Path) {
	m.mu.Lock()
	prev := m.path
	m.path = p
	m.observed = true
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	m.mu.Unlock()

	metrics.SetConnected(p.Connected())
	if prev != p {
		m.logger.Info("connectivity changed",
			"state", p.State.String(),
			"transport", p.Transport.String(),
		)
	}
}

// StaticSource replays a fixed list of observations, then stays open
// until the context ends.
type StaticSource []Path

func (s StaticSource) Watch(ctx context.Context) <-chan Path {
	out := make(chan Path)
	go func() {
		defer close(out)
		for _, p := range s {
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out
}

// ChanSource adapts a channel of observations.
type ChanSource <-chan Path

func (c ChanSource) Watch(context.Context) <-chan Path { return c }
