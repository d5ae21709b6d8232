package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ConnectivityChanged Type = "connectivity.changed"
	ManifestLoaded      Type = "manifest.loaded"
	ManifestFailed      Type = "manifest.failed"
	CacheCleared        Type = "cache.cleared"
)

// Event is one line on the event stream.
type Event struct {
	ID   string    `json:"id"`
	Type Type      `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

func New(t Type, data any) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: t,
		At:   time.Now().UTC(),
		Data: data,
	}
}

type ConnectivityData struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport"`
}

type ManifestData struct {
	Entries   int    `json:"entries"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type CacheData struct {
	By string `json:"by,omitempty"`
}
