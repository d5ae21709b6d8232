package events

import (
	"context"

	"imagehub/internal/connectivity"
)

// PathSource is what ForwardConnectivity reads from. *connectivity.Monitor
// implements it.
type PathSource interface {
	connectivity.Notifier
	Path() connectivity.Path
}

// ForwardConnectivity publishes a connectivity.changed event each time
// the observed path differs from the previous one. It returns when ctx is
// done.
func ForwardConnectivity(ctx context.Context, hub *Hub, src PathSource) error {
	ch, unsubscribe := src.Subscribe()
	defer unsubscribe()

	last := src.Path()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			p := src.Path()
			if p == last {
				continue
			}
			last = p
			hub.Publish(ConnectivityChanged, ConnectivityData{
				Connected: p.Connected(),
				Transport: p.Transport.String(),
			})
		}
	}
}
