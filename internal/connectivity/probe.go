package connectivity

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	defaultProbeInterval = 5 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// PollingSource observes the network by dialing Addr on a fixed interval.
// It emits the first observation and then only changes.
type PollingSource struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger

	// Dial replaces the default dialer; used by tests.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
	// InterfaceName maps a local address to its interface name; used by
	// tests.
	InterfaceName func(ip net.IP) string
}

func NewPollingSource(addr string, interval, timeout time.Duration, logger *slog.Logger) *PollingSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingSource{
		Addr:     addr,
		Interval: interval,
		Timeout:  timeout,
		Logger:   logger.With("component", "connectivity-probe"),
	}
}

func (p *PollingSource) Watch(ctx context.Context) <-chan Path {
	out := make(chan Path, 1)
	interval := p.Interval
	if interval <= 0 {
		interval = defaultProbeInterval
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last Path
		first := true
		for {
			cur := p.probe(ctx)
			if ctx.Err() != nil {
				return
			}
			if first || cur != last {
				select {
				case out <- cur:
				case <-ctx.Done():
					return
				}
				last, first = cur, false
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

func (p *PollingSource) probe(ctx context.Context) Path {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := p.Dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(dctx, "tcp", p.Addr)
	if err != nil {
		p.Logger.Debug("probe failed", "addr", p.Addr, "error", err)
		return Path{State: Disconnected}
	}
	defer conn.Close()

	return Path{State: Connected, Transport: p.transportFor(conn.LocalAddr())}
}

// transportFor finds the interface owning the local address of a
// successful probe and classifies it by name.
func (p *PollingSource) transportFor(local net.Addr) Transport {
	tcp, ok := local.(*net.TCPAddr)
	if !ok || tcp.IP == nil {
		return TransportUnknown
	}
	lookup := p.InterfaceName
	if lookup == nil {
		lookup = interfaceName
	}
	return ClassifyInterface(lookup(tcp.IP))
}

func interfaceName(ip net.IP) string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return iface.Name
			}
		}
	}
	return ""
}

// ClassifyInterface guesses the transport from an interface name.
func ClassifyInterface(name string) Transport {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "wl"), strings.HasPrefix(n, "wifi"), strings.HasPrefix(n, "ath"):
		return TransportWiFi
	case strings.HasPrefix(n, "ww"), strings.HasPrefix(n, "rmnet"), strings.HasPrefix(n, "pdp_ip"), strings.HasPrefix(n, "ccmni"):
		return TransportCellular
	case strings.HasPrefix(n, "eth"), strings.HasPrefix(n, "en"):
		return TransportWired
	default:
		return TransportUnknown
	}
}
