package events

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// Server accepts raw TCP subscribers. Each receives a welcome line and
// then one JSON line per event.
type Server struct {
	Addr   string
	Hub    *Hub
	Logger *slog.Logger
}

func NewServer(addr string, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Addr: addr, Hub: hub, Logger: logger.With("component", "tcp-events")}
}

// Run listens on Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Logger.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Warn("accept failed", "error", err)
			continue
		}

		if _, err := conn.Write(s.Hub.welcome("tcp")); err != nil {
			_ = conn.Close()
			continue
		}
		s.Hub.Add(conn)
		s.Logger.Info("client connected", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.Logger.Info("client disconnected", "remote", c.RemoteAddr().String())
			}()

			// Incoming lines are ignored; reading only detects the close.
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
