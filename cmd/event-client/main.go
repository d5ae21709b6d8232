package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imagehub/pkg/utils"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP event server address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	backoff := flag.Duration("reconnect", time.Second, "delay before reconnecting")
	flag.Parse()

	logger := utils.NewLogger(utils.LoggingConfig{Level: "info", Format: "text"}).With("component", "event-client")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		err := run(ctx, *addr, *pretty, os.Stdout, logger)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("disconnected", "addr", *addr, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(*backoff):
		}
	}
}

func run(ctx context.Context, addr string, pretty bool, out io.Writer, logger *slog.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logger.Info("connected", "addr", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printLine(out, sc.Bytes(), pretty)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func printLine(out io.Writer, line []byte, pretty bool) {
	if !pretty {
		fmt.Fprintln(out, string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Fprintln(out, string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Fprintln(out, string(b))
}
