package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"imagehub/internal/connectivity"
	"imagehub/internal/grpcserver"
	"imagehub/pkg/utils"
)

func main() {
	cfgFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		logger.Error("grpc listen failed", "addr", cfg.GRPC.Addr, "error", err)
		os.Exit(1)
	}

	monitor := connectivity.NewMonitor(logger)
	probe := connectivity.NewPollingSource(cfg.Connectivity.ProbeAddr, cfg.Connectivity.Interval, cfg.Connectivity.DialTimeout, logger)
	reporter := grpcserver.NewHealthReporter(monitor, logger)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
	reporter.Register(grpcServer)
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(monitor.Run(gctx, probe)) })
	g.Go(func() error { return ignoreCanceled(reporter.Run(gctx, monitor)) })
	g.Go(func() error {
		logger.Info("grpc server listening", "addr", cfg.GRPC.Addr)
		return grpcServer.Serve(listener)
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("grpc server stopped", "error", err)
		os.Exit(1)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
