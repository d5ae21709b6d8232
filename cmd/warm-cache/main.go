package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"imagehub/internal/connectivity"
	"imagehub/internal/diskstore"
	"imagehub/internal/fetcher"
	"imagehub/internal/imageload"
	"imagehub/internal/manifest"
	"imagehub/pkg/database"
	"imagehub/pkg/models"
	"imagehub/pkg/utils"
)

func main() {
	var (
		cfgFile  = flag.String("config", "", "config file")
		width    = flag.Int("w", 200, "thumbnail width")
		height   = flag.Int("h", 200, "thumbnail height")
		workers  = flag.Int("workers", 8, "concurrent downloads")
		imgsOnly = flag.Bool("images-only", true, "skip entries that do not look like images")
		timeout  = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging).With("component", "warm-cache")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, logger, *width, *height, *workers, *imgsOnly); err != nil {
		logger.Error("warm cache failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *utils.Config, logger *slog.Logger, w, h, workers int, imagesOnly bool) error {
	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer db.Close()

	monitor := connectivity.NewMonitor(logger)
	probe := connectivity.NewPollingSource(cfg.Connectivity.ProbeAddr, cfg.Connectivity.Interval, cfg.Connectivity.DialTimeout, logger)
	ready, unsubscribe := monitor.Subscribe()
	defer unsubscribe()
	go func() { _ = monitor.Run(ctx, probe) }()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	fetch := fetcher.New(fetcher.Options{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		UserAgent: cfg.Fetch.UserAgent,
	})
	images, err := imageload.New(imageload.Options{
		Fetcher:           fetch,
		Store:             diskstore.New(cfg.Cache.Root, logger),
		FullCapacity:      cfg.Cache.FullCapacity,
		ThumbnailCapacity: cfg.Cache.ThumbnailCapacity,
		FullQuality:       cfg.Cache.FullQuality,
		ThumbnailQuality:  cfg.Cache.ThumbnailQuality,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	loader, err := manifest.NewLoader(manifest.Options{
		URL:          cfg.Manifest.URL,
		Fetcher:      fetch,
		Connectivity: monitor,
		Store:        manifest.NewRepo(db),
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := loader.Load(ctx); err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	var ok, failed atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range loader.Entries() {
		if imagesOnly && !e.IsImage {
			continue
		}
		g.Go(func() error {
			if _, err := images.LoadThumbnail(gctx, e.URL.Raw, models.Size{Width: w, Height: h}); err != nil {
				failed.Add(1)
				logger.Warn("thumbnail failed", "position", e.Position, "url", e.URL.Raw, "error", err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("cache warmed",
		"ok", ok.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start).Round(time.Millisecond),
		"cache_root", cfg.Cache.Root,
	)
	return nil
}
