package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"imagehub/internal/auth"
	"imagehub/internal/connectivity"
	"imagehub/internal/diskstore"
	"imagehub/internal/events"
	"imagehub/internal/fetcher"
	"imagehub/internal/imageload"
	"imagehub/internal/manifest"
	"imagehub/internal/middleware"
	"imagehub/pkg/apperr"
	"imagehub/pkg/database"
	"imagehub/pkg/utils"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default: ./imagehub.yaml or ~/.imagehub/imagehub.yaml)")
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *utils.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		return err
	}
	defer db.Close()

	hub := events.NewHub(logger)
	monitor := connectivity.NewMonitor(logger)
	probe := connectivity.NewPollingSource(cfg.Connectivity.ProbeAddr, cfg.Connectivity.Interval, cfg.Connectivity.DialTimeout, logger)

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

	manifestRepo := manifest.NewRepo(db)
	loader, err := manifest.NewLoader(manifest.Options{
		URL:          cfg.Manifest.URL,
		Fetcher:      fetch,
		Connectivity: monitor,
		Store:        manifestRepo,
		Logger:       logger,
		OnLoaded: func(st manifest.State, err error) {
			if err != nil {
				hub.Publish(events.ManifestFailed, events.ManifestData{
					Entries:   st.Entries,
					Error:     st.Error,
					Retryable: apperr.IsRetryable(err),
				})
				return
			}
			hub.Publish(events.ManifestLoaded, events.ManifestData{Entries: st.Entries})
		},
	})
	if err != nil {
		return err
	}
	if err := loader.Restore(ctx); err != nil {
		logger.Warn("no previous manifest", "error", err)
	}

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", events.WSHandler(hub))
	router.GET("/events/recent", events.RecentHandler(hub))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path, "cache_root": cfg.Cache.Root})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		path := monitor.Path()
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{
			"connected":   path.Connected(),
			"transport":   path.Transport.String(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"manifest":    loader.State(),
		}
		if err := db.PingContext(pingCtx); err != nil {
			body["status"] = "not_ready"
			body["db_error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	imageHandler := imageload.NewHandler(images, hub)
	manifestHandler := manifest.NewHandler(loader, manifestRepo)

	api := router.Group("")
	imageHandler.RegisterRoutes(api)
	manifestHandler.RegisterRoutes(api)

	admin := router.Group("")
	admin.Use(auth.RequireAdmin(tokens))
	imageHandler.RegisterAdminRoutes(admin)
	manifestHandler.RegisterAdminRoutes(admin)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tcpSrv := events.NewServer(cfg.Sync.Addr, hub, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Subscribe for the first load before the probe starts reporting.
	firstObservation, unsubscribeFirst := monitor.Subscribe()

	g.Go(func() error { return ignoreCanceled(monitor.Run(gctx, probe)) })
	g.Go(func() error { return ignoreCanceled(events.ForwardConnectivity(gctx, hub, monitor)) })
	g.Go(func() error { return ignoreCanceled(loader.WatchConnectivity(gctx, monitor)) })
	g.Go(func() error { return tcpSrv.Run(gctx) })

	// The first load waits for the first connectivity observation so a
	// cold start does not fail as offline.
	g.Go(func() error {
		defer unsubscribeFirst()
		select {
		case <-gctx.Done():
			return nil
		case <-firstObservation:
		}
		if err := loader.Load(gctx); err != nil && !apperr.Is(err, apperr.CodeConflict) {
			logger.Warn("initial manifest load failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		hub.Close()
		return err
	})

	err = g.Wait()
	logger.Info("servers stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
