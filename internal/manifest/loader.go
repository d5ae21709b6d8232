package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"imagehub/internal/connectivity"
	"imagehub/pkg/apperr"
	"imagehub/pkg/metrics"
	"imagehub/pkg/models"
)

// DefaultURL is the manifest used when none is configured.
const DefaultURL = "https://it-link.ru/test/images.txt"

// Fetcher retrieves the manifest body.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// Store persists loaded manifests. *Repo implements it.
type Store interface {
	Replace(ctx context.Context, entries []models.ManifestEntry) error
	Clear(ctx context.Context) error
	All(ctx context.Context) ([]models.ManifestEntry, error)
	RecordLoad(ctx context.Context, sourceURL string, entries int, loadErr error) error
}

type Options struct {
	URL          string
	Fetcher      Fetcher
	Connectivity connectivity.Checker
	// Store is optional; without it the manifest lives in memory only.
	Store  Store
	Logger *slog.Logger
	// OnLoaded runs after every load attempt that got past the
	// concurrency check, with the resulting state and error.
	OnLoaded func(State, error)
}

// State is a snapshot of the loader for status displays.
type State struct {
	SourceURL string    `json:"source_url"`
	Entries   int       `json:"entries"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	Retryable bool      `json:"retryable"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Loader owns the current manifest. At most one load runs at a time.
type Loader struct {
	url      string
	fetcher  Fetcher
	checker  connectivity.Checker
	store    Store
	logger   *slog.Logger
	onLoaded func(State, error)

	loading atomic.Bool

	mu       sync.RWMutex
	entries  []models.ManifestEntry
	lastErr  error
	loadedAt time.Time
}

func NewLoader(opts Options) (*Loader, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("new manifest loader: fetcher is required")
	}
	if opts.Connectivity == nil {
		return nil, fmt.Errorf("new manifest loader: connectivity checker is required")
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loader{
		url:      opts.URL,
		fetcher:  opts.Fetcher,
		checker:  opts.Connectivity,
		store:    opts.Store,
		logger:   opts.Logger.With("component", "manifest"),
		onLoaded: opts.OnLoaded,
	}, nil
}

// Restore loads the previously persisted manifest, if any.
func (l *Loader) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	entries, err := l.store.All(ctx)
	if err != nil {
		return fmt.Errorf("restore manifest: %w", err)
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	metrics.ManifestEntries.Set(float64(len(entries)))
	l.logger.Info("restored manifest", "entries", len(entries))
	return nil
}

// Load fetches and parses the manifest. It fails with a Conflict error
// while another load is running and with NoConnectivity, without touching
// the network, while the device is offline. On failure the previous
// entries are kept.
func (l *Loader) Load(ctx context.Context) error {
	return l.run(ctx, false)
}

// Refresh drops the current entries and loads again.
func (l *Loader) Refresh(ctx context.Context) error {
	return l.run(ctx, true)
}

func (l *Loader) run(ctx context.Context, reset bool) error {
	if !l.loading.CompareAndSwap(false, true) {
		return apperr.Conflict("manifest load already in progress")
	}

	l.mu.Lock()
	l.lastErr = nil
	if reset {
		l.entries = nil
	}
	l.mu.Unlock()

	if reset {
		if l.store != nil {
			if err := l.store.Clear(ctx); err != nil {
				l.logger.Warn("clear stored manifest", "error", err)
			}
		}
	}

	entries, err := l.fetch(ctx)

	l.mu.Lock()
	l.lastErr = err
	if err == nil {
		l.entries = entries
		l.loadedAt = time.Now().UTC()
	}
	l.mu.Unlock()

	l.record(ctx, len(entries), err)
	l.loading.Store(false)

	if l.onLoaded != nil {
		l.onLoaded(l.State(), err)
	}
	return err
}

func (l *Loader) fetch(ctx context.Context) ([]models.ManifestEntry, error) {
	if !l.checker.IsConnected() {
		return nil, apperr.NoConnectivity()
	}

	text, err := l.fetcher.FetchText(ctx, l.url)
	if err != nil {
		return nil, err
	}

	entries := BuildEntries(Parse(text), time.Now().UTC())
	if l.store != nil {
		if err := l.store.Replace(ctx, entries); err != nil {
			return nil, fmt.Errorf("persist manifest: %w", err)
		}
	}
	return entries, nil
}

func (l *Loader) record(ctx context.Context, n int, err error) {
	if err != nil {
		metrics.ManifestLoads.WithLabelValues("error").Inc()
		l.logger.Warn("manifest load failed", "url", l.url, "error", err, "retryable", apperr.IsRetryable(err))
	} else {
		metrics.ManifestLoads.WithLabelValues("ok").Inc()
		metrics.ManifestEntries.Set(float64(n))
		l.logger.Info("manifest loaded", "url", l.url, "entries", n)
	}

	if l.store != nil {
		if rerr := l.store.RecordLoad(context.WithoutCancel(ctx), l.url, n, err); rerr != nil {
			l.logger.Warn("record manifest load", "error", rerr)
		}
	}
}

// Entries returns a copy of the current entries in manifest order.
func (l *Loader) Entries() []models.ManifestEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.ManifestEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := State{
		SourceURL: l.url,
		Entries:   len(l.entries),
		Loading:   l.loading.Load(),
		LoadedAt:  l.loadedAt,
	}
	if l.lastErr != nil {
		st.Error = apperr.ToResponse(l.lastErr).Error
		st.Retryable = apperr.IsRetryable(l.lastErr)
	}
	return st
}

// needsRetry reports whether a reconnect should trigger a load.
func (l *Loader) needsRetry() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries) == 0 || l.lastErr != nil
}

// WatchConnectivity loads the manifest whenever n signals and the device
// is online while the manifest is empty or the last load failed. It
// returns when ctx is done.
func (l *Loader) WatchConnectivity(ctx context.Context, n connectivity.Notifier) error {
	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			if !l.checker.IsConnected() || !l.needsRetry() {
				continue
			}
			l.logger.Info("connectivity restored, retrying manifest load")
			if err := l.Load(ctx); err != nil && !apperr.Is(err, apperr.CodeConflict) {
				l.logger.Debug("automatic manifest retry failed", "error", err)
			}
		}
	}
}
