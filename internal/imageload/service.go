// Package imageload resolves images through the memory, disk and network
// tiers and produces size-specific thumbnails.
package imageload

import (
	"context"
	"fmt"
	"log/slog"

	"imagehub/internal/cachekey"
	"imagehub/internal/diskstore"
	"imagehub/internal/imagecodec"
	"imagehub/internal/memcache"
	"imagehub/internal/thumbnail"
	"imagehub/pkg/apperr"
	"imagehub/pkg/metrics"
	"imagehub/pkg/models"
)

const (
	kindFull      = "full"
	kindThumbnail = "thumbnail"
)

// Fetcher retrieves raw bytes for a URL.
type Fetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

type Options struct {
	Fetcher           Fetcher
	Store             *diskstore.Store
	FullCapacity      int
	ThumbnailCapacity int
	FullQuality       int
	ThumbnailQuality  int
	Logger            *slog.Logger
}

// Service owns both memory tiers and the disk store. It is safe for
// concurrent use.
type Service struct {
	fetcher      Fetcher
	store        *diskstore.Store
	full         *memcache.Cache
	thumbs       *memcache.Cache
	fullQuality  int
	thumbQuality int
	logger       *slog.Logger
	loads        *coalescer
}

// Stats describes the current cache occupancy.
type Stats struct {
	FullEntries      int                                              `json:"full_entries"`
	ThumbnailEntries int                                              `json:"thumbnail_entries"`
	InFlight         int                                              `json:"in_flight"`
	Disk             map[diskstore.Namespace]diskstore.NamespaceUsage `json:"disk"`
}

func New(opts Options) (*Service, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("new image service: fetcher is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("new image service: disk store is required")
	}
	if opts.FullCapacity == 0 {
		opts.FullCapacity = 100
	}
	if opts.ThumbnailCapacity == 0 {
		opts.ThumbnailCapacity = 200
	}
	if opts.FullQuality == 0 {
		opts.FullQuality = imagecodec.FullQuality
	}
	if opts.ThumbnailQuality == 0 {
		opts.ThumbnailQuality = imagecodec.ThumbnailQuality
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	full, err := memcache.New(kindFull, opts.FullCapacity)
	if err != nil {
		return nil, fmt.Errorf("new image service: %w", err)
	}
	thumbs, err := memcache.New(kindThumbnail, opts.ThumbnailCapacity)
	if err != nil {
		return nil, fmt.Errorf("new image service: %w", err)
	}

	return &Service{
		fetcher:      opts.Fetcher,
		store:        opts.Store,
		full:         full,
		thumbs:       thumbs,
		fullQuality:  opts.FullQuality,
		thumbQuality: opts.ThumbnailQuality,
		logger:       opts.Logger.With("component", "imageload"),
		loads:        newCoalescer(),
	}, nil
}

// LoadFull returns the full-resolution image for rawURL, consulting the
// memory tier, then disk, then the network. Fetch errors are returned
// unchanged.
func (s *Service) LoadFull(ctx context.Context, rawURL string) (*models.CachedImage, error) {
	if !models.NewImageURL(rawURL).IsValid() {
		return nil, apperr.InvalidURL(rawURL)
	}
	key := cachekey.Derive(rawURL)

	if img, ok := s.full.Get(key); ok {
		metrics.RecordLookup("memory", kindFull, true)
		return img, nil
	}
	metrics.RecordLookup("memory", kindFull, false)

	img, shared, err := s.loads.do(ctx, kindFull+":"+key, func(ctx context.Context) (*models.CachedImage, error) {
		return s.loadFull(ctx, rawURL, key)
	})
	if shared {
		metrics.CoalescedLoads.WithLabelValues(kindFull).Inc()
	}
	return img, err
}

func (s *Service) loadFull(ctx context.Context, rawURL, key string) (*models.CachedImage, error) {
	if img, ok := s.full.Get(key); ok {
		return img, nil
	}

	if img, ok := s.fromDisk(diskstore.Images, key, kindFull); ok {
		s.full.Put(key, img)
		return img, nil
	}

	data, err := s.fetcher.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	decoded, format, err := imagecodec.Decode(data)
	if err != nil {
		return nil, apperr.Decode(err, "image")
	}

	img := &models.CachedImage{Image: decoded, Format: format}
	encoded, err := imagecodec.EncodeJPEG(decoded, s.fullQuality)
	if err != nil {
		s.logger.Warn("re-encode failed, serving original bytes", "key", key, "error", err)
		img.Encoded = data
		s.full.Put(key, img)
		return img, nil
	}
	img.Encoded = encoded

	s.full.Put(key, img)
	s.persist(diskstore.Images, key, encoded)
	return img, nil
}

// LoadThumbnail returns rawURL aspect-filled to size. On a miss in both
// thumbnail tiers it goes through LoadFull.
func (s *Service) LoadThumbnail(ctx context.Context, rawURL string, size models.Size) (*models.CachedImage, error) {
	if !models.NewImageURL(rawURL).IsValid() {
		return nil, apperr.InvalidURL(rawURL)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, apperr.InvalidInput("thumbnail size must be positive, got " + size.String())
	}
	key := cachekey.Thumbnail(rawURL, size)

	if img, ok := s.thumbs.Get(key); ok {
		metrics.RecordLookup("memory", kindThumbnail, true)
		return img, nil
	}
	metrics.RecordLookup("memory", kindThumbnail, false)

	img, shared, err := s.loads.do(ctx, kindThumbnail+":"+key, func(ctx context.Context) (*models.CachedImage, error) {
		return s.loadThumbnail(ctx, rawURL, key, size)
	})
	if shared {
		metrics.CoalescedLoads.WithLabelValues(kindThumbnail).Inc()
	}
	return img, err
}

func (s *Service) loadThumbnail(ctx context.Context, rawURL, key string, size models.Size) (*models.CachedImage, error) {
	if img, ok := s.thumbs.Get(key); ok {
		return img, nil
	}

	if img, ok := s.fromDisk(diskstore.Thumbnails, key, kindThumbnail); ok {
		s.thumbs.Put(key, img)
		return img, nil
	}

	full, err := s.LoadFull(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	derived := thumbnail.Derive(full.Image, size)
	encoded, err := imagecodec.EncodeJPEG(derived, s.thumbQuality)
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail %s: %w", key, err)
	}

	img := &models.CachedImage{Image: derived, Encoded: encoded, Format: "jpeg"}
	s.thumbs.Put(key, img)
	s.persist(diskstore.Thumbnails, key, encoded)
	return img, nil
}

// fromDisk reads and decodes a persisted entry. Bytes that no longer
// decode are treated as a miss.
func (s *Service) fromDisk(ns diskstore.Namespace, key, kind string) (*models.CachedImage, bool) {
	data, ok := s.store.Load(ns, key)
	if !ok {
		metrics.RecordLookup("disk", kind, false)
		return nil, false
	}
	decoded, format, err := imagecodec.Decode(data)
	if err != nil {
		s.logger.Warn("discarding undecodable disk entry", "namespace", ns, "key", key, "error", err)
		metrics.RecordLookup("disk", kind, false)
		return nil, false
	}
	metrics.RecordLookup("disk", kind, true)
	return &models.CachedImage{Image: decoded, Encoded: data, Format: format}, true
}

// persist writes encoded bytes to disk. Failures are logged and counted;
// the caller already has its image.
func (s *Service) persist(ns diskstore.Namespace, key string, data []byte) {
	if err := s.store.Save(ns, key, data); err != nil {
		metrics.DiskWriteErrors.WithLabelValues(string(ns)).Inc()
		s.logger.Warn("disk cache write failed", "namespace", ns, "key", key, "error", err)
	}
}

// ClearCache empties both memory tiers and the disk store. Loads already
// in flight may repopulate entries after it returns.
func (s *Service) ClearCache() error {
	s.full.Clear()
	s.thumbs.Clear()
	if err := s.store.ClearAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("cache cleared")
	return nil
}

func (s *Service) Stats() (Stats, error) {
	usage, err := s.store.Usage()
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return Stats{
		FullEntries:      s.full.Len(),
		ThumbnailEntries: s.thumbs.Len(),
		InFlight:         s.loads.inFlight(),
		Disk:             usage,
	}, nil
}
