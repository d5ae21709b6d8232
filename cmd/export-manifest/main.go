package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"imagehub/internal/cachekey"
	"imagehub/internal/diskstore"
	"imagehub/internal/manifest"
	"imagehub/pkg/database"
	"imagehub/pkg/models"
	"imagehub/pkg/utils"
)

func main() {
	var (
		cfgFile = flag.String("config", "", "config file")
		out     = flag.String("out", "data/manifest.csv", "output CSV path")
		width   = flag.Int("w", 200, "thumbnail width used for the thumbnail_key column")
		height  = flag.Int("h", 200, "thumbnail height used for the thumbnail_key column")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging).With("component", "export-manifest")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	entries, err := manifest.NewRepo(db).All(ctx)
	if err != nil {
		logger.Error("read manifest", "error", err)
		os.Exit(1)
	}

	store := diskstore.New(cfg.Cache.Root, logger)
	if err := writeFile(*out, entries, store, models.Size{Width: *width, Height: *height}); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	logger.Info("manifest exported", "entries", len(entries), "path", *out)
}

func writeFile(outPath string, entries []models.ManifestEntry, store *diskstore.Store, size models.Size) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return exportManifest(f, entries, store, size)
}

func exportManifest(out io.Writer, entries []models.ManifestEntry, store *diskstore.Store, size models.Size) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"position", "url", "cache_key", "thumbnail_key", "is_image", "cached", "fetched_at"}); err != nil {
		return err
	}

	for _, e := range entries {
		cached := false
		if store != nil {
			_, cached = store.Load(diskstore.Images, e.Key)
		}
		fetched := ""
		if !e.FetchedAt.IsZero() {
			fetched = e.FetchedAt.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{
			strconv.Itoa(e.Position),
			e.URL.Raw,
			e.Key,
			cachekey.Thumbnail(e.URL.Raw, size),
			strconv.FormatBool(e.IsImage),
			strconv.FormatBool(cached),
			fetched,
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

