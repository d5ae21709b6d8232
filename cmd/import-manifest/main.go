package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagehub/internal/manifest"
	"imagehub/pkg/database"
	"imagehub/pkg/models"
	"imagehub/pkg/utils"
)

func main() {
	var (
		cfgFile = flag.String("config", "", "config file")
		in      = flag.String("in", "data/images.txt", "manifest to import: plain text, or a CSV with a url column")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging).With("component", "import-manifest")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	urls, err := readFile(*in)
	if err != nil {
		logger.Error("read manifest", "path", *in, "error", err)
		os.Exit(1)
	}

	repo := manifest.NewRepo(db)
	entries := manifest.BuildEntries(urls, time.Now().UTC())
	err = repo.Replace(ctx, entries)
	if rerr := repo.RecordLoad(ctx, "file://"+*in, len(entries), err); rerr != nil {
		logger.Warn("record load", "error", rerr)
	}
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
	logger.Info("manifest imported", "entries", len(entries), "path", *in)
}

func readFile(path string) ([]models.ImageURL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSV(f)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(string(b)), nil
}

// readCSV reads the url column, in row order, from a file such as the
// one export-manifest writes. Invalid URLs are skipped.
func readCSV(r io.Reader) ([]models.ImageURL, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if _, ok := header["url"]; !ok {
		return nil, errors.New("csv has no url column")
	}

	var out []models.ImageURL
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		u := models.NewImageURL(valueAt(header, row, "url"))
		if !u.IsValid() {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
