// Package diskstore persists encoded images under a cache root.
//
// The root holds one directory per namespace. Entries never expire; the
// only way to reclaim space is ClearAll.
package diskstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Namespace names a subdirectory of the cache root.
type Namespace string

const (
	Images     Namespace = "images"
	Thumbnails Namespace = "thumbnails"
)

// Namespaces lists every namespace managed by a Store.
var Namespaces = []Namespace{Images, Thumbnails}

// Store reads and writes cache files. Operations on different keys may
// run concurrently; ClearAll excludes everything else while it runs.
type Store struct {
	root   string
	logger *slog.Logger

	// mu is held for reading by Load and Save and for writing by ClearAll.
	mu sync.RWMutex
}

func New(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   root,
		logger: logger.With("component", "diskstore"),
	}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Load returns the bytes stored under key. A missing or unreadable file
// is reported as absent, never as an error.
func (s *Store) Load(ns Namespace, key string) ([]byte, bool) {
	path, ok := s.path(ns, key)
	if !ok {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("read cache file", "namespace", ns, "key", key, "error", err)
		}
		return nil, false
	}
	if len(b) == 0 {
		return nil, false
	}
	return b, true
}

// Save writes data under key. The file is written next to its final
// location and renamed into place, so a failed save leaves the previous
// content untouched.
func (s *Store) Save(ns Namespace, key string, data []byte) error {
	path, ok := s.path(ns, key)
	if !ok {
		return fmt.Errorf("save %s/%q: invalid key", ns, key)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ClearAll removes every namespace directory and recreates it empty.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, ns := range Namespaces {
		dir := filepath.Join(s.root, string(ns))
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
		}
	}
	for _, ns := range Namespaces {
		dir := filepath.Join(s.root, string(ns))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("recreate %s: %w", dir, err))
		}
	}
	s.logger.Info("disk cache cleared", "root", s.root)
	return errors.Join(errs...)
}

// NamespaceUsage summarises one namespace directory.
type NamespaceUsage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Usage reports file counts and sizes per namespace. Nothing is removed;
// callers that want a size cap decide for themselves when to ClearAll.
func (s *Store) Usage() (map[Namespace]NamespaceUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Namespace]NamespaceUsage, len(Namespaces))
	for _, ns := range Namespaces {
		var u NamespaceUsage
		dir := filepath.Join(s.root, string(ns))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				out[ns] = u
				continue
			}
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			u.Files++
			u.Bytes += info.Size()
		}
		out[ns] = u
	}
	return out, nil
}

func (s *Store) path(ns Namespace, key string) (string, bool) {
	if !validNamespace(ns) || key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", false
	}
	return filepath.Join(s.root, string(ns), key), true
}

func validNamespace(ns Namespace) bool {
	for _, n := range Namespaces {
		if n == ns {
			return true
		}
	}
	return false
}
