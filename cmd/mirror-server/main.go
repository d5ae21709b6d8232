package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"imagehub/internal/middleware"
	"imagehub/pkg/utils"
)

// mirror serves a local manifest and the images it points at, so the
// api-server can run against http://localhost:9000/images.txt offline.
type mirror struct {
	manifestPath string
	imageDir     string
}

func main() {
	var (
		addr     = flag.String("addr", ":9000", "listen address")
		manifest = flag.String("manifest", "data/images.txt", "manifest file served at /images.txt")
		dir      = flag.String("dir", "data/images", "directory served under /images/")
	)
	flag.Parse()

	logger := utils.NewLogger(utils.LoggingConfig{Level: "info", Format: "text"}).With("component", "mirror-server")

	m := mirror{manifestPath: *manifest, imageDir: *dir}
	router := m.router(logger)

	logger.Info("mirror-server listening", "addr", *addr, "manifest", *manifest, "dir", *dir)
	if err := http.ListenAndServe(*addr, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("mirror-server stopped", "error", err)
		os.Exit(1)
	}
}

func (m mirror) router(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))

	r.GET("/images.txt", m.serveManifest)
	r.GET("/generated.txt", m.serveListing)
	r.Static("/images", m.imageDir)
	return r
}

func (m mirror) serveManifest(c *gin.Context) {
	b, err := os.ReadFile(m.manifestPath)
	if err != nil {
		c.String(http.StatusInternalServerError, "cannot read manifest: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", b)
}

// serveListing builds a manifest from the files in imageDir, one absolute
// URL per line, rooted at the request host.
func (m mirror) serveListing(c *gin.Context) {
	entries, err := os.ReadDir(m.imageDir)
	if err != nil {
		c.String(http.StatusInternalServerError, "cannot list images: %v", err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s://%s/images/%s\n", scheme, c.Request.Host, filepath.ToSlash(name))
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(sb.String()))
}
