package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	manifestPath := filepath.Join(root, "images.txt")
	require.NoError(t, os.WriteFile(manifestPath, []byte("https://example.com/a.jpg\n"), 0o644))

	m := mirror{manifestPath: manifestPath, imageDir: dir}
	srv := httptest.NewServer(m.router(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv, dir
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestMirrorServesManifestAndImages(t *testing.T) {
	srv, _ := newTestMirror(t)

	status, body := get(t, srv.URL+"/images.txt")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://example.com/a.jpg\n", body)

	status, body = get(t, srv.URL+"/images/a.jpg")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jpg", body)

	status, _ = get(t, srv.URL+"/images/missing.jpg")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMirrorGeneratedListing(t *testing.T) {
	srv, _ := newTestMirror(t)

	status, body := get(t, srv.URL+"/generated.txt")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, srv.URL+"/images/a.jpg\n"+srv.URL+"/images/b.png\n", body)
}
