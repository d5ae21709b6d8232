package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehub/pkg/apperr"
)

func TestFetchBytes_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "imagehub-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "imagehub-test"})
	b, err := f.FetchBytes(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), b)
}

func TestNew_ClientTimeout(t *testing.T) {
	assert.Zero(t, New(Options{}).Client.Timeout)
	assert.Equal(t, 5*time.Second, New(Options{Timeout: 5 * time.Second}).Client.Timeout)
}

func TestFetchBytes_AcceptsWholeSuccessRange(t *testing.T) {
	for _, code := range []int{200, 201, 203, 299} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte("ok"))
		}))
		_, err := New(Options{}).FetchBytes(context.Background(), srv.URL)
		assert.NoError(t, err, "status %d", code)
		srv.Close()
	}
}

func TestFetchBytes_InvalidResponse(t *testing.T) {
	for _, code := range []int{300, 304, 404, 500} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		_, err := New(Options{}).FetchBytes(context.Background(), srv.URL)
		require.Error(t, err, "status %d", code)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidResponse), "status %d: %v", code, err)
		srv.Close()
	}
}

func TestFetchBytes_InvalidURL(t *testing.T) {
	f := New(Options{})
	for _, raw := range []string{"", "ftp://host/file", "not a url", "://"} {
		_, err := f.FetchBytes(context.Background(), raw)
		require.Error(t, err, raw)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidURL), raw)
	}
}

func TestFetchBytes_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(Options{Timeout: time.Second}).FetchBytes(context.Background(), addr)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeNetwork))
	assert.True(t, apperr.IsRetryable(err))
}

func TestFetchBytes_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := New(Options{MaxBytes: 16}).FetchBytes(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidResponse))
}

func TestFetchBytes_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).FetchBytes(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchText_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("http://x/1.jpg\nhttp://x/2.png\n"))
	}))
	defer srv.Close()

	s, err := New(Options{}).FetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "http://x/1.jpg\nhttp://x/2.png\n", s)
}

func TestFetchText_NotUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
	}))
	defer srv.Close()

	_, err := New(Options{}).FetchText(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeDecode))
}
