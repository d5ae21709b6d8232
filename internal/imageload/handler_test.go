package imageload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehub/internal/auth"
	"imagehub/internal/cachekey"
	"imagehub/internal/events"
	"imagehub/pkg/apperr"
	"imagehub/pkg/models"
)

func newRouter(t *testing.T, f Fetcher) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := newService(t, f, t.TempDir())
	h := NewHandler(svc, events.NewHub(nil))
	r := gin.New()
	h.RegisterRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group(""))
	return r, svc
}

func do(r http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperr.Response {
	t.Helper()
	var body apperr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_FullImage(t *testing.T) {
	r, _ := newRouter(t, &fakeFetcher{data: pngBytes(t, 30, 10)})

	w := do(r, http.MethodGet, "/images/full?url="+url.QueryEscape(srcURL), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `"`+cachekey.Derive(srcURL)+`"`, w.Header().Get("ETag"))
	assert.Equal(t, "30", w.Header().Get("X-Image-Width"))
	assert.Equal(t, "10", w.Header().Get("X-Image-Height"))
	assert.NotZero(t, w.Body.Len())

	again := do(r, http.MethodGet, "/images/full?url="+url.QueryEscape(srcURL),
		http.Header{"If-None-Match": {w.Header().Get("ETag")}})
	assert.Equal(t, http.StatusNotModified, again.Code)
	assert.Zero(t, again.Body.Len())
}

func TestHandler_Thumbnail(t *testing.T) {
	r, _ := newRouter(t, &fakeFetcher{data: pngBytes(t, 30, 30)})

	w := do(r, http.MethodGet, "/images/thumbnail?w=12&h=6&url="+url.QueryEscape(srcURL), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12", w.Header().Get("X-Image-Width"))
	assert.Equal(t, "6", w.Header().Get("X-Image-Height"))
	assert.Equal(t, `"`+cachekey.Thumbnail(srcURL, models.Size{Width: 12, Height: 6})+`"`, w.Header().Get("ETag"))
}

func TestHandler_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name      string
		fetcher   *fakeFetcher
		target    string
		status    int
		code      string
		retryable bool
	}{
		{
			name:    "invalid url",
			fetcher: &fakeFetcher{},
			target:  "/images/full?url=" + url.QueryEscape("ftp://x/y.png"),
			status:  http.StatusBadRequest,
			code:    "INVALID_URL",
		},
		{
			name:    "bad thumbnail size",
			fetcher: &fakeFetcher{},
			target:  "/images/thumbnail?w=abc&h=1&url=" + url.QueryEscape(srcURL),
			status:  http.StatusBadRequest,
			code:    "INVALID_INPUT",
		},
		{
			name:      "upstream status",
			fetcher:   &fakeFetcher{err: apperr.InvalidResponse(srcURL, 404)},
			target:    "/images/full?url=" + url.QueryEscape(srcURL),
			status:    http.StatusBadGateway,
			code:      "INVALID_RESPONSE",
			retryable: true,
		},
		{
			name:    "not an image",
			fetcher: &fakeFetcher{data: []byte("plain text")},
			target:  "/images/full?url=" + url.QueryEscape(srcURL),
			status:  http.StatusUnprocessableEntity,
			code:    "DECODE_ERROR",
		},
		{
			name:      "offline",
			fetcher:   &fakeFetcher{err: apperr.NoConnectivity()},
			target:    "/images/full?url=" + url.QueryEscape(srcURL),
			status:    http.StatusServiceUnavailable,
			code:      "NO_CONNECTIVITY",
			retryable: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newRouter(t, tc.fetcher)
			w := do(r, http.MethodGet, tc.target, nil)
			require.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.retryable, body.Retryable)
		})
	}
}

func TestHandler_ClearAndStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t, &fakeFetcher{data: pngBytes(t, 8, 8)}, t.TempDir())
	hub := events.NewHub(nil)
	h := NewHandler(svc, hub)
	r := gin.New()
	h.RegisterRoutes(r.Group(""))
	admin := r.Group("")
	admin.Use(func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{Role: auth.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}})
		c.Next()
	})
	h.RegisterAdminRoutes(admin)

	_, err := svc.LoadFull(context.Background(), srcURL)
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 1, st.FullEntries)
	assert.Equal(t, 1, st.Disk["images"].Files)

	w = do(r, http.MethodDelete, "/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	recent := hub.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, events.CacheCleared, recent[0].Type)
	assert.Equal(t, events.CacheData{By: "ops"}, recent[0].Data)

	w = do(r, http.MethodGet, "/cache/stats", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 0, st.FullEntries)
}
