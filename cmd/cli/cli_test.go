package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehub/internal/auth"
	"imagehub/pkg/apperr"
	"imagehub/pkg/models"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAPIErrorMessage(t *testing.T) {
	err := &apiError{
		Status: http.StatusServiceUnavailable,
		Body:   apperr.Response{Code: "NO_CONNECTIVITY", Error: "offline", Retryable: true},
	}
	assert.Equal(t, "503 NO_CONNECTIVITY: offline (retry may succeed)", err.Error())

	raw := &apiError{Status: http.StatusNotFound, Raw: "404 page not found"}
	assert.Equal(t, "404: 404 page not found", raw.Error())
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("http://localhost:8080", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)

	u, err = websocketURL("https://images.example.com/api", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://images.example.com/ws", u)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	require.NoError(t, saveToken(path, "abc.def.ghi"))

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)

	assert.Error(t, saveToken(path, ""))
}

func TestManifestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manifest", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("images_only"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(manifestListResponse{
			Total: 1,
			Limit: 10,
			Items: []models.ManifestEntry{{
				Position: 0,
				URL:      models.NewImageURL("https://example.com/images/a.jpg"),
				Key:      "k0",
				IsImage:  true,
			}},
		})
	}))
	defer srv.Close()

	out, err := runCLI(t, "--api", srv.URL, "manifest", "list", "--images-only", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/images/a.jpg")
	assert.Contains(t, out, "1 of 1 entries")

	out, err = runCLI(t, "--api", srv.URL, "manifest", "list", "--images-only", "--limit", "10", "--json")
	require.NoError(t, err)
	var resp manifestListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestCacheClearSendsToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out, err := runCLI(t, "--api", srv.URL, "--token", "tok", "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, out, "cache cleared")
}

func TestAdminCommandWithoutToken(t *testing.T) {
	_, err := runCLI(t, "--token-file", filepath.Join(t.TempDir(), "missing.json"), "manifest", "refresh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token issue --save")
}

func TestImageGetReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/thumbnail", r.URL.Path)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(apperr.Response{Code: "INVALID_RESPONSE", Error: "invalid response: status 404", Retryable: true})
	}))
	defer srv.Close()

	_, err := runCLI(t, "--api", srv.URL, "image", "get", "--url", "https://example.com/a.jpg", "--w", "100", "--h", "100")
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "INVALID_RESPONSE", apiErr.Body.Code)
}

func TestTokenIssueSave(t *testing.T) {
	t.Setenv("IMAGEHUB_AUTH_JWT_SECRET", "test-secret")
	path := filepath.Join(t.TempDir(), "token.json")

	out, err := runCLI(t, "--token-file", path, "token", "issue", "--subject", "ops", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "token saved")

	token, err := readToken(path)
	require.NoError(t, err)
	claims, err := auth.TokenService{Secret: []byte("test-secret"), Issuer: "imagehub"}.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}
