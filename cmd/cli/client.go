package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"imagehub/pkg/apperr"
)

type tokenData struct {
	Token string `json:"token"`
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status int
	Body   apperr.Response
	Raw    string
}

func (e *apiError) Error() string {
	if e.Body.Error != "" {
		msg := fmt.Sprintf("%d %s: %s", e.Status, e.Body.Code, e.Body.Error)
		if e.Body.Retryable {
			msg += " (retry may succeed)"
		}
		return msg
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Raw)
}

func (c *cli) do(ctx context.Context, method, endpoint, token string, payload any) ([]byte, http.Header, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Raw: strings.TrimSpace(string(data))}
		_ = json.Unmarshal(data, &apiErr.Body)
		return nil, nil, apiErr
	}
	return data, resp.Header, nil
}

func (c *cli) doJSON(ctx context.Context, method, endpoint, token string, payload, out any) error {
	data, _, err := c.do(ctx, method, endpoint, token, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// endpoint joins path and query onto the base URL.
func (c *cli) endpoint(path string, query url.Values) (string, error) {
	u, err := url.Parse(strings.TrimRight(c.baseURL, "/") + path)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *cli) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
