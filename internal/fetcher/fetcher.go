// Package fetcher performs the network GETs for manifests and images.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"imagehub/pkg/apperr"
	"imagehub/pkg/metrics"
	"imagehub/pkg/models"
)

const defaultMaxBytes = 32 << 20

type Options struct {
	// Timeout bounds a whole request. Zero leaves only the caller's
	// context and the transport defaults in charge.
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	// Client overrides the HTTP client built from Timeout.
	Client *http.Client
}

// Fetcher issues single GET requests. It never retries.
type Fetcher struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
		if opts.Timeout > 0 {
			client.Timeout = opts.Timeout
		}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{Client: client, MaxBytes: maxBytes, UserAgent: opts.UserAgent}
}

// FetchBytes returns the body of a 2xx response to GET rawURL.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	b, err := f.get(ctx, rawURL)
	metrics.RecordFetch("image", err, time.Since(start).Seconds())
	return b, err
}

// FetchText is FetchBytes for UTF-8 text bodies.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	start := time.Now()
	b, err := f.get(ctx, rawURL)
	if err == nil && !utf8.Valid(b) {
		err = apperr.Decode(errors.New("body is not valid UTF-8"), "text")
	}
	metrics.RecordFetch("text", err, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	src := models.NewImageURL(rawURL)
	if !src.IsValid() {
		return nil, apperr.InvalidURL(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperr.InvalidURL(rawURL)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Network(err, rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, apperr.InvalidResponse(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Network(fmt.Errorf("read body: %w", err), rawURL)
	}
	if int64(len(body)) > f.MaxBytes {
		return nil, apperr.InvalidResponse(rawURL, resp.StatusCode)
	}
	return body, nil
}
