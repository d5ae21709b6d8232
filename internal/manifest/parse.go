// Package manifest loads the plain-text list of image URLs the gallery
// shows, persists it, and retries on reconnect.
package manifest

import (
	"strings"
	"time"

	"imagehub/internal/cachekey"
	"imagehub/pkg/models"
)

// Parse splits text into lines and keeps, in order, every trimmed
// non-empty line that is a valid http(s) URL. Duplicates are kept.
func Parse(text string) []models.ImageURL {
	lines := strings.Split(text, "\n")
	out := make([]models.ImageURL, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		u := models.NewImageURL(line)
		if !u.IsValid() {
			continue
		}
		out = append(out, u)
	}
	return out
}

// BuildEntries numbers urls in order and derives their cache keys.
func BuildEntries(urls []models.ImageURL, fetchedAt time.Time) []models.ManifestEntry {
	entries := make([]models.ManifestEntry, 0, len(urls))
	for i, u := range urls {
		entries = append(entries, models.ManifestEntry{
			Position:  i,
			URL:       u,
			Key:       cachekey.Derive(u.Raw),
			IsImage:   u.IsImageURL(),
			FetchedAt: fetchedAt,
		})
	}
	return entries
}
