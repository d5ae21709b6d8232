package models

import "time"

// ManifestEntry is one persisted manifest line.
type ManifestEntry struct {
	Position  int       `json:"position"`
	URL       ImageURL  `json:"source"`
	Key       string    `json:"key"`
	IsImage   bool      `json:"is_image"`
	FetchedAt time.Time `json:"fetched_at"`
}
