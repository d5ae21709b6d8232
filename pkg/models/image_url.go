package models

import (
	"net/url"
	"strings"
)

// imageExtensions lists the file extensions treated as likely images.
var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
	"tiff": {},
	"bmp":  {},
}

// ImageURL is a source reference taken from the manifest.
//
// Two ImageURLs are equal when their raw strings are equal; nothing else
// takes part in identity.
type ImageURL struct {
	Raw string `json:"url"`
}

func NewImageURL(raw string) ImageURL {
	return ImageURL{Raw: raw}
}

// URL returns the parsed form, or nil when Raw does not parse.
func (u ImageURL) URL() *url.URL {
	parsed, err := url.Parse(u.Raw)
	if err != nil {
		return nil
	}
	return parsed
}

// IsValid reports whether the URL parses with an http or https scheme.
func (u ImageURL) IsValid() bool {
	parsed := u.URL()
	if parsed == nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// IsImageURL is a cheap heuristic: a known image extension, or a raw
// string mentioning "images".
func (u ImageURL) IsImageURL() bool {
	if !u.IsValid() {
		return false
	}
	ext := u.Raw
	if i := strings.LastIndex(u.Raw, "."); i >= 0 {
		ext = u.Raw[i+1:]
	}
	if _, ok := imageExtensions[strings.ToLower(ext)]; ok {
		return true
	}
	return strings.Contains(u.Raw, "images")
}

func (u ImageURL) String() string { return u.Raw }
