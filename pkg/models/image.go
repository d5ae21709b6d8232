package models

import (
	"fmt"
	"image"
)

// Size is a requested thumbnail size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// CachedImage is a decoded image together with its encoded form.
//
// Encoded holds the JPEG re-encoding that is persisted to disk and served
// over HTTP. If re-encoding failed it holds the original payload and the
// image is kept in memory only.
type CachedImage struct {
	Image   image.Image
	Encoded []byte
	Format  string
}

// Bounds returns the pixel size of the decoded image.
func (c *CachedImage) Bounds() Size {
	if c == nil || c.Image == nil {
		return Size{}
	}
	b := c.Image.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}
