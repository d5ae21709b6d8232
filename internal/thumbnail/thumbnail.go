// Package thumbnail derives fixed-size grid thumbnails.
package thumbnail

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"imagehub/pkg/models"
)

// Derive returns an image of exactly target size that fills the target
// (aspect fill) and crops the overflow around the centre.
//
// A source smaller than target in both dimensions is returned unchanged;
// it is never upscaled. Non-positive targets also return src.
func Derive(src image.Image, target models.Size) image.Image {
	if src == nil || target.Width <= 0 || target.Height <= 0 {
		return src
	}
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return src
	}
	if sw < target.Width && sh < target.Height {
		return src
	}

	scale := math.Max(
		float64(target.Width)/float64(sw),
		float64(target.Height)/float64(sh),
	)

	// The source region that lands on the canvas once scaled.
	cropW := clamp(int(math.Round(float64(target.Width)/scale)), 1, sw)
	cropH := clamp(int(math.Round(float64(target.Height)/scale)), 1, sh)
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2
	crop := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
