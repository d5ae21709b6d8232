package imagecodec

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecode_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(4, 3, color.RGBA{R: 255, A: 255})))

	img, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
}

func TestDecode_GIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, solid(2, 2, color.Black), nil))

	_, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
}

func TestDecode_Invalid(t *testing.T) {
	_, _, err := Decode([]byte("definitely not an image"))
	assert.Error(t, err)

	_, _, err = Decode(nil)
	assert.Error(t, err)
}

func TestEncodeJPEG_RoundTripWithinTolerance(t *testing.T) {
	src := solid(16, 16, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	data, err := EncodeJPEG(src, FullQuality)
	require.NoError(t, err)

	img, format, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, src.Bounds().Size(), img.Bounds().Size())

	r, g, b, _ := img.At(8, 8).RGBA()
	assert.InDelta(t, 200, int(r>>8), 6)
	assert.InDelta(t, 100, int(g>>8), 6)
	assert.InDelta(t, 50, int(b>>8), 6)
}

func TestEncodeJPEG_DropsAlpha(t *testing.T) {
	src := solid(8, 8, color.RGBA{}) // fully transparent

	data, err := EncodeJPEG(src, ThumbnailQuality)
	require.NoError(t, err)

	img, _, err := Decode(data)
	require.NoError(t, err)
	r, g, b, a := img.At(4, 4).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestEncodeJPEG_LowerQualityIsSmaller(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8(x ^ y), A: 255})
		}
	}
	full, err := EncodeJPEG(src, FullQuality)
	require.NoError(t, err)
	thumb, err := EncodeJPEG(src, ThumbnailQuality)
	require.NoError(t, err)
	assert.Less(t, len(thumb), len(full))
}
