// Package cachekey derives stable file names for cached images.
//
// The digest only has to be stable and well spread; it is not an
// integrity check.
package cachekey

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"imagehub/pkg/models"
)

// Derive returns the lower-case hex MD5 of raw. It accepts any string,
// including the empty one.
func Derive(raw string) string {
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Thumbnail returns the key of a thumbnail of raw at size, which never
// collides with Derive(raw) because of the size suffix.
func Thumbnail(raw string, size models.Size) string {
	return Derive(raw) + "_" + strconv.Itoa(size.Width) + "x" + strconv.Itoa(size.Height)
}
