package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehub/pkg/models"
)

func raws(urls []models.ImageURL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.Raw
	}
	return out
}

func TestReadCSV(t *testing.T) {
	in := "position,URL,cache_key\n" +
		"0,https://x/images/1.jpg,k1\n" +
		"1,not a url,k2\n" +
		"2, https://x/2.png ,k3\n"

	urls, err := readCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/images/1.jpg", "https://x/2.png"}, raws(urls))
}

func TestReadCSVWithoutURLColumn(t *testing.T) {
	_, err := readCSV(strings.NewReader("a,b\n1,2\n"))
	assert.Error(t, err)
}

func TestReadFilePlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://x/1.jpg\n\nftp://skip\n"), 0o644))

	urls, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/1.jpg"}, raws(urls))
}
