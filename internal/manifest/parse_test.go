package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagehub/internal/cachekey"
	"imagehub/pkg/models"
)

func raws(urls []models.ImageURL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.Raw
	}
	return out
}

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "skips blanks and invalid lines",
			text: "a\n\nhttp://x/1.jpg\nftp://bad\n  http://x/2.png  \n",
			want: []string{"http://x/1.jpg", "http://x/2.png"},
		},
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "crlf line endings",
			text: "https://x/a.webp\r\nhttps://x/b.gif\r\n",
			want: []string{"https://x/a.webp", "https://x/b.gif"},
		},
		{
			name: "keeps duplicates and order",
			text: "http://x/2.png\nhttp://x/1.png\nhttp://x/2.png",
			want: []string{"http://x/2.png", "http://x/1.png", "http://x/2.png"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, raws(Parse(tc.text)))
		})
	}
}

func TestBuildEntries(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := BuildEntries(Parse("https://x/images/1.jpg\nhttps://x/doc.txt\n"), at)

	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Position)
	assert.Equal(t, cachekey.Derive("https://x/images/1.jpg"), entries[0].Key)
	assert.True(t, entries[0].IsImage)
	assert.Equal(t, 1, entries[1].Position)
	assert.False(t, entries[1].IsImage)
	assert.Equal(t, at, entries[1].FetchedAt)
}
