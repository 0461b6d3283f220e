package server

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingRender(t *testing.T) {
	mod := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	entries := []ListingEntry{
		{Name: "fonts", IsDir: true, ModTime: mod},
		{Name: "a<b>.css", Size: 2048, ModTime: mod},
	}

	var buf bytes.Buffer
	require.NoError(t, Listing("/css", entries).Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "<title>Index of /css</title>")
	assert.Contains(t, out, `<a href="../">../</a>`)
	assert.Contains(t, out, `<a href="/css/fonts/">fonts/</a></td><td class="size">-</td>`)
	assert.Contains(t, out, `<a href="/css/a&lt;b&gt;.css">a&lt;b&gt;.css</a>`)
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "2024-03-01 09:30")
	assert.NotContains(t, out, "<b>")
}

func TestListingRootHasNoParent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Listing("/", nil).Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), `href="../"`)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "3.0 MB", formatSize(3<<20))
}
