package filter

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestNewer(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())
	require.NoError(t, afero.WriteFile(fs, "src.png", []byte("a"), 0o644))

	newer, err := Newer(fs, "src.png", "dst.png")
	require.NoError(t, err)
	assert.True(t, newer, "missing destination")

	require.NoError(t, afero.WriteFile(fs, "dst.png", []byte("b"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, fs.Chtimes("src.png", past, past))

	newer, err = Newer(fs, "src.png", "dst.png")
	require.NoError(t, err)
	assert.False(t, newer, "destination newer than source")

	future := time.Now().Add(time.Hour)
	require.NoError(t, fs.Chtimes("src.png", future, future))

	newer, err = Newer(fs, "src.png", "dst.png")
	require.NoError(t, err)
	assert.True(t, newer, "source touched after destination")
}

func TestNewerMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Newer(fs, "none", "dst")
	assert.Error(t, err)
}

func TestChanged(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())

	changed, err := Changed(fs, []byte(`{"a":1}`), "data.json")
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, afero.WriteFile(fs, "data.json", []byte(`{"a":1}`), 0o644))

	changed, err = Changed(fs, []byte(`{"a":1}`), "data.json")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = Changed(fs, []byte(`{"a":2}`), "data.json")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestDigest(t *testing.T) {
	sum, err := Digest(bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, blake3.Sum256([]byte("hello")), sum)
}
