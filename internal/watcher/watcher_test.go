package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestFilters(t *testing.T) {
	assert.False(t, NoGitFilter(".git/HEAD"))
	assert.False(t, NoGitFilter("sub/.git/config"))
	assert.True(t, NoGitFilter("app/.gitkeep"))

	assert.False(t, NoNodeModulesFilter("node_modules/x/index.js"))
	assert.True(t, NoNodeModulesFilter("app/js/main.js"))

	assert.False(t, NoTempFilter("dist/.index.html.123.tmp"))
	assert.False(t, NoTempFilter("app/scss/.style.scss.swp"))
	assert.False(t, NoTempFilter("app/html/index.html~"))
	assert.True(t, NoTempFilter("app/html/index.html"))
}

func TestResolveRejectsOutsideRoot(t *testing.T) {
	fw, err := NewFileWatcher(t.TempDir(), 10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	_, err = fw.resolve("../elsewhere")
	assert.Error(t, err)

	abs, err := fw.resolve("app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fw.root, "app"), abs)
}

func TestDebouncerFlushDeduplicates(t *testing.T) {
	d := &Debouncer{
		delay:  time.Hour,
		events: make(chan ChangeEvent, 1),
		output: make(chan []ChangeEvent, 1),
	}
	d.pending = []ChangeEvent{
		{Type: EventTypeCreated, Path: "b.js"},
		{Type: EventTypeModified, Path: "a.js"},
		{Type: EventTypeModified, Path: "b.js"},
	}
	d.flush()

	events := <-d.output
	require.Len(t, events, 2)
	assert.Equal(t, "a.js", events[0].Path)
	assert.Equal(t, "b.js", events[1].Path)
	assert.Equal(t, EventTypeModified, events[1].Type)
	assert.Empty(t, d.pending)
}

func startWatcher(t *testing.T, root string) (*FileWatcher, <-chan []ChangeEvent) {
	t.Helper()
	fw, err := NewFileWatcher(root, 50*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { fw.Stop() })

	fw.AddFilter(NoTempFilter)
	batches := make(chan []ChangeEvent, 16)
	fw.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		batches <- events
		return nil
	})
	require.NoError(t, fw.AddRecursive("."))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, fw.Start(ctx))
	return fw, batches
}

func waitFor(t *testing.T, batches <-chan []ChangeEvent, path string) []ChangeEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case events := <-batches:
			for _, e := range events {
				if e.Path == path {
					return events
				}
			}
		case <-deadline:
			t.Fatalf("no event for %s", path)
			return nil
		}
	}
}

func TestFileWatcherReportsRelativePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "scss"), 0o755))
	_, batches := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "scss", "style.scss"), []byte("a{}"), 0o644))
	waitFor(t, batches, "app/scss/style.scss")
}

func TestFileWatcherDebouncesWrites(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "main.js")
	require.NoError(t, os.WriteFile(file, []byte("0"), 0o644))
	_, batches := startWatcher(t, root)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte('a' + i)}, 0o644))
	}

	events := waitFor(t, batches, "main.js")
	count := 0
	for _, e := range events {
		if e.Path == "main.js" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFileWatcherIgnoresFilteredFiles(t *testing.T) {
	root := t.TempDir()
	_, batches := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".page.html.1.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("x"), 0o644))

	events := waitFor(t, batches, "page.html")
	for _, e := range events {
		assert.NotEqual(t, ".page.html.1.tmp", e.Path)
	}
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, batches := startWatcher(t, root)

	dir := filepath.Join(root, "app", "js")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// the directory is registered asynchronously
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte("1"), 0o644))
		select {
		case events := <-batches:
			for _, e := range events {
				if e.Path == "app/js/main.js" {
					return
				}
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
	t.Fatal("no event from new directory")
}
