package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
	"github.com/Sumatoshi-tech/relimport/pkg/watch"
)

const waitFor = 5 * time.Second

func write(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func next(t *testing.T, ch <-chan *relindex.Index) *relindex.Index {
	t.Helper()

	select {
	case idx := <-ch:
		return idx
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for rebuild")

		return nil
	}
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, filepath.Join(root, "main.py"), "import os\n")

	rebuilt := make(chan *relindex.Index, 8)

	w, err := watch.New(root, relindex.NewBuilder(root),
		watch.WithDebounce(20*time.Millisecond),
		watch.OnRebuild(func(_ context.Context, idx *relindex.Index) { rebuilt <- idx }),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	require.ErrorIs(t, w.Ready(context.Background()), watch.ErrNotReady)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	first := next(t, rebuilt)
	pkg := filepath.Join(root, "src", "app1")
	assert.Empty(t, first.RelatedFiles(ctx, pkg))
	require.NoError(t, w.Ready(ctx))

	write(t, filepath.Join(root, "help.py"), "import app1\n")

	require.Eventually(t, func() bool {
		select {
		case idx := <-rebuilt:
			return len(idx.RelatedFiles(ctx, pkg)) == 1
		default:
			return false
		}
	}, waitFor, 10*time.Millisecond)

	assert.Empty(t, first.RelatedFiles(ctx, pkg), "earlier index must not change")

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Run did not stop")
	}
}

func TestWatcher_BuildErrorKeepsPreviousIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	write(t, filepath.Join(root, "main.py"), "import app1\n")

	rebuilt := make(chan *relindex.Index, 8)
	failed := make(chan error, 8)

	w, err := watch.New(root, relindex.NewBuilder(root),
		watch.WithDebounce(20*time.Millisecond),
		watch.OnRebuild(func(_ context.Context, idx *relindex.Index) { rebuilt <- idx }),
		watch.OnError(func(_ context.Context, err error) { failed <- err }),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = w.Run(ctx) }()

	first := next(t, rebuilt)

	write(t, filepath.Join(root, "broken.py"), "def broken(:\n")

	select {
	case err := <-failed:
		require.Error(t, err)
	case <-time.After(waitFor):
		t.Fatal("expected a failed rebuild")
	}

	assert.Same(t, first, w.Current())
}
