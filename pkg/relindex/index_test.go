package relindex_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/classify"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/pyimport"
	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
	"github.com/Sumatoshi-tech/relimport/pkg/textenc"
	"github.com/Sumatoshi-tech/relimport/pkg/walker"
)

var errDenied = errors.New("permission denied")

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func project(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.py":              "from .src import app1\nimport src.app1\n",
		"demo/help.py":         "import app1\nfrom src.app1 import main\n",
		"src/app1/__init__.py": "",
		"src/app1/main.py":     "import os\n",
		"other/x.py":           "from fastapi.app1 import main\n",
		".venv/lib/broken.py":  "def broken(:\n",
		"README.md":            "import nothing\n",
	})

	return root
}

func build(t *testing.T, root string, opts ...relindex.Option) *relindex.Index {
	t.Helper()

	idx, err := relindex.NewBuilder(root, opts...).Build(context.Background())
	require.NoError(t, err)

	return idx
}

func TestRelatedFiles(t *testing.T) {
	t.Parallel()

	root := project(t)
	idx := build(t, root)

	want := []string{
		filepath.Join(root, "demo", "help.py"),
		filepath.Join(root, "main.py"),
	}

	assert.Equal(t, want, idx.RelatedFiles(context.Background(), filepath.Join(root, "src", "app1")))
	assert.Equal(t, want, idx.RelatedFiles(context.Background(), filepath.Join("src", "app1")))
	assert.Empty(t, idx.RelatedFiles(context.Background(), filepath.Join(root, "nowhere")))
}

func TestRelatedFiles_CachedResultIsCopied(t *testing.T) {
	t.Parallel()

	root := project(t)
	idx := build(t, root)
	pkg := filepath.Join(root, "src", "app1")

	first := idx.RelatedFiles(context.Background(), pkg)
	require.NotEmpty(t, first)

	first[0] = "mutated"

	assert.NotContains(t, idx.RelatedFiles(context.Background(), pkg), "mutated")
}

func TestRelatedFiles_NoCache(t *testing.T) {
	t.Parallel()

	root := project(t)
	idx := build(t, root, relindex.WithQueryCacheSize(0))

	assert.Len(t, idx.RelatedFiles(context.Background(), filepath.Join(root, "src", "app1")), 2)
}

func TestRelatedImports(t *testing.T) {
	t.Parallel()

	root := project(t)
	idx := build(t, root)

	matches := idx.RelatedImports(context.Background(), filepath.Join(root, "src", "app1"))
	require.Len(t, matches, 2)

	assert.Equal(t, filepath.Join(root, "demo", "help.py"), matches[0].Path)
	require.Len(t, matches[0].Matches, 2)
	assert.Equal(t, classify.CaseBare, matches[0].Matches[0].Match.Case)
	assert.Equal(t, classify.CaseQualified, matches[0].Matches[1].Match.Case)

	assert.Equal(t, filepath.Join(root, "main.py"), matches[1].Path)
	require.Len(t, matches[1].Matches, 2)
	assert.Equal(t, classify.CaseRelative, matches[1].Matches[0].Match.Case)
	assert.Equal(t, classify.CaseDotted, matches[1].Matches[1].Match.Case)
}

func TestBuild_StatsAndRecords(t *testing.T) {
	t.Parallel()

	root := project(t)
	idx := build(t, root)

	stats := idx.Stats()
	assert.Equal(t, 5, stats.FilesScanned)
	assert.Equal(t, 4, stats.FilesWithImports)
	assert.Equal(t, 6, stats.Records)
	assert.Positive(t, stats.BytesRead)
	assert.Equal(t, root, idx.Root())
	assert.Len(t, idx.Files(), 4)

	recs, ok := idx.Records(filepath.Join(root, "main.py"))
	require.True(t, ok)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Level)
	assert.Equal(t, "src.app1", recs[1].Name)

	_, ok = idx.Records(filepath.Join(root, "src", "app1", "__init__.py"))
	assert.False(t, ok)
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	root := project(t)

	collect := func(idx *relindex.Index) map[string][]importmodel.Record {
		out := make(map[string][]importmodel.Record)
		for path, recs := range idx.Entries() {
			out[path] = recs
		}

		return out
	}

	first := collect(build(t, root))
	second := collect(build(t, root))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rebuild differs (-first +second):\n%s", diff)
	}
}

func TestBuild_RootNotFound(t *testing.T) {
	t.Parallel()

	_, err := relindex.NewBuilder(filepath.Join(t.TempDir(), "missing")).Build(context.Background())
	require.ErrorIs(t, err, walker.ErrRootNotFound)
}

func TestBuild_ParseErrorAbortsBuild(t *testing.T) {
	t.Parallel()

	root := project(t)
	writeFiles(t, root, map[string]string{"src/bad.py": "import os\nclass (:\n"})

	idx, err := relindex.NewBuilder(root).Build(context.Background())
	require.ErrorIs(t, err, pyimport.ErrParse)
	assert.Nil(t, idx)

	var fileErr *relindex.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, filepath.Join(root, "src", "bad.py"), fileErr.Path)
}

func TestBuild_EncodingErrorAbortsBuild(t *testing.T) {
	t.Parallel()

	root := project(t)
	writeFiles(t, root, map[string]string{"legacy.py": "# coding: klingon\nimport os\n"})

	_, err := relindex.NewBuilder(root).Build(context.Background())
	require.ErrorIs(t, err, textenc.ErrEncoding)
}

func TestBuild_UndecodableByteAbortsBuild(t *testing.T) {
	t.Parallel()

	root := project(t)
	writeFiles(t, root, map[string]string{"legacy.py": "# coding: ascii\nimport caf\x81\n"})

	_, err := relindex.NewBuilder(root).Build(context.Background())
	require.ErrorIs(t, err, textenc.ErrEncoding)

	var fileErr *relindex.FileError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, filepath.Join(root, "legacy.py"), fileErr.Path)
}

func TestBuild_ReaderErrorAbortsBuild(t *testing.T) {
	t.Parallel()

	root := project(t)
	reader := func(string) (string, error) { return "", errDenied }

	_, err := relindex.NewBuilder(root, relindex.WithReader(reader)).Build(context.Background())
	require.ErrorIs(t, err, errDenied)
}

func TestBuild_DeclaredEncoding(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"latin.py": "# -*- coding: latin-1 -*-\nname = '\xE9'\nimport app1\n"})

	idx := build(t, root)

	assert.Equal(t, []string{filepath.Join(root, "latin.py")}, idx.RelatedFiles(context.Background(), "/x/app1"))
}

func TestBuild_CustomFilter(t *testing.T) {
	t.Parallel()

	root := project(t)
	filter := walker.Filter{Dirs: []string{"demo"}, Extensions: []string{".py"}}

	idx := build(t, root, relindex.WithFilter(filter))

	assert.Equal(t, []string{
		filepath.Join(root, "demo", "help.py"),
		filepath.Join(root, "main.py"),
	}, idx.Files())
}

func TestBuild_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewIndexMetrics(mp.Meter("test"))
	require.NoError(t, err)

	root := project(t)
	idx := build(t, root, relindex.WithMetrics(metrics))
	idx.RelatedFiles(context.Background(), filepath.Join(root, "src", "app1"))

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(5), sums["relimport.files.scanned"])
	assert.Equal(t, int64(6), sums["relimport.records.extracted"])
	assert.Equal(t, int64(1), sums["relimport.builds.total"])
	assert.Equal(t, int64(1), sums["relimport.queries.total"])
}
