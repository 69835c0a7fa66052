package relindex

import (
	"context"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/classify"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

// Stats describes one build.
type Stats struct {
	FilesScanned     int           `json:"files_scanned" yaml:"files_scanned"`
	FilesWithImports int           `json:"files_with_imports" yaml:"files_with_imports"`
	Records          int           `json:"records" yaml:"records"`
	BytesRead        int64         `json:"bytes_read" yaml:"bytes_read"`
	BuildDuration    time.Duration `json:"build_duration" yaml:"build_duration"`
}

// RecordMatch is one record that referred to the queried package.
type RecordMatch struct {
	Record importmodel.Record `json:"record" yaml:"record"`
	Match  classify.Match     `json:"match" yaml:"match"`
}

// FileMatch lists the matching records of one related file.
type FileMatch struct {
	Path    string        `json:"path" yaml:"path"`
	Matches []RecordMatch `json:"matches" yaml:"matches"`
}

// Index maps every indexed file to its import records. It is immutable once
// built and safe for concurrent queries; observe source edits by building a
// new Index.
type Index struct {
	root    string
	files   []string
	byPath  map[string]importmodel.FileID
	entries []importmodel.FileImports
	stats   Stats

	cache   *lru.Cache[string, []string]
	tracer  trace.Tracer
	metrics *observability.IndexMetrics
}

func (idx *Index) add(path string, records []importmodel.Record) {
	id := importmodel.FileID(len(idx.files))

	idx.files = append(idx.files, path)
	idx.byPath[path] = id
	idx.entries = append(idx.entries, importmodel.FileImports{File: id, Records: records})

	idx.stats.FilesWithImports++
	idx.stats.Records += len(records)
}

// Root returns the absolute project root.
func (idx *Index) Root() string {
	return idx.root
}

// Stats returns build statistics.
func (idx *Index) Stats() Stats {
	return idx.stats
}

// Files returns the files holding at least one import, in traversal order.
func (idx *Index) Files() []string {
	return slices.Clone(idx.files)
}

// Records returns the records of path, in source order.
func (idx *Index) Records(path string) ([]importmodel.Record, bool) {
	id, ok := idx.byPath[filepath.Clean(path)]
	if !ok {
		return nil, false
	}

	return slices.Clone(idx.entries[id].Records), true
}

// Entries yields every indexed file with its records, in traversal order.
func (idx *Index) Entries() iter.Seq2[string, []importmodel.Record] {
	return func(yield func(string, []importmodel.Record) bool) {
		for _, entry := range idx.entries {
			if !yield(idx.files[entry.File], slices.Clone(entry.Records)) {
				return
			}
		}
	}
}

// RelatedFiles returns, sorted, the files with at least one record that
// refers to the package directory pkg.
func (idx *Index) RelatedFiles(ctx context.Context, pkg string) []string {
	pkg = idx.resolve(pkg)

	ctx, span := idx.tracer.Start(ctx, "relindex.related_files", trace.WithAttributes(attribute.String("package", pkg)))
	defer span.End()

	if idx.cache != nil {
		if cached, ok := idx.cache.Get(pkg); ok {
			idx.metrics.RecordQuery(ctx, true)

			return slices.Clone(cached)
		}
	}

	var related []string

	for _, entry := range idx.entries {
		file := idx.files[entry.File]

		for _, rec := range entry.Records {
			if classify.Classifies(rec, file, pkg) {
				related = append(related, file)

				break
			}
		}
	}

	slices.Sort(related)

	if idx.cache != nil {
		idx.cache.Add(pkg, related)
	}

	idx.metrics.RecordQuery(ctx, false)
	span.SetAttributes(attribute.Int("related", len(related)))

	return slices.Clone(related)
}

// RelatedImports is RelatedFiles with the matching records of each file and
// the rule that decided each match.
func (idx *Index) RelatedImports(ctx context.Context, pkg string) []FileMatch {
	pkg = idx.resolve(pkg)

	_, span := idx.tracer.Start(ctx, "relindex.related_imports", trace.WithAttributes(attribute.String("package", pkg)))
	defer span.End()

	var out []FileMatch

	for _, entry := range idx.entries {
		file := idx.files[entry.File]

		var matches []RecordMatch

		for _, rec := range entry.Records {
			if m := classify.Explain(rec, file, pkg); m.Matched {
				matches = append(matches, RecordMatch{Record: rec, Match: m})
			}
		}

		if len(matches) > 0 {
			out = append(out, FileMatch{Path: file, Matches: matches})
		}
	}

	slices.SortFunc(out, func(a, b FileMatch) int {
		return strings.Compare(a.Path, b.Path)
	})

	return out
}

// resolve makes a relative package path absolute against the index root.
func (idx *Index) resolve(pkg string) string {
	if !filepath.IsAbs(pkg) {
		pkg = filepath.Join(idx.root, pkg)
	}

	return filepath.Clean(pkg)
}
