// Package relindex builds an in-memory index of the imports of every Python
// file under a project root and answers "which files import package P".
package relindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/pyimport"
	"github.com/Sumatoshi-tech/relimport/pkg/textenc"
	"github.com/Sumatoshi-tech/relimport/pkg/walker"
)

const tracerName = "relimport"

// DefaultQueryCacheSize bounds the memoized query results of an Index.
const DefaultQueryCacheSize = 256

// Reader returns the decoded text of a source file.
type Reader func(path string) (string, error)

// FileError reports the file that aborted a build.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Option configures a Builder.
type Option func(*Builder)

// WithFilter replaces the Python-source walk filter.
func WithFilter(f walker.Filter) Option {
	return func(b *Builder) { b.filter = f }
}

// WithReader replaces the encoding-aware file reader.
func WithReader(r Reader) Option {
	return func(b *Builder) { b.read = r }
}

// WithExtractor reuses an extractor. The Builder must then not build
// concurrently with other users of it.
func WithExtractor(ex *pyimport.Extractor) Option {
	return func(b *Builder) { b.extractor = ex }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) { b.tracer = t }
}

// WithMetrics sets the build and query instruments.
func WithMetrics(m *observability.IndexMetrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithQueryCacheSize bounds memoized query results; zero disables memoization.
func WithQueryCacheSize(n int) Option {
	return func(b *Builder) { b.cacheSize = n }
}

// Builder builds Index instances for one project root.
type Builder struct {
	root      string
	filter    walker.Filter
	read      Reader
	extractor *pyimport.Extractor
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.IndexMetrics
	cacheSize int
}

// NewBuilder returns a Builder for root.
func NewBuilder(root string, opts ...Option) *Builder {
	b := &Builder{
		root:      root,
		filter:    walker.PythonSources(),
		read:      textenc.ReadFile,
		cacheSize: DefaultQueryCacheSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	if b.tracer == nil {
		b.tracer = otel.Tracer(tracerName)
	}

	return b
}

// Build walks the root and extracts every file's records. The first
// unreadable, undecodable or unparsable file aborts the build; no partial
// index is returned.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	ctx, span := b.tracer.Start(ctx, "relindex.build", trace.WithAttributes(attribute.String("root", b.root)))
	defer span.End()

	start := time.Now()

	idx, err := b.build(ctx)

	stats := observability.BuildStats{Duration: time.Since(start), Failed: err != nil}
	if idx != nil {
		idx.stats.BuildDuration = stats.Duration
		stats.Files = idx.stats.FilesScanned
		stats.Records = idx.stats.Records
		stats.Bytes = idx.stats.BytesRead
	}

	b.metrics.RecordBuild(ctx, stats)

	if err != nil {
		observability.RecordSpanError(span, err, errorKind(err))

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("files", idx.stats.FilesScanned),
		attribute.Int("records", idx.stats.Records),
	)

	b.logger.InfoContext(ctx, "index built",
		"root", idx.root,
		"files", idx.stats.FilesScanned,
		"files_with_imports", idx.stats.FilesWithImports,
		"records", idx.stats.Records,
		"duration", idx.stats.BuildDuration,
	)

	return idx, nil
}

func (b *Builder) build(ctx context.Context) (*Index, error) {
	root, err := filepath.Abs(b.root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	files, err := walker.Walk(root, b.filter)
	if err != nil {
		return nil, err
	}

	extractor := b.extractor
	if extractor == nil {
		extractor, err = pyimport.NewExtractor()
		if err != nil {
			return nil, err
		}
	}

	idx := &Index{
		root:    root,
		byPath:  make(map[string]importmodel.FileID),
		tracer:  b.tracer,
		metrics: b.metrics,
	}

	for path, walkErr := range files {
		if walkErr != nil {
			return nil, &FileError{Path: path, Err: walkErr}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("build index: %w", ctxErr)
		}

		records, n, err := b.indexFile(ctx, extractor, path)
		if err != nil {
			return nil, &FileError{Path: path, Err: err}
		}

		idx.stats.FilesScanned++
		idx.stats.BytesRead += int64(n)

		if len(records) == 0 {
			continue
		}

		idx.add(path, records)
	}

	if b.cacheSize > 0 {
		cache, err := lru.New[string, []string](b.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}

		idx.cache = cache
	}

	return idx, nil
}

func (b *Builder) indexFile(ctx context.Context, ex *pyimport.Extractor, path string) ([]importmodel.Record, int, error) {
	text, err := b.read(path)
	if err != nil {
		return nil, 0, err
	}

	records, err := ex.Extract(ctx, text)
	if err != nil {
		return nil, len(text), err
	}

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, len(text), err
		}
	}

	b.logger.DebugContext(ctx, "indexed file", "path", path, "records", len(records))

	return records, len(text), nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, walker.ErrRootNotFound), errors.Is(err, fs.ErrNotExist):
		return "not_found"
	case errors.Is(err, textenc.ErrEncoding):
		return "encoding"
	case errors.Is(err, pyimport.ErrParse):
		return "parse"
	case errors.Is(err, importmodel.ErrContractViolation):
		return "contract"
	default:
		return "io"
	}
}
