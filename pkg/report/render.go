package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const yamlIndent = 2

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Options controls rendering.
type Options struct {
	Format  string
	NoColor bool
}

// Render writes rep to w.
func Render(w io.Writer, rep Report, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatYAML:
		return writeYAML(w, rep)
	case FormatText, "":
		return writeText(w, rep, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Format)
	}
}

// RenderImports writes an imports listing to w.
func RenderImports(w io.Writer, files []FileImports, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, files)
	case FormatYAML:
		return writeYAML(w, files)
	case FormatText, "":
		return writeImportsText(w, files, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}

type palette struct {
	heading *color.Color
	empty   *color.Color
	summary *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		heading: color.New(color.FgCyan, color.Bold),
		empty:   color.New(color.FgYellow),
		summary: color.New(color.FgGreen),
	}

	if noColor {
		p.heading.DisableColor()
		p.empty.DisableColor()
		p.summary.DisableColor()
	}

	return p
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func writeText(w io.Writer, rep Report, opts Options) error {
	pal := newPalette(opts.NoColor)

	for _, pkg := range rep.Packages {
		if _, err := pal.heading.Fprintf(w, "%s (%s)\n", pkg.RelPath, plural(len(pkg.Files), "related file")); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if len(pkg.Files) == 0 {
			if _, err := pal.empty.Fprintln(w, "  no files import this package"); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			continue
		}

		tbl := newTable(w)

		explain := hasImports(pkg.Files)
		if explain {
			tbl.AppendHeader(table.Row{"#", "File", "Import", "Rule"})
		} else {
			tbl.AppendHeader(table.Row{"#", "File"})
		}

		for i, f := range pkg.Files {
			if !explain {
				tbl.AppendRow(table.Row{i + 1, f.RelPath})

				continue
			}

			for j, imp := range f.Imports {
				num, path := "", ""
				if j == 0 {
					num, path = strconv.Itoa(i+1), f.RelPath
				}

				tbl.AppendRow(table.Row{num, path, imp.Statement, string(imp.Rule)})
			}
		}

		tbl.Render()

		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	_, err := pal.summary.Fprintf(w, "Indexed %s (%s with imports, %s, %s) in %s\n",
		plural(rep.Stats.FilesScanned, "file"),
		humanize.Comma(int64(rep.Stats.FilesWithImports)),
		plural(rep.Stats.Records, "import record"),
		humanize.Bytes(uint64(max(rep.Stats.BytesRead, 0))),
		rep.Stats.BuildDuration.Round(time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func writeImportsText(w io.Writer, files []FileImports, opts Options) error {
	pal := newPalette(opts.NoColor)

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"File", "Level", "Module", "Name"})

	records := 0

	for _, f := range files {
		for i, rec := range f.Records {
			path := ""
			if i == 0 {
				path = f.RelPath
			}

			tbl.AppendRow(table.Row{path, rec.Level, rec.Module, rec.Name})
		}

		records += len(f.Records)
	}

	tbl.Render()

	_, err := pal.summary.Fprintf(w, "%s in %s\n", plural(records, "import record"), plural(len(files), "file"))
	if err != nil {
		return fmt.Errorf("write imports: %w", err)
	}

	return nil
}

func hasImports(files []FileEntry) bool {
	for _, f := range files {
		if len(f.Imports) > 0 {
			return true
		}
	}

	return false
}

func plural(n int, noun string) string {
	s := humanize.Comma(int64(n)) + " " + noun
	if n != 1 {
		s += "s"
	}

	return s
}
