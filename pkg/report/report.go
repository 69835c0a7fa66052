// Package report renders related-file query results and extracted import
// records as text tables, JSON or YAML.
package report

import (
	"context"
	"path/filepath"

	"github.com/Sumatoshi-tech/relimport/pkg/classify"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
)

// Report is the result of one query session.
type Report struct {
	Root     string          `json:"root" yaml:"root"`
	Packages []PackageReport `json:"packages" yaml:"packages"`
	Stats    relindex.Stats  `json:"stats" yaml:"stats"`
}

// PackageReport lists the files related to one package.
type PackageReport struct {
	Package string      `json:"package" yaml:"package"`
	RelPath string      `json:"rel_path" yaml:"rel_path"`
	Files   []FileEntry `json:"files" yaml:"files"`
}

// FileEntry is one related file.
type FileEntry struct {
	Path    string        `json:"path" yaml:"path"`
	RelPath string        `json:"rel_path" yaml:"rel_path"`
	Imports []ImportEntry `json:"imports,omitempty" yaml:"imports,omitempty"`
}

// ImportEntry is one matching import and the rule that matched it.
type ImportEntry struct {
	Statement string        `json:"statement" yaml:"statement"`
	Rule      classify.Case `json:"rule" yaml:"rule"`
}

// FileImports lists the records of one file for the imports listing.
type FileImports struct {
	Path    string               `json:"path" yaml:"path"`
	RelPath string               `json:"rel_path" yaml:"rel_path"`
	Records []importmodel.Record `json:"records" yaml:"records"`
}

// Related queries idx once per package. With explain set, each file carries
// the imports that matched.
func Related(ctx context.Context, idx *relindex.Index, packages []string, explain bool) Report {
	rep := Report{Root: idx.Root(), Stats: idx.Stats()}

	for _, pkg := range packages {
		pkg = absUnder(idx.Root(), pkg)
		pr := PackageReport{Package: pkg, RelPath: rel(idx.Root(), pkg), Files: []FileEntry{}}

		if explain {
			for _, fm := range idx.RelatedImports(ctx, pkg) {
				entry := FileEntry{Path: fm.Path, RelPath: rel(idx.Root(), fm.Path)}

				for _, m := range fm.Matches {
					entry.Imports = append(entry.Imports, ImportEntry{Statement: m.Record.String(), Rule: m.Match.Case})
				}

				pr.Files = append(pr.Files, entry)
			}
		} else {
			for _, path := range idx.RelatedFiles(ctx, pkg) {
				pr.Files = append(pr.Files, FileEntry{Path: path, RelPath: rel(idx.Root(), path)})
			}
		}

		rep.Packages = append(rep.Packages, pr)
	}

	return rep
}

// Imports collects every indexed file's records, in traversal order.
func Imports(idx *relindex.Index) []FileImports {
	var out []FileImports

	for path, recs := range idx.Entries() {
		out = append(out, FileImports{Path: path, RelPath: rel(idx.Root(), path), Records: recs})
	}

	return out
}

func absUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(root, path)
}

func rel(root, path string) string {
	r, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}

	return filepath.ToSlash(r)
}
