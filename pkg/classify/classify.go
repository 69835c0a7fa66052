// Package classify decides whether an import record refers to a package
// directory, mapping the record's dotted segments onto filesystem paths.
package classify

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

// Case names the rule that decided a classification.
type Case string

// Decision rules, tried per record shape.
const (
	CaseBare      Case = "bare"
	CaseDotted    Case = "dotted"
	CaseQualified Case = "qualified"
	CaseRelative  Case = "relative"
)

// Match is the outcome of classifying one record.
type Match struct {
	Case    Case
	Matched bool
	// Suffix is the segment run that matched the package path tail.
	Suffix []string `json:",omitempty"`
	// Target is the resolved directory of a relative import that matched.
	Target string `json:",omitempty"`
}

// Classifies reports whether rec, imported from file, refers to the package
// directory pkg. Both paths should be absolute.
func Classifies(rec importmodel.Record, file, pkg string) bool {
	return Explain(rec, file, pkg).Matched
}

// Explain classifies rec and reports which rule decided.
func Explain(rec importmodel.Record, file, pkg string) Match {
	pkg = filepath.Clean(pkg)
	pkgSegs := segments(pkg)

	switch form := rec.Form().(type) {
	case importmodel.BareImport:
		last := ""
		if len(pkgSegs) > 0 {
			last = pkgSegs[len(pkgSegs)-1]
		}

		if last == form.Name {
			return Match{Case: CaseBare, Matched: true, Suffix: []string{form.Name}}
		}

		return Match{Case: CaseBare}
	case importmodel.DottedImport:
		// A single fixed-length comparison; unlike the qualified rule the
		// trailing segment is never dropped.
		if hasSuffix(pkgSegs, form.Segments) {
			return Match{Case: CaseDotted, Matched: true, Suffix: form.Segments}
		}

		return Match{Case: CaseDotted}
	case importmodel.QualifiedImport:
		// The imported name may be a symbol inside a module file, so shorter
		// prefixes of the combined run are tried too.
		for combined := form.Combined; len(combined) > 0; combined = combined[:len(combined)-1] {
			if hasSuffix(pkgSegs, combined) {
				return Match{Case: CaseQualified, Matched: true, Suffix: slices.Clone(combined)}
			}
		}

		return Match{Case: CaseQualified}
	case importmodel.RelativeImport:
		if target, ok := resolveRelative(form, filepath.Clean(file), pkg); ok {
			return Match{Case: CaseRelative, Matched: true, Target: target}
		}

		return Match{Case: CaseRelative}
	default:
		return Match{}
	}
}

// Base returns the directory a relative import of the given level starts
// from: level 1 is the directory holding file.
func Base(file string, level int) string {
	base := filepath.Clean(file)

	for range level {
		base = filepath.Dir(base)
	}

	return base
}

func resolveRelative(form importmodel.RelativeImport, file, pkg string) (string, bool) {
	base := Base(file, form.Level)

	target := filepath.Join(append([]string{base}, form.Combined...)...)

	// Walk up toward base; base itself never matches.
	for target != base {
		if target == pkg {
			return target, true
		}

		parent := filepath.Dir(target)
		if parent == target {
			break
		}

		target = parent
	}

	return "", false
}

func segments(path string) []string {
	parts := strings.Split(filepath.ToSlash(path), "/")

	return slices.DeleteFunc(parts, func(s string) bool { return s == "" })
}

func hasSuffix(path, suffix []string) bool {
	if len(suffix) == 0 || len(suffix) > len(path) {
		return false
	}

	return slices.Equal(path[len(path)-len(suffix):], suffix)
}
