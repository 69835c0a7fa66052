package importmodel

import "strings"

// Form is the closed set of import shapes the classifier distinguishes.
// Implementations: BareImport, DottedImport, QualifiedImport, RelativeImport.
type Form interface {
	form()
}

// BareImport is "import pkg".
type BareImport struct {
	Name string
}

// DottedImport is "import a.b.c".
type DottedImport struct {
	Segments []string
}

// QualifiedImport is "from a.b import c" (or "from a import b" for a bare
// module). Combined holds module segments followed by name segments.
type QualifiedImport struct {
	Combined []string
}

// RelativeImport is any from-import with a leading dot run.
type RelativeImport struct {
	Level    int
	Combined []string
}

func (BareImport) form()      {}
func (DottedImport) form()    {}
func (QualifiedImport) form() {}
func (RelativeImport) form()  {}

// Form reports which shape the record has.
func (r Record) Form() Form {
	switch {
	case r.Level > 0:
		return RelativeImport{Level: r.Level, Combined: r.Segments()}
	case r.HasModule:
		return QualifiedImport{Combined: r.Segments()}
	case strings.Contains(r.Name, segmentSep):
		return DottedImport{Segments: r.NameSegments()}
	default:
		return BareImport{Name: r.Name}
	}
}
