package importmodel

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the name recorded for "from m import *".
const Wildcard = "*"

const segmentSep = "."

// ErrContractViolation reports a record that breaks the extractor's invariants.
var ErrContractViolation = errors.New("import record contract violation")

// Record is one imported name. A statement importing several names yields
// one Record per name, all sharing Level and Module.
type Record struct {
	// Raw is the statement text the record was derived from.
	Raw string `json:"raw" yaml:"raw"`
	// Level is the number of leading dots of a relative from-import.
	Level int `json:"level" yaml:"level"`
	// Module is the dotted module of a from-import; valid when HasModule is set.
	Module    string `json:"module,omitempty" yaml:"module,omitempty"`
	HasModule bool   `json:"-" yaml:"-"`
	// Name is the imported (possibly dotted) name, or Wildcard.
	Name string `json:"name" yaml:"name"`
	// From marks the "from ... import" surface form.
	From bool `json:"from" yaml:"from"`
}

// Plain returns the record of "import name".
func Plain(raw, name string) Record {
	return Record{Raw: raw, Name: name}
}

// FromImport returns the record of "from <level dots><module> import name".
// An empty module means the statement has none.
func FromImport(raw string, level int, module, name string) Record {
	return Record{
		Raw:       raw,
		Level:     level,
		Module:    module,
		HasModule: module != "",
		Name:      name,
		From:      true,
	}
}

// WithName clones the record substituting the imported name.
func (r Record) WithName(name string) Record {
	r.Name = name

	return r
}

// ModuleSegments splits Module into its dotted segments.
func (r Record) ModuleSegments() []string {
	if !r.HasModule {
		return nil
	}

	return strings.Split(r.Module, segmentSep)
}

// NameSegments splits Name into its dotted segments.
func (r Record) NameSegments() []string {
	return strings.Split(r.Name, segmentSep)
}

// Segments returns module segments followed by name segments.
func (r Record) Segments() []string {
	mod := r.ModuleSegments()
	name := r.NameSegments()

	out := make([]string, 0, len(mod)+len(name))
	out = append(out, mod...)

	return append(out, name...)
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	switch {
	case r.Level < 0:
		return fmt.Errorf("%w: negative level %d in %q", ErrContractViolation, r.Level, r.Raw)
	case r.Name == "":
		return fmt.Errorf("%w: empty name in %q", ErrContractViolation, r.Raw)
	case r.Level > 0 && !r.From:
		return fmt.Errorf("%w: relative level on plain import %q", ErrContractViolation, r.Raw)
	case !r.From && r.HasModule:
		return fmt.Errorf("%w: module on plain import %q", ErrContractViolation, r.Raw)
	case r.Name == Wildcard && !r.From:
		return fmt.Errorf("%w: wildcard on plain import %q", ErrContractViolation, r.Raw)
	case r.HasModule && r.Module == "":
		return fmt.Errorf("%w: empty module in %q", ErrContractViolation, r.Raw)
	}

	for _, seg := range r.Segments() {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrContractViolation, r.Raw)
		}
	}

	return nil
}

// String renders the record as a single-name statement.
func (r Record) String() string {
	if !r.From {
		return "import " + r.Name
	}

	return "from " + strings.Repeat(segmentSep, r.Level) + r.Module + " import " + r.Name
}
