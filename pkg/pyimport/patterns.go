package pyimport

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

const (
	ident  = `[\p{L}\p{Nl}_][\p{L}\p{N}_]*`
	dotted = ident + `(?: ?\. ?` + ident + `)*`
)

var (
	// Ordered most specific first; the first match decides.
	plainRe = regexp.MustCompile(`^import (` + dotted + `)`)
	fromRe  = regexp.MustCompile(`^from ((?:\. ?)*)(` + dotted + `)? ?import (?:\( )?(\*|` + ident + `)`)

	// Further comma-separated names after the first match. Aliases follow
	// "as" rather than a comma, so they are never captured.
	nextNameRe   = regexp.MustCompile(`, (` + ident + `)`)
	nextDottedRe = regexp.MustCompile(`, (` + dotted + `)`)

	commentRe      = regexp.MustCompile(`#[^\n]*`)
	continuationRe = regexp.MustCompile(`\\\r?\n`)
	punctRe        = regexp.MustCompile(`[(),]`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// ParseStatement derives the records of one import statement from its raw
// text. Text that is not an import statement yields ErrUnmatchedImport.
func ParseStatement(raw string) ([]importmodel.Record, error) {
	text := canonical(raw)

	if m := plainRe.FindStringSubmatchIndex(text); m != nil {
		first := importmodel.Plain(text, squeeze(text[m[2]:m[3]]))
		records := []importmodel.Record{first}

		for _, sub := range nextDottedRe.FindAllStringSubmatch(text[m[1]:], -1) {
			records = append(records, first.WithName(squeeze(sub[1])))
		}

		return records, nil
	}

	if m := fromRe.FindStringSubmatchIndex(text); m != nil {
		level := strings.Count(text[m[2]:m[3]], ".")

		module := ""
		if m[4] >= 0 {
			module = squeeze(text[m[4]:m[5]])
		}

		first := importmodel.FromImport(text, level, module, text[m[6]:m[7]])
		records := []importmodel.Record{first}

		for _, sub := range nextNameRe.FindAllStringSubmatch(text[m[1]:], -1) {
			records = append(records, first.WithName(sub[1]))
		}

		return records, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnmatchedImport, strings.TrimSpace(raw))
}

// canonical flattens a statement to one line with single spaces, padding
// parentheses and commas so the patterns see uniform separators.
func canonical(raw string) string {
	text := commentRe.ReplaceAllString(raw, "")
	text = continuationRe.ReplaceAllString(text, " ")
	text = punctRe.ReplaceAllString(text, " $0 ")
	text = spaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func squeeze(name string) string {
	return strings.ReplaceAll(name, " ", "")
}
