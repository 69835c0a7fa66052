// Package pyimport extracts import records from Python source.
//
// Tree-sitter is used only to locate import statements; the level, module and
// names of every record are re-derived from the statement's raw text, since
// the level of a relative import must survive exactly as written.
package pyimport

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/alexaandru/go-sitter-forest/python"

	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
)

// Tree-sitter node kinds the locator inspects.
const (
	nodeImport        = "import_statement"
	nodeImportFrom    = "import_from_statement"
	nodeFutureImport  = "future_import_statement"
	nodeError         = "ERROR"
	nodePrint         = "print_statement"
	nodeExec          = "exec_statement"
	nodeParenthesized = "parenthesized_expression"
)

var (
	// ErrParse is returned for source the Python grammar rejects.
	ErrParse = errors.New("python parse error")
	// ErrUnmatchedImport is returned when a located import statement matches
	// no extraction pattern. It is a kind of ErrParse.
	ErrUnmatchedImport = fmt.Errorf("%w: unmatched import statement", ErrParse)
	errNoRootNode      = errors.New("pyimport: no root node")
	errNoGrammar       = errors.New("pyimport: python grammar unavailable")
)

// Statement is one located import statement.
type Statement struct {
	// Line is the 1-based line the statement starts on.
	Line int
	// Text is the statement's source text.
	Text string
}

// Extractor turns Python source into import records. An Extractor owns a
// tree-sitter parser and must not be used concurrently.
type Extractor struct {
	parser *sitter.Parser
}

// NewExtractor creates an Extractor for the Python grammar.
func NewExtractor() (*Extractor, error) {
	lang := sitter.NewLanguage(python.GetLanguage())
	if lang == nil {
		return nil, errNoGrammar
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	return &Extractor{parser: parser}, nil
}

// Extract returns the records of every import statement in source, in source
// order, one record per imported name.
func (e *Extractor) Extract(ctx context.Context, source string) ([]importmodel.Record, error) {
	stmts, err := e.Locate(ctx, source)
	if err != nil {
		return nil, err
	}

	var records []importmodel.Record

	for _, stmt := range stmts {
		recs, err := ParseStatement(stmt.Text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", stmt.Line, err)
		}

		records = append(records, recs...)
	}

	return records, nil
}

// Locate parses source and returns its import statements in source order,
// including those nested in functions, classes and conditional blocks.
func (e *Extractor) Locate(ctx context.Context, source string) ([]Statement, error) {
	content := []byte(source)

	tree, err := e.parser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if root.HasError() {
		return nil, syntaxError(root)
	}

	var stmts []Statement

	if err := collect(root, content, &stmts); err != nil {
		return nil, err
	}

	return stmts, nil
}

// collect gathers import statements in source order. The grammar still
// accepts Python 2 print and exec statements; those are syntax errors here.
func collect(n sitter.Node, content []byte, out *[]Statement) error {
	switch n.Type() {
	case nodeImport, nodeImportFrom, nodeFutureImport:
		*out = append(*out, Statement{
			Line: int(n.StartPoint().Row) + 1,
			Text: string(content[n.StartByte():n.EndByte()]),
		})

		return nil
	case nodeExec:
		return positionError(n)
	case nodePrint:
		// print (x), print(a, b) are calls in Python 3.
		if n.NamedChildCount() == 0 || n.NamedChild(0).Type() != nodeParenthesized {
			return positionError(n)
		}

		return nil
	}

	for idx := range n.NamedChildCount() {
		if err := collect(n.NamedChild(idx), content, out); err != nil {
			return err
		}
	}

	return nil
}

func syntaxError(root sitter.Node) error {
	if n, ok := firstError(root); ok {
		return positionError(n)
	}

	return fmt.Errorf("%w: invalid syntax", ErrParse)
}

func positionError(n sitter.Node) error {
	point := n.StartPoint()

	return fmt.Errorf("%w: invalid syntax at line %d, column %d", ErrParse, int(point.Row)+1, int(point.Column)+1)
}

func firstError(n sitter.Node) (sitter.Node, bool) {
	if n.Type() == nodeError {
		return n, true
	}

	for idx := range n.NamedChildCount() {
		if found, ok := firstError(n.NamedChild(idx)); ok {
			return found, true
		}
	}

	return n, false
}
