// Package importmodel defines the data model for Python import analysis:
// one Record per imported name, grouped per source file.
package importmodel

// FileID identifies a source file inside one index. IDs are dense and
// assigned in traversal order.
type FileID uint32

// FileImports holds the records extracted from one source file, in source order.
type FileImports struct {
	File    FileID
	Records []Record
}
