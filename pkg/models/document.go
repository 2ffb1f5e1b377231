// Package models contains shared data models used across the caseflow codebase.
package models

// FileKind is the classification of an uploaded file.
type FileKind string

const (
	KindDocument FileKind = "document"
	KindNote     FileKind = "note"
)

// RawFile is one saved upload. Content is held until the file is written
// into the request workspace; Path is set once it is on disk.
type RawFile struct {
	Name    string
	Ext     string
	Content []byte
	Path    string
	Kind    FileKind
}

// ConvertedImage is one JPEG produced from a document page or image.
// Seq is the 1-based global production order within a request.
type ConvertedImage struct {
	Seq      int
	Name     string
	Path     string
	Document int
}
