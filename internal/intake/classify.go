// Package intake turns an uploaded batch into files on disk: it classifies
// each upload as a document or a note, lays out the per-request workspace,
// and merges note text.
package intake

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

var noteExtensions = map[string]bool{
	".txt": true,
}

var documentExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".xps":  true,
	".epub": true,
	".mobi": true,
	".fb2":  true,
	".cbz":  true,
	".svg":  true,
}

// Batch is a classified upload. Input order is preserved within each list.
type Batch struct {
	Documents []models.RawFile
	Notes     []models.RawFile
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// KindOf classifies a filename by extension. Unrecognized extensions are
// documents; the converter makes a best-effort attempt on them.
func KindOf(name string) models.FileKind {
	if noteExtensions[Ext(name)] {
		return models.KindNote
	}
	return models.KindDocument
}

// IsKnownDocument reports whether ext is on the document allow-list.
func IsKnownDocument(ext string) bool {
	return documentExtensions[strings.ToLower(ext)]
}

// Classify partitions files into documents and notes. It fails with
// models.ErrValidation when files is empty or contains no documents.
func Classify(files []models.RawFile) (Batch, error) {
	if len(files) == 0 {
		return Batch{}, fmt.Errorf("%w: no files uploaded", models.ErrValidation)
	}

	var b Batch
	for _, f := range files {
		if f.Ext == "" {
			f.Ext = Ext(f.Name)
		}
		f.Kind = KindOf(f.Name)
		if f.Kind == models.KindNote {
			b.Notes = append(b.Notes, f)
		} else {
			b.Documents = append(b.Documents, f)
		}
	}

	if len(b.Documents) == 0 {
		return Batch{}, fmt.Errorf("%w: no documents to convert (%d note files only)", models.ErrValidation, len(b.Notes))
	}
	return b, nil
}
