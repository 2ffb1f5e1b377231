package intake_test

import (
	"testing"

	"github.com/kiranshivaraju/caseflow/internal/intake"
	"github.com/kiranshivaraju/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func files(names ...string) []models.RawFile {
	out := make([]models.RawFile, len(names))
	for i, n := range names {
		out[i] = models.RawFile{Name: n}
	}
	return out
}

func names(fs []models.RawFile) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func TestClassify_SplitsDocumentsAndNotes(t *testing.T) {
	b, err := intake.Classify(files("scan.pdf", "history.txt", "xray.PNG", "notes.TXT", "report.docx"))
	require.NoError(t, err)

	assert.Equal(t, []string{"scan.pdf", "xray.PNG", "report.docx"}, names(b.Documents))
	assert.Equal(t, []string{"history.txt", "notes.TXT"}, names(b.Notes))
	assert.Equal(t, models.KindDocument, b.Documents[0].Kind)
	assert.Equal(t, ".png", b.Documents[1].Ext)
	assert.Equal(t, models.KindNote, b.Notes[0].Kind)
}

func TestClassify_NeverDropsFiles(t *testing.T) {
	in := files("a.pdf", "b", "c.txt", "d.tar.gz", ".hidden", "e.jpeg")
	b, err := intake.Classify(in)
	require.NoError(t, err)
	assert.Len(t, append(b.Documents, b.Notes...), len(in))
}

func TestClassify_UnknownExtensionIsDocument(t *testing.T) {
	assert.Equal(t, models.KindDocument, intake.KindOf("weird.xyz"))
	assert.Equal(t, models.KindDocument, intake.KindOf("noext"))
	assert.False(t, intake.IsKnownDocument(".xyz"))
	assert.True(t, intake.IsKnownDocument(".TIFF"))
}

func TestClassify_Empty(t *testing.T) {
	_, err := intake.Classify(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestClassify_NotesOnly(t *testing.T) {
	_, err := intake.Classify(files("a.txt", "b.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "no documents")
}
