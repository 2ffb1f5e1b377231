package intake_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/caseflow/internal/intake"
	"github.com/kiranshivaraju/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeNote(t *testing.T, dir, name, content string) models.RawFile {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return models.RawFile{Name: name, Path: p, Kind: models.KindNote}
}

func TestMergeNotes_FormOnly(t *testing.T) {
	assert.Equal(t, "history: none", intake.MergeNotes(discardLogger(), "history: none", nil))
}

func TestMergeNotes_FormFirstThenFiles(t *testing.T) {
	dir := t.TempDir()
	notes := []models.RawFile{
		writeNote(t, dir, "a.txt", "allergic to penicillin"),
		writeNote(t, dir, "b.txt", "bp 120/80"),
	}

	got := intake.MergeNotes(discardLogger(), "history: none", notes)
	assert.Equal(t, "history: none\n\nallergic to penicillin\n\nbp 120/80", got)
}

func TestMergeNotes_FilesOnly(t *testing.T) {
	dir := t.TempDir()
	got := intake.MergeNotes(discardLogger(), "", []models.RawFile{writeNote(t, dir, "a.txt", "only file")})
	assert.Equal(t, "only file", got)
}

func TestMergeNotes_SkipsUnreadableAndEmpty(t *testing.T) {
	dir := t.TempDir()
	notes := []models.RawFile{
		{Name: "gone.txt", Path: filepath.Join(dir, "gone.txt")},
		writeNote(t, dir, "blank.txt", "  \n"),
		writeNote(t, dir, "ok.txt", "kept"),
	}

	assert.Equal(t, "form\n\nkept", intake.MergeNotes(discardLogger(), "form", notes))
}

func TestMergeNotes_Nothing(t *testing.T) {
	assert.Equal(t, "", intake.MergeNotes(discardLogger(), "  ", nil))
}
