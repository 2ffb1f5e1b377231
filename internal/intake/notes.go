package intake

import (
	"log/slog"
	"os"
	"strings"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

const notesSeparator = "\n\n"

// MergeNotes combines caller-supplied text with the contents of note files,
// form text first, separated by a blank line. Unreadable or empty note
// files are skipped with a warning.
func MergeNotes(logger *slog.Logger, formNotes string, notes []models.RawFile) string {
	var parts []string
	if strings.TrimSpace(formNotes) != "" {
		parts = append(parts, formNotes)
	}

	for _, n := range notes {
		content, err := readNote(n)
		if err != nil {
			logger.Warn("skipping unreadable note file", "file", n.Name, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			logger.Warn("skipping empty note file", "file", n.Name)
			continue
		}
		logger.Info("note file read", "file", n.Name, "chars", len(content))
		parts = append(parts, content)
	}

	return strings.Join(parts, notesSeparator)
}

func readNote(f models.RawFile) (string, error) {
	if f.Path == "" {
		return string(f.Content), nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
