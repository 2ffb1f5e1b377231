package intake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Workspace is the scratch directory tree owned by one request. Nothing in
// it is shared with other requests.
//
//	<base>/<runID>/raw        saved uploads
//	<base>/<runID>/converted  per-document converter output
//	<base>/<runID>/images     renamed images ready for upload
type Workspace struct {
	Root         string
	RawDir       string
	ConvertedDir string
	ImagesDir    string
}

// NewWorkspace creates the directory tree for runID under base.
func NewWorkspace(base, runID string) (*Workspace, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}

	root := filepath.Join(base, runID)
	ws := &Workspace{
		Root:         root,
		RawDir:       filepath.Join(root, "raw"),
		ConvertedDir: filepath.Join(root, "converted"),
		ImagesDir:    filepath.Join(root, "images"),
	}

	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("workspace %s already exists", root)
	}
	for _, dir := range []string{ws.RawDir, ws.ConvertedDir, ws.ImagesDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return ws, nil
}

// Save writes each file's content into RawDir as "<nnn>_<basename>" so
// duplicate upload names cannot collide. The returned slice carries Path
// and Ext; Content is released.
func (w *Workspace) Save(files []models.RawFile) ([]models.RawFile, error) {
	saved := make([]models.RawFile, 0, len(files))
	for i, f := range files {
		base := filepath.Base(filepath.Clean("/" + f.Name))
		if base == "/" || base == "." {
			base = "upload"
		}
		path := filepath.Join(w.RawDir, fmt.Sprintf("%03d_%s", i+1, base))
		if err := os.WriteFile(path, f.Content, 0o640); err != nil {
			return nil, fmt.Errorf("save %s: %w", f.Name, err)
		}
		f.Path = path
		f.Ext = Ext(f.Name)
		f.Content = nil
		saved = append(saved, f)
	}
	return saved, nil
}

// DocumentDir returns (and creates) the converter output directory for the
// n-th document, 1-based.
func (w *Workspace) DocumentDir(n int) (string, error) {
	dir := filepath.Join(w.ConvertedDir, fmt.Sprintf("doc_%03d", n))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	return dir, nil
}

// Cleanup removes the whole workspace. Calling it twice is harmless.
func (w *Workspace) Cleanup() error {
	if err := os.RemoveAll(w.Root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove workspace %s: %w", w.Root, err)
	}
	return nil
}
