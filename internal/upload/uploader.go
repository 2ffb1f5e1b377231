package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

const imageContentType = "image/jpeg"

// Uploader PUTs images to their pre-signed targets.
type Uploader struct {
	client *http.Client
	logger *slog.Logger
}

// NewUploader creates an uploader with a fixed per-request timeout.
func NewUploader(timeout time.Duration, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// UploadAll uploads every image once, in order, without retries. It returns
// a filename to storage key map with exactly one entry per image, or a nil
// map and an error naming every image that had no target or failed to
// upload.
func (u *Uploader) UploadAll(ctx context.Context, images []models.ConvertedImage, targets map[string]models.UploadTarget) (map[string]string, error) {
	keys := make(map[string]string, len(images))
	var failed []string

	for _, img := range images {
		target, ok := targets[img.Name]
		if !ok {
			u.logger.Warn("no upload target for image", "filename", img.Name)
			failed = append(failed, img.Name)
			continue
		}

		if err := u.put(ctx, img.Path, target.UploadURL); err != nil {
			u.logger.Warn("image upload failed", "filename", img.Name, "error", err)
			failed = append(failed, img.Name)
			continue
		}
		keys[img.Name] = target.StorageKey
	}

	if len(failed) > 0 {
		return nil, fmt.Errorf("%w: %w: %d of %d images failed: %s",
			ErrUploadFailed, models.ErrTransport, len(failed), len(images), strings.Join(failed, ", "))
	}

	u.logger.Info("images uploaded", "count", len(keys))
	return keys, nil
}

func (u *Uploader) put(ctx context.Context, path, url string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", imageContentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return classifyError(ErrUploadFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
