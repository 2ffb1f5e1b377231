// Package upload acquires pre-signed upload targets for converted images and
// PUTs the images to object storage.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Sentinel errors for the upload stage. Both also match models.ErrTransport.
var (
	ErrTargetsUnavailable = errors.New("upload targets unavailable")
	ErrUploadFailed       = errors.New("image upload failed")
)

// TargetSource hands out one pre-signed upload target per filename.
// Filenames it does not acknowledge are absent from the returned map.
type TargetSource interface {
	GetUploadTargets(ctx context.Context, filenames []string) (map[string]models.UploadTarget, error)
}

// HTTPTargetSource asks the upload-URL service for targets.
type HTTPTargetSource struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPTargetSource creates a client for the upload-URL service at endpoint.
func NewHTTPTargetSource(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPTargetSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTargetSource{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type uploadURLsRequest struct {
	Data []string `json:"data"`
}

type uploadURLsResponse struct {
	Uploads struct {
		Data []uploadURLItem `json:"data"`
	} `json:"uploads"`
}

type uploadURLItem struct {
	OriginalName string `json:"original_name"`
	UploadURL    string `json:"upload_url"`
	S3Key        string `json:"s3_key"`
}

func (s *HTTPTargetSource) GetUploadTargets(ctx context.Context, filenames []string) (map[string]models.UploadTarget, error) {
	body, err := json.Marshal(uploadURLsRequest{Data: filenames})
	if err != nil {
		return nil, fmt.Errorf("encoding upload-url request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(ErrTargetsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %w: status %d", ErrTargetsUnavailable, models.ErrTransport, resp.StatusCode)
	}

	var parsed uploadURLsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %w: decoding response: %v", ErrTargetsUnavailable, models.ErrTransport, err)
	}

	targets := make(map[string]models.UploadTarget, len(parsed.Uploads.Data))
	for _, item := range parsed.Uploads.Data {
		if item.OriginalName == "" || item.UploadURL == "" || item.S3Key == "" {
			s.logger.Warn("dropping incomplete upload target",
				"original_name", item.OriginalName,
				"has_url", item.UploadURL != "",
				"has_key", item.S3Key != "",
			)
			continue
		}
		targets[item.OriginalName] = models.UploadTarget{
			Filename:   item.OriginalName,
			UploadURL:  item.UploadURL,
			StorageKey: item.S3Key,
		}
	}

	for _, name := range filenames {
		if _, ok := targets[name]; !ok {
			s.logger.Warn("no upload target returned", "filename", name)
		}
	}

	s.logger.Info("upload targets acquired", "requested", len(filenames), "received", len(targets))
	return targets, nil
}

// classifyError wraps a transport-level failure with kind and
// models.ErrTransport, noting whether it was a timeout.
func classifyError(kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: timeout: %v", kind, models.ErrTransport, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w: timeout: %v", kind, models.ErrTransport, err)
	}
	return fmt.Errorf("%w: %w: %v", kind, models.ErrTransport, err)
}

var _ TargetSource = (*HTTPTargetSource)(nil)
