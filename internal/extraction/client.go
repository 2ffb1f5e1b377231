// Package extraction submits grouped storage keys to the extraction service
// and polls the resulting job until it reaches a terminal state.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kiranshivaraju/caseflow/pkg/models"
)

// Client is the interface to the extraction service.
type Client interface {
	Submit(ctx context.Context, req models.ExtractionRequest) (string, error)
	Status(ctx context.Context, jobID string) (models.Job, error)
}

// HTTPClient implements Client over the service's HTTP API.
type HTTPClient struct {
	extractURL string
	statusURL  string
	client     *http.Client
}

// NewHTTPClient creates a client; timeout bounds every individual call.
func NewHTTPClient(extractURL, statusURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		extractURL: extractURL,
		statusURL:  statusURL,
		client:     &http.Client{Timeout: timeout},
	}
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type statusResponse struct {
	Status string `json:"status"`
	Result *struct {
		FinalSummary string `json:"final_summary"`
	} `json:"result"`
	Error string `json:"error"`
}

// Submit posts the request and returns the job id. Every failure matches
// models.ErrSubmission; transport failures also match models.ErrTransport.
func (c *HTTPClient) Submit(ctx context.Context, req models.ExtractionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", models.ErrSubmission, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.extractURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", models.ErrSubmission, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrSubmission, classifyError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: %w: extract status %d", models.ErrSubmission, models.ErrTransport, resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: decoding extract response: %v", models.ErrSubmission, err)
	}
	if sr.JobID == "" {
		return "", fmt.Errorf("%w: no job_id returned (status %q)", models.ErrSubmission, sr.Status)
	}
	return sr.JobID, nil
}

// Status fetches the job once. Transport and decoding failures match
// models.ErrTransport.
func (c *HTTPClient) Status(ctx context.Context, jobID string) (models.Job, error) {
	u, err := url.Parse(c.statusURL)
	if err != nil {
		return models.Job{}, fmt.Errorf("parsing status url: %w", err)
	}
	q := u.Query()
	q.Set("job_id", jobID)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.Job{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.Job{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.Job{}, fmt.Errorf("%w: job status %d", models.ErrTransport, resp.StatusCode)
	}

	var sr statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return models.Job{}, fmt.Errorf("%w: decoding job status: %v", models.ErrTransport, err)
	}

	job := models.Job{ID: jobID, Status: sr.Status, Error: sr.Error}
	if sr.Result != nil {
		job.Result = sr.Result.FinalSummary
	}
	return job, nil
}

// classifyError maps transport-level errors onto models.ErrTransport.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout: %v", models.ErrTransport, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", models.ErrTransport, err)
	}
	return fmt.Errorf("%w: %v", models.ErrTransport, err)
}

var _ Client = (*HTTPClient)(nil)
