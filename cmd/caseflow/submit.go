package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type submitOptions struct {
	server  string
	key     string
	caseID  string
	userID  string
	notes   string
	timeout time.Duration
}

func newSubmitCmd() *cobra.Command {
	opts := submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit FILE...",
		Short: "Send a case batch to the process-case endpoint",
		Long: `Uploads every FILE as one case batch and prints the server's reply.
Plain-text files are treated as notes; everything else is converted and
sent for extraction. The command blocks until the server finishes polling.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.server == "" {
				opts.server = envOr("CASEFLOW_SERVER", "http://localhost:8080")
			}
			if opts.key == "" {
				opts.key = os.Getenv("CASEFLOW_API_KEY")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return submit(ctx, opts, args, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", "", "server base URL (default $CASEFLOW_SERVER or http://localhost:8080)")
	f.StringVar(&opts.key, "key", "", "API key with the process scope (default $CASEFLOW_API_KEY)")
	f.StringVar(&opts.caseID, "case", "", "case id (required)")
	f.StringVar(&opts.userID, "user", "", "user id (required)")
	f.StringVar(&opts.notes, "notes", "", "free-text notes sent with the batch")
	f.DurationVar(&opts.timeout, "timeout", 15*time.Minute, "overall request timeout")
	cmd.MarkFlagRequired("case")
	cmd.MarkFlagRequired("user")

	return cmd
}

func submit(ctx context.Context, opts submitOptions, paths []string, out io.Writer) error {
	if _, err := uuid.Parse(opts.caseID); err != nil {
		return fmt.Errorf("invalid case id: %w", err)
	}
	if _, err := uuid.Parse(opts.userID); err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	if opts.key == "" {
		return fmt.Errorf("an API key is required (--key or CASEFLOW_API_KEY)")
	}

	body, contentType, err := buildForm(opts, paths)
	if err != nil {
		return err
	}

	url := strings.TrimRight(opts.server, "/") + "/api/v1/process-case"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+opts.key)

	slog.Debug("submitting case batch", "url", url, "files", len(paths))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("submitting batch: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	fmt.Fprintf(out, "%s\n", bytes.TrimSpace(respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

func buildForm(opts submitOptions, paths []string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"case_id": opts.caseID,
		"user_id": opts.userID,
	}
	if opts.notes != "" {
		fields["additional_data"] = opts.notes
	}
	for k, v := range fields {
		if err := mpw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	for _, p := range paths {
		if err := addFile(mpw, p); err != nil {
			return nil, "", err
		}
	}

	if err := mpw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, mpw.FormDataContentType(), nil
}

func addFile(mpw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w, err := mpw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("adding %s: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
