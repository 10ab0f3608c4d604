package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"virtualcare/internal/config"
	"virtualcare/internal/media"
)

// UploadField is the repeated multipart field carrying photos.
const UploadField = "files[]"

// Answer is one entry of the completion payload.
type Answer struct {
	Question string `json:"question"`
	Value    any    `json:"value"`
	Type     string `json:"type,omitempty"`
}

// Payload is the completion request body.
type Payload struct {
	Email          string            `json:"email"`
	Answers        map[string]Answer `json:"answers"`
	SubmissionFrom string            `json:"submissionFrom"`
}

// Endpoints is the remote side of a submission.
type Endpoints interface {
	UploadPhotos(ctx context.Context, files []*media.File) ([]string, error)
	Complete(ctx context.Context, p Payload) error
	ReportError(ctx context.Context, body any) error
}

// Client talks to the intake endpoints over HTTP.
type Client struct {
	httpClient  *http.Client
	uploadURL   string
	completeURL string
	errorURL    string
}

// NewClient creates a client for the endpoints in cfg.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.GetEndpointTimeout()})
}

// NewClientWithHTTP creates a client using hc.
func NewClientWithHTTP(cfg *config.Config, hc *http.Client) *Client {
	return &Client{
		httpClient:  hc,
		uploadURL:   cfg.UploadURL(),
		completeURL: cfg.CompleteURL(),
		errorURL:    cfg.ErrorURL(),
	}
}

type uploadResponse struct {
	URLs []string `json:"urls"`
}

// UploadPhotos posts files in one multipart request and returns one URL per
// file, in order.
func (c *Client) UploadPhotos(ctx context.Context, files []*media.File) ([]string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, UploadField, escapeQuotes(f.Name)))
		h.Set("Content-Type", f.MIME)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, &UploadError{Err: err}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &UploadError{Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UploadError{Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UploadError{Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(out.URLs) != len(files) {
		return nil, &UploadError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("expected %d urls, got %d", len(files), len(out.URLs)),
		}
	}
	return out.URLs, nil
}

// Complete posts the answer set.
func (c *Client) Complete(ctx context.Context, p Payload) error {
	status, err := c.postJSON(ctx, c.completeURL, p)
	if err != nil {
		return &CompletionError{Status: status, Err: err}
	}
	return nil
}

// ReportError posts a diagnostic report as {"error_body": body}.
func (c *Client) ReportError(ctx context.Context, body any) error {
	_, err := c.postJSON(ctx, c.errorURL, map[string]any{"error_body": body})
	return err
}

func (c *Client) postJSON(ctx context.Context, url string, v any) (int, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, errors.New(msg)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
