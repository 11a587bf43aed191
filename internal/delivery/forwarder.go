// Package delivery ships classified PDFs to the Apps Script endpoint that
// files them into Drive folders.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://script.google.com/macros/s"

// PDFFile is one matched invoice in the outbound payload.
type PDFFile struct {
	Name      string `json:"name"`
	Content   string `json:"content"` // base64-encoded PDF bytes
	EmailDate string `json:"email_date"`
}

// payload is the request body the Apps Script web app expects.
type payload struct {
	BaseFolderID string    `json:"baseFolderId"`
	FolderName   string    `json:"folderName"`
	PDFFiles     []PDFFile `json:"pdfFiles"`
}

// Config for the Forwarder.
type Config struct {
	ScriptID     string
	BaseFolderID string
	BaseURL      string // overridable for tests; defaults to the Apps Script host
	Timeout      time.Duration
}

// Forwarder posts collected PDFs to the filing endpoint.
type Forwarder struct {
	config     Config
	httpClient *http.Client
}

// NewForwarder creates a Forwarder.
func NewForwarder(cfg Config) *Forwarder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Forwarder{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Deliver sends all files for one fetch cycle in a single request. The
// payload is not chunked, so a very large cycle can hit the endpoint's
// size limit. Any non-2xx status is an error; a 2xx body is read but its
// structure is not validated.
func (f *Forwarder) Deliver(ctx context.Context, folderName string, files []PDFFile) error {
	body, err := json.Marshal(payload{
		BaseFolderID: f.config.BaseFolderID,
		FolderName:   folderName,
		PDFFiles:     files,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/exec", f.config.BaseURL, f.config.ScriptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
