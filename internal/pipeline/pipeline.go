// Package pipeline runs one fetch cycle: search the mailbox over a date
// window, fetch in batches, decode, classify PDF attachments against the
// requested keyword and forward the matches to the filing endpoint.
package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"invoicefetch/internal/decoder"
	"invoicefetch/internal/delivery"
	"invoicefetch/internal/mailbox"
)

// FetchRequest is one validated fetch invocation.
type FetchRequest struct {
	Keyword string
	Folder  string
	Since   time.Time
	Before  time.Time
}

// MailSource is the mailbox the pipeline searches and fetches from. A
// fresh source is opened per run and closed when the run returns.
type MailSource interface {
	Connect() error
	Close() error
	Search(since, before time.Time) ([]uint32, error)
	Fetch(uids []uint32, batchSize int) ([]*mailbox.RawMessage, *mailbox.FetchReport)
}

// Classifier matches one PDF against the requested keyword.
type Classifier interface {
	Classify(pdf []byte, keyword, folder string) (string, bool, error)
}

// Forwarder ships matched PDFs to the filing endpoint.
type Forwarder interface {
	Deliver(ctx context.Context, folderName string, files []delivery.PDFFile) error
}

// SkippedAttachment is one attachment that could not be classified.
type SkippedAttachment struct {
	Filename string
	Reason   string
}

// Report accounts for one fetch cycle. Per-item failures are collected
// here instead of being swallowed, so callers can observe partial loss.
type Report struct {
	Found              int
	Fetched            int
	Matched            []string
	SkippedBatches     []mailbox.BatchFailure
	SkippedAttachments []SkippedAttachment
	Message            string
}

// Runner wires the pipeline stages together.
type Runner struct {
	newSource  func() MailSource
	decoder    *decoder.Decoder
	classifier Classifier
	forwarder  Forwarder
	batchSize  int
	logger     *slog.Logger
}

// NewRunner creates a Runner. newSource must return an unconnected source.
func NewRunner(newSource func() MailSource, dec *decoder.Decoder, cls Classifier, fwd Forwarder, batchSize int, logger *slog.Logger) *Runner {
	if batchSize < 1 {
		batchSize = 20
	}
	return &Runner{
		newSource:  newSource,
		decoder:    dec,
		classifier: cls,
		forwarder:  fwd,
		batchSize:  batchSize,
		logger:     logger.With("component", "pipeline"),
	}
}

// Run executes one synchronous fetch cycle. Batch and attachment failures
// are recorded in the report and do not abort the cycle; connection and
// delivery failures do.
func (r *Runner) Run(ctx context.Context, req FetchRequest) (*Report, error) {
	report := &Report{}

	src := r.newSource()
	if err := src.Connect(); err != nil {
		return report, fmt.Errorf("failed to connect to mailbox: %w", err)
	}
	defer src.Close()

	uids, err := src.Search(req.Since, req.Before)
	if err != nil {
		return report, fmt.Errorf("failed to search mailbox: %w", err)
	}
	report.Found = len(uids)
	if len(uids) == 0 {
		report.Message = "No emails found in the specified date range."
		return report, nil
	}

	messages, fetchReport := src.Fetch(uids, r.batchSize)
	report.Fetched = fetchReport.Fetched
	report.SkippedBatches = fetchReport.SkippedBatches
	r.logger.Info("fetch completed", "summary", fetchReport.Summary())

	files := r.collect(messages, req, report)

	// The endpoint is called even with zero matches; it answers with the
	// folder listing either way.
	if err := r.forwarder.Deliver(ctx, req.Folder, files); err != nil {
		return report, fmt.Errorf("failed to deliver PDFs: %w", err)
	}

	report.Message = "PDFs fetched and processed successfully."
	return report, nil
}

// collect decodes fetched messages and classifies their PDF attachments.
func (r *Runner) collect(messages []*mailbox.RawMessage, req FetchRequest, report *Report) []delivery.PDFFile {
	var files []delivery.PDFFile
	for _, raw := range messages {
		msg, err := r.decoder.Decode(bytes.NewReader(raw.Body))
		if err != nil {
			r.logger.Warn("failed to decode message", "uid", raw.UID, "error", err)
			report.SkippedAttachments = append(report.SkippedAttachments, SkippedAttachment{
				Filename: fmt.Sprintf("uid %d", raw.UID),
				Reason:   fmt.Sprintf("decode: %v", err),
			})
			continue
		}

		for _, att := range msg.Attachments {
			if !att.IsPDF() {
				continue
			}
			_, matched, err := r.classifier.Classify(att.Data, req.Keyword, req.Folder)
			if err != nil {
				r.logger.Warn("failed to classify attachment",
					"filename", att.Filename, "subject", msg.Subject, "error", err)
				report.SkippedAttachments = append(report.SkippedAttachments, SkippedAttachment{
					Filename: att.Filename,
					Reason:   err.Error(),
				})
				continue
			}
			if !matched {
				continue
			}

			files = append(files, delivery.PDFFile{
				Name:      att.Filename,
				Content:   base64.StdEncoding.EncodeToString(att.Data),
				EmailDate: msg.EmailDate(),
			})
			report.Matched = append(report.Matched, att.Filename)
		}
	}
	return files
}
