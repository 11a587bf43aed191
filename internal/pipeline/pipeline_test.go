package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicefetch/internal/decoder"
	"invoicefetch/internal/delivery"
	"invoicefetch/internal/mailbox"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeSource replays canned search/fetch results.
type fakeSource struct {
	uids       []uint32
	messages   []*mailbox.RawMessage
	report     *mailbox.FetchReport
	searchErr  error
	connectErr error
	closed     bool
}

func (f *fakeSource) Connect() error { return f.connectErr }
func (f *fakeSource) Close() error   { f.closed = true; return nil }
func (f *fakeSource) Search(since, before time.Time) ([]uint32, error) {
	return f.uids, f.searchErr
}
func (f *fakeSource) Fetch(uids []uint32, batchSize int) ([]*mailbox.RawMessage, *mailbox.FetchReport) {
	if f.report == nil {
		f.report = &mailbox.FetchReport{Requested: len(uids), Fetched: len(f.messages)}
	}
	return f.messages, f.report
}

// substringClassifier matches when the normalized keyword appears in the
// PDF bytes, standing in for real first-page extraction.
type substringClassifier struct{}

func (substringClassifier) Classify(pdf []byte, keyword, folder string) (string, bool, error) {
	norm := strings.ReplaceAll(strings.ToLower(keyword), " ", "")
	if strings.Contains(strings.ToLower(string(pdf)), norm) {
		return folder, true, nil
	}
	return "", false, nil
}

type failingClassifier struct{ err error }

func (f failingClassifier) Classify([]byte, string, string) (string, bool, error) {
	return "", false, f.err
}

type fakeForwarder struct {
	folder string
	files  []delivery.PDFFile
	calls  int
	err    error
}

func (f *fakeForwarder) Deliver(_ context.Context, folder string, files []delivery.PDFFile) error {
	f.calls++
	f.folder = folder
	f.files = files
	return f.err
}

func rawMessage(uid uint32, pdfBody string) *mailbox.RawMessage {
	encoded := base64.StdEncoding.EncodeToString([]byte(pdfBody))
	raw := fmt.Sprintf(`From: billing@example.com
Subject: invoice
Date: Thu, 01 Aug 2024 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

see attachment
--b1
Content-Type: application/pdf
Content-Disposition: attachment; filename="invoice-%d.pdf"
Content-Transfer-Encoding: base64

%s
--b1--
`, uid, encoded)
	return &mailbox.RawMessage{UID: uid, Body: []byte(strings.ReplaceAll(raw, "\n", "\r\n"))}
}

func testRequest() FetchRequest {
	return FetchRequest{
		Keyword: "han factory",
		Folder:  "HF",
		Since:   time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		Before:  time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC),
	}
}

func newRunner(src *fakeSource, cls Classifier, fwd Forwarder) *Runner {
	return NewRunner(
		func() MailSource { return src },
		decoder.New(testLogger),
		cls, fwd, 20, testLogger,
	)
}

func TestRunMatchedPDFDelivered(t *testing.T) {
	src := &fakeSource{
		uids: []uint32{7},
		messages: []*mailbox.RawMessage{
			rawMessage(7, "%PDF fake body for hanfactory GmbH"),
		},
	}
	fwd := &fakeForwarder{}
	runner := newRunner(src, substringClassifier{}, fwd)

	report, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Found)
	assert.Equal(t, []string{"invoice-7.pdf"}, report.Matched)
	assert.Equal(t, "PDFs fetched and processed successfully.", report.Message)
	assert.True(t, src.closed)

	require.Equal(t, 1, fwd.calls)
	assert.Equal(t, "HF", fwd.folder)
	require.Len(t, fwd.files, 1)
	assert.Equal(t, "invoice-7.pdf", fwd.files[0].Name)
	assert.Equal(t, "2024-08-01", fwd.files[0].EmailDate)

	decoded, err := base64.StdEncoding.DecodeString(fwd.files[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "%PDF fake body for hanfactory GmbH", string(decoded))
}

func TestRunNoMessagesFound(t *testing.T) {
	src := &fakeSource{uids: nil}
	fwd := &fakeForwarder{}
	runner := newRunner(src, substringClassifier{}, fwd)

	report, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "No emails found in the specified date range.", report.Message)
	assert.Zero(t, fwd.calls)
	assert.True(t, src.closed)
}

func TestRunZeroMatchesStillSucceeds(t *testing.T) {
	src := &fakeSource{
		uids:     []uint32{1},
		messages: []*mailbox.RawMessage{rawMessage(1, "%PDF some other company")},
	}
	fwd := &fakeForwarder{}
	runner := newRunner(src, substringClassifier{}, fwd)

	report, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, report.Matched)
	assert.Equal(t, "PDFs fetched and processed successfully.", report.Message)
	// The endpoint is still called, with an empty file list.
	assert.Equal(t, 1, fwd.calls)
	assert.Empty(t, fwd.files)
}

func TestRunConnectFailureAborts(t *testing.T) {
	src := &fakeSource{connectErr: errors.New("auth failed")}
	runner := newRunner(src, substringClassifier{}, &fakeForwarder{})

	_, err := runner.Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth failed")
}

func TestRunSearchFailureAborts(t *testing.T) {
	src := &fakeSource{searchErr: errors.New("bad criteria")}
	runner := newRunner(src, substringClassifier{}, &fakeForwarder{})

	_, err := runner.Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, src.closed)
}

func TestRunDeliveryFailureSurfaced(t *testing.T) {
	src := &fakeSource{
		uids:     []uint32{7},
		messages: []*mailbox.RawMessage{rawMessage(7, "%PDF hanfactory")},
	}
	fwd := &fakeForwarder{err: errors.New("endpoint returned 500")}
	runner := newRunner(src, substringClassifier{}, fwd)

	_, err := runner.Run(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to deliver PDFs")
}

func TestRunSkippedBatchesReported(t *testing.T) {
	report := &mailbox.FetchReport{Requested: 2, Fetched: 1}
	report.AddBatchFailure([]uint32{2}, errors.New("connection reset"))
	src := &fakeSource{
		uids:     []uint32{1, 2},
		messages: []*mailbox.RawMessage{rawMessage(1, "%PDF hanfactory")},
		report:   report,
	}
	runner := newRunner(src, substringClassifier{}, &fakeForwarder{})

	got, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Fetched)
	require.Len(t, got.SkippedBatches, 1)
	assert.Equal(t, []uint32{2}, got.SkippedBatches[0].UIDs)
}

func TestRunClassifierFailureSkipsAttachmentOnly(t *testing.T) {
	src := &fakeSource{
		uids:     []uint32{7},
		messages: []*mailbox.RawMessage{rawMessage(7, "%PDF broken")},
	}
	fwd := &fakeForwarder{}
	runner := newRunner(src, failingClassifier{err: errors.New("malformed pdf")}, fwd)

	report, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, report.Matched)
	require.Len(t, report.SkippedAttachments, 1)
	assert.Equal(t, "invoice-7.pdf", report.SkippedAttachments[0].Filename)
	assert.Equal(t, "malformed pdf", report.SkippedAttachments[0].Reason)
	assert.Equal(t, 1, fwd.calls)
}
