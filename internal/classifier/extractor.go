package classifier

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts text with the ledongthuc/pdf reader.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDFExtractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// FirstPageLines returns the text lines of page one. An empty or textless
// first page yields no lines and no error.
func (e *PDFExtractor) FirstPageLines(data []byte) (lines []string, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return nil, nil
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return nil, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
