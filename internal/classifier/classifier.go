// Package classifier decides which storage folder an invoice PDF belongs
// to by scanning its first page for a company keyword.
package classifier

import (
	"strings"
)

// TextExtractor extracts the text lines of the first page of a PDF.
// Later pages are never inspected.
type TextExtractor interface {
	FirstPageLines(pdf []byte) ([]string, error)
}

// Classifier matches normalized first-page text against a keyword.
type Classifier struct {
	extractor TextExtractor
}

// New creates a Classifier on top of an extractor.
func New(extractor TextExtractor) *Classifier {
	return &Classifier{extractor: extractor}
}

// Classify reports whether keyword appears in the PDF's first page and, if
// so, returns folder. Text and keyword are both lowercased with all spaces
// removed before the per-line substring check; the first matching line
// wins. An extraction error fails classification for this attachment only.
func (c *Classifier) Classify(pdf []byte, keyword, folder string) (string, bool, error) {
	lines, err := c.extractor.FirstPageLines(pdf)
	if err != nil {
		return "", false, err
	}

	needle := Normalize(keyword)
	if needle == "" {
		return "", false, nil
	}
	for _, line := range lines {
		if strings.Contains(Normalize(line), needle) {
			return folder, true, nil
		}
	}
	return "", false, nil
}

// Normalize lowercases s and removes all whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}
