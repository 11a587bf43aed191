package decoder

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLStripper reduces an HTML body to its visible text.
type HTMLStripper struct {
	whitespaceRegex *regexp.Regexp
	newlineRegex    *regexp.Regexp
}

// NewHTMLStripper creates an HTMLStripper.
func NewHTMLStripper() *HTMLStripper {
	return &HTMLStripper{
		whitespaceRegex: regexp.MustCompile(`[^\S\n]+`),
		newlineRegex:    regexp.MustCompile(`\n{3,}`),
	}
}

// Strip removes markup and collapses whitespace. On unparsable input it
// falls back to a bare angle-bracket removal so a body is never lost.
func (s *HTMLStripper) Strip(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return tagRegex.ReplaceAllString(html, "")
	}

	doc.Find("script, style, head, meta, link").Remove()
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr").Each(func(i int, sel *goquery.Selection) {
		sel.PrependHtml("\n")
	})

	text := doc.Text()
	text = s.whitespaceRegex.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	var clean []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			clean = append(clean, line)
		}
	}
	text = strings.Join(clean, "\n")
	text = s.newlineRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

var tagRegex = regexp.MustCompile(`<[^<]+?>`)
