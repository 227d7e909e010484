package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/pagelens/internal/domain"
)

// VisibleText extracts every piece of rendered text from the document body,
// skipping markup that never renders. This mirrors what a reader actually
// sees on the page and is the default strategy.
type VisibleText struct{}

func (VisibleText) Extract(html []byte) (Result, error) {
	return safeExtract(func() (Result, error) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
		if err != nil {
			return Result{}, &domain.ExtractionError{Reason: "parse document: " + err.Error()}
		}

		body := doc.Find("body")
		if body.Length() == 0 {
			// Fragments without a body still carry text worth analyzing.
			body = doc.Selection
		}

		body.Find("script, style, noscript, template, iframe").Remove()

		return Result{Text: normalizeWhitespace(body.Text())}, nil
	})
}

// normalizeWhitespace collapses runs of blank space into single spaces and
// blank-line runs into single newlines, keeping paragraph structure readable
// for the model without inflating the character budget.
func normalizeWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
