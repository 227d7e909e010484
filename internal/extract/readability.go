package extract

import (
	"bytes"
	"net/url"

	readability "github.com/go-shiori/go-readability"

	"github.com/pagelens/pagelens/internal/domain"
)

// Readability extracts only the main article content, discarding navigation
// and other chrome. Useful on long-form pages where the visible-text strategy
// would spend most of the character budget on boilerplate.
type Readability struct {
	// PageURL helps the readability heuristics resolve relative references.
	// Optional.
	PageURL *url.URL
}

func (r Readability) Extract(html []byte) (Result, error) {
	return safeExtract(func() (Result, error) {
		pageURL := r.PageURL
		if pageURL == nil {
			pageURL = &url.URL{Scheme: "https", Host: "localhost"}
		}

		parser := readability.NewParser()
		article, err := parser.Parse(bytes.NewReader(html), pageURL)
		if err != nil {
			return Result{}, &domain.ExtractionError{Reason: "readability parse: " + err.Error()}
		}

		return Result{Text: normalizeWhitespace(article.TextContent)}, nil
	})
}
