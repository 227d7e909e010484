// Package playbook fetches the externally hosted rule document and extracts
// problem/solution pairs from it. Rule extraction is document-structure
// specific, so it is an injectable strategy; the default extracts nothing.
package playbook

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pagelens/pagelens/internal/domain"
)

// RuleExtractor turns the raw playbook document into ordered rule records.
// Implementations report problems with the document via the error return;
// a document that simply yields no rules is not an error.
type RuleExtractor interface {
	ExtractRules(html []byte) ([]domain.RuleRecord, error)
}

// Noop is the default extractor. Playbook documents vary too much in
// structure to parse generically, so out of the box the pipeline proceeds
// with no rules rather than guessing at one.
type Noop struct{}

func (Noop) ExtractRules([]byte) ([]domain.RuleRecord, error) {
	return nil, nil
}

// Fetch retrieves the playbook document. Transport failures and non-2xx
// statuses both surface as a PlaybookFetchError so the orchestrator can tag
// the outcome as a document-fetch failure.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.PlaybookFetchError{URL: url, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.PlaybookFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.PlaybookFetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.PlaybookFetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}
