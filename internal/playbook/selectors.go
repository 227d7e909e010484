package playbook

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/pagelens/internal/domain"
)

// Selectors extracts rules from playbooks whose structure is known: each
// element matching Problem is paired with its immediately following sibling
// matching Solution. Configure it when the playbook's markup is under your
// control; otherwise keep the Noop default.
type Selectors struct {
	Problem  string
	Solution string
}

func (s Selectors) ExtractRules(html []byte) ([]domain.RuleRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &domain.PlaybookFetchError{Err: err}
	}

	var rules []domain.RuleRecord
	doc.Find(s.Problem).Each(func(_ int, problem *goquery.Selection) {
		solution := problem.Next()
		if solution.Length() == 0 || !solution.Is(s.Solution) {
			return
		}

		p := strings.TrimSpace(problem.Text())
		sol := strings.TrimSpace(solution.Text())
		if p == "" || sol == "" {
			return
		}

		rules = append(rules, domain.RuleRecord{Problem: p, Solution: sol})
	})

	return rules, nil
}
