// Package prompt renders page excerpts and playbook rules into the
// instruction text sent to the generation endpoint. Everything here is a pure
// function of its inputs: no I/O, no shared state.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pagelens/pagelens/internal/domain"
)

// TruncationMarker is appended whenever an excerpt is cut to its character
// budget. It is never dropped silently.
const TruncationMarker = "... (truncated)"

// NoRulesSentence is the fixed rules section used when no playbook entries
// are available. Downstream stages treat it as a normal prompt, not an error.
const NoRulesSentence = "No playbook rules extracted or provided."

const analysisTemplate = `You are an assistant analyzing web page content for potential issues based on a provided playbook.

Playbook content:
%s

Now, examine the following web page content (excerpt). Summarize the problem and suggest the corresponding solutions from the playbook. Be concise and focus only on matches found.

Web Page Content (excerpt):
%s`

const summaryTemplate = "Please provide a concise summary of the following web page content:\n\n---\n\n%s\n\n---\n\nSummary:"

// BuildAnalysis composes the playbook-driven analysis prompt. The excerpt is
// truncated to limit characters with a visible marker when longer; rules are
// rendered 1-indexed in their original order.
func BuildAnalysis(excerpt string, rules []domain.RuleRecord, limit int) domain.PromptRequest {
	bounded, truncated := Truncate(excerpt, limit)

	text := fmt.Sprintf(analysisTemplate, RenderRules(rules), bounded)
	return domain.PromptRequest{
		Text:      text,
		Excerpt:   bounded,
		Truncated: truncated,
		Rules:     rules,
	}
}

// BuildSummary composes the plain summarization prompt with no playbook
// section.
func BuildSummary(excerpt string, limit int) domain.PromptRequest {
	bounded, truncated := Truncate(excerpt, limit)

	return domain.PromptRequest{
		Text:      fmt.Sprintf(summaryTemplate, bounded),
		Excerpt:   bounded,
		Truncated: truncated,
	}
}

// Truncate bounds text to limit characters, appending TruncationMarker when a
// cut was made. Text at or under the limit is returned unchanged.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 || len(text) <= limit {
		return text, false
	}
	return text[:limit] + TruncationMarker, true
}

// RenderRules renders playbook entries into the rules section of the prompt.
// Entries keep their insertion order and are numbered from 1. An empty rule
// set renders the fixed no-rules sentence.
func RenderRules(rules []domain.RuleRecord) string {
	if len(rules) == 0 {
		return NoRulesSentence
	}

	var b strings.Builder
	b.WriteString("Analyze the web page content based on these rules:\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. Problem: %s\n   Solution: %s\n", i+1, rule.Problem, rule.Solution)
	}
	return b.String()
}
