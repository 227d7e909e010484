// Package domain provides the canonical types shared by the analysis pipeline.
package domain

// RuleRecord is one playbook entry: a known problem and its remedy.
// Insertion order is significant and is reflected in the numbered prompt text.
type RuleRecord struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// PromptRequest is the fully rendered instruction sent to the generation
// endpoint. It is immutable once constructed.
type PromptRequest struct {
	// Text is the complete rendered prompt.
	Text string

	// Excerpt is the (possibly truncated) page excerpt embedded in Text.
	Excerpt string

	// Truncated reports whether the excerpt was cut to the character budget.
	Truncated bool

	// Rules are the playbook entries rendered into Text, in order.
	Rules []RuleRecord
}

// Settings are the persisted user preferences, loaded fresh at the start of
// every pipeline invocation so a run always sees the latest saved values.
type Settings struct {
	// ProjectID is the Google Cloud project hosting the Vertex AI endpoint.
	// Required, non-empty, must not contain whitespace.
	ProjectID string `json:"project_id"`

	// PlaybookURL is the optional external rule document. When empty the
	// playbook stages are skipped entirely.
	PlaybookURL string `json:"playbook_url,omitempty"`
}

// Operation identifies which pipeline variant produced an outcome.
type Operation string

const (
	OperationAnalyze   Operation = "analyze"
	OperationSummarize Operation = "summarize"
)

// OutcomeStatus is the terminal status of one pipeline invocation.
type OutcomeStatus string

const (
	StatusSuccess           OutcomeStatus = "success"
	StatusConfigFailure     OutcomeStatus = "config_failure"
	StatusExtractionFailure OutcomeStatus = "extraction_failure"
	StatusCredentialFailure OutcomeStatus = "credential_failure"
	StatusPlaybookFailure   OutcomeStatus = "playbook_fetch_failure"
	StatusProviderError     OutcomeStatus = "provider_error"
	StatusMalformedResponse OutcomeStatus = "malformed_response"
	StatusInternalFailure   OutcomeStatus = "internal_failure"
)

// Outcome is the single terminal value produced by one pipeline invocation.
// Exactly one Outcome is emitted per run, success or failure.
type Outcome struct {
	Status OutcomeStatus `json:"status"`

	// AnalysisText is set only when Status is StatusSuccess.
	AnalysisText string `json:"analysis,omitempty"`

	// Message carries the stage-specific, user-facing failure description.
	Message string `json:"message,omitempty"`

	// HTTPStatus is the provider's status code for StatusProviderError.
	HTTPStatus int `json:"http_status,omitempty"`
}

// Succeeded reports whether the invocation produced analysis text.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}
