package domain

import (
	"fmt"
	"net/http"
)

// ProviderError is returned by the generation client when the endpoint answers
// with a non-success HTTP status. The message is taken from the structured
// error body when it parses, otherwise from the raw status and a body prefix.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("generation request failed: %d: %s", e.StatusCode, e.Message)
}

// IsAuthFailure reports whether the provider rejected the credential, which
// obliges the caller to invalidate it before the next explicit attempt.
func (e *ProviderError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// MalformedResponseError is returned when the endpoint reports success but the
// body does not contain candidates[0].content.parts[0].text. A response that
// round-trips through JSON with the wrong shape is never treated as empty
// analysis text.
type MalformedResponseError struct {
	RawBody string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("generation response has unexpected shape: %s", truncateForError(e.RawBody, 200))
}

// CredentialError is returned by a credential provider when no token can be
// produced, either because consent was denied or because a non-interactive
// request found nothing cached.
type CredentialError struct {
	Reason string
}

func (e *CredentialError) Error() string {
	return "credential unavailable: " + e.Reason
}

// PlaybookFetchError is returned when the external rule document cannot be
// retrieved or answers with a non-success status.
type PlaybookFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *PlaybookFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch playbook %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch playbook %s: status %d", e.URL, e.StatusCode)
}

func (e *PlaybookFetchError) Unwrap() error { return e.Err }

// ExtractionError is returned when page content cannot be extracted. An empty
// page is not an ExtractionError; only an inaccessible or unparseable one is.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "content extraction failed: " + e.Reason
}

func truncateForError(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
