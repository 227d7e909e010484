// Package vertex is a client for the Vertex AI generateContent endpoint. It
// issues exactly one request per call and maps the raw response into a typed
// outcome; retries are the caller's decision, and none are made here.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pagelens/pagelens/internal/domain"
)

const (
	defaultRegion = "us-central1"
	defaultModel  = "gemini-2.0-flash"

	// errorBodyPreview bounds how much of an unparseable error body is
	// surfaced to the user.
	errorBodyPreview = 500
)

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL overrides the endpoint base URL. Used by tests to point at a
// local server; production URLs are derived from the region.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithModel selects the published model to call.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// Client calls the generateContent method of a published Vertex AI model.
type Client struct {
	region     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given region.
func NewClient(region string, opts ...ClientOption) *Client {
	if region == "" {
		region = defaultRegion
	}
	c := &Client{
		region:     region,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", c.region)
	}
	return c
}

// endpointURL renders the generateContent URL for a project.
func (c *Client) endpointURL(projectID string) string {
	return fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.baseURL, projectID, c.region, c.model)
}

// GenerateContent sends the rendered prompt as a single user turn and returns
// the first candidate's first text part.
//
// Failures map to typed errors: a non-success status becomes a
// *domain.ProviderError with the structured error message when the body
// parses (raw status plus a body prefix when it does not); a success status
// with a body missing the expected text path becomes a
// *domain.MalformedResponseError, never an empty success.
func (c *Client) GenerateContent(ctx context.Context, credential, projectID, promptText string) (string, error) {
	body, err := json.Marshal(NewUserRequest(promptText))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(projectID), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Read the whole body before interpreting it so error bodies can be
	// inspected even when they are not well-formed JSON.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.ProviderError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, respBody),
		}
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.MalformedResponseError{RawBody: string(respBody)}
	}

	text, ok := firstCandidateText(&result)
	if !ok {
		return "", &domain.MalformedResponseError{RawBody: string(respBody)}
	}

	return text, nil
}

// errorMessage extracts error.message from a non-success body, falling back
// to the raw status and a bounded body prefix when the body does not parse.
func errorMessage(status int, body []byte) string {
	var parsed ErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}

	preview := string(body)
	if len(preview) > errorBodyPreview {
		preview = preview[:errorBodyPreview]
	}
	return fmt.Sprintf("status %d: %s", status, preview)
}

// firstCandidateText walks candidates[0].content.parts[0].text. A response
// missing any level of that path, or carrying empty text there, has no usable
// analysis and is reported as malformed rather than as an empty success.
func firstCandidateText(resp *GenerateContentResponse) (string, bool) {
	if len(resp.Candidates) == 0 {
		return "", false
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", false
	}
	text := content.Parts[0].Text
	return text, text != ""
}
