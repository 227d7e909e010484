package vertex

// GenerateContentRequest is the minimal request body the generateContent
// endpoint accepts: a single-turn conversation with one user message.
type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

// Content is one conversation turn.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a turn. Only text parts are sent or read here.
type Part struct {
	Text string `json:"text"`
}

// GenerateContentResponse is the success-body shape the client parses. The
// analysis text lives at candidates[0].content.parts[0].text; absence at any
// level means the response is malformed.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a single generated response choice.
type Candidate struct {
	Content *Content `json:"content"`
}

// ErrorResponse is the best-effort shape of a non-success body.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail carries the provider's error description.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewUserRequest builds the request body for a rendered prompt.
func NewUserRequest(promptText string) *GenerateContentRequest {
	return &GenerateContentRequest{
		Contents: []Content{
			{
				Role:  "user",
				Parts: []Part{{Text: promptText}},
			},
		},
	}
}
