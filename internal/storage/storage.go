// Package storage defines the persistence interfaces for user settings and
// the analysis history.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pagelens/pagelens/internal/domain"
)

// ErrSettingsNotFound is returned when no settings have been saved yet.
var ErrSettingsNotFound = errors.New("settings not saved")

// SettingsStore persists the two user preferences. The pipeline loads them
// fresh at the start of every invocation; implementations must not serve a
// stale snapshot after Save returns.
type SettingsStore interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// AnalysisRecord is one recorded pipeline invocation.
type AnalysisRecord struct {
	ID           string           `json:"id"`
	Operation    domain.Operation `json:"operation"`
	Status       string           `json:"status"`
	HTTPStatus   int              `json:"http_status,omitempty"`
	Message      string           `json:"message,omitempty"`
	AnalysisText string           `json:"analysis,omitempty"`
	PromptChars  int              `json:"prompt_chars"`
	PromptTokens int              `json:"prompt_tokens"`
	RuleCount    int              `json:"rule_count"`
	Truncated    bool             `json:"truncated"`
	Duration     time.Duration    `json:"duration_ns"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ListOptions bounds a history listing.
type ListOptions struct {
	Limit  int
	Offset int
}

// AnalysisStore records pipeline outcomes for later inspection.
type AnalysisStore interface {
	Record(ctx context.Context, rec *AnalysisRecord) error
	List(ctx context.Context, opts ListOptions) ([]*AnalysisRecord, error)
}
