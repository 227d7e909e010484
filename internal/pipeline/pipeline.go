// Package pipeline sequences one page-analysis invocation: load settings,
// acquire a credential, fetch the optional playbook, build the prompt, and
// call the generation endpoint. Every invocation terminates in exactly one
// Outcome, whatever fails along the way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagelens/pagelens/internal/credentials"
	"github.com/pagelens/pagelens/internal/domain"
	"github.com/pagelens/pagelens/internal/extract"
	"github.com/pagelens/pagelens/internal/playbook"
	"github.com/pagelens/pagelens/internal/prompt"
	"github.com/pagelens/pagelens/internal/storage"
	"github.com/pagelens/pagelens/internal/tokens"
)

// Generator issues one generation request and maps the raw response to a
// typed outcome. Implemented by the vertex client.
type Generator interface {
	GenerateContent(ctx context.Context, credential, projectID, promptText string) (string, error)
}

// Request is one pipeline invocation. Callers submit either raw page HTML
// (extracted in-process) or pre-extracted plain text.
type Request struct {
	// HTML is the raw page markup. When set, the configured extractor
	// produces the excerpt.
	HTML []byte

	// Text is a pre-extracted excerpt, used when HTML is empty. An empty
	// Text with empty HTML is a valid (blank-page) invocation, not an error.
	Text string

	// Interactive permits a blocking credential acquisition (user consent).
	// Non-interactive runs fail fast when no credential is cached.
	Interactive bool
}

// Options configures a Pipeline.
type Options struct {
	Settings  storage.SettingsStore
	Creds     credentials.Provider
	Generator Generator
	Extractor extract.Extractor
	Rules     playbook.RuleExtractor

	// HTTPClient fetches the playbook document. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Analyses, when set, records every outcome. Recording failures are
	// logged, never surfaced: history must not break analysis.
	Analyses storage.AnalysisStore

	Logger *slog.Logger

	// AnalyzeLimit and SummarizeLimit are the excerpt character budgets.
	AnalyzeLimit   int
	SummarizeLimit int
}

// Pipeline orchestrates the analysis stages. One invocation at a time per
// caller; the pipeline itself keeps no per-invocation state.
type Pipeline struct {
	opts      Options
	estimator *tokens.Estimator
}

func New(opts Options) *Pipeline {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.VisibleText{}
	}
	if opts.Rules == nil {
		opts.Rules = playbook.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts, estimator: tokens.NewEstimator()}
}

// Analyze runs the playbook-driven analysis variant.
func (p *Pipeline) Analyze(ctx context.Context, req Request) domain.Outcome {
	return p.run(ctx, domain.OperationAnalyze, req)
}

// Summarize runs the plain summarization variant. No playbook is fetched.
func (p *Pipeline) Summarize(ctx context.Context, req Request) domain.Outcome {
	return p.run(ctx, domain.OperationSummarize, req)
}

// run guarantees exactly one terminal outcome per invocation: stage failures
// short-circuit into tagged outcomes, and an unexpected panic surfaces as an
// internal failure instead of escaping to the caller.
func (p *Pipeline) run(ctx context.Context, op domain.Operation, req Request) domain.Outcome {
	start := time.Now()

	outcome, meta := p.execute(ctx, op, req)

	p.record(ctx, op, outcome, meta, time.Since(start))
	return outcome
}

// runMeta carries prompt facts into the history record.
type runMeta struct {
	promptChars  int
	promptTokens int
	ruleCount    int
	truncated    bool
}

func (p *Pipeline) execute(ctx context.Context, op domain.Operation, req Request) (outcome domain.Outcome, meta runMeta) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.Logger.Error("pipeline panic recovered",
				slog.String("operation", string(op)),
				slog.Any("panic", r))
			outcome = domain.Outcome{
				Status:  domain.StatusInternalFailure,
				Message: fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	// Settings are read fresh for every invocation; a stale project ID or
	// playbook URL must never be used.
	settings, err := p.opts.Settings.Load(ctx)
	if err != nil && !errors.Is(err, storage.ErrSettingsNotFound) {
		return domain.Outcome{Status: domain.StatusConfigFailure, Message: "load settings: " + err.Error()}, meta
	}
	if msg := ValidateSettings(settings); msg != "" {
		// Fails before any credential or network work.
		return domain.Outcome{Status: domain.StatusConfigFailure, Message: msg}, meta
	}

	excerpt, extractErr := p.excerpt(req)
	if extractErr != nil {
		return domain.Outcome{Status: domain.StatusExtractionFailure, Message: extractErr.Error()}, meta
	}

	credential, err := p.opts.Creds.Token(ctx, req.Interactive)
	if err != nil {
		return domain.Outcome{Status: domain.StatusCredentialFailure, Message: err.Error()}, meta
	}

	var rules []domain.RuleRecord
	if op == domain.OperationAnalyze && settings.PlaybookURL != "" {
		doc, err := playbook.Fetch(ctx, p.opts.HTTPClient, settings.PlaybookURL)
		if err != nil {
			return domain.Outcome{Status: domain.StatusPlaybookFailure, Message: err.Error()}, meta
		}

		rules, err = p.opts.Rules.ExtractRules(doc)
		if err != nil {
			return domain.Outcome{Status: domain.StatusPlaybookFailure, Message: "extract rules: " + err.Error()}, meta
		}
		if len(rules) == 0 {
			p.opts.Logger.Warn("no rules extracted from playbook",
				slog.String("playbook_url", settings.PlaybookURL))
		}
	}

	var promptReq domain.PromptRequest
	switch op {
	case domain.OperationSummarize:
		promptReq = prompt.BuildSummary(excerpt, p.opts.SummarizeLimit)
	default:
		promptReq = prompt.BuildAnalysis(excerpt, rules, p.opts.AnalyzeLimit)
	}

	meta = runMeta{
		promptChars:  len(promptReq.Text),
		promptTokens: p.estimator.Estimate(promptReq.Text),
		ruleCount:    len(promptReq.Rules),
		truncated:    promptReq.Truncated,
	}

	analysis, err := p.opts.Generator.GenerateContent(ctx, credential, settings.ProjectID, promptReq.Text)
	if err != nil {
		return p.generationOutcome(credential, err), meta
	}

	return domain.Outcome{Status: domain.StatusSuccess, AnalysisText: analysis}, meta
}

// generationOutcome maps a generation-client error to a terminal outcome. A
// provider-reported authorization failure additionally invalidates the
// credential so the next explicit attempt starts clean; no retry happens here.
func (p *Pipeline) generationOutcome(credential string, err error) domain.Outcome {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		if provErr.IsAuthFailure() {
			p.opts.Creds.Invalidate(credential)
			p.opts.Logger.Info("credential invalidated after authorization failure",
				slog.Int("status", provErr.StatusCode))
		}
		return domain.Outcome{
			Status:     domain.StatusProviderError,
			HTTPStatus: provErr.StatusCode,
			Message:    provErr.Message,
		}
	}

	var malErr *domain.MalformedResponseError
	if errors.As(err, &malErr) {
		return domain.Outcome{
			Status:  domain.StatusMalformedResponse,
			Message: malErr.Error(),
		}
	}

	// Transport-level failure: no HTTP status to report.
	return domain.Outcome{Status: domain.StatusProviderError, Message: err.Error()}
}

// excerpt produces the plain-text excerpt for the request. Pre-extracted
// text wins; otherwise the configured extractor runs over the raw HTML. An
// empty result is a valid blank page, distinct from an extraction error.
func (p *Pipeline) excerpt(req Request) (string, error) {
	if len(req.HTML) == 0 {
		return req.Text, nil
	}

	res, err := p.opts.Extractor.Extract(req.HTML)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ValidateSettings checks the persisted preferences before any network work.
// It returns an empty string when the settings are usable.
func ValidateSettings(settings domain.Settings) string {
	if settings.ProjectID == "" {
		return "project ID is not configured"
	}
	if strings.ContainsAny(settings.ProjectID, " \t\n") {
		return "project ID must not contain whitespace"
	}
	if settings.PlaybookURL != "" {
		u, err := url.Parse(settings.PlaybookURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return "playbook URL is not a valid http(s) URL"
		}
	}
	return ""
}

func (p *Pipeline) record(ctx context.Context, op domain.Operation, outcome domain.Outcome, meta runMeta, duration time.Duration) {
	if p.opts.Analyses == nil {
		return
	}

	rec := &storage.AnalysisRecord{
		ID:           uuid.New().String(),
		Operation:    op,
		Status:       string(outcome.Status),
		HTTPStatus:   outcome.HTTPStatus,
		Message:      outcome.Message,
		AnalysisText: outcome.AnalysisText,
		PromptChars:  meta.promptChars,
		PromptTokens: meta.promptTokens,
		RuleCount:    meta.ruleCount,
		Truncated:    meta.truncated,
		Duration:     duration,
	}

	if err := p.opts.Analyses.Record(ctx, rec); err != nil {
		p.opts.Logger.Error("failed to record analysis",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()))
	}
}
