package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagelens/pagelens/internal/domain"
	"github.com/pagelens/pagelens/internal/storage"
)

type fakeSettings struct {
	settings domain.Settings
	err      error
}

func (f *fakeSettings) Load(context.Context) (domain.Settings, error) {
	return f.settings, f.err
}

func (f *fakeSettings) Save(context.Context, domain.Settings) error {
	return nil
}

type fakeCreds struct {
	token       string
	err         error
	tokenCalls  int
	invalidated []string
}

func (f *fakeCreds) Token(_ context.Context, _ bool) (string, error) {
	f.tokenCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeCreds) Invalidate(token string) {
	f.invalidated = append(f.invalidated, token)
}

type fakeGenerator struct {
	calls   int
	prompts []string
	text    string
	err     error
	panics  bool
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _, _, promptText string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, promptText)
	if f.panics {
		panic("generator exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeAnalyses struct {
	recs []*storage.AnalysisRecord
	err  error
}

func (f *fakeAnalyses) Record(_ context.Context, rec *storage.AnalysisRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeAnalyses) List(context.Context, storage.ListOptions) ([]*storage.AnalysisRecord, error) {
	return f.recs, nil
}

type fakeRules struct {
	rules []domain.RuleRecord
	err   error
	docs  [][]byte
}

func (f *fakeRules) ExtractRules(doc []byte) ([]domain.RuleRecord, error) {
	f.docs = append(f.docs, doc)
	return f.rules, f.err
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Settings == nil {
		opts.Settings = &fakeSettings{settings: domain.Settings{ProjectID: "proj-1"}}
	}
	if opts.Creds == nil {
		opts.Creds = &fakeCreds{token: "tok-1"}
	}
	if opts.AnalyzeLimit == 0 {
		opts.AnalyzeLimit = 8000
	}
	if opts.SummarizeLimit == 0 {
		opts.SummarizeLimit = 18000
	}
	return New(opts)
}

func TestAnalyzeSuccess(t *testing.T) {
	gen := &fakeGenerator{text: "Looks healthy."}
	analyses := &fakeAnalyses{}
	p := newTestPipeline(t, Options{Generator: gen, Analyses: analyses})

	outcome := p.Analyze(context.Background(), Request{Text: "Hello world"})

	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.AnalysisText != "Looks healthy." {
		t.Errorf("analysis text = %q", outcome.AnalysisText)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
	if !strings.Contains(gen.prompts[0], "Hello world") {
		t.Errorf("prompt does not embed the excerpt: %q", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[0], "No playbook rules extracted or provided.") {
		t.Errorf("prompt missing empty-rules sentence: %q", gen.prompts[0])
	}

	if len(analyses.recs) != 1 {
		t.Fatalf("recorded %d analyses, want 1", len(analyses.recs))
	}
	rec := analyses.recs[0]
	if rec.Operation != domain.OperationAnalyze {
		t.Errorf("recorded operation = %q", rec.Operation)
	}
	if rec.Status != string(domain.StatusSuccess) {
		t.Errorf("recorded status = %q", rec.Status)
	}
	if rec.ID == "" {
		t.Error("recorded ID is empty")
	}
	if rec.PromptChars != len(gen.prompts[0]) {
		t.Errorf("prompt chars = %d, want %d", rec.PromptChars, len(gen.prompts[0]))
	}
	if rec.PromptTokens == 0 {
		t.Error("prompt tokens not estimated")
	}
}

func TestAnalyzeExtractsHTML(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	p := newTestPipeline(t, Options{Generator: gen})

	html := `<html><body><p>Visible body text</p><script>gone()</script></body></html>`
	outcome := p.Analyze(context.Background(), Request{HTML: []byte(html)})

	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if !strings.Contains(gen.prompts[0], "Visible body text") {
		t.Errorf("prompt missing extracted text: %q", gen.prompts[0])
	}
	if strings.Contains(gen.prompts[0], "gone()") {
		t.Errorf("script content leaked into prompt: %q", gen.prompts[0])
	}
}

func TestAnalyzeMissingProjectID(t *testing.T) {
	gen := &fakeGenerator{}
	creds := &fakeCreds{token: "tok-1"}
	p := newTestPipeline(t, Options{
		Settings:  &fakeSettings{settings: domain.Settings{}},
		Creds:     creds,
		Generator: gen,
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusConfigFailure {
		t.Fatalf("status = %q, want config failure", outcome.Status)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called without a project ID")
	}
	if creds.tokenCalls != 0 {
		t.Error("credentials must not be requested without a project ID")
	}
}

func TestAnalyzeUnsavedSettings(t *testing.T) {
	p := newTestPipeline(t, Options{
		Settings:  &fakeSettings{err: storage.ErrSettingsNotFound},
		Generator: &fakeGenerator{},
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusConfigFailure {
		t.Fatalf("status = %q, want config failure", outcome.Status)
	}
}

func TestAnalyzeCredentialFailure(t *testing.T) {
	gen := &fakeGenerator{}
	p := newTestPipeline(t, Options{
		Creds:     &fakeCreds{err: &domain.CredentialError{Reason: "no cached token"}},
		Generator: gen,
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusCredentialFailure {
		t.Fatalf("status = %q, want credential failure", outcome.Status)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called without a credential")
	}
}

func TestAnalyzeAuthFailureInvalidatesOnce(t *testing.T) {
	creds := &fakeCreds{token: "tok-bad"}
	gen := &fakeGenerator{err: &domain.ProviderError{StatusCode: http.StatusForbidden, Message: "permission denied"}}
	p := newTestPipeline(t, Options{Creds: creds, Generator: gen})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusProviderError {
		t.Fatalf("status = %q, want provider error", outcome.Status)
	}
	if outcome.HTTPStatus != http.StatusForbidden {
		t.Errorf("http status = %d, want 403", outcome.HTTPStatus)
	}
	if len(creds.invalidated) != 1 || creds.invalidated[0] != "tok-bad" {
		t.Errorf("invalidated tokens = %v, want exactly [tok-bad]", creds.invalidated)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (no retry)", gen.calls)
	}
}

func TestAnalyzeServerErrorKeepsCredential(t *testing.T) {
	creds := &fakeCreds{token: "tok-1"}
	gen := &fakeGenerator{err: &domain.ProviderError{StatusCode: http.StatusBadGateway, Message: "upstream"}}
	p := newTestPipeline(t, Options{Creds: creds, Generator: gen})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusProviderError || outcome.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(creds.invalidated) != 0 {
		t.Errorf("credential invalidated on a non-auth failure: %v", creds.invalidated)
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	gen := &fakeGenerator{err: &domain.MalformedResponseError{RawBody: `{"odd": true}`}}
	p := newTestPipeline(t, Options{Generator: gen})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusMalformedResponse {
		t.Fatalf("status = %q, want malformed response", outcome.Status)
	}
}

func TestAnalyzePlaybookRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>playbook</html>"))
	}))
	defer srv.Close()

	rules := &fakeRules{rules: []domain.RuleRecord{{Problem: "Page is slow", Solution: "Enable caching"}}}
	gen := &fakeGenerator{text: "ok"}
	p := newTestPipeline(t, Options{
		Settings:  &fakeSettings{settings: domain.Settings{ProjectID: "proj-1", PlaybookURL: srv.URL}},
		Generator: gen,
		Rules:     rules,
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if len(rules.docs) != 1 {
		t.Fatalf("rule extractor ran %d times, want 1", len(rules.docs))
	}
	if !strings.Contains(gen.prompts[0], "1. Problem: Page is slow") {
		t.Errorf("prompt missing rendered rule: %q", gen.prompts[0])
	}
}

func TestAnalyzePlaybookFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	gen := &fakeGenerator{}
	p := newTestPipeline(t, Options{
		Settings:  &fakeSettings{settings: domain.Settings{ProjectID: "proj-1", PlaybookURL: srv.URL}},
		Generator: gen,
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusPlaybookFailure {
		t.Fatalf("status = %q, want playbook fetch failure", outcome.Status)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called after a playbook fetch failure")
	}
}

func TestSummarizeSkipsPlaybook(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	gen := &fakeGenerator{text: "summary"}
	p := newTestPipeline(t, Options{
		Settings:  &fakeSettings{settings: domain.Settings{ProjectID: "proj-1", PlaybookURL: srv.URL}},
		Generator: gen,
	})

	outcome := p.Summarize(context.Background(), Request{Text: "page"})

	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if hits != 0 {
		t.Errorf("playbook fetched %d times during summarize, want 0", hits)
	}
	if !strings.Contains(gen.prompts[0], "concise summary") {
		t.Errorf("prompt is not the summary template: %q", gen.prompts[0])
	}
}

func TestPanicBecomesInternalFailure(t *testing.T) {
	analyses := &fakeAnalyses{}
	p := newTestPipeline(t, Options{
		Generator: &fakeGenerator{panics: true},
		Analyses:  analyses,
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if outcome.Status != domain.StatusInternalFailure {
		t.Fatalf("status = %q, want internal failure", outcome.Status)
	}
	if !strings.Contains(outcome.Message, "generator exploded") {
		t.Errorf("message = %q", outcome.Message)
	}
	if len(analyses.recs) != 1 {
		t.Errorf("recorded %d outcomes, want 1", len(analyses.recs))
	}
}

func TestRecordingFailureDoesNotBreakAnalysis(t *testing.T) {
	p := newTestPipeline(t, Options{
		Generator: &fakeGenerator{text: "ok"},
		Analyses:  &fakeAnalyses{err: errors.New("disk full")},
	})

	outcome := p.Analyze(context.Background(), Request{Text: "page"})

	if !outcome.Succeeded() {
		t.Fatalf("recording failure leaked into the outcome: %+v", outcome)
	}
}

func TestValidateSettings(t *testing.T) {
	cases := []struct {
		name     string
		settings domain.Settings
		wantOK   bool
	}{
		{"valid", domain.Settings{ProjectID: "proj-1"}, true},
		{"valid with playbook", domain.Settings{ProjectID: "proj-1", PlaybookURL: "https://example.com/playbook"}, true},
		{"empty project", domain.Settings{}, false},
		{"whitespace project", domain.Settings{ProjectID: "proj 1"}, false},
		{"tab in project", domain.Settings{ProjectID: "proj\t1"}, false},
		{"relative playbook URL", domain.Settings{ProjectID: "proj-1", PlaybookURL: "/playbook"}, false},
		{"non-http playbook URL", domain.Settings{ProjectID: "proj-1", PlaybookURL: "ftp://example.com/p"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := ValidateSettings(tc.settings)
			if ok := msg == ""; ok != tc.wantOK {
				t.Errorf("ValidateSettings(%+v) = %q, want ok=%v", tc.settings, msg, tc.wantOK)
			}
		})
	}
}
