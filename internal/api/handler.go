// Package api exposes the analysis pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pagelens/pagelens/internal/domain"
	"github.com/pagelens/pagelens/internal/pipeline"
	"github.com/pagelens/pagelens/internal/server"
	"github.com/pagelens/pagelens/internal/storage"
)

// Handler serves the analysis, settings, and history endpoints.
type Handler struct {
	pipeline *pipeline.Pipeline
	settings storage.SettingsStore
	analyses storage.AnalysisStore
	logger   *slog.Logger
}

func NewHandler(p *pipeline.Pipeline, settings storage.SettingsStore, analyses storage.AnalysisStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline: p,
		settings: settings,
		analyses: analyses,
		logger:   logger,
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/analyze", h.HandleAnalyze)
	r.Post("/v1/summarize", h.HandleSummarize)
	r.Get("/v1/settings", h.HandleGetSettings)
	r.Put("/v1/settings", h.HandlePutSettings)
	r.Get("/v1/analyses", h.HandleListAnalyses)
}

// analyzeRequest is the body of POST /v1/analyze and /v1/summarize. Callers
// submit raw page HTML or pre-extracted text; HTML wins when both are set.
type analyzeRequest struct {
	HTML        string `json:"html,omitempty"`
	Text        string `json:"text,omitempty"`
	Interactive bool   `json:"interactive,omitempty"`
}

// HandleAnalyze handles POST /v1/analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	h.runPipeline(w, r, domain.OperationAnalyze)
}

// HandleSummarize handles POST /v1/summarize.
func (h *Handler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	h.runPipeline(w, r, domain.OperationSummarize)
}

func (h *Handler) runPipeline(w http.ResponseWriter, r *http.Request, op domain.Operation) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}

	preq := pipeline.Request{Text: req.Text, Interactive: req.Interactive}
	if req.HTML != "" {
		preq.HTML = []byte(req.HTML)
	}

	var outcome domain.Outcome
	if op == domain.OperationSummarize {
		outcome = h.pipeline.Summarize(r.Context(), preq)
	} else {
		outcome = h.pipeline.Analyze(r.Context(), preq)
	}

	server.AddLogField(r.Context(), "operation", string(op))
	server.AddLogField(r.Context(), "outcome", string(outcome.Status))

	h.writeJSON(w, outcomeStatusCode(outcome), outcome)
}

// outcomeStatusCode maps a pipeline outcome onto an HTTP response status.
func outcomeStatusCode(outcome domain.Outcome) int {
	switch outcome.Status {
	case domain.StatusSuccess:
		return http.StatusOK
	case domain.StatusConfigFailure, domain.StatusExtractionFailure:
		return http.StatusUnprocessableEntity
	case domain.StatusCredentialFailure:
		return http.StatusUnauthorized
	case domain.StatusPlaybookFailure, domain.StatusProviderError, domain.StatusMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleGetSettings handles GET /v1/settings.
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Load(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrSettingsNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "No settings saved yet")
			return
		}
		server.AddError(r.Context(), err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// HandlePutSettings handles PUT /v1/settings. Settings are validated before
// they are persisted so a later analysis never sees an unusable project ID.
func (h *Handler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return
	}

	if msg := pipeline.ValidateSettings(settings); msg != "" {
		h.writeError(w, http.StatusBadRequest, "invalid_settings", msg)
		return
	}

	if err := h.settings.Save(r.Context(), settings); err != nil {
		server.AddError(r.Context(), err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	h.logger.Info("settings saved",
		slog.String("project_id", settings.ProjectID),
		slog.Bool("playbook_configured", settings.PlaybookURL != ""))

	h.writeJSON(w, http.StatusOK, settings)
}

// HandleListAnalyses handles GET /v1/analyses.
func (h *Handler) HandleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.analyses == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Analysis history is not enabled")
		return
	}

	opts := storage.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	recs, err := h.analyses.List(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"analyses": recs})
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
}
