// Package api exposes uploads, allocation runs and exports over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jakechorley/resource-allocator/pkg/core/allocator"
	"github.com/jakechorley/resource-allocator/pkg/core/model"
	"github.com/jakechorley/resource-allocator/pkg/core/phases"
	"github.com/jakechorley/resource-allocator/pkg/core/records"
	"github.com/jakechorley/resource-allocator/pkg/core/rules"
	"github.com/jakechorley/resource-allocator/pkg/core/services"
	"github.com/jakechorley/resource-allocator/pkg/db"
	"github.com/jakechorley/resource-allocator/pkg/metrics"
)

const maxBodyBytes = 10 << 20

// AllocationDefaults fill in whatever an allocate request leaves out
type AllocationDefaults struct {
	Rules           []rules.Rule
	Weights         allocator.Weights
	DefaultPhase    int
	EnforceCapacity bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store          db.Database
	metrics        *metrics.Manager
	calendar       *phases.Calendar
	defaults       AllocationDefaults
	allowedOrigins []string
	logger         *zap.Logger
}

// NewHandler creates a new API handler. metrics and calendar may be nil.
func NewHandler(
	store db.Database,
	m *metrics.Manager,
	calendar *phases.Calendar,
	defaults AllocationDefaults,
	allowedOrigins []string,
	logger *zap.Logger,
) *Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Handler{
		store:          store,
		metrics:        m,
		calendar:       calendar,
		defaults:       defaults,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(h.instrument)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		// Entity rows
		r.Post("/upload/{entity}", h.uploadRows)
		r.Post("/map-headers", h.mapHeaders)
		r.Get("/export/{entity}", h.exportRows)

		// Allocation runs
		r.Post("/allocate", h.allocate)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{id}/assignments.csv", h.exportAssignments)
	})

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	return r
}

// instrument records every request against its route pattern
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.RecordHTTPRequest(route, r.Method, status, time.Since(started))
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	OK       bool     `json:"ok"`
	Received *int     `json:"received,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Message  string   `json:"message,omitempty"`
}

func (h *Handler) uploadRows(w http.ResponseWriter, r *http.Request) {
	kind := model.EntityKind(chi.URLParam(r, "entity"))
	if !kind.IsValid() {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Unknown entity"})
		return
	}

	var rows []model.Row
	if err := decodeBody(w, r, &rows); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadResponse{Message: "Body must be a JSON array of rows"})
		return
	}

	result, err := services.IngestRows(r.Context(), h.store, h.logger, h.metrics, kind, rows)
	if err != nil {
		h.logger.Error("upload failed", zap.String("entity", string(kind)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, uploadResponse{Message: "Failed to store rows"})
		return
	}

	if !result.OK() {
		h.logger.Info("upload rejected",
			zap.String("entity", string(kind)),
			zap.Strings("errors", result.Errors))
		writeJSON(w, http.StatusUnprocessableEntity, uploadResponse{Errors: result.Errors})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{OK: true, Received: &result.Received})
}

type mapHeadersRequest struct {
	Headers    []string    `json:"headers"`
	SampleRows []model.Row `json:"sampleRows"`
	EntityType string      `json:"entityType"`
}

func (h *Handler) mapHeaders(w http.ResponseWriter, r *http.Request) {
	var req mapHeadersRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Headers == nil || req.SampleRows == nil || req.EntityType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing parameters"})
		return
	}

	kind, err := model.ParseEntityKind(req.EntityType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mapping": records.SuggestHeaderMapping(kind, req.Headers),
	})
}

type allocateRequest struct {
	Rules           json.RawMessage    `json:"rules"`
	Weights         *allocator.Weights `json:"weights"`
	DefaultPhase    *int               `json:"defaultPhase"`
	EnforceCapacity *bool              `json:"enforceCapacity"`
	DryRun          bool               `json:"dryRun"`
	Clients         []model.Row        `json:"clients"`
	Workers         []model.Row        `json:"workers"`
	Tasks           []model.Row        `json:"tasks"`
}

type allocateResponse struct {
	OK               bool                        `json:"ok"`
	RunID            string                      `json:"runId,omitempty"`
	Assignments      []model.Assignment          `json:"assignments"`
	Unmatched        []allocator.UnmatchedClient `json:"unmatched"`
	CoRunGaps        []allocator.CoRunGap        `json:"coRunGaps"`
	GroupLoads       []allocator.LoadEntry       `json:"groupLoads"`
	ValidationErrors []allocator.ValidationError `json:"validationErrors"`
}

type errorResponse struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors"`
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var body allocateRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Errors: []string{"invalid JSON body"}})
		return
	}

	req, err := h.allocationRequest(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: []string{err.Error()}})
		return
	}

	result, err := services.RunAllocation(r.Context(), h.store, h.logger, h.metrics, req)
	if err != nil {
		var rowsErr *services.InvalidRowsError
		switch {
		case errors.As(err, &rowsErr):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: rowsErr.Errors})
		case services.IsConfigError(err):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Errors: []string{err.Error()}})
		default:
			h.logger.Error("allocation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Errors: []string{"allocation failed"}})
		}
		return
	}

	outcome := result.Outcome
	resp := allocateResponse{
		OK:               true,
		Assignments:      outcome.Assignments,
		Unmatched:        outcome.Unmatched,
		CoRunGaps:        outcome.CoRunGaps,
		GroupLoads:       outcome.GroupLoads,
		ValidationErrors: outcome.ValidationErrors,
	}
	if result.Run != nil {
		resp.RunID = result.Run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// allocationRequest merges an allocate body over the configured defaults
func (h *Handler) allocationRequest(body allocateRequest) (services.AllocationRequest, error) {
	req := services.AllocationRequest{
		Rules:           h.defaults.Rules,
		Weights:         h.defaults.Weights,
		DefaultPhase:    h.defaults.DefaultPhase,
		EnforceCapacity: h.defaults.EnforceCapacity,
		DryRun:          body.DryRun,
		Clients:         body.Clients,
		Workers:         body.Workers,
		Tasks:           body.Tasks,
	}

	if len(body.Rules) > 0 && string(body.Rules) != "null" {
		ruleSet, err := rules.Decode(body.Rules)
		if err != nil {
			return req, err
		}
		req.Rules = ruleSet
	}
	if body.Weights != nil {
		req.Weights = *body.Weights
	}
	if body.DefaultPhase != nil {
		req.DefaultPhase = *body.DefaultPhase
	}
	if body.EnforceCapacity != nil {
		req.EnforceCapacity = *body.EnforceCapacity
	}

	return req, nil
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := services.ListRuns(r.Context(), h.store, h.logger, 0)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) exportRows(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseEntityKind(chi.URLParam(r, "entity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown entity"})
		return
	}

	rows, err := h.store.GetRows(r.Context(), kind)
	if err != nil {
		h.logger.Error("export failed", zap.String("entity", string(kind)), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read rows"})
		return
	}

	setCSVHeaders(w, string(kind)+".csv")
	if err := services.ExportRowsCSV(w, kind, rows); err != nil {
		h.logger.Error("export write failed", zap.String("entity", string(kind)), zap.Error(err))
	}
}

func (h *Handler) exportAssignments(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	assignments, err := services.RunAssignments(r.Context(), h.store, h.logger, runID)
	if errors.Is(err, db.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	if err != nil {
		h.logger.Error("assignment export failed", zap.String("run_id", runID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read assignments"})
		return
	}

	setCSVHeaders(w, fmt.Sprintf("assignments-%s.csv", runID))
	if err := services.ExportAssignmentsCSV(w, assignments, h.calendar); err != nil {
		h.logger.Error("assignment export write failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
