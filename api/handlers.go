/*
handlers.go - HTTP API handlers for the feasibility engine

PURPOSE:
  Exposes the feasibility engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to feaso (simulation), analysis (solver,
  sensitivity) and the sqlite store.

ENDPOINTS:
  Sites:
    GET    /api/sites                      List sites
    POST   /api/sites                      Create or replace a site
    GET    /api/sites/{id}                 Get a site

  Scenarios:
    GET    /api/scenarios                  List scenarios (?site_id=)
    POST   /api/scenarios                  Create a scenario
    GET    /api/scenarios/{id}             Get a scenario
    PUT    /api/scenarios/{id}             Replace a scenario
    DELETE /api/scenarios/{id}             Delete a scenario

  Analysis:
    POST   /api/scenarios/{id}/simulate    Monthly flows + summary (?flows=false)
    POST   /api/scenarios/{id}/solve       Residual land value
    POST   /api/scenarios/{id}/sensitivity Sensitivity grid (synchronous)
    POST   /api/scenarios/{id}/sensitivity/jobs  Sensitivity grid (async)
    GET    /api/jobs                       List jobs (?status=)
    GET    /api/jobs/{id}                  Poll a job
    POST   /api/simulate                   Simulate an inline document

  Demos:
    GET    /api/demos                      List demo datasets
    POST   /api/demos/load                 Reset and load a demo dataset
    POST   /api/reset                      Reset the database

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Generator: Sensitivity grids (worker pool + cache)
  - Jobs: Background runner for async grids
  - Metrics: Prometheus collectors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed bodies, invalid scenarios, unknown axes, grids over
         400 cells
  - 404: Site, scenario or job not found
  - 503: Job queue full
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - demos.go: Demo dataset loaders
  - scheduler.go: Job runner
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/feasibility-engine/analysis"
	"github.com/warp/feasibility-engine/factory"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/store/sqlite"
)

// errInvalidRequest marks request-level problems that are not scenario
// validation failures.
var errInvalidRequest = errors.New("invalid request")

// maxGridCells caps len(steps_x) x len(steps_y); every cell is a full
// simulation.
const maxGridCells = 400

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Generator *analysis.Generator
	Jobs      *JobRunner
	Metrics   *Metrics

	// Track currently loaded demo. demoMu also serialises reset + load.
	demoMu      sync.RWMutex
	currentDemo string
}

// Options tunes the analysis layer.
type Options struct {
	Workers  int           // sensitivity workers; <= 0 means GOMAXPROCS
	CacheTTL time.Duration // sensitivity cache TTL; <= 0 disables the cache
	Runners  int           // background job runners; <= 0 means 2
}

// NewHandler creates a handler with its generator, job runner and metrics.
// The job runner is not started.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	metrics := NewMetrics()

	var cache analysis.Cache
	if opts.CacheTTL > 0 {
		cache = metrics.InstrumentCache(analysis.NewMemoryCache(opts.CacheTTL))
	}
	gen := analysis.NewGenerator(opts.Workers, cache)
	if opts.Runners <= 0 {
		opts.Runners = 2
	}

	return &Handler{
		Store:     store,
		Generator: gen,
		Jobs:      NewJobRunner(store, gen, metrics, opts.Runners),
		Metrics:   metrics,
	}
}

// =============================================================================
// SITE HANDLERS
// =============================================================================

// ListSites returns all sites.
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Store.ListSites(r.Context())
	if err != nil {
		respondError(w, "Failed to list sites", err)
		return
	}

	dtos := make([]SiteDTO, 0, len(sites))
	for _, s := range sites {
		dtos = append(dtos, SiteDTO{factory.FromSite(s)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSite returns a single site.
func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	site, err := h.Store.GetSite(r.Context(), feaso.SiteID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to get site", err)
		return
	}
	writeJSON(w, http.StatusOK, SiteDTO{factory.FromSite(site)})
}

// CreateSite saves a site. An id is generated when absent.
func (h *Handler) CreateSite(w http.ResponseWriter, r *http.Request) {
	var req factory.SiteJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.LandArea < 0 || req.CouncilRatePct < 0 {
		writeError(w, http.StatusBadRequest, "Land area and council rate cannot be negative", nil)
		return
	}

	site := factory.ToSite(req)
	if err := h.Store.SaveSite(r.Context(), site); err != nil {
		respondError(w, "Failed to save site", err)
		return
	}
	writeJSON(w, http.StatusCreated, SiteDTO{factory.FromSite(site)})
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns scenarios, optionally for one site.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scenarios, err := h.Store.ListScenarios(ctx, feaso.SiteID(r.URL.Query().Get("site_id")))
	if err != nil {
		respondError(w, "Failed to list scenarios", err)
		return
	}

	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		version, err := h.Store.ScenarioVersion(ctx, s.ID)
		if err != nil {
			respondError(w, "Failed to list scenarios", err)
			return
		}
		dtos = append(dtos, ScenarioDTO{Config: factory.FromScenario(s), Version: version})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetScenario returns a single scenario.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := feaso.ScenarioID(chi.URLParam(r, "id"))

	s, err := h.Store.GetScenario(ctx, id)
	if err != nil {
		respondError(w, "Failed to get scenario", err)
		return
	}
	version, err := h.Store.ScenarioVersion(ctx, id)
	if err != nil {
		respondError(w, "Failed to get scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{Config: factory.FromScenario(s), Version: version})
}

// CreateScenario validates and saves a new scenario.
func (h *Handler) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req factory.ScenarioJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	h.saveScenario(w, r, req, http.StatusCreated)
}

// UpdateScenario replaces an existing scenario. The URL id wins over the body.
func (h *Handler) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetScenario(r.Context(), feaso.ScenarioID(id)); err != nil {
		respondError(w, "Failed to update scenario", err)
		return
	}

	var req factory.ScenarioJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	h.saveScenario(w, r, req, http.StatusOK)
}

func (h *Handler) saveScenario(w http.ResponseWriter, r *http.Request, req factory.ScenarioJSON, status int) {
	ctx := r.Context()

	s, err := factory.ToScenario(req)
	if err != nil {
		respondError(w, "Invalid scenario", err)
		return
	}
	if s.LinkedScenarioID != "" {
		if s.LinkedScenarioID == s.ID {
			writeError(w, http.StatusBadRequest, "A scenario cannot link to itself", nil)
			return
		}
		linked, err := h.Store.GetScenario(ctx, s.LinkedScenarioID)
		if err != nil {
			respondError(w, "Invalid linked scenario", err)
			return
		}
		if err := feaso.ValidateLink(s, &linked); err != nil {
			respondError(w, "Invalid linked scenario", err)
			return
		}
	}

	if err := h.Store.SaveScenario(ctx, s); err != nil {
		respondError(w, "Failed to save scenario", err)
		return
	}
	version, err := h.Store.ScenarioVersion(ctx, s.ID)
	if err != nil {
		respondError(w, "Failed to save scenario", err)
		return
	}
	writeJSON(w, status, ScenarioDTO{Config: factory.FromScenario(s), Version: version})
}

// DeleteScenario removes a scenario and its jobs.
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteScenario(r.Context(), feaso.ScenarioID(chi.URLParam(r, "id"))); err != nil {
		respondError(w, "Failed to delete scenario", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SIMULATION HANDLERS
// =============================================================================

// SimulateScenario runs a stored scenario.
func (h *Handler) SimulateScenario(w http.ResponseWriter, r *http.Request) {
	b, err := feaso.Load(r.Context(), h.Store, feaso.ScenarioID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, h.simulate(b, r.URL.Query().Get("flows") != "false"))
}

// SimulateDocument runs an inline site + scenario (+ linked) document
// without storing anything.
func (h *Handler) SimulateDocument(w http.ResponseWriter, r *http.Request) {
	var doc factory.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	b, err := doc.Bundle()
	if err != nil {
		respondError(w, "Invalid scenario document", err)
		return
	}
	writeJSON(w, http.StatusOK, h.simulate(b, r.URL.Query().Get("flows") != "false"))
}

func (h *Handler) simulate(b feaso.Bundle, withFlows bool) SimulateResponse {
	start := time.Now()
	defer h.Metrics.Observe("simulate", start, nil)

	flows := b.Simulate()
	resp := SimulateResponse{
		ScenarioID: string(b.Scenario.ID),
		Summary:    toSummaryDTO(feaso.Summarize(flows, b.Scenario.Settings.DiscountRate)),
	}
	if withFlows {
		resp.Flows = toFlowDTOs(flows)
	}
	return resp
}

// =============================================================================
// SOLVER HANDLERS
// =============================================================================

// SolveScenario finds the residual land value of a stored scenario.
func (h *Handler) SolveScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	switch req.TargetType {
	case "":
		req.TargetType = analysis.TargetMargin
	case analysis.TargetMargin, analysis.TargetIRR:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown target_type %q (use margin or irr)", req.TargetType), nil)
		return
	}

	b, err := feaso.Load(ctx, h.Store, feaso.ScenarioID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to load scenario", err)
		return
	}

	start := time.Now()
	sol, err := analysis.SolveLandValue(ctx, decimal.NewFromFloat(req.Target), req.TargetType, b.Scenario, b.Site, b.Linked)
	h.Metrics.Observe("solve", start, &err)
	if err != nil {
		respondError(w, "Solver cancelled", err)
		return
	}

	writeJSON(w, http.StatusOK, SolveResponse{
		LandValue:      sol.LandValue,
		StampDuty:      sol.StampDuty.Round(2),
		AchievedMetric: sol.AchievedMetric.Round(2),
		TargetType:     req.TargetType,
		Iterations:     sol.Iterations,
		Converged:      sol.Converged,
	})
}

// =============================================================================
// SENSITIVITY HANDLERS
// =============================================================================

// SensitivityScenario computes a grid inside the request.
func (h *Handler) SensitivityScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SensitivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	xAxis, yAxis, err := parseSensitivityRequest(req)
	if err != nil {
		respondError(w, "Invalid sensitivity request", err)
		return
	}

	b, err := feaso.Load(ctx, h.Store, feaso.ScenarioID(chi.URLParam(r, "id")))
	if err != nil {
		respondError(w, "Failed to load scenario", err)
		return
	}

	start := time.Now()
	grid, err := h.Generator.Generate(ctx, b.Scenario, b.Site, b.Linked, xAxis, yAxis, req.StepsX, req.StepsY)
	h.Metrics.Observe("sensitivity", start, &err)
	if err != nil {
		respondError(w, "Failed to generate sensitivity grid", err)
		return
	}
	writeJSON(w, http.StatusOK, SensitivityResponse{XAxis: xAxis, YAxis: yAxis, Grid: grid})
}

// SubmitSensitivityJob queues a grid and returns the job immediately.
func (h *Handler) SubmitSensitivityJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := feaso.ScenarioID(chi.URLParam(r, "id"))

	var req SensitivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := h.Store.GetScenario(ctx, id); err != nil {
		respondError(w, "Failed to submit job", err)
		return
	}

	job, err := h.Jobs.Submit(ctx, id, req)
	if errors.Is(err, ErrQueueFull) {
		writeError(w, http.StatusServiceUnavailable, "Job queue is full, retry later", err)
		return
	}
	if err != nil {
		respondError(w, "Failed to submit job", err)
		return
	}
	writeJSON(w, http.StatusAccepted, toJobDTO(job))
}

// GetJob returns a job with its result once completed.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, "Failed to get job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(job))
}

// ListJobs returns jobs, newest first.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Store.ListJobs(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, "Failed to list jobs", err)
		return
	}
	dtos := make([]JobDTO, 0, len(jobs))
	for _, j := range jobs {
		dto := toJobDTO(j)
		dto.Result = nil // poll the job for its grid
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func parseSensitivityRequest(req SensitivityRequest) (analysis.Axis, analysis.Axis, error) {
	xAxis, err := analysis.ParseAxis(req.XAxis)
	if err != nil {
		return "", "", fmt.Errorf("%w: x_axis: %v", errInvalidRequest, err)
	}
	yAxis, err := analysis.ParseAxis(req.YAxis)
	if err != nil {
		return "", "", fmt.Errorf("%w: y_axis: %v", errInvalidRequest, err)
	}
	if xAxis == yAxis {
		return "", "", fmt.Errorf("%w: x_axis and y_axis must differ", errInvalidRequest)
	}
	if len(req.StepsX) == 0 || len(req.StepsY) == 0 {
		return "", "", fmt.Errorf("%w: steps_x and steps_y need at least one step", errInvalidRequest)
	}
	if cells := len(req.StepsX) * len(req.StepsY); cells > maxGridCells {
		return "", "", fmt.Errorf("%w: grid of %d cells exceeds %d", errInvalidRequest, cells, maxGridCells)
	}
	return xAxis, yAxis, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// respondError maps err onto a status code.
func respondError(w http.ResponseWriter, message string, err error) {
	switch {
	case feaso.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case feaso.IsClientError(err), errors.Is(err, feaso.ErrLinkedStrategy), errors.Is(err, errInvalidRequest):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		slog.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
