package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/application/services/orchestration"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/domain/repositories"
	"github.com/vsinha/procurement/pkg/infrastructure/events"
	"github.com/vsinha/procurement/pkg/infrastructure/repositories/tabular"
)

const (
	maxBodyBytes = 10 << 20
	workbookType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RunStore keeps finished plan results for later retrieval
type RunStore interface {
	SavePlan(result *dto.PlanResult) error
	GetPlan(runID string) (*dto.PlanResult, error)
	ListPlans() []*dto.PlanResult
}

// EventLog lists recent planning events
type EventLog interface {
	Recent(limit int) ([]events.Event, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	planner  *orchestration.Planner
	loader   *tabular.Loader
	datasets repositories.DatasetRepository
	runs     RunStore
	events   EventLog
	logger   logrus.FieldLogger
}

// NewHandler creates a new handler. events may be nil.
func NewHandler(
	planner *orchestration.Planner,
	datasets repositories.DatasetRepository,
	runs RunStore,
	eventLog EventLog,
	logger logrus.FieldLogger,
) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		planner:  planner,
		loader:   tabular.NewLoader(),
		datasets: datasets,
		runs:     runs,
		events:   eventLog,
		logger:   logger,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RunSummary is one entry of the run history
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Strategy  string    `json:"strategy"`
	Status    string    `json:"status"`
	TotalCost string    `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
	Summary   string    `json:"summary"`
}

// ComparisonResponse adds the cheapest strategy to a comparison
type ComparisonResponse struct {
	Results  []*dto.PlanResult `json:"results"`
	Cheapest string            `json:"cheapest,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListStrategies returns the names of every strategy
func (h *Handler) ListStrategies(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, 3)
	for _, s := range entities.AllStrategies() {
		names = append(names, s.String())
	}
	writeJSON(w, http.StatusOK, names)
}

// CreatePlan runs one strategy on the request's dataset
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	strategy, err := entities.ParseStrategy(chi.URLParam(r, "strategy"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown strategy", err)
		return
	}
	ds, status, err := h.requestDataset(r)
	if err != nil {
		writeError(w, status, "Invalid dataset", err)
		return
	}

	result, err := h.planner.Plan(r.Context(), ds, strategy)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}
	h.remember(result)
	writeJSON(w, http.StatusOK, result)
}

// ComparePlans runs every strategy on the request's dataset
func (h *Handler) ComparePlans(w http.ResponseWriter, r *http.Request) {
	ds, status, err := h.requestDataset(r)
	if err != nil {
		writeError(w, status, "Invalid dataset", err)
		return
	}

	comparison, err := h.planner.Compare(r.Context(), ds)
	if err != nil {
		h.writePlanError(w, r, err)
		return
	}
	resp := ComparisonResponse{Results: comparison.Results}
	for _, result := range comparison.Results {
		h.remember(result)
	}
	if cheapest, ok := comparison.Cheapest(); ok {
		resp.Cheapest = cheapest.Strategy.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns the run history, newest first
func (h *Handler) ListRuns(w http.ResponseWriter, _ *http.Request) {
	plans := h.runs.ListPlans()
	summaries := make([]RunSummary, len(plans))
	for i, p := range plans {
		summaries[i] = RunSummary{
			RunID:     p.RunID,
			Strategy:  p.Strategy.String(),
			Status:    p.Status.String(),
			TotalCost: p.Costs.Total.StringFixed(2),
			CreatedAt: p.CreatedAt,
			Summary:   orchestration.Summary(p),
		}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetRun returns one stored plan result
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runs.GetPlan(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Run not found", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListDatasets returns the names of stored datasets
func (h *Handler) ListDatasets(w http.ResponseWriter, _ *http.Request) {
	names, err := h.datasets.ListDatasets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// SaveDataset validates and stores a dataset sent as JSON or XLSX
func (h *Handler) SaveDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ds, err := h.decodeDataset(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataset", err)
		return
	}
	if _, err := h.planner.Prepare(ds); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Dataset failed validation", err)
		return
	}
	if err := h.datasets.SaveDataset(name, ds); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save dataset", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// GetDataset returns a stored dataset
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasets.GetDataset(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Dataset not found", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// DeleteDataset removes a stored dataset
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.datasets.DeleteDataset(chi.URLParam(r, "name")); err != nil {
		writeError(w, http.StatusNotFound, "Dataset not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents returns recent planning events; ?limit= caps the count
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSON(w, http.StatusOK, []events.Event{})
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	recent, err := h.events.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read events", err)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

// requestDataset resolves ?dataset=name or decodes the body
func (h *Handler) requestDataset(r *http.Request) (*entities.Dataset, int, error) {
	if name := r.URL.Query().Get("dataset"); name != "" {
		ds, err := h.datasets.GetDataset(name)
		if err != nil {
			return nil, http.StatusNotFound, err
		}
		return ds, http.StatusOK, nil
	}
	ds, err := h.decodeDataset(r)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return ds, http.StatusOK, nil
}

func (h *Handler) decodeDataset(r *http.Request) (*entities.Dataset, error) {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), workbookType) {
		return h.loader.DecodeWorkbook(body)
	}
	return h.loader.DecodeJSON(body)
}

func (h *Handler) remember(result *dto.PlanResult) {
	if err := h.runs.SavePlan(result); err != nil {
		h.logger.WithError(err).Warn("failed to store plan result")
	}
}

// writePlanError maps planning failures to HTTP statuses
func (h *Handler) writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	var planErr *entities.PlanError
	switch {
	case errors.Is(err, entities.ErrDataInconsistency):
		writeError(w, http.StatusUnprocessableEntity, "Dataset is inconsistent", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Planning timed out", err)
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "Planning was cancelled", err)
	case errors.As(err, &planErr):
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("plan rejected")
		writeError(w, http.StatusInternalServerError, "Plan failed verification", err)
	default:
		h.logger.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("planning failed")
		writeError(w, http.StatusInternalServerError, "Planning failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// requestLogger logs each request through logrus
func requestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"elapsed":    time.Since(start),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
