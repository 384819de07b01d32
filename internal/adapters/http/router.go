package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/neural-transliterator/internal/config"
	"github.com/kirillkom/neural-transliterator/internal/core/domain"
	"github.com/kirillkom/neural-transliterator/internal/core/ports"
	"github.com/kirillkom/neural-transliterator/internal/observability/metrics"
)

const readinessTimeout = 3 * time.Second

type Router struct {
	cfg            config.Config
	transliterator ports.Transliterator
	jobs           ports.JobSubmitter
	jobReader      ports.JobReader
	metrics        *metrics.HTTPServerMetrics
	oracle         ports.HealthChecker
}

func NewRouter(
	cfg config.Config,
	transliterator ports.Transliterator,
	jobs ports.JobSubmitter,
	jobReader ports.JobReader,
) *Router {
	return &Router{
		cfg:            cfg,
		transliterator: transliterator,
		jobs:           jobs,
		jobReader:      jobReader,
	}
}

// WithMetrics enables request instrumentation and the /metrics endpoint.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

// WithReadiness makes /readyz ping the model server.
func (rt *Router) WithReadiness(oracle ports.HealthChecker) *Router {
	rt.oracle = oracle
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/transliterate", rt.transliterate)
	api.HandleFunc("/v1/jobs", rt.submitJob)
	api.HandleFunc("/v1/jobs/", rt.getJobByID)

	var guarded http.Handler = api
	guarded = maxBodyMiddleware(guarded, rt.cfg.APIMaxBodyBytes)
	guarded = backpressureMiddleware(guarded, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), rt.recordRejected)
	guarded = rateLimitMiddleware(guarded, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.Handle("/v1/", guarded)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected("api", reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.oracle == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := rt.oracle.Ping(ctx); err != nil {
		slog.Warn("oracle_not_ready", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "oracle": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "oracle": "ok"})
}

type linesRequest struct {
	Lines []string `json:"lines"`
}

func (rt *Router) transliterate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.transliterateBatch(w, r)
	case http.MethodGet:
		rt.transliterateBest(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) transliterateBatch(w http.ResponseWriter, r *http.Request) {
	lines, ok := decodeLines(w, r)
	if !ok {
		return
	}

	results, err := rt.transliterator.Transliterate(r.Context(), lines)
	if err != nil {
		rt.logFailure(r, "transliterate", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) transliterateBest(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("text") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'text' is required"})
		return
	}

	text := r.URL.Query().Get("text")
	best, found, err := rt.transliterator.Best(r.Context(), text)
	if err != nil {
		rt.logFailure(r, "transliterate_best", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":   text,
		"result": best,
		"found":  found,
	})
}

func (rt *Router) submitJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	lines, ok := decodeLines(w, r)
	if !ok {
		return
	}

	job, err := rt.jobs.Submit(r.Context(), lines)
	if err != nil {
		rt.logFailure(r, "submit_job", err)
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordJobSubmitted()
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	job, err := rt.jobReader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func decodeLines(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req linesRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return nil, false
	}
	if req.Lines == nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("field 'lines' is required")))
		return nil, false
	}
	return req.Lines, true
}

func (rt *Router) logFailure(r *http.Request, operation string, err error) {
	if mapErrorToHTTPStatus(err) < http.StatusInternalServerError {
		return
	}
	slog.Error("request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"operation", operation,
		"error", err,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
