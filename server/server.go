// Package server exposes the orchestrator over HTTP: one run endpoint, a
// result lookup, health, and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	orchestratorx "github.com/freshroute/agent-orchestrator/agent/orchestrator"
	metricsx "github.com/freshroute/agent-orchestrator/pkg/metrics"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	svc     *orchestratorx.Service
	metrics *metricsx.Metrics
	httpSrv *http.Server
}

func New(addr string, svc *orchestratorx.Service, m *metricsx.Metrics) (*Server, error) {
	if svc == nil {
		return nil, errors.New("orchestrator service is required")
	}
	s := &Server{svc: svc, metrics: m}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /agent/run", s.handleRun)
	mux.HandleFunc("GET /agent/runs/{id}", s.handleLookup)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return accessLog(mux)
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("http server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type runRequest struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id"`
	Prompt    string `json:"prompt"`
	Mode      string `json:"mode"`
	Confirmed bool   `json:"confirmed"`
	TraceID   string `json:"trace_id"`
}

type runResponse struct {
	Status           string                    `json:"status"`
	RequestID        string                    `json:"request_id"`
	Intent           contractx.Intent          `json:"intent"`
	Actions          []contractx.ActionOutcome `json:"actions"`
	Final            contractx.Synthesis       `json:"final"`
	Warnings         []string                  `json:"warnings,omitempty"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "request body must be valid JSON",
		})
		return
	}

	mode := contractx.Mode(body.Mode)
	switch mode {
	case "":
		mode = contractx.ModeSync
	case contractx.ModeSync, contractx.ModeAsync:
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "invalid_mode",
			Message:   `mode must be "sync" or "async"`,
			RequestID: body.RequestID,
		})
		return
	}

	req := contractx.Request{
		RequestID: body.RequestID,
		CallerID:  body.CallerID,
		Prompt:    body.Prompt,
		Mode:      mode,
		Confirmed: body.Confirmed,
		TraceID:   body.TraceID,
	}

	result, err := s.svc.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, req, err)
		return
	}

	status := "ok"
	if mode == contractx.ModeAsync {
		status = "queued"
	}
	writeJSON(w, http.StatusOK, runResponse{
		Status:           status,
		RequestID:        result.RequestID,
		Intent:           result.Intent,
		Actions:          result.Outcomes,
		Final:            result.Final,
		Warnings:         result.Warnings,
		ProcessingTimeMs: result.TotalDurationMs,
	})
}

func (s *Server) writeRunError(w http.ResponseWriter, req contractx.Request, err error) {
	switch {
	case errors.Is(err, contractx.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "empty_prompt",
			Message:   "prompt must not be empty",
			RequestID: req.RequestID,
		})
	case errors.Is(err, contractx.ErrDisabled):
		writeJSON(w, http.StatusNotImplemented, errorResponse{
			Error:     "disabled",
			Message:   "the orchestrator is disabled on this deployment",
			RequestID: req.RequestID,
		})
	default:
		log.Error().Err(err).Str("request_id", req.RequestID).Msg("orchestration failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "internal",
			Message:   "internal error while processing the request",
			RequestID: req.RequestID,
		})
	}
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("id")
	result, err := s.svc.Lookup(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, contractx.ErrResultNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Error:     "not_found",
				Message:   "no result for this request id",
				RequestID: requestID,
			})
			return
		}
		log.Error().Err(err).Str("request_id", requestID).Msg("result lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "internal",
			Message:   "result lookup failed",
			RequestID: requestID,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http request")
	})
}
