// Package orchestrator ties the pipeline together: classify the prompt,
// extract parameters, plan, execute under the confirmation gate, and
// synthesize one result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	intentx "github.com/freshroute/agent-orchestrator/agent/intent"
	paramsx "github.com/freshroute/agent-orchestrator/agent/params"
	plannerx "github.com/freshroute/agent-orchestrator/agent/planner"
	synthx "github.com/freshroute/agent-orchestrator/agent/synth"
	tracex "github.com/freshroute/agent-orchestrator/agent/trace"
	metricsx "github.com/freshroute/agent-orchestrator/pkg/metrics"
)

// Executor runs a plan and returns one outcome per executed-or-blocked action.
type Executor interface {
	Execute(ctx context.Context, req contractx.Request, plan []contractx.PlannedAction, tr *tracex.Tracer) []contractx.ActionOutcome
}

// Config carries the orchestration knobs explicitly; nothing here is read
// from the environment by the service itself.
type Config struct {
	Enabled        bool
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 60 * time.Second

// Option customizes a Service beyond its required collaborators.
type Option func(*Service)

func WithResultStore(store contractx.ResultStore) Option {
	return func(s *Service) { s.store = store }
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the request-scoped orchestration pipeline. It holds no mutable
// per-request state and is safe for concurrent use.
type Service struct {
	cfg     Config
	planner *plannerx.Planner
	exec    Executor
	store   contractx.ResultStore
	metrics *metricsx.Metrics
	now     func() time.Time
}

func New(cfg Config, planner *plannerx.Planner, exec Executor, opts ...Option) (*Service, error) {
	if planner == nil {
		return nil, errors.New("planner is required")
	}
	if exec == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	s := &Service{
		cfg:     cfg,
		planner: planner,
		exec:    exec,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run processes one request end to end and returns its terminal result.
// Capability failures surface inside the result; an error return means the
// request never entered the pipeline.
func (s *Service) Run(ctx context.Context, req contractx.Request) (*contractx.OrchestrationResult, error) {
	if !s.cfg.Enabled {
		return nil, contractx.ErrDisabled
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, contractx.ErrEmptyPrompt
	}

	tr := tracex.New(req.RequestID, req.TraceID)
	req.RequestID = tr.RequestID()
	req.TraceID = tr.TraceID()
	tr.RequestStart(req.CallerID, req.Mode)

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	start := s.now()

	intent := intentx.Classify(prompt)
	tr.IntentClassified(intent)

	extracted := paramsx.Extract(prompt, intent)

	plan, dropped := s.planner.Plan(intent, extracted)
	tr.PlanCreated(intent, len(plan), dropped > 0)

	var warnings []string
	if dropped > 0 {
		tr.PlanTruncated(len(plan)+dropped, len(plan))
		warnings = append(warnings, fmt.Sprintf("plan truncated to %d actions", len(plan)))
	}

	outcomes := s.exec.Execute(runCtx, req, plan, tr)
	final := synthx.Synthesize(intent, outcomes)

	elapsed := s.now().Sub(start)
	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Succeeded {
			succeeded++
		}
	}
	tr.RequestEnd(intent, len(outcomes), succeeded, elapsed)
	s.metrics.ObserveRequest(string(intent), statusFor(outcomes, succeeded), elapsed)

	result := &contractx.OrchestrationResult{
		RequestID:       req.RequestID,
		Intent:          intent,
		Outcomes:        outcomes,
		Final:           final,
		Warnings:        warnings,
		TotalDurationMs: elapsed.Milliseconds(),
	}
	s.saveResult(result)
	return result, nil
}

// Lookup returns a previously completed run from the result store. Without a
// configured store no result is ever retrievable, which is reported as
// not-found rather than a backend failure.
func (s *Service) Lookup(ctx context.Context, requestID string) (*contractx.OrchestrationResult, error) {
	if s.store == nil {
		return nil, contractx.ErrResultNotFound
	}
	return s.store.Load(ctx, requestID)
}

func (s *Service) saveResult(result *contractx.OrchestrationResult) {
	if s.store == nil {
		return
	}
	// The run is already complete; a short independent deadline keeps a slow
	// store from holding the response.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Save(ctx, result); err != nil {
		log.Warn().
			Str("request_id", result.RequestID).
			Err(err).
			Msg("failed to cache orchestration result")
	}
}

func statusFor(outcomes []contractx.ActionOutcome, succeeded int) string {
	switch {
	case len(outcomes) == 0:
		return "empty_plan"
	case succeeded == len(outcomes):
		return "ok"
	case succeeded == 0:
		return "failed"
	default:
		return "partial"
	}
}
