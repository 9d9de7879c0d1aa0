// Package engine executes a plan action by action. One failing action never
// aborts the rest; the confirmation gate is enforced here, before any
// network dispatch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	tracex "github.com/freshroute/agent-orchestrator/agent/trace"
	metricsx "github.com/freshroute/agent-orchestrator/pkg/metrics"
)

type Engine struct {
	capabilities map[contractx.CapabilityKind]contractx.Capability
	maxActions   int
	metrics      *metricsx.Metrics
	now          func() time.Time
}

func New(capabilities []contractx.Capability, maxActions int, metrics *metricsx.Metrics) (*Engine, error) {
	if len(capabilities) == 0 {
		return nil, errors.New("at least one capability is required")
	}
	if maxActions <= 0 {
		return nil, errors.New("maxActions must be > 0")
	}

	byKind := make(map[contractx.CapabilityKind]contractx.Capability, len(capabilities))
	for _, capability := range capabilities {
		if capability == nil {
			return nil, errors.New("nil capability")
		}
		if _, dup := byKind[capability.Kind()]; dup {
			return nil, fmt.Errorf("duplicate capability %q", capability.Kind())
		}
		byKind[capability.Kind()] = capability
	}

	return &Engine{
		capabilities: byKind,
		maxActions:   maxActions,
		metrics:      metrics,
		now:          time.Now,
	}, nil
}

// Execute runs the plan in order and returns exactly one outcome per
// executed-or-blocked action: len(outcomes) == min(len(plan), maxActions).
// When the request deadline fires mid-plan, the remaining actions are
// recorded as failed outcomes rather than dropped.
func (e *Engine) Execute(ctx context.Context, req contractx.Request, plan []contractx.PlannedAction, tr *tracex.Tracer) []contractx.ActionOutcome {
	if len(plan) > e.maxActions {
		plan = plan[:e.maxActions]
	}

	outcomes := make([]contractx.ActionOutcome, 0, len(plan))
	for _, action := range plan {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, contractx.ActionOutcome{
				Capability: action.Capability,
				Operation:  action.Operation,
				Succeeded:  false,
				Error:      contextCause(err),
			})
			continue
		}
		outcomes = append(outcomes, e.runOne(ctx, req, action, tr))
	}
	return outcomes
}

func contextCause(err error) string {
	if errors.Is(err, context.Canceled) {
		return "request canceled before this action started"
	}
	return "request deadline exceeded before this action started"
}

func (e *Engine) runOne(ctx context.Context, req contractx.Request, action contractx.PlannedAction, tr *tracex.Tracer) contractx.ActionOutcome {
	if action.RequiresConfirmation && !req.Confirmed {
		// Blocked-on-confirmation is a terminal success, not an error: the
		// downstream capability is never touched.
		tr.ConfirmationBlocked(action.Capability, action.Operation)
		e.metrics.ObserveToolCall(string(action.Capability), action.Operation, "blocked", 0)
		return contractx.ActionOutcome{
			Capability: action.Capability,
			Operation:  action.Operation,
			Succeeded:  true,
			Result: map[string]any{
				"confirmation_required": true,
				"capability":            string(action.Capability),
				"operation":             action.Operation,
				"arguments":             action.Arguments,
				"message":               "this action moves or inspects funds and requires an explicitly confirmed request",
			},
		}
	}

	capability, ok := e.capabilities[action.Capability]
	if !ok {
		return contractx.ActionOutcome{
			Capability: action.Capability,
			Operation:  action.Operation,
			Succeeded:  false,
			Error:      fmt.Sprintf("capability %q is not configured", action.Capability),
		}
	}

	tr.ToolCallStart(action.Capability, action.Operation)
	start := e.now()
	result, err := capability.Invoke(ctx, action.Operation, action.Arguments)
	elapsed := e.now().Sub(start)
	tr.ToolCallEnd(action.Capability, action.Operation, elapsed, err)

	if err != nil {
		e.metrics.ObserveToolCall(string(action.Capability), action.Operation, "error", elapsed)
		return contractx.ActionOutcome{
			Capability: action.Capability,
			Operation:  action.Operation,
			Succeeded:  false,
			Error:      sanitizeError(err),
			DurationMs: elapsed.Milliseconds(),
		}
	}

	e.metrics.ObserveToolCall(string(action.Capability), action.Operation, "success", elapsed)
	return contractx.ActionOutcome{
		Capability: action.Capability,
		Operation:  action.Operation,
		Succeeded:  true,
		Result:     result,
		DurationMs: elapsed.Milliseconds(),
	}
}

// sanitizeError keeps capability messages (already scrubbed by the client)
// and flattens anything else to a generic line.
func sanitizeError(err error) string {
	var capErr *contractx.CapabilityError
	if errors.As(err, &capErr) {
		return capErr.Error()
	}
	return "internal error while invoking capability"
}
