// Package trace emits the structured lifecycle events for one orchestration:
// request start, plan, each tool call start/success/error, completion. Every
// event carries the request and trace identifiers.
package trace

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

// Tracer scopes a zerolog logger to one request.
type Tracer struct {
	logger    zerolog.Logger
	requestID string
	traceID   string
}

// New builds a request-scoped tracer, minting identifiers for any the caller
// left blank.
func New(requestID, traceID string) *Tracer {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	logger := log.With().
		Str("request_id", requestID).
		Str("trace_id", traceID).
		Logger()
	return &Tracer{logger: logger, requestID: requestID, traceID: traceID}
}

func (t *Tracer) RequestID() string { return t.requestID }
func (t *Tracer) TraceID() string   { return t.traceID }

func (t *Tracer) RequestStart(callerID string, mode contractx.Mode) {
	t.logger.Info().
		Str("event", "request_start").
		Str("caller_id", callerID).
		Str("mode", string(mode)).
		Msg("orchestration started")
}

func (t *Tracer) IntentClassified(intent contractx.Intent) {
	t.logger.Info().
		Str("event", "intent_classified").
		Str("intent", string(intent)).
		Msg("intent classified")
}

func (t *Tracer) PlanCreated(intent contractx.Intent, actions int, truncated bool) {
	evt := t.logger.Info().
		Str("event", "plan_created").
		Str("intent", string(intent)).
		Int("actions", actions)
	if truncated {
		evt = evt.Bool("truncated", true)
	}
	evt.Msg("plan created")
}

func (t *Tracer) PlanTruncated(planned, kept int) {
	t.logger.Warn().
		Str("event", "plan_truncated").
		Int("planned", planned).
		Int("kept", kept).
		Msg("plan exceeded the action cap")
}

func (t *Tracer) ToolCallStart(capability contractx.CapabilityKind, operation string) {
	t.logger.Info().
		Str("event", "tool_call_start").
		Str("capability", string(capability)).
		Str("operation", operation).
		Msg("tool call started")
}

func (t *Tracer) ToolCallEnd(capability contractx.CapabilityKind, operation string, duration time.Duration, err error) {
	if err != nil {
		t.logger.Warn().
			Str("event", "tool_call_error").
			Str("capability", string(capability)).
			Str("operation", operation).
			Int64("duration_ms", duration.Milliseconds()).
			Str("error", err.Error()).
			Msg("tool call failed")
		return
	}
	t.logger.Info().
		Str("event", "tool_call_success").
		Str("capability", string(capability)).
		Str("operation", operation).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("tool call succeeded")
}

func (t *Tracer) ConfirmationBlocked(capability contractx.CapabilityKind, operation string) {
	t.logger.Info().
		Str("event", "confirmation_blocked").
		Str("capability", string(capability)).
		Str("operation", operation).
		Msg("action held for confirmation")
}

func (t *Tracer) RequestEnd(intent contractx.Intent, outcomes int, succeeded int, duration time.Duration) {
	t.logger.Info().
		Str("event", "request_complete").
		Str("intent", string(intent)).
		Int("outcomes", outcomes).
		Int("succeeded", succeeded).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("orchestration complete")
}
