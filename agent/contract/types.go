package contract

// Intent is the fixed category a free-text request is classified into.
type Intent string

const (
	IntentPricing Intent = "pricing"
	IntentRouting Intent = "routing"
	IntentSearch  Intent = "search"
	IntentPayment Intent = "payment"
	IntentGeneral Intent = "general"
)

// CapabilityKind identifies one downstream function area. The set is closed:
// the planner only ever emits these four values.
type CapabilityKind string

const (
	CapabilityPricing   CapabilityKind = "pricing"
	CapabilityRouting   CapabilityKind = "routing"
	CapabilityRetrieval CapabilityKind = "retrieval"
	CapabilityEscrow    CapabilityKind = "escrow"
)

type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Request is the immutable ingress artifact for one orchestration. It lives
// for the duration of a single call and is never persisted by the core.
type Request struct {
	RequestID string `json:"request_id"`
	CallerID  string `json:"caller_id,omitempty"`
	Prompt    string `json:"prompt"`
	Mode      Mode   `json:"mode"`
	Confirmed bool   `json:"confirmed"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Extracted holds the structured fields pulled out of the prompt. Every field
// is optional: the zero value means the rule did not match, and consumers
// must apply their own defaults.
type Extracted struct {
	Location   string    `json:"location,omitempty"`
	Numbers    []float64 `json:"numbers,omitempty"`
	Time       string    `json:"time,omitempty"`
	Query      string    `json:"query,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	OrderValue *float64  `json:"order_value,omitempty"`
	OrderRef   string    `json:"order_ref,omitempty"`
}

// PlannedAction is one capability operation queued for execution.
type PlannedAction struct {
	Capability           CapabilityKind `json:"capability"`
	Operation            string         `json:"operation"`
	Arguments            map[string]any `json:"arguments,omitempty"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
}

// ActionOutcome records the result of one planned action: success, failure,
// or confirmation-blocked. The engine produces exactly one outcome per
// executed-or-blocked action.
type ActionOutcome struct {
	Capability CapabilityKind `json:"capability"`
	Operation  string         `json:"operation"`
	Succeeded  bool           `json:"succeeded"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ConfirmationRequired reports whether the outcome is a confirmation-blocked
// success rather than an executed one.
func (o ActionOutcome) ConfirmationRequired() bool {
	if !o.Succeeded || o.Result == nil {
		return false
	}
	v, ok := o.Result["confirmation_required"].(bool)
	return ok && v
}

// Fallback reports whether the outcome carries a locally computed substitute
// produced while the downstream capability was unreachable.
func (o ActionOutcome) Fallback() bool {
	if !o.Succeeded || o.Result == nil {
		return false
	}
	v, ok := o.Result["fallback"].(bool)
	return ok && v
}

// Synthesis is the intent-keyed human-readable summary of a run.
type Synthesis struct {
	Message              string         `json:"message"`
	Details              map[string]any `json:"details,omitempty"`
	Warnings             []string       `json:"warnings,omitempty"`
	RequiresConfirmation bool           `json:"requires_confirmation,omitempty"`
}

// OrchestrationResult is the terminal artifact returned to the caller. The
// core does not persist it; the surrounding server may cache it for lookup.
type OrchestrationResult struct {
	RequestID       string          `json:"request_id"`
	Intent          Intent          `json:"intent"`
	Outcomes        []ActionOutcome `json:"outcomes"`
	Final           Synthesis       `json:"final"`
	Warnings        []string        `json:"warnings,omitempty"`
	TotalDurationMs int64           `json:"total_duration_ms"`
}
