// Package planner maps (intent, extracted parameters) to an ordered,
// bounded sequence of planned capability invocations.
package planner

import (
	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

const (
	// DefaultMaxActions bounds every plan. Plans past the cap are truncated
	// with a warning, never rejected.
	DefaultMaxActions = 10

	// Nominal defaults applied when extraction produced nothing usable.
	defaultOrderValue = 50.0
	defaultDistanceKm = 5.0
	defaultLocation   = "unspecified"
	defaultOrderRef   = "latest"
	fallbackQuery     = "delivery platform help"
)

type Planner struct {
	maxActions int
}

func New(maxActions int) *Planner {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}
	return &Planner{maxActions: maxActions}
}

func (p *Planner) MaxActions() int {
	return p.maxActions
}

// Plan builds the action sequence for one request. The returned plan never
// exceeds the configured cap; dropped counts the actions cut by truncation.
func (p *Planner) Plan(intent contractx.Intent, ex contractx.Extracted) (plan []contractx.PlannedAction, dropped int) {
	actions := actionsFor(intent, ex)
	if len(actions) > p.maxActions {
		return actions[:p.maxActions], len(actions) - p.maxActions
	}
	return actions, 0
}

func actionsFor(intent contractx.Intent, ex contractx.Extracted) []contractx.PlannedAction {
	switch intent {
	case contractx.IntentPricing:
		orderValue := defaultOrderValue
		if ex.OrderValue != nil {
			orderValue = *ex.OrderValue
		} else if len(ex.Numbers) > 0 {
			orderValue = ex.Numbers[0]
		}
		location := ex.Location
		if location == "" {
			location = defaultLocation
		}
		return []contractx.PlannedAction{{
			Capability: contractx.CapabilityPricing,
			Operation:  "calculate",
			Arguments: map[string]any{
				"orderValue": orderValue,
				"distanceKm": defaultDistanceKm,
				"location":   location,
			},
		}}

	case contractx.IntentRouting:
		// No default route: without both endpoints the plan is empty, and an
		// empty plan is a valid result the synthesizer must handle.
		if ex.From == "" || ex.To == "" {
			return nil
		}
		args := map[string]any{
			"from": ex.From,
			"to":   ex.To,
		}
		if ex.Time != "" {
			args["deadline"] = ex.Time
		}
		return []contractx.PlannedAction{{
			Capability: contractx.CapabilityRouting,
			Operation:  "optimize",
			Arguments:  args,
		}}

	case contractx.IntentSearch:
		query := ex.Query
		if query == "" {
			query = fallbackQuery
		}
		return []contractx.PlannedAction{{
			Capability: contractx.CapabilityRetrieval,
			Operation:  "query",
			Arguments:  map[string]any{"text": query},
		}}

	case contractx.IntentPayment:
		// Read-only status check, still gated: anything payment-adjacent
		// requires explicit confirmation. The escrow service needs a
		// reference; without one in the prompt it resolves the caller's most
		// recent order.
		orderRef := ex.OrderRef
		if orderRef == "" {
			orderRef = defaultOrderRef
		}
		return []contractx.PlannedAction{{
			Capability:           contractx.CapabilityEscrow,
			Operation:            "check_status",
			Arguments:            map[string]any{"orderId": orderRef},
			RequiresConfirmation: true,
		}}

	default:
		return []contractx.PlannedAction{{
			Capability: contractx.CapabilityRetrieval,
			Operation:  "query",
			Arguments:  map[string]any{"text": string(intent)},
		}}
	}
}
