// Package synth turns aggregated action outcomes back into one intent-keyed
// user-facing result.
package synth

import (
	"fmt"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

// Synthesize builds the final message for a run. Zero successes yield a
// generic failure plus every error string; otherwise the message is keyed by
// intent and failed outcomes ride along as warnings.
func Synthesize(intent contractx.Intent, outcomes []contractx.ActionOutcome) contractx.Synthesis {
	var succeeded []contractx.ActionOutcome
	var warnings []string
	requiresConfirmation := false

	for _, outcome := range outcomes {
		if outcome.Succeeded {
			succeeded = append(succeeded, outcome)
			if outcome.ConfirmationRequired() {
				requiresConfirmation = true
			}
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s.%s failed: %s", outcome.Capability, outcome.Operation, outcome.Error))
	}

	if len(outcomes) == 0 {
		return contractx.Synthesis{
			Message: emptyPlanMessage(intent),
		}
	}

	if len(succeeded) == 0 {
		return contractx.Synthesis{
			Message:  "no action could be completed for this request",
			Warnings: warnings,
		}
	}

	s := contractx.Synthesis{
		Message:              messageFor(intent, succeeded),
		Details:              detailsFor(succeeded),
		Warnings:             warnings,
		RequiresConfirmation: requiresConfirmation,
	}
	return s
}

func emptyPlanMessage(intent contractx.Intent) string {
	if intent == contractx.IntentRouting {
		return "no route was planned: both a pickup and a destination are needed"
	}
	return "nothing to do for this request"
}

func messageFor(intent contractx.Intent, succeeded []contractx.ActionOutcome) string {
	first := succeeded[0]
	switch intent {
	case contractx.IntentPricing:
		if total, ok := first.Result["totalCost"].(float64); ok {
			label := ""
			if first.Fallback() {
				label = " (estimated locally; pricing service unavailable)"
			}
			return fmt.Sprintf("quoted total: %.2f %s%s", total, currencyOf(first), label)
		}
		return "pricing calculated"
	case contractx.IntentRouting:
		if minutes, ok := first.Result["estimatedTimeMinutes"].(float64); ok {
			return fmt.Sprintf("route found, estimated %d minutes", int(minutes))
		}
		return "route found"
	case contractx.IntentSearch:
		if results, ok := first.Result["results"].([]any); ok {
			return fmt.Sprintf("found %d matching documents", len(results))
		}
		return "search complete"
	case contractx.IntentPayment:
		if first.ConfirmationRequired() {
			return "payment actions require an explicitly confirmed request; nothing was executed"
		}
		if status, ok := first.Result["status"].(string); ok {
			return fmt.Sprintf("escrow status: %s", status)
		}
		return "payment status checked"
	default:
		if results, ok := first.Result["results"].([]any); ok {
			return fmt.Sprintf("found %d related documents", len(results))
		}
		return "request processed"
	}
}

func currencyOf(outcome contractx.ActionOutcome) string {
	if currency, ok := outcome.Result["currency"].(string); ok && currency != "" {
		return currency
	}
	return "USD"
}

func detailsFor(succeeded []contractx.ActionOutcome) map[string]any {
	details := make(map[string]any, len(succeeded))
	for _, outcome := range succeeded {
		details[fmt.Sprintf("%s.%s", outcome.Capability, outcome.Operation)] = outcome.Result
	}
	return details
}
