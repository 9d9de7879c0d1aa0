package capability

import (
	"errors"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

// NewEscrow builds the escrow capability client. Only check_status is
// read-style; hold, release and dispute move money and therefore never fall
// back, and they are only ever planned behind the confirmation gate.
func NewEscrow(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	ops := map[string]opSpec{
		"check_status": {
			path:      "/escrow/status",
			validate:  validateEscrowRef,
			fallback:  estimateEscrowStatus,
			normalize: normalizeEscrowAmounts,
		},
		"hold_funds": {
			path:      "/escrow/hold",
			mutating:  true,
			validate:  validateHoldFunds,
			simulate:  simulateHoldFunds,
			normalize: normalizeEscrowAmounts,
		},
		"release_funds": {
			path:      "/escrow/release",
			mutating:  true,
			validate:  validateReleaseFunds,
			simulate:  simulateReleaseFunds,
			normalize: normalizeEscrowAmounts,
		},
		"dispute": {
			path:     "/escrow/dispute",
			mutating: true,
			validate: validateDispute,
		},
	}
	return newClient(contractx.CapabilityEscrow, baseURL, timeout, ops, opts...)
}

func validateEscrowRef(args map[string]any) error {
	if !hasAnyID(args, "escrowId", "orderId", "paymentIntentId") {
		return errors.New("one of escrowId, orderId or paymentIntentId is required")
	}
	return nil
}

func validateHoldFunds(args map[string]any) error {
	amount, ok := argFloat(args, "amount")
	if !ok || amount <= 0 {
		return errors.New("amount is required and must be > 0")
	}
	if argString(args, "currency") == "" {
		return errors.New("currency is required")
	}
	if argString(args, "orderId") == "" {
		return errors.New("orderId is required")
	}
	if argString(args, "customerId") == "" {
		return errors.New("customerId is required")
	}
	return nil
}

func validateReleaseFunds(args map[string]any) error {
	if !hasAnyID(args, "escrowId", "paymentIntentId") {
		return errors.New("one of escrowId or paymentIntentId is required")
	}
	if amount, ok := argFloat(args, "amount"); ok && amount <= 0 {
		return errors.New("amount must be > 0 when provided")
	}
	return nil
}

func validateDispute(args map[string]any) error {
	if err := validateReleaseFunds(args); err != nil {
		return err
	}
	if argString(args, "reason") == "" {
		return errors.New("reason is required")
	}
	return nil
}

// estimateEscrowStatus is deliberately conservative: with the ledger down we
// only ever report an unknown status, never a guessed amount.
func estimateEscrowStatus(args map[string]any) map[string]any {
	return map[string]any{
		"status":   "unknown",
		"amount":   0.0,
		"currency": "USD",
	}
}

func simulateHoldFunds(args map[string]any) map[string]any {
	amount, _ := argFloat(args, "amount")
	return map[string]any{
		"status":   "simulated",
		"amount":   round2(amount),
		"currency": argString(args, "currency"),
		"orderId":  argString(args, "orderId"),
	}
}

func simulateReleaseFunds(args map[string]any) map[string]any {
	result := map[string]any{"status": "simulated"}
	if amount, ok := argFloat(args, "amount"); ok {
		result["amountReleased"] = round2(amount)
	}
	return result
}

// normalizeEscrowAmounts converts cent-denominated ledger fields into major
// currency units.
func normalizeEscrowAmounts(result map[string]any) map[string]any {
	for cents, major := range map[string]string{
		"amount_cents":          "amount",
		"amount_released_cents": "amountReleased",
	} {
		if v, ok := argFloat(result, cents); ok {
			result[major] = round2(v / 100)
			delete(result, cents)
		}
	}
	if argString(result, "currency") == "" {
		result["currency"] = "USD"
	}
	return result
}
