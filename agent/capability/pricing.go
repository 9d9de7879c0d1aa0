package capability

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

// Pricing fallback constants mirror the pricing service's built-in defaults,
// so a local estimate stays close to what the real engine would quote.
const (
	pricingBaseFee          = 5.99
	pricingPerKmFee         = 1.25
	pricingMinDeliveryFee   = 3.99
	pricingRuralThresholdKm = 25.0
	pricingRuralSurcharge   = 0.20
	pricingCommissionPct    = 0.15
	pricingSelfDeliverPct   = 0.08
	pricingPaymentFeePct    = 0.029
	pricingPaymentFeeFixed  = 0.30
	pricingDriverPayoutPct  = 0.80

	maxBulkOrders = 50
)

// NewPricing builds the pricing capability client. calculate and
// bulk_calculate are both read-style: unreachable pricing degrades to a
// deterministic formula-based estimate.
func NewPricing(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	ops := map[string]opSpec{
		"calculate": {
			path:      "/pricing/calculate",
			validate:  validateCalculate,
			fallback:  estimatePricing,
			normalize: normalizePricing,
		},
		"bulk_calculate": {
			path:      "/pricing/bulk-calculate",
			validate:  validateBulkCalculate,
			fallback:  estimateBulkPricing,
			normalize: normalizePricing,
		},
	}
	return newClient(contractx.CapabilityPricing, baseURL, timeout, ops, opts...)
}

func validateCalculate(args map[string]any) error {
	orderValue, ok := argFloat(args, "orderValue")
	if !ok {
		return errors.New("orderValue is required and must be numeric")
	}
	if orderValue < 0 {
		return errors.New("orderValue must be >= 0")
	}
	if distance, ok := argFloat(args, "distanceKm"); ok && distance < 0 {
		return errors.New("distanceKm must be >= 0")
	}
	if method := argString(args, "deliveryType"); method != "" &&
		method != "platform_delivered" && method != "self_deliver" {
		return fmt.Errorf("unknown deliveryType %q", method)
	}
	return nil
}

func validateBulkCalculate(args map[string]any) error {
	orders, ok := argList(args, "orders")
	if !ok || len(orders) == 0 {
		return errors.New("orders is required and must be a non-empty list")
	}
	if len(orders) > maxBulkOrders {
		return fmt.Errorf("orders exceeds the maximum of %d", maxBulkOrders)
	}
	return nil
}

// estimatePricing reproduces the pricing engine's breakdown locally: delivery
// fee with a floor and rural surcharge, commission by delivery method, and a
// card-style payment fee. All amounts in major currency units.
func estimatePricing(args map[string]any) map[string]any {
	orderValue, _ := argFloat(args, "orderValue")
	distance, ok := argFloat(args, "distanceKm")
	if !ok {
		distance = 5.0
	}
	method := argString(args, "deliveryType")
	if method == "" {
		method = "platform_delivered"
	}

	deliveryFee := pricingBaseFee + distance*pricingPerKmFee
	if deliveryFee < pricingMinDeliveryFee {
		deliveryFee = pricingMinDeliveryFee
	}
	ruralSurcharge := 0.0
	if distance > pricingRuralThresholdKm {
		ruralSurcharge = deliveryFee * pricingRuralSurcharge
		deliveryFee += ruralSurcharge
	}

	commissionPct := pricingCommissionPct
	if method == "self_deliver" {
		commissionPct = pricingSelfDeliverPct
	}
	commission := orderValue * commissionPct

	customerTotal := orderValue + deliveryFee
	paymentFee := customerTotal*pricingPaymentFeePct + pricingPaymentFeeFixed

	driverPayout := 0.0
	if method == "platform_delivered" {
		driverPayout = deliveryFee * pricingDriverPayoutPct
	}

	return map[string]any{
		"totalCost": round2(customerTotal),
		"currency":  "USD",
		"breakdown": map[string]any{
			"orderValue":     round2(orderValue),
			"deliveryFee":    round2(deliveryFee),
			"ruralSurcharge": round2(ruralSurcharge),
			"commission":     round2(commission),
			"paymentFee":     round2(paymentFee),
			"driverPayout":   round2(driverPayout),
		},
	}
}

func estimateBulkPricing(args map[string]any) map[string]any {
	orders, _ := argList(args, "orders")
	results := make([]any, 0, len(orders))
	total := 0.0
	for _, raw := range orders {
		order, _ := raw.(map[string]any)
		estimate := estimatePricing(order)
		estimate["fallback"] = true
		total += estimate["totalCost"].(float64)
		results = append(results, estimate)
	}
	return map[string]any{
		"results": results,
		"summary": map[string]any{
			"count":     len(results),
			"totalCost": round2(total),
			"currency":  "USD",
		},
	}
}

// normalizePricing guarantees major currency units and a currency label no
// matter which backend revision answered.
func normalizePricing(result map[string]any) map[string]any {
	if cents, ok := argFloat(result, "total_cents"); ok {
		result["totalCost"] = round2(cents / 100)
		delete(result, "total_cents")
	}
	if total, ok := argFloat(result, "total_cost"); ok {
		result["totalCost"] = total
		delete(result, "total_cost")
	}
	if argString(result, "currency") == "" {
		result["currency"] = "USD"
	}
	return result
}
