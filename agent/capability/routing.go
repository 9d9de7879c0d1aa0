package capability

import (
	"errors"
	"fmt"
	"math"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

const (
	earthRadiusKm    = 6371.0
	urbanSpeedKmh    = 25.0
	nominalLegKm     = 5.0
	maxRouteBatch    = 8
	defaultBatchSize = 4
)

// NewRouting builds the routing capability client. Both operations are
// read-style computations; unreachable routing degrades to a haversine (or
// nominal-distance) estimate at urban average speed.
func NewRouting(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	ops := map[string]opSpec{
		"optimize": {
			path:     "/route/optimize",
			validate: validateOptimize,
			fallback: estimateRoute,
		},
		"batch": {
			path:     "/route/batch",
			validate: validateRouteBatch,
			fallback: estimateRouteBatch,
		},
	}
	return newClient(contractx.CapabilityRouting, baseURL, timeout, ops, opts...)
}

func validateOptimize(args map[string]any) error {
	if !hasEndpoint(args, "from") {
		return errors.New("from is required")
	}
	if !hasEndpoint(args, "to") {
		return errors.New("to is required")
	}
	return nil
}

func validateRouteBatch(args map[string]any) error {
	orders, ok := argList(args, "orders")
	if !ok || len(orders) == 0 {
		return errors.New("orders is required and must be a non-empty list")
	}
	if size, ok := argFloat(args, "maxBatchSize"); ok && (size < 1 || size > maxRouteBatch) {
		return fmt.Errorf("maxBatchSize must be between 1 and %d", maxRouteBatch)
	}
	return nil
}

// hasEndpoint accepts either a place name or a {lat, lng} pair.
func hasEndpoint(args map[string]any, key string) bool {
	if argString(args, key) != "" {
		return true
	}
	_, _, ok := coordOf(args, key)
	return ok
}

func coordOf(args map[string]any, key string) (lat, lng float64, ok bool) {
	point, isMap := args[key].(map[string]any)
	if !isMap {
		return 0, 0, false
	}
	lat, latOK := argFloat(point, "lat")
	lng, lngOK := argFloat(point, "lng")
	return lat, lng, latOK && lngOK
}

func estimateRoute(args map[string]any) map[string]any {
	distance := nominalLegKm
	fromLat, fromLng, fromOK := coordOf(args, "from")
	toLat, toLng, toOK := coordOf(args, "to")
	if fromOK && toOK {
		distance = haversineKm(fromLat, fromLng, toLat, toLng)
	}
	if waypoints, ok := argList(args, "waypoints"); ok {
		distance += float64(len(waypoints)) * nominalLegKm
	}

	minutes := distance / urbanSpeedKmh * 60

	route := map[string]any{
		"from": args["from"],
		"to":   args["to"],
	}
	if deadline := argString(args, "deadline"); deadline != "" {
		route["deadline"] = deadline
	}
	return map[string]any{
		"route":                route,
		"estimatedDistanceKm":  round2(distance),
		"estimatedTimeMinutes": math.Ceil(minutes),
	}
}

// estimateRouteBatch groups orders into fixed-size batches without solving:
// good enough to keep a caller moving while the solver is down.
func estimateRouteBatch(args map[string]any) map[string]any {
	orders, _ := argList(args, "orders")
	size := defaultBatchSize
	if v, ok := argFloat(args, "maxBatchSize"); ok {
		size = int(v)
	}

	batches := make([]any, 0, (len(orders)+size-1)/size)
	for start := 0; start < len(orders); start += size {
		end := start + size
		if end > len(orders) {
			end = len(orders)
		}
		chunk := orders[start:end]
		batches = append(batches, map[string]any{
			"orders":               chunk,
			"estimatedDistanceKm":  round2(float64(len(chunk)) * nominalLegKm),
			"estimatedTimeMinutes": math.Ceil(float64(len(chunk)) * nominalLegKm / urbanSpeedKmh * 60),
		})
	}
	return map[string]any{
		"batches": batches,
		"summary": map[string]any{
			"orderCount": len(orders),
			"batchCount": len(batches),
		},
	}
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}
