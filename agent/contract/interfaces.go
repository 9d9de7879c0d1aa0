package contract

import "context"

// Capability is one downstream function area reachable over the network.
// Invoke validates arguments, dispatches the operation, and either returns a
// normalized result map or a *CapabilityError.
type Capability interface {
	Kind() CapabilityKind
	Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

// ResultStore caches terminal orchestration results for later lookup. The
// pipeline never depends on it: a failed Save must not fail the run.
type ResultStore interface {
	Save(ctx context.Context, result *OrchestrationResult) error
	Load(ctx context.Context, requestID string) (*OrchestrationResult, error)
}
