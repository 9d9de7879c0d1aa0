package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	capabilityx "github.com/freshroute/agent-orchestrator/agent/capability"
	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	enginex "github.com/freshroute/agent-orchestrator/agent/engine"
	plannerx "github.com/freshroute/agent-orchestrator/agent/planner"
)

type fakeCapability struct {
	kind    contractx.CapabilityKind
	result  map[string]any
	err     error
	calls   int
	lastOp  string
	lastArg map[string]any
}

func (f *fakeCapability) Kind() contractx.CapabilityKind {
	return f.kind
}

func (f *fakeCapability) Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	f.calls++
	f.lastOp = operation
	f.lastArg = args
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	saved   []*contractx.OrchestrationResult
	saveErr error
}

func (f *fakeStore) Save(ctx context.Context, result *contractx.OrchestrationResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *fakeStore) Load(ctx context.Context, requestID string) (*contractx.OrchestrationResult, error) {
	for _, r := range f.saved {
		if r.RequestID == requestID {
			return r, nil
		}
	}
	return nil, contractx.ErrResultNotFound
}

func newTestService(t *testing.T, caps []contractx.Capability, opts ...Option) *Service {
	t.Helper()
	e, err := enginex.New(caps, plannerx.DefaultMaxActions, nil)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	svc, err := New(Config{Enabled: true, RequestTimeout: 5 * time.Second}, plannerx.New(0), e, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

func allCapabilities(pricing, routing, retrieval, escrow *fakeCapability) []contractx.Capability {
	return []contractx.Capability{pricing, routing, retrieval, escrow}
}

func defaultFakes() (pricing, routing, retrieval, escrow *fakeCapability) {
	pricing = &fakeCapability{kind: contractx.CapabilityPricing, result: map[string]any{"totalCost": 118.49, "currency": "USD"}}
	routing = &fakeCapability{kind: contractx.CapabilityRouting, result: map[string]any{"estimatedTimeMinutes": 24.0}}
	retrieval = &fakeCapability{kind: contractx.CapabilityRetrieval, result: map[string]any{"results": []any{}}}
	escrow = &fakeCapability{kind: contractx.CapabilityEscrow, result: map[string]any{"status": "held"}}
	return
}

func TestRunPricingPrompt(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	result, err := svc.Run(context.Background(), contractx.Request{
		Prompt: "What is the cost for a delivery of an order worth $100?",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Intent != contractx.IntentPricing {
		t.Fatalf("intent = %q", result.Intent)
	}
	if pricing.calls != 1 {
		t.Fatalf("pricing calls = %d", pricing.calls)
	}
	if pricing.lastOp != "calculate" {
		t.Fatalf("operation = %q", pricing.lastOp)
	}
	if got, ok := pricing.lastArg["orderValue"].(float64); !ok || got != 100 {
		t.Fatalf("orderValue = %v", pricing.lastArg["orderValue"])
	}
	if !strings.Contains(result.Final.Message, "118.49") {
		t.Fatalf("final message = %q", result.Final.Message)
	}
	if result.RequestID == "" {
		t.Fatal("a request id must be minted")
	}
}

func TestRunUnconfirmedPaymentNeverTouchesEscrow(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	result, err := svc.Run(context.Background(), contractx.Request{
		Prompt:    "Release escrow funds for order 42",
		Confirmed: false,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Intent != contractx.IntentPayment {
		t.Fatalf("intent = %q", result.Intent)
	}
	if escrow.calls != 0 {
		t.Fatalf("escrow must not be invoked without confirmation, calls = %d", escrow.calls)
	}
	if len(result.Outcomes) != 1 || !result.Outcomes[0].ConfirmationRequired() {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}
	if !result.Final.RequiresConfirmation {
		t.Fatal("final synthesis must require confirmation")
	}
}

func TestRunConfirmedPaymentChecksStatus(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	result, err := svc.Run(context.Background(), contractx.Request{
		Prompt:    "Release escrow funds for order 42",
		Confirmed: true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if escrow.calls != 1 || escrow.lastOp != "check_status" {
		t.Fatalf("escrow calls = %d op = %q", escrow.calls, escrow.lastOp)
	}
	if !strings.Contains(result.Final.Message, "held") {
		t.Fatalf("final message = %q", result.Final.Message)
	}
}

func TestRunConfirmedPaymentReachesEscrowService(t *testing.T) {
	t.Parallel()

	calls := 0
	var gotOrderID any
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var args map[string]any
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decode args: %v", err)
		}
		gotOrderID = args["orderId"]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "held", "amount_cents": 12550})
	}))
	defer backend.Close()

	escrow, err := capabilityx.NewEscrow(backend.URL, time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}
	pricing, routing, retrieval, _ := defaultFakes()
	svc := newTestService(t, []contractx.Capability{pricing, routing, retrieval, escrow})

	result, err := svc.Run(context.Background(), contractx.Request{
		Prompt:    "Check payment status for my escrow, order 42",
		Confirmed: true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Intent != contractx.IntentPayment {
		t.Fatalf("intent = %q", result.Intent)
	}
	if calls != 1 {
		t.Fatalf("escrow backend calls = %d", calls)
	}
	if gotOrderID != "42" {
		t.Fatalf("orderId sent = %v", gotOrderID)
	}
	if len(result.Outcomes) != 1 || !result.Outcomes[0].Succeeded {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}
	if got := result.Outcomes[0].Result["amount"]; got != 125.50 {
		t.Fatalf("amount = %v", got)
	}
	if !strings.Contains(result.Final.Message, "held") {
		t.Fatalf("final message = %q", result.Final.Message)
	}
}

func TestRunRoutingWithoutEndpointsYieldsEmptyPlan(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	result, err := svc.Run(context.Background(), contractx.Request{
		Prompt: "Optimize the route please",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if routing.calls != 0 {
		t.Fatalf("routing calls = %d", routing.calls)
	}
	if len(result.Outcomes) != 0 {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}
	if !strings.Contains(result.Final.Message, "pickup and a destination") {
		t.Fatalf("final message = %q", result.Final.Message)
	}
}

func TestRunEmptyPrompt(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	if _, err := svc.Run(context.Background(), contractx.Request{Prompt: "   "}); !errors.Is(err, contractx.ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestRunDisabled(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	e, err := enginex.New(allCapabilities(pricing, routing, retrieval, escrow), plannerx.DefaultMaxActions, nil)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	svc, err := New(Config{Enabled: false}, plannerx.New(0), e)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := svc.Run(context.Background(), contractx.Request{Prompt: "anything"}); !errors.Is(err, contractx.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestRunSavesResultAndLookupFindsIt(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	store := &fakeStore{}
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow), WithResultStore(store))

	result, err := svc.Run(context.Background(), contractx.Request{
		RequestID: "req-keep",
		Prompt:    "How much does delivery cost?",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %d", len(store.saved))
	}

	loaded, err := svc.Lookup(context.Background(), "req-keep")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if loaded.RequestID != result.RequestID {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestRunStoreFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	store := &fakeStore{saveErr: errors.New("redis down")}
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow), WithResultStore(store))

	result, err := svc.Run(context.Background(), contractx.Request{Prompt: "How much does delivery cost?"})
	if err != nil {
		t.Fatalf("Run() must succeed despite store failure, got %v", err)
	}
	if result == nil || len(result.Outcomes) != 1 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunFailedCapabilitySurfacesInResult(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	retrieval.err = contractx.NewCapabilityError(contractx.ErrUpstream, "retrieval returned status 502")
	svc := newTestService(t, allCapabilities(pricing, routing, retrieval, escrow))

	result, err := svc.Run(context.Background(), contractx.Request{Prompt: "Tell me about rural surcharges"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Intent != contractx.IntentSearch {
		t.Fatalf("intent = %q", result.Intent)
	}
	if len(result.Outcomes) != 1 || result.Outcomes[0].Succeeded {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}
	if !strings.Contains(result.Final.Message, "no action could be completed") {
		t.Fatalf("final message = %q", result.Final.Message)
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	pricing, routing, retrieval, escrow := defaultFakes()
	e, err := enginex.New(allCapabilities(pricing, routing, retrieval, escrow), 10, nil)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}

	if _, err := New(Config{Enabled: true}, nil, e); err == nil {
		t.Fatal("expected error for nil planner")
	}
	if _, err := New(Config{Enabled: true}, plannerx.New(0), nil); err == nil {
		t.Fatal("expected error for nil executor")
	}
}
