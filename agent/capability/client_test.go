package capability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

func newBackend(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// deadBackend returns a base URL whose listener is already closed, so every
// dial is refused.
func deadBackend(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	return url
}

func TestInvokeUnknownOperation(t *testing.T) {
	t.Parallel()

	srv, calls := newBackend(t, http.StatusOK, `{}`)
	client, err := NewPricing(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewPricing() error = %v", err)
	}

	_, err = client.Invoke(context.Background(), "explode", nil)
	if contractx.ErrorKindOf(err) != contractx.ErrInvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network call, got %d", calls.Load())
	}
}

func TestInvokeValidationFailureSkipsNetwork(t *testing.T) {
	t.Parallel()

	srv, calls := newBackend(t, http.StatusOK, `{}`)
	client, err := NewEscrow(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	_, err = client.Invoke(context.Background(), "hold_funds", map[string]any{
		"amount": -5.0,
	})
	if contractx.ErrorKindOf(err) != contractx.ErrInvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("validation failure must not dispatch, got %d calls", calls.Load())
	}
}

func TestInvokeSuccessNormalizesEscrowAmounts(t *testing.T) {
	t.Parallel()

	srv, _ := newBackend(t, http.StatusOK,
		`{"status":"held","amount_cents":12550,"createdAt":"2026-01-01T00:00:00Z"}`)
	client, err := NewEscrow(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	result, err := client.Invoke(context.Background(), "check_status", map[string]any{
		"escrowId": "esc-1",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result["amount"] != 125.50 {
		t.Fatalf("amount = %v, want 125.50 in major units", result["amount"])
	}
	if _, stillThere := result["amount_cents"]; stillThere {
		t.Fatal("amount_cents must be removed by normalization")
	}
	if result["currency"] != "USD" {
		t.Fatalf("currency = %v", result["currency"])
	}
}

func TestInvokeUpstreamErrorIsSanitized(t *testing.T) {
	t.Parallel()

	srv, _ := newBackend(t, http.StatusInternalServerError,
		`{"detail":"Traceback (most recent call last): secret=hunter2"}`)
	client, err := NewEscrow(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	_, err = client.Invoke(context.Background(), "release_funds", map[string]any{
		"escrowId":  "esc-1",
		"dry_run":   false,
		"confirmed": true,
	})
	if contractx.ErrorKindOf(err) != contractx.ErrUpstream {
		t.Fatalf("expected upstream_error, got %v", err)
	}
	if strings.Contains(err.Error(), "hunter2") || strings.Contains(err.Error(), "Traceback") {
		t.Fatalf("downstream body leaked into error: %v", err)
	}
}

func TestInvokeReadFallsBackWhenUnreachable(t *testing.T) {
	t.Parallel()

	client, err := NewPricing(deadBackend(t), time.Second)
	if err != nil {
		t.Fatalf("NewPricing() error = %v", err)
	}

	result, err := client.Invoke(context.Background(), "calculate", map[string]any{
		"orderValue": 50.0,
		"distanceKm": 5.0,
	})
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if result["fallback"] != true {
		t.Fatalf("fallback result must be labeled: %v", result)
	}
	if _, ok := result["totalCost"].(float64); !ok {
		t.Fatalf("fallback must carry a numeric totalCost: %v", result)
	}
}

func TestInvokeMutatingHasNoFallback(t *testing.T) {
	t.Parallel()

	client, err := NewEscrow(deadBackend(t), time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	_, err = client.Invoke(context.Background(), "hold_funds", map[string]any{
		"amount":     20.0,
		"currency":   "USD",
		"orderId":    "o-1",
		"customerId": "c-1",
	})
	if contractx.ErrorKindOf(err) != contractx.ErrServiceUnavailable {
		t.Fatalf("expected service_unavailable, got %v", err)
	}
}

func TestInvokeDryRunSkipsDispatch(t *testing.T) {
	t.Parallel()

	srv, calls := newBackend(t, http.StatusOK, `{}`)
	client, err := NewEscrow(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	result, err := client.Invoke(context.Background(), "hold_funds", map[string]any{
		"amount":     20.0,
		"currency":   "USD",
		"orderId":    "o-1",
		"customerId": "c-1",
		"dry_run":    true,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result["dry_run"] != true || result["status"] != "simulated" {
		t.Fatalf("unexpected dry-run result: %v", result)
	}
	if calls.Load() != 0 {
		t.Fatalf("dry run must not dispatch, got %d calls", calls.Load())
	}
}

func TestInvokeTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	// ingest is mutating, so the timeout surfaces instead of a fallback.
	client, err := NewRetrieval(srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRetrieval() error = %v", err)
	}

	_, err = client.Invoke(context.Background(), "ingest", map[string]any{
		"contentId": "doc-1",
		"text":      "some content",
	})
	kind := contractx.ErrorKindOf(err)
	if kind != contractx.ErrTimeout && kind != contractx.ErrServiceUnavailable {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestInvokeContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; otherwise
		// the client's disconnect is never detected and srv.Close hangs.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client, err := NewEscrow(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewEscrow() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = client.Invoke(ctx, "dispute", map[string]any{
		"escrowId": "esc-1",
		"reason":   "late delivery",
	})
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	var capErr *contractx.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %T", err)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewPricing("", time.Second); err == nil {
		t.Fatal("expected error for empty base url")
	}
	if _, err := NewRouting("not a url", time.Second); err == nil {
		t.Fatal("expected error for invalid base url")
	}
}
