// Package capability wraps the four downstream function areas behind one
// generic HTTP client. Each capability is a Client parametrized by base
// address, timeout and a closed table of operation specs; read-style
// operations degrade to labeled local fallbacks when the downstream is
// unreachable, mutating operations never do.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
	metricsx "github.com/freshroute/agent-orchestrator/pkg/metrics"
)

const maxResponseSizeBytes = 2 << 20

// opSpec describes one operation of a capability: how to validate its
// arguments, where to dispatch it, and what to do when the downstream is
// unreachable (read ops) or the caller asked for a dry run (mutating ops).
type opSpec struct {
	path     string
	mutating bool
	validate func(args map[string]any) error
	// fallback computes a labeled local substitute for read-style ops.
	// nil means unavailability is a hard error.
	fallback func(args map[string]any) map[string]any
	// simulate produces the dry-run shape for mutating ops.
	simulate func(args map[string]any) map[string]any
	// normalize rewrites the downstream response into the capability-agnostic
	// shape (major currency units, uniform result fields).
	normalize func(result map[string]any) map[string]any
}

type Client struct {
	kind       contractx.CapabilityKind
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	ops        map[string]opSpec
	metrics    *metricsx.Metrics
}

var _ contractx.Capability = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func newClient(kind contractx.CapabilityKind, baseURL string, timeout time.Duration, ops map[string]opSpec, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%s: base url is required", kind)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%s: invalid base url: %w", kind, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		kind:    kind,
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				MaxConnsPerHost:     32,
			},
		},
		ops: ops,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Kind() contractx.CapabilityKind {
	return c.kind
}

// Invoke runs one operation: validate, honor dry_run, dispatch, degrade or
// fail. Every error it returns is a *contract.CapabilityError with a
// sanitized message.
func (c *Client) Invoke(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	spec, ok := c.ops[operation]
	if !ok {
		return nil, contractx.NewCapabilityError(contractx.ErrInvalidArgument,
			"%s does not support operation %q", c.kind, operation)
	}
	if args == nil {
		args = map[string]any{}
	}

	if spec.validate != nil {
		if err := spec.validate(args); err != nil {
			return nil, contractx.NewCapabilityError(contractx.ErrInvalidArgument,
				"%s.%s: %s", c.kind, operation, err.Error())
		}
	}

	if spec.mutating && argBool(args, "dry_run") {
		result := map[string]any{"dry_run": true, "validated": true}
		if spec.simulate != nil {
			result = spec.simulate(args)
			result["dry_run"] = true
		}
		return result, nil
	}

	result, err := c.dispatch(ctx, spec.path, args)
	if err != nil {
		kind := contractx.ErrorKindOf(err)
		unreachable := kind == contractx.ErrServiceUnavailable || kind == contractx.ErrTimeout
		if unreachable && !spec.mutating && spec.fallback != nil {
			fb := spec.fallback(args)
			fb["fallback"] = true
			fb["fallback_reason"] = fmt.Sprintf("%s service unreachable; local deterministic estimate", c.kind)
			c.metrics.ObserveFallback(string(c.kind))
			return fb, nil
		}
		return nil, err
	}

	if spec.normalize != nil {
		result = spec.normalize(result)
	}
	return result, nil
}

func (c *Client) dispatch(ctx context.Context, path string, args map[string]any) (map[string]any, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, contractx.NewCapabilityError(contractx.ErrInvalidArgument,
			"%s: arguments are not serializable", c.kind)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, contractx.NewCapabilityError(contractx.ErrServiceUnavailable,
			"%s: building request failed", c.kind)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, contractx.NewCapabilityError(contractx.ErrTimeout,
				"%s did not answer within %s", c.kind, c.timeout)
		}
		return nil, contractx.NewCapabilityError(contractx.ErrServiceUnavailable,
			"%s is unreachable", c.kind)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, contractx.NewCapabilityError(contractx.ErrUpstream,
			"%s returned an unreadable response", c.kind)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Downstream bodies are never echoed: they may carry secrets or
		// stack traces.
		return nil, contractx.NewCapabilityError(contractx.ErrUpstream,
			"%s returned status %d", c.kind, resp.StatusCode)
	}

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, contractx.NewCapabilityError(contractx.ErrUpstream,
			"%s returned a malformed response", c.kind)
	}
	return result, nil
}

// Argument helpers. Downstream arguments arrive as decoded JSON, so numbers
// are float64 unless a caller built the map in-process.

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func argFloat(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func argList(args map[string]any, key string) ([]any, bool) {
	v, ok := args[key].([]any)
	return v, ok
}

func hasAnyID(args map[string]any, keys ...string) bool {
	for _, key := range keys {
		if argString(args, key) != "" {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
