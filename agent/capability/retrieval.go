package capability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

const (
	maxTopK          = 20
	defaultTopK      = 5
	maxIngestChars   = 50000
	snippetScoreBase = 1.0
)

// builtinSnippets is the tiny keyword-matched knowledge base served when the
// retrieval backend is unreachable. Entries cover the platform's most-asked
// topics only.
var builtinSnippets = []struct {
	id    string
	typ   string
	text  string
	terms []string
}{
	{
		id:    "kb-delivery-fees",
		typ:   "faq",
		text:  "Delivery fees start at a base rate plus a per-kilometer charge, with a minimum fee applied to short trips.",
		terms: []string{"delivery", "fee", "fees", "cost", "charge", "price"},
	},
	{
		id:    "kb-rural-surcharge",
		typ:   "faq",
		text:  "Orders delivered beyond 25 km from the pickup point carry a 20% rural surcharge on the delivery fee.",
		terms: []string{"rural", "surcharge", "distance", "far", "remote"},
	},
	{
		id:    "kb-escrow",
		typ:   "faq",
		text:  "Payments are held in escrow when an order is placed and released to the vendor and driver after delivery is confirmed.",
		terms: []string{"escrow", "payment", "funds", "hold", "release"},
	},
	{
		id:    "kb-disputes",
		typ:   "faq",
		text:  "A delivery can be disputed before funds are released; disputed escrows are frozen until support resolves the case.",
		terms: []string{"dispute", "refund", "problem", "complaint", "support"},
	},
	{
		id:    "kb-routing",
		typ:   "faq",
		text:  "Routes are optimized per driver with batching of nearby orders; delivery time estimates assume urban average speeds.",
		terms: []string{"route", "routing", "driver", "batch", "time", "eta"},
	},
}

// NewRetrieval builds the retrieval capability client. query degrades to the
// built-in snippet set; ingest is mutating and has no fallback.
func NewRetrieval(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	ops := map[string]opSpec{
		"query": {
			path:      "/rag/query",
			validate:  validateQuery,
			fallback:  searchBuiltinSnippets,
			normalize: normalizeQueryResults,
		},
		"ingest": {
			path:     "/rag/ingest",
			mutating: true,
			validate: validateIngest,
			simulate: simulateIngest,
		},
	}
	return newClient(contractx.CapabilityRetrieval, baseURL, timeout, ops, opts...)
}

func validateQuery(args map[string]any) error {
	if argString(args, "text") == "" {
		return errors.New("text is required")
	}
	if topK, ok := argFloat(args, "topK"); ok && (topK < 1 || topK > maxTopK) {
		return fmt.Errorf("topK must be between 1 and %d", maxTopK)
	}
	return nil
}

func validateIngest(args map[string]any) error {
	if argString(args, "contentId") == "" {
		return errors.New("contentId is required")
	}
	text := argString(args, "text")
	if text == "" {
		return errors.New("text is required")
	}
	if len(text) > maxIngestChars {
		return fmt.Errorf("text exceeds the maximum of %d characters", maxIngestChars)
	}
	return nil
}

func simulateIngest(args map[string]any) map[string]any {
	return map[string]any{
		"ingested":  false,
		"contentId": argString(args, "contentId"),
	}
}

// searchBuiltinSnippets scores the built-in snippets by query-term overlap,
// the same way the retrieval service's degraded mode does.
func searchBuiltinSnippets(args map[string]any) map[string]any {
	query := strings.ToLower(argString(args, "text"))
	queryTerms := strings.Fields(query)

	topK := defaultTopK
	if v, ok := argFloat(args, "topK"); ok {
		topK = int(v)
	}

	type scored struct {
		result map[string]any
		score  float64
	}
	var matches []scored
	for _, snippet := range builtinSnippets {
		overlap := 0
		for _, term := range queryTerms {
			for _, known := range snippet.terms {
				if term == known {
					overlap++
					break
				}
			}
		}
		if overlap == 0 {
			continue
		}
		score := snippetScoreBase * float64(overlap) / float64(len(queryTerms))
		matches = append(matches, scored{
			result: map[string]any{
				"id":       snippet.id,
				"type":     snippet.typ,
				"text":     snippet.text,
				"score":    score,
				"metadata": map[string]any{"source": "builtin"},
			},
			score: score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]any, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.result)
	}
	return map[string]any{
		"results": results,
		"sources": []any{"builtin"},
	}
}

// normalizeQueryResults maps every backend index revision onto the uniform
// {id, type, text, score, metadata} shape.
func normalizeQueryResults(result map[string]any) map[string]any {
	raw, ok := argList(result, "results")
	if !ok {
		return result
	}
	normalized := make([]any, 0, len(raw))
	for _, entry := range raw {
		item, isMap := entry.(map[string]any)
		if !isMap {
			continue
		}
		out := map[string]any{
			"id":       firstString(item, "id", "content_id"),
			"type":     firstString(item, "type", "content_type"),
			"text":     firstString(item, "text", "content"),
			"metadata": item["metadata"],
		}
		if score, ok := argFloat(item, "score"); ok {
			out["score"] = score
		} else {
			out["score"] = 0.0
		}
		if out["metadata"] == nil {
			out["metadata"] = map[string]any{}
		}
		normalized = append(normalized, out)
	}
	result["results"] = normalized
	return result
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := argString(item, key); v != "" {
			return v
		}
	}
	return ""
}
