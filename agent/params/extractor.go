// Package params pulls structured fields out of free text with fixed pattern
// rules. Each rule is an independent function returning an optional value;
// extraction never fails, it only omits.
package params

import (
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

var (
	locationPattern = regexp.MustCompile(`(?i)\b(?:to|from|at)\s+((?:\d+\s+)?[a-z][a-z0-9 ]*?\s+(?:street|st|avenue|ave|road|rd|drive|dr|lane|ln|boulevard|blvd|court|ct|way))\b`)
	numberPattern   = regexp.MustCompile(`\$?(\d+(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`(?i)\b(?:by|before|at)\s+(\d{1,2}:\d{2}(?:\s*(?:am|pm))?|\d{1,2}\s*(?:am|pm))\b`)
	orderValuePat   = regexp.MustCompile(`(?i)\border\s+(?:of|for|worth)\s+\$?(\d+(?:\.\d+)?)`)
	fromToPattern   = regexp.MustCompile(`(?i)\bfrom\s+([a-z0-9][a-z0-9 ]*?)\s+to\s+([a-z0-9][a-z0-9 ]*?)(?:\s+(?:by|before|at|via)\b|[.,;:!?]|$)`)
	searchVerbPat   = regexp.MustCompile(`(?i)\b(?:search(?:\s+for)?|find|look\s?up|tell\s+me\s+about)\s+(.+)`)
	orderRefPat     = regexp.MustCompile(`(?i)\b(?:order|escrow|payment)\s*(?:#|id|no\.?|number)?\s*([a-z0-9-]*\d[a-z0-9-]*)\b`)
)

// Extract applies the shared rules plus the intent-specific ones. All fields
// of the result are optional.
func Extract(prompt string, intent contractx.Intent) contractx.Extracted {
	out := contractx.Extracted{}

	if loc, ok := MatchLocation(prompt); ok {
		out.Location = loc
	}
	out.Numbers = MatchNumbers(prompt)
	if at, ok := MatchTime(prompt); ok {
		out.Time = at
	}

	switch intent {
	case contractx.IntentPricing:
		if v, ok := MatchOrderValue(prompt); ok {
			out.OrderValue = &v
		}
	case contractx.IntentRouting:
		if from, to, ok := MatchFromTo(prompt); ok {
			out.From = from
			out.To = to
		}
	case contractx.IntentSearch:
		if q, ok := MatchSearchQuery(prompt); ok {
			out.Query = q
		}
	case contractx.IntentPayment:
		if ref, ok := MatchOrderRef(prompt); ok {
			out.OrderRef = ref
		}
	}

	return out
}

// MatchLocation finds a preposition followed by a street-suffix token.
func MatchLocation(text string) (string, bool) {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// MatchNumbers returns every $-prefixed or bare decimal number, in order.
func MatchNumbers(text string) []float64 {
	matches := numberPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		nums = append(nums, v)
	}
	if len(nums) == 0 {
		return nil
	}
	return nums
}

// MatchTime finds a by/before/at preposition followed by H:MM or H am/pm.
func MatchTime(text string) (string, bool) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// MatchOrderValue finds "order of/for/worth $X".
func MatchOrderValue(text string) (float64, bool) {
	m := orderValuePat.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MatchFromTo finds explicit "from X to Y" spans.
func MatchFromTo(text string) (string, string, bool) {
	m := fromToPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	from := trimSpan(m[1])
	to := trimSpan(m[2])
	if from == "" || to == "" {
		return "", "", false
	}
	return from, to, true
}

// MatchSearchQuery captures the remainder of the text after a search verb.
func MatchSearchQuery(text string) (string, bool) {
	m := searchVerbPat.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	q := trimSpan(m[1])
	if q == "" {
		return "", false
	}
	return q, true
}

// MatchOrderRef finds an order, escrow or payment reference. The token must
// carry at least one digit so plain words after the keyword never match.
func MatchOrderRef(text string) (string, bool) {
	m := orderRefPat.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

func trimSpan(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,;:!?")
}
