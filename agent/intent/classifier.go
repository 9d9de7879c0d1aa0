package intent

import (
	"strings"

	contractx "github.com/freshroute/agent-orchestrator/agent/contract"
)

// taxonomy fixes both the keyword sets and the tie-break order: when two
// intents score the same non-zero count, the one declared first wins.
var taxonomy = []struct {
	intent   contractx.Intent
	keywords []string
}{
	{
		intent: contractx.IntentPricing,
		keywords: []string{
			"price", "pricing", "cost", "fee", "charge", "quote",
			"how much", "estimate",
		},
	},
	{
		intent: contractx.IntentRouting,
		keywords: []string{
			"route", "optimize", "navigate", "directions", "fastest",
			"waypoint", "shortest",
		},
	},
	{
		intent: contractx.IntentSearch,
		keywords: []string{
			"search", "find", "look up", "lookup", "tell me about",
			"faq", "question", "info",
		},
	},
	{
		intent: contractx.IntentPayment,
		keywords: []string{
			"payment", "pay", "escrow", "funds", "refund", "release",
			"hold", "dispute",
		},
	},
}

// Classify scores the prompt against each intent's keyword set by substring
// match and returns the intent with the strictly highest non-zero count.
// Every-zero scores resolve to IntentGeneral. Pure: no I/O, no failure mode.
func Classify(prompt string) contractx.Intent {
	text := strings.ToLower(prompt)

	best := contractx.IntentGeneral
	bestScore := 0
	for _, entry := range taxonomy {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = entry.intent
			bestScore = score
		}
	}
	return best
}
