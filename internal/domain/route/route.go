// Package route defines the router's decision model and the strict,
// fail-closed parsing of model output into it. Model text is untrusted
// input: anything outside the closed target set maps to Refuse.
package route

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Target is the closed set of dispatch destinations.
type Target string

const (
	TargetOrder   Target = "order"
	TargetProduct Target = "product"
	TargetSupport Target = "support"
	TargetRefuse  Target = "refuse"
)

// Entities are identifiers the router extracted from the user message.
// They update the session context for later turns.
type Entities struct {
	OrderID   string `json:"order_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Topic     string `json:"topic,omitempty"`
}

// Decision is produced exactly once per turn.
type Decision struct {
	Target     Target   `json:"target"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Entities   Entities `json:"entities"`
}

// Refused builds a fail-closed decision with zero confidence.
func Refused(rationale string) Decision {
	return Decision{Target: TargetRefuse, Confidence: 0, Rationale: rationale}
}

// jsonObjectRe extracts the first JSON object from model output that may be
// wrapped in prose or code fences.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// rawDecision is the wire shape the classification prompt asks for.
type rawDecision struct {
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	OrderID    string  `json:"order_id"`
	ProductID  string  `json:"product_id"`
	Topic      string  `json:"topic"`
}

// Parse validates model output against the closed target set. Malformed or
// out-of-set output never errors upward: it returns a Refuse decision with a
// low-confidence rationale, so the router always satisfies its schema
// contract.
func Parse(raw string) Decision {
	match := jsonObjectRe.FindString(raw)
	if match == "" {
		return Refused("unparseable routing output")
	}

	var rd rawDecision
	if err := json.Unmarshal([]byte(match), &rd); err != nil {
		return Refused("unparseable routing output")
	}

	target, ok := parseTarget(rd.Target)
	if !ok {
		return Refused("routing target outside closed set: " + rd.Target)
	}

	conf := rd.Confidence
	if conf < 0 || conf > 1 {
		return Refused("routing confidence out of range")
	}

	return Decision{
		Target:     target,
		Confidence: conf,
		Rationale:  rd.Rationale,
		Entities: Entities{
			OrderID:   rd.OrderID,
			ProductID: rd.ProductID,
			Topic:     rd.Topic,
		},
	}
}

func parseTarget(s string) (Target, bool) {
	switch Target(strings.ToLower(strings.TrimSpace(s))) {
	case TargetOrder:
		return TargetOrder, true
	case TargetProduct:
		return TargetProduct, true
	case TargetSupport:
		return TargetSupport, true
	case TargetRefuse:
		return TargetRefuse, true
	default:
		return "", false
	}
}

// Keyword routing is the deterministic degradation path when the completion
// gateway is unavailable. It mirrors the closed target set and never refuses
// reachable domains outright; unmatched text lands on support.
var (
	orderKeywords   = []string{"order", "tracking", "shipped", "delivery", "cancel", "status", "ord-"}
	productKeywords = []string{"product", "price", "stock", "available", "buy", "search", "find", "prod-"}
	supportKeywords = []string{"return", "refund", "warranty", "shipping", "payment", "help", "support", "contact"}
)

// Fallback classifies by keyword match. Confidence is fixed low so callers
// can distinguish degraded decisions from model-backed ones.
func Fallback(text string) Decision {
	lower := strings.ToLower(text)

	for _, kw := range orderKeywords {
		if strings.Contains(lower, kw) {
			return Decision{Target: TargetOrder, Confidence: 0.3, Rationale: "keyword fallback: " + kw}
		}
	}
	for _, kw := range productKeywords {
		if strings.Contains(lower, kw) {
			return Decision{Target: TargetProduct, Confidence: 0.3, Rationale: "keyword fallback: " + kw}
		}
	}
	for _, kw := range supportKeywords {
		if strings.Contains(lower, kw) {
			return Decision{Target: TargetSupport, Confidence: 0.3, Rationale: "keyword fallback: " + kw}
		}
	}
	return Decision{Target: TargetSupport, Confidence: 0.2, Rationale: "keyword fallback: no match"}
}
