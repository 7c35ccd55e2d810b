// Package filter implements the deterministic input and output filters.
// Both are pure functions: no model calls, no I/O, bounded latency, and
// identical input always yields identical output.
package filter

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Severity classifies how a verdict affects the turn.
type Severity string

const (
	SeverityNone  Severity = "none"
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// ReasonEmptyOrInvalid is the verdict reason for empty or malformed input.
const ReasonEmptyOrInvalid = "empty_or_invalid"

// Verdict is the immutable result of one filter application.
type Verdict struct {
	Passed   bool     `json:"passed"`
	Reason   string   `json:"reason,omitempty"`
	Severity Severity `json:"severity"`
	Flags    []string `json:"flags,omitempty"`
}

// maxInputBytes bounds accepted input; anything larger is treated as invalid.
const maxInputBytes = 8192

// injectionPatterns match prompt-injection attempts: instruction overrides,
// role reassignment, and system-prompt markers.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ignore\s+(previous|all|prior)\s+instructions`),
	regexp.MustCompile(`disregard\s+(previous|all|prior)\s+instructions`),
	regexp.MustCompile(`you\s+are\s+now\s+`),
	regexp.MustCompile(`pretend\s+to\s+be`),
	regexp.MustCompile(`act\s+as\s+if`),
	regexp.MustCompile(`system\s*:\s*`),
	regexp.MustCompile(`<\s*system\s*>`),
}

// abusePatterns flag hostile content; the turn proceeds but the flag is
// recorded for moderation reporting.
var abusePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(idiot|stupid|dumb|moron)\b`),
	regexp.MustCompile(`\b(threat(en)?|kill|harm)\b`),
}

// highRiskIntents are phrases that warrant special handling downstream
// (escalation, extra disclaimers) without blocking the turn.
var highRiskIntents = []string{
	"legal action",
	"sue",
	"lawyer",
	"attorney",
	"lawsuit",
}

// EvaluateInput screens raw user text before any model call. It is total:
// malformed or empty input yields a block verdict, never a panic.
func EvaluateInput(raw string) Verdict {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(raw) > maxInputBytes || !utf8.ValidString(raw) {
		return Verdict{
			Passed:   false,
			Reason:   ReasonEmptyOrInvalid,
			Severity: SeverityBlock,
		}
	}

	lower := strings.ToLower(trimmed)

	for _, re := range injectionPatterns {
		if re.MatchString(lower) {
			return Verdict{
				Passed:   false,
				Reason:   "prompt injection detected",
				Severity: SeverityBlock,
				Flags:    []string{"prompt_injection"},
			}
		}
	}

	for _, re := range abusePatterns {
		if re.MatchString(lower) {
			return Verdict{
				Passed:   true,
				Reason:   "potentially abusive content",
				Severity: SeverityWarn,
				Flags:    []string{"abuse"},
			}
		}
	}

	for _, intent := range highRiskIntents {
		if containsWord(lower, intent) {
			return Verdict{
				Passed:   true,
				Reason:   "high-risk intent: " + intent,
				Severity: SeverityWarn,
				Flags:    []string{"high_risk", "legal"},
			}
		}
	}

	return Verdict{Passed: true, Severity: SeverityNone}
}

// containsWord reports whether phrase occurs in text on word boundaries,
// so "sue" does not match inside "tissue".
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
