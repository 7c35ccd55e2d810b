package filter

import (
	"regexp"
	"strings"

	"github.com/safedesk/safedesk/internal/domain/draft"
)

// OutputResult is the deterministic output filter's product: redacted text
// plus the ordered disclaimer list the caller must attach.
type OutputResult struct {
	CleanText   string   `json:"clean_text"`
	Disclaimers []string `json:"disclaimers,omitempty"`
	Redactions  []string `json:"redactions,omitempty"`
}

// maxOutputRunes bounds published responses; longer text is truncated with a
// marker. The margin keeps a truncated-then-refiltered text under the bound.
const (
	maxOutputRunes  = 2000
	truncationSlack = 100
	truncationNote  = "\n\n[Response truncated for brevity]"
)

// blockedTerms must never appear in published text; occurrences are replaced
// rather than failing the turn.
var blockedTerms = []string{
	"confidential",
	"internal only",
	"do not share",
}

// piiRule pairs a detection pattern with its redaction marker. Rules are
// applied in order: longer numeric shapes first so a card number is not
// partially consumed by the national-ID rule.
type piiRule struct {
	re     *regexp.Regexp
	marker string
	label  string
}

var piiRules = []piiRule{
	{regexp.MustCompile(`\b\d{4}[- ]\d{4}[- ]\d{4}[- ]\d{4}\b`), "[redacted-card]", "card"},
	{regexp.MustCompile(`\b\d{16}\b`), "[redacted-card]", "card"},
	{regexp.MustCompile(`\b\d{11}\b`), "[redacted-id]", "national_id"},
	{regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`), "[redacted-phone]", "phone"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[redacted-email]", "email"},
}

// topicDisclaimers are appended when the text mentions the trigger topic.
var topicDisclaimers = []struct {
	trigger    string
	disclaimer string
}{
	{"refund", "Refund policies are subject to our terms and conditions."},
	{"warranty", "Warranty coverage varies by product. Check product documentation for details."},
	{"price", "Prices and promotions are subject to change."},
}

// domainDisclaimers are mandatory per responder domain.
var domainDisclaimers = map[draft.Domain]string{
	draft.DomainSupport: "This is general guidance, not professional or legal advice.",
}

// Output applies blocked-term removal, PII redaction, disclaimer selection,
// and length truncation to reviewed text. It is pure and idempotent:
// Output(Output(x).CleanText, d) yields the same CleanText and disclaimers.
func Output(text string, responder draft.Domain) OutputResult {
	clean := text
	var redactions []string

	for _, term := range blockedTerms {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		if re.MatchString(clean) {
			clean = re.ReplaceAllString(clean, "[removed]")
			redactions = append(redactions, "term:"+term)
		}
	}

	for _, rule := range piiRules {
		if rule.re.MatchString(clean) {
			clean = rule.re.ReplaceAllString(clean, rule.marker)
			redactions = append(redactions, "pii:"+rule.label)
		}
	}

	if runes := []rune(clean); len(runes) > maxOutputRunes {
		clean = string(runes[:maxOutputRunes-truncationSlack]) + truncationNote
		redactions = append(redactions, "truncated")
	}

	// Disclaimers are selected from the final text so that re-filtering the
	// clean text reproduces the same list.
	var disclaimers []string
	if d, ok := domainDisclaimers[responder]; ok {
		disclaimers = append(disclaimers, d)
	}
	lower := strings.ToLower(clean)
	for _, td := range topicDisclaimers {
		if strings.Contains(lower, td.trigger) {
			disclaimers = append(disclaimers, td.disclaimer)
		}
	}

	return OutputResult{
		CleanText:   clean,
		Disclaimers: disclaimers,
		Redactions:  redactions,
	}
}
