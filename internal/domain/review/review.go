// Package review defines the independent review stage's domain model: the
// isolated reviewer input, the policy rubric, and the review verdict.
//
// Reviewer isolation is structural, not conventional: Input can only be
// built from a draft.Answer, so the original user text and the routing
// rationale cannot reach the reviewer by construction.
package review

import (
	"regexp"
	"strings"

	"github.com/safedesk/safedesk/internal/domain/draft"
)

// Input is the only data the reviewer may see. It deliberately has no field
// for raw user text or routing rationale.
type Input struct {
	Text      string           `json:"text"`
	Responder draft.Domain     `json:"responder"`
	Citations []draft.Citation `json:"citations,omitempty"`
}

// NewInput builds the reviewer's input from a draft alone.
func NewInput(a *draft.Answer) Input {
	return Input{
		Text:      a.Text,
		Responder: a.Responder,
		Citations: a.Citations,
	}
}

// Violation classifies a policy breach found in a draft.
type Violation string

const (
	ViolationForbiddenPhrase  Violation = "forbidden_phrase"
	ViolationForbiddenPromise Violation = "forbidden_promise"
	ViolationTone             Violation = "tone"
	ViolationCommitment       Violation = "unauthorized_commitment"
	ViolationTooShort         Violation = "too_short"
	ViolationTooLong          Violation = "too_long"
)

// Verdict is the reviewer's output. When Approved is false, RevisedText is
// always present and carries forward in place of the draft text.
type Verdict struct {
	Approved    bool        `json:"approved"`
	Violations  []Violation `json:"violations,omitempty"`
	RevisedText string      `json:"revised_text,omitempty"`
}

// Rubric is the fixed policy a draft is evaluated against. Rubrics are
// product-policy artifacts: they ship as presets and may be overridden from
// YAML files.
type Rubric struct {
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	ForbiddenPhrases  []string `json:"forbidden_phrases" yaml:"forbidden_phrases"`
	ForbiddenPromises []string `json:"forbidden_promises" yaml:"forbidden_promises"`
	ForbiddenTones    []string `json:"forbidden_tones" yaml:"forbidden_tones"`
	RequiredTone      string   `json:"required_tone" yaml:"required_tone"`
	DisclaimerTopics  []string `json:"disclaimer_topics" yaml:"disclaimer_topics"`
	MinLength         int      `json:"min_length" yaml:"min_length"`
	MaxLength         int      `json:"max_length" yaml:"max_length"`
}

// Validate checks a rubric for internal consistency.
func (r *Rubric) Validate() error {
	if r.Name == "" {
		return ErrRubricNameRequired
	}
	if r.MinLength < 0 || r.MaxLength < 0 {
		return ErrRubricNegativeLength
	}
	if r.MaxLength > 0 && r.MinLength > r.MaxLength {
		return ErrRubricLengthBounds
	}
	return nil
}

// QuickCheck runs the deterministic rubric rules against draft text before
// any model call. It returns the violations found, in rule order.
func (r *Rubric) QuickCheck(text string) []Violation {
	var violations []Violation
	lower := strings.ToLower(text)

	for _, phrase := range r.ForbiddenPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			violations = append(violations, ViolationForbiddenPhrase)
			break
		}
	}
	for _, promise := range r.ForbiddenPromises {
		if strings.Contains(lower, strings.ToLower(promise)) {
			violations = append(violations, ViolationForbiddenPromise)
			break
		}
	}

	n := len([]rune(text))
	if r.MinLength > 0 && n < r.MinLength {
		violations = append(violations, ViolationTooShort)
	}
	if r.MaxLength > 0 && n > r.MaxLength {
		violations = append(violations, ViolationTooLong)
	}

	return violations
}

// Scrub deterministically removes forbidden phrases and promises from text.
// It is the reviewer's last-resort revision when the model cannot supply a
// usable one: the verdict contract requires RevisedText on rejection.
func (r *Rubric) Scrub(text string) string {
	scrubbed := text
	for _, phrase := range append(append([]string{}, r.ForbiddenPhrases...), r.ForbiddenPromises...) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
		scrubbed = re.ReplaceAllString(scrubbed, "")
	}
	return strings.TrimSpace(collapseSpaces(scrubbed))
}

var multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

func collapseSpaces(s string) string {
	return multiSpaceRe.ReplaceAllString(s, " ")
}
