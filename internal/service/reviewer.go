package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/safedesk/safedesk/internal/domain/review"
	"github.com/safedesk/safedesk/internal/port/completion"
)

const reviewerSystemPrompt = `You are an independent quality reviewer for a retail
customer service desk. You see only the drafted reply, never the customer's
message. Evaluate the draft against the policy rules provided.

Respond with a single JSON object and nothing else:
{"approved": true|false, "violations": ["..."], "revised_text": "..."}

When approved is false, revised_text MUST contain a corrected version of the
draft that keeps its factual content. Violations must come from this set:
forbidden_phrase, forbidden_promise, tone, unauthorized_commitment,
too_short, too_long.`

// ReviewerService evaluates drafts in isolation: it receives a
// review.Input, which structurally cannot carry the customer's raw text.
// Every rejection carries usable revised text, deterministically scrubbed
// when the model cannot supply a revision.
type ReviewerService struct {
	gateway completion.Gateway
	rubric  *review.Rubric
	model   string
	log     *slog.Logger
}

// NewReviewerService creates a ReviewerService bound to one rubric.
func NewReviewerService(gateway completion.Gateway, rubric *review.Rubric, model string, log *slog.Logger) *ReviewerService {
	return &ReviewerService{gateway: gateway, rubric: rubric, model: model, log: log}
}

// Review produces exactly one verdict per draft. Gateway failure fails open
// only when the deterministic rubric rules have already passed; drafts with
// deterministic violations are always rejected with scrubbed text.
func (s *ReviewerService) Review(ctx context.Context, in review.Input) review.Verdict {
	if violations := s.rubric.QuickCheck(in.Text); len(violations) > 0 {
		return review.Verdict{
			Approved:    false,
			Violations:  violations,
			RevisedText: s.revise(ctx, in.Text, violations),
		}
	}

	raw, err := s.gateway.Complete(ctx, completion.Request{
		System: reviewerSystemPrompt,
		Prompt: s.buildPrompt(in),
		Options: completion.Options{
			Model:       s.model,
			Temperature: 0.0,
			MaxTokens:   1000,
			JSON:        true,
		},
	})
	if err != nil {
		s.log.Warn("review model unavailable, approving on deterministic checks alone", "error", err)
		return review.Verdict{Approved: true}
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		s.log.Warn("unparseable review output, approving on deterministic checks alone")
		return review.Verdict{Approved: true}
	}
	if verdict.Approved {
		return verdict
	}

	// A rejection must carry revised text that itself passes the rubric.
	if verdict.RevisedText == "" || len(s.rubric.QuickCheck(verdict.RevisedText)) > 0 {
		verdict.RevisedText = s.rubric.Scrub(in.Text)
	}
	return verdict
}

// revise asks the model to rewrite text with deterministic violations, then
// falls back to rubric scrubbing when the revision is missing or still
// violating.
func (s *ReviewerService) revise(ctx context.Context, text string, violations []review.Violation) string {
	names := make([]string, 0, len(violations))
	for _, v := range violations {
		names = append(names, string(v))
	}

	raw, err := s.gateway.Complete(ctx, completion.Request{
		System: reviewerSystemPrompt,
		Prompt: "The draft below violates these rules: " + strings.Join(names, ", ") +
			".\nRules:\n" + s.rubricRules() + "\nDraft:\n" + text,
		Options: completion.Options{
			Model:       s.model,
			Temperature: 0.0,
			MaxTokens:   1000,
			JSON:        true,
		},
	})
	if err == nil {
		if v, ok := parseVerdict(raw); ok && v.RevisedText != "" {
			if len(s.rubric.QuickCheck(v.RevisedText)) == 0 {
				return v.RevisedText
			}
		}
	}
	return s.rubric.Scrub(text)
}

func (s *ReviewerService) buildPrompt(in review.Input) string {
	var b strings.Builder
	b.WriteString("Policy rules:\n")
	b.WriteString(s.rubricRules())
	b.WriteString("\nResponder: ")
	b.WriteString(string(in.Responder))
	if len(in.Citations) > 0 {
		b.WriteString("\nCited sources: ")
		for i, c := range in.Citations {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Source)
		}
	}
	b.WriteString("\nDraft:\n")
	b.WriteString(in.Text)
	return b.String()
}

func (s *ReviewerService) rubricRules() string {
	var b strings.Builder
	if len(s.rubric.ForbiddenPhrases) > 0 {
		b.WriteString("- Never use phrases: " + strings.Join(s.rubric.ForbiddenPhrases, "; ") + "\n")
	}
	if len(s.rubric.ForbiddenPromises) > 0 {
		b.WriteString("- Never promise: " + strings.Join(s.rubric.ForbiddenPromises, "; ") + "\n")
	}
	if len(s.rubric.ForbiddenTones) > 0 {
		b.WriteString("- Forbidden tones: " + strings.Join(s.rubric.ForbiddenTones, ", ") + "\n")
	}
	if s.rubric.RequiredTone != "" {
		b.WriteString("- Required tone: " + s.rubric.RequiredTone + "\n")
	}
	return b.String()
}

var verdictObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// rawVerdict is the wire shape the review prompt asks for.
type rawVerdict struct {
	Approved    bool     `json:"approved"`
	Violations  []string `json:"violations"`
	RevisedText string   `json:"revised_text"`
}

// parseVerdict maps model output onto the verdict type, dropping violation
// labels outside the known set.
func parseVerdict(raw string) (review.Verdict, bool) {
	match := verdictObjectRe.FindString(raw)
	if match == "" {
		return review.Verdict{}, false
	}
	var rv rawVerdict
	if err := json.Unmarshal([]byte(match), &rv); err != nil {
		return review.Verdict{}, false
	}

	known := map[review.Violation]bool{
		review.ViolationForbiddenPhrase:  true,
		review.ViolationForbiddenPromise: true,
		review.ViolationTone:             true,
		review.ViolationCommitment:       true,
		review.ViolationTooShort:         true,
		review.ViolationTooLong:          true,
	}
	var violations []review.Violation
	for _, v := range rv.Violations {
		if vv := review.Violation(strings.TrimSpace(v)); known[vv] {
			violations = append(violations, vv)
		}
	}

	return review.Verdict{
		Approved:    rv.Approved,
		Violations:  violations,
		RevisedText: strings.TrimSpace(rv.RevisedText),
	}, true
}
