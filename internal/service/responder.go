package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/safedesk/safedesk/internal/domain/draft"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/completion"
)

// Capabilities declares which external tools a responder may call. They are
// fixed at construction; a responder can never acquire a tool mid-turn.
type Capabilities struct {
	Retrieval bool
	WebSearch bool
}

// Responder drafts an answer for one routed turn.
type Responder interface {
	Domain() draft.Domain
	Respond(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (*draft.Answer, error)
}

// ResponderFailure reports that a responder could not produce any draft,
// degraded or otherwise. The pipeline maps it to a refusal.
type ResponderFailure struct {
	Responder draft.Domain
	Err       error
}

func (e *ResponderFailure) Error() string {
	return fmt.Sprintf("%s responder failed: %v", e.Responder, e.Err)
}

func (e *ResponderFailure) Unwrap() error { return e.Err }

// Identifier extraction for order and product references in free text.
var (
	orderIDRe   = regexp.MustCompile(`\bORD-\d{3,}\b`)
	productIDRe = regexp.MustCompile(`\bPROD-\d{3,}\b`)
)

// extractOrderID prefers an explicit ID in the message, then the router's
// entity, then the session's remembered order.
func extractOrderID(text string, decision route.Decision, remembered string) string {
	if id := orderIDRe.FindString(strings.ToUpper(text)); id != "" {
		return id
	}
	if decision.Entities.OrderID != "" {
		return strings.ToUpper(decision.Entities.OrderID)
	}
	return remembered
}

func extractProductID(text string, decision route.Decision, remembered string) string {
	if id := productIDRe.FindString(strings.ToUpper(text)); id != "" {
		return id
	}
	if decision.Entities.ProductID != "" {
		return strings.ToUpper(decision.Entities.ProductID)
	}
	return remembered
}

// degradedText wraps a deterministic fact block served when the drafting
// model is unavailable, stating the limitation before the raw facts.
func degradedText(facts string) string {
	return "I'm having trouble writing a full reply right now, " +
		"so here is the information I have on file:\n\n" + facts
}

// completeDraft runs the drafting model call shared by all responders.
func completeDraft(ctx context.Context, gateway completion.Gateway, model, system, prompt string) (string, error) {
	return gateway.Complete(ctx, completion.Request{
		System: system,
		Prompt: prompt,
		Options: completion.Options{
			Model:       model,
			Temperature: 0.4,
			MaxTokens:   800,
		},
	})
}
