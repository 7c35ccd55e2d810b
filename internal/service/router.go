package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/completion"
	"github.com/safedesk/safedesk/internal/port/database"
)

const routerSystemPrompt = `You are a routing classifier for a retail customer service desk.
Classify the customer message into exactly one target:
- "order": order status, tracking, delivery, cancellation
- "product": product search, price, stock, specifications
- "support": returns, refunds, warranty, shipping policy, payment, contact
- "refuse": anything outside retail customer service

Respond with a single JSON object and nothing else:
{"target": "...", "confidence": 0.0-1.0, "rationale": "...", "order_id": "", "product_id": "", "topic": ""}

Fill order_id (format ORD-123) or product_id (format PROD-123) only when the
message or conversation context names one. Set topic to the support topic
(return, refund, warranty, shipping, payment) when relevant.`

// RouterService produces exactly one route.Decision per turn. Model output
// is parsed fail-closed; a gateway failure degrades to deterministic
// keyword routing instead.
type RouterService struct {
	gateway    completion.Gateway
	store      database.Store
	model      string
	threshold  float64
	historyLen int
	log        *slog.Logger
}

// NewRouterService creates a RouterService.
func NewRouterService(gateway completion.Gateway, store database.Store, model string, threshold float64, historyLen int, log *slog.Logger) *RouterService {
	return &RouterService{
		gateway:    gateway,
		store:      store,
		model:      model,
		threshold:  threshold,
		historyLen: historyLen,
		log:        log,
	}
}

// Route classifies one turn. It always returns a valid decision: malformed
// model output maps to Refuse, sub-threshold confidence maps to Refuse, and
// gateway failure falls back to keyword routing.
func (s *RouterService) Route(ctx context.Context, t turn.ConversationTurn) route.Decision {
	prompt := s.buildPrompt(ctx, t)

	raw, err := s.gateway.Complete(ctx, completion.Request{
		System: routerSystemPrompt,
		Prompt: prompt,
		Options: completion.Options{
			Model:       s.model,
			Temperature: 0.1,
			MaxTokens:   300,
			JSON:        true,
		},
	})
	if err != nil {
		s.log.Warn("routing model unavailable, using keyword fallback",
			"turn_id", t.ID, "error", err)
		return route.Fallback(t.RawText)
	}

	decision := route.Parse(raw)
	if decision.Target != route.TargetRefuse && decision.Confidence < s.threshold {
		s.log.Info("routing confidence below threshold",
			"turn_id", t.ID, "target", string(decision.Target), "confidence", decision.Confidence)
		return route.Refused(fmt.Sprintf("confidence %.2f below threshold", decision.Confidence))
	}
	return decision
}

// buildPrompt assembles the user message plus a compact session context
// summary. Store failures degrade to routing on the message alone.
func (s *RouterService) buildPrompt(ctx context.Context, t turn.ConversationTurn) string {
	var b strings.Builder

	if sc, err := s.store.GetSessionContext(ctx, t.SessionID); err == nil {
		var parts []string
		if sc.LastTopic != "" {
			parts = append(parts, "last topic: "+sc.LastTopic)
		}
		if sc.LastOrderID != "" {
			parts = append(parts, "last order: "+sc.LastOrderID)
		}
		if sc.LastProductID != "" {
			parts = append(parts, "last product: "+sc.LastProductID)
		}
		if len(parts) > 0 {
			b.WriteString("Conversation context: ")
			b.WriteString(strings.Join(parts, ", "))
			b.WriteString("\n")
		}
	}

	if s.historyLen > 0 {
		if history, err := s.store.RecentMessages(ctx, t.SessionID, s.historyLen); err == nil && len(history) > 0 {
			b.WriteString("Recent messages:\n")
			for _, m := range history {
				b.WriteString(string(m.Role))
				b.WriteString(": ")
				b.WriteString(truncateLine(m.Content, 200))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("Customer message: ")
	b.WriteString(t.RawText)
	return b.String()
}

func truncateLine(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
