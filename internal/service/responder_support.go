package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/draft"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/completion"
	"github.com/safedesk/safedesk/internal/port/database"
	"github.com/safedesk/safedesk/internal/port/websearch"
)

const supportSystemPrompt = `You are a general support agent for a retail store.
Answer using ONLY the reference material provided. If the material does not
cover the question, say so and offer the store's contact channels. Be polite
and concise. Never give legal advice and never promise outcomes.`

// SupportResponder answers policy and general questions. It is the only
// responder with retrieval and web search tools, and it can open a support
// ticket when the customer asks for a human.
type SupportResponder struct {
	store     database.Store
	knowledge *KnowledgeService
	web       websearch.Gateway
	gateway   completion.Gateway
	model     string
	log       *slog.Logger
}

// NewSupportResponder creates a SupportResponder. web may be nil to disable
// web search.
func NewSupportResponder(store database.Store, knowledge *KnowledgeService, web websearch.Gateway, gateway completion.Gateway, model string, log *slog.Logger) *SupportResponder {
	return &SupportResponder{
		store:     store,
		knowledge: knowledge,
		web:       web,
		gateway:   gateway,
		model:     model,
		log:       log,
	}
}

func (r *SupportResponder) Domain() draft.Domain { return draft.DomainSupport }

// Capabilities reports the tools this responder holds.
func (r *SupportResponder) Capabilities() Capabilities {
	return Capabilities{Retrieval: true, WebSearch: r.web != nil}
}

func (r *SupportResponder) Respond(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (*draft.Answer, error) {
	if wantsHuman(t.RawText) {
		return r.escalate(ctx, t)
	}

	material, citations := r.gatherMaterial(ctx, t, decision)
	if material == "" {
		contact := catalog.Contact()
		return &draft.Answer{
			Text: fmt.Sprintf("I don't have information on that topic. You can reach our "+
				"support team at %s or %s (%s).", contact.Email, contact.Phone, contact.Hours),
			Responder: draft.DomainSupport,
		}, nil
	}

	text, err := completeDraft(ctx, r.gateway, r.model, supportSystemPrompt,
		fmt.Sprintf("Reference material:\n%s\n\nCustomer message: %s", material, t.RawText))
	if err != nil {
		r.log.Warn("support drafting model unavailable, serving material directly",
			"turn_id", t.ID, "error", err)
		return &draft.Answer{
			Text:      degradedText(material),
			Citations: citations,
			Responder: draft.DomainSupport,
			Degraded:  true,
		}, nil
	}

	return &draft.Answer{
		Text:      text,
		Citations: citations,
		Responder: draft.DomainSupport,
	}, nil
}

// gatherMaterial collects reference text: the topic FAQ first, then
// retrieved passages, then web search as a last resort.
func (r *SupportResponder) gatherMaterial(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (string, []draft.Citation) {
	var (
		b         strings.Builder
		citations []draft.Citation
	)

	topic := decision.Entities.Topic
	if topic == "" {
		topic = detectTopic(t.RawText)
	}
	if topic != "" {
		faq, err := r.store.GetFAQ(ctx, topic)
		switch {
		case err == nil:
			b.WriteString(faq.Content)
			b.WriteString("\n")
			citations = append(citations, draft.Citation{
				Source:  "faq/" + faq.Topic,
				Snippet: faq.Title,
			})
		case !errors.Is(err, domain.ErrNotFound):
			r.log.Warn("faq lookup failed", "topic", topic, "error", err)
		}
	}

	if r.knowledge != nil {
		for _, p := range r.knowledge.SearchPassages(ctx, t.RawText, 3) {
			b.WriteString(p.Text)
			b.WriteString("\n")
			citations = append(citations, draft.Citation{
				Source:  p.SourceID,
				Snippet: truncateLine(p.Text, 120),
			})
		}
	}

	if b.Len() == 0 && r.web != nil {
		results, err := r.web.Search(ctx, t.RawText, 3)
		if err != nil {
			r.log.Warn("web search unavailable", "turn_id", t.ID, "error", err)
		}
		for _, res := range results {
			b.WriteString(res.Snippet)
			b.WriteString("\n")
			citations = append(citations, draft.Citation{
				Source:  res.URL,
				Snippet: res.Title,
			})
		}
	}

	return strings.TrimRight(b.String(), "\n"), citations
}

// escalate opens a support ticket and hands the customer the contact info.
func (r *SupportResponder) escalate(ctx context.Context, t turn.ConversationTurn) (*draft.Answer, error) {
	ticket := &catalog.Ticket{
		TicketID:    "TKT-" + strings.ToUpper(uuid.NewString()[:8]),
		SessionID:   t.SessionID,
		Subject:     "Customer requested human assistance",
		Description: truncateLine(t.RawText, 500),
		Status:      catalog.TicketOpen,
	}
	if err := r.store.CreateTicket(ctx, ticket); err != nil {
		return nil, &ResponderFailure{Responder: draft.DomainSupport, Err: err}
	}

	contact := catalog.Contact()
	return &draft.Answer{
		Text: fmt.Sprintf("I've opened support ticket %s for you. A member of our team will "+
			"follow up. You can also reach us directly at %s or %s (%s).",
			ticket.TicketID, contact.Email, contact.Phone, contact.Hours),
		Citations: []draft.Citation{{
			Source:  "tickets/" + ticket.TicketID,
			Snippet: ticket.Subject,
		}},
		Responder: draft.DomainSupport,
	}, nil
}

var supportTopics = []string{"return", "refund", "warranty", "shipping", "payment"}

func detectTopic(text string) string {
	lower := strings.ToLower(text)
	for _, topic := range supportTopics {
		if strings.Contains(lower, topic) {
			return topic
		}
	}
	return ""
}

func wantsHuman(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range []string{"speak to a human", "talk to a human", "real person", "speak to an agent", "talk to an agent", "human agent", "escalate", "file a complaint"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
