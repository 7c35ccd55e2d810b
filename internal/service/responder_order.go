package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/draft"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/completion"
	"github.com/safedesk/safedesk/internal/port/database"
)

const orderSystemPrompt = `You are an order support agent for a retail store.
Answer using ONLY the order facts provided. Do not invent order details,
dates, or amounts. Be polite and concise. Never promise refunds or outcomes.`

// OrderResponder answers order status, tracking, and cancellation requests.
// Its only tool is the order store; it has no retrieval or web access.
type OrderResponder struct {
	store   database.Store
	gateway completion.Gateway
	model   string
	log     *slog.Logger
}

// NewOrderResponder creates an OrderResponder.
func NewOrderResponder(store database.Store, gateway completion.Gateway, model string, log *slog.Logger) *OrderResponder {
	return &OrderResponder{store: store, gateway: gateway, model: model, log: log}
}

func (r *OrderResponder) Domain() draft.Domain { return draft.DomainOrder }

// Capabilities reports the tools this responder holds.
func (r *OrderResponder) Capabilities() Capabilities { return Capabilities{} }

func (r *OrderResponder) Respond(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (*draft.Answer, error) {
	var remembered string
	if sc, err := r.store.GetSessionContext(ctx, t.SessionID); err == nil {
		remembered = sc.LastOrderID
	}

	orderID := extractOrderID(t.RawText, decision, remembered)
	if orderID == "" {
		return &draft.Answer{
			Text: "I'd be happy to help with your order. Could you share your " +
				"order number? It looks like ORD-123 and is in your confirmation email.",
			Responder: draft.DomainOrder,
		}, nil
	}

	order, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &draft.Answer{
				Text: fmt.Sprintf("I couldn't find an order with the number %s. "+
					"Please double-check the number from your confirmation email and try again.", orderID),
				Responder: draft.DomainOrder,
			}, nil
		}
		return nil, &ResponderFailure{Responder: draft.DomainOrder, Err: err}
	}

	facts, citation := r.orderFacts(ctx, order, t.RawText)

	text, err := completeDraft(ctx, r.gateway, r.model, orderSystemPrompt,
		fmt.Sprintf("Order facts:\n%s\n\nCustomer message: %s", facts, t.RawText))
	if err != nil {
		r.log.Warn("order drafting model unavailable, serving facts directly",
			"turn_id", t.ID, "order_id", orderID, "error", err)
		return &draft.Answer{
			Text:      degradedText(facts),
			Citations: []draft.Citation{citation},
			Responder: draft.DomainOrder,
			Degraded:  true,
		}, nil
	}

	return &draft.Answer{
		Text:      text,
		Citations: []draft.Citation{citation},
		Responder: draft.DomainOrder,
	}, nil
}

// orderFacts renders the order into a deterministic fact block and handles
// an in-message cancellation request against the order lifecycle.
func (r *OrderResponder) orderFacts(ctx context.Context, order *catalog.Order, rawText string) (string, draft.Citation) {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s is %s.", order.OrderID, order.Status)
	if order.TrackingNumber != "" {
		fmt.Fprintf(&b, " Tracking number: %s.", order.TrackingNumber)
	}
	fmt.Fprintf(&b, " Total: $%.2f.", order.Total)
	if len(order.Items) > 0 {
		names := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			names = append(names, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		}
		fmt.Fprintf(&b, " Items: %s.", strings.Join(names, ", "))
	}

	if wantsCancellation(rawText) {
		if err := order.CanCancel(); err != nil {
			fmt.Fprintf(&b, " Cancellation is not possible: %s.", err.Error())
		} else if err := r.store.UpdateOrderStatus(ctx, order.OrderID, catalog.OrderCancelled); err != nil {
			r.log.Error("order cancellation failed", "order_id", order.OrderID, "error", err)
			b.WriteString(" The cancellation could not be completed; please contact support.")
		} else {
			b.WriteString(" The order has been cancelled.")
		}
	}

	facts := b.String()
	return facts, draft.Citation{
		Source:  "orders/" + order.OrderID,
		Snippet: fmt.Sprintf("status=%s total=%.2f", order.Status, order.Total),
	}
}

func wantsCancellation(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "cancel")
}
