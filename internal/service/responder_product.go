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

const productSystemPrompt = `You are a product advisor for a retail store.
Answer using ONLY the catalog facts provided. Do not invent products,
prices, or stock levels. Be polite and concise. Never promise price matches
or discounts.`

// ProductResponder answers product search, price, and availability
// questions from the catalog store. It has no retrieval or web access.
type ProductResponder struct {
	store   database.Store
	gateway completion.Gateway
	model   string
	log     *slog.Logger
}

// NewProductResponder creates a ProductResponder.
func NewProductResponder(store database.Store, gateway completion.Gateway, model string, log *slog.Logger) *ProductResponder {
	return &ProductResponder{store: store, gateway: gateway, model: model, log: log}
}

func (r *ProductResponder) Domain() draft.Domain { return draft.DomainProduct }

// Capabilities reports the tools this responder holds.
func (r *ProductResponder) Capabilities() Capabilities { return Capabilities{} }

func (r *ProductResponder) Respond(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (*draft.Answer, error) {
	var remembered string
	if sc, err := r.store.GetSessionContext(ctx, t.SessionID); err == nil {
		remembered = sc.LastProductID
	}

	var (
		facts     string
		citations []draft.Citation
	)

	if productID := extractProductID(t.RawText, decision, remembered); productID != "" {
		product, err := r.store.GetProduct(ctx, productID)
		switch {
		case err == nil:
			facts = productFacts([]catalog.Product{*product})
			citations = productCitations([]catalog.Product{*product})
		case errors.Is(err, domain.ErrNotFound):
			return &draft.Answer{
				Text: fmt.Sprintf("I couldn't find a product with the ID %s in our catalog. "+
					"Could you tell me the product name instead?", productID),
				Responder: draft.DomainProduct,
			}, nil
		default:
			return nil, &ResponderFailure{Responder: draft.DomainProduct, Err: err}
		}
	} else {
		products, err := r.store.SearchProducts(ctx, searchTerms(t.RawText), "", 5)
		if err != nil {
			return nil, &ResponderFailure{Responder: draft.DomainProduct, Err: err}
		}
		if len(products) == 0 {
			return &draft.Answer{
				Text: "I couldn't find matching products in our catalog. " +
					"Could you describe what you're looking for, or give a product name or category?",
				Responder: draft.DomainProduct,
			}, nil
		}
		facts = productFacts(products)
		citations = productCitations(products)
	}

	text, err := completeDraft(ctx, r.gateway, r.model, productSystemPrompt,
		fmt.Sprintf("Catalog facts:\n%s\n\nCustomer message: %s", facts, t.RawText))
	if err != nil {
		r.log.Warn("product drafting model unavailable, serving facts directly",
			"turn_id", t.ID, "error", err)
		return &draft.Answer{
			Text:      degradedText(facts),
			Citations: citations,
			Responder: draft.DomainProduct,
			Degraded:  true,
		}, nil
	}

	return &draft.Answer{
		Text:      text,
		Citations: citations,
		Responder: draft.DomainProduct,
	}, nil
}

func productFacts(products []catalog.Product) string {
	var b strings.Builder
	for _, p := range products {
		stock := "in stock"
		if !p.InStock {
			stock = "currently out of stock"
		}
		fmt.Fprintf(&b, "%s (%s): $%.2f, %s. %s\n", p.Name, p.ProductID, p.Price, stock, p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func productCitations(products []catalog.Product) []draft.Citation {
	citations := make([]draft.Citation, 0, len(products))
	for _, p := range products {
		citations = append(citations, draft.Citation{
			Source:  "catalog/" + p.ProductID,
			Snippet: fmt.Sprintf("%s $%.2f", p.Name, p.Price),
		})
	}
	return citations
}

// searchTerms strips filler words so catalog search sees only the
// product-bearing part of the message.
func searchTerms(text string) string {
	filler := map[string]bool{
		"i": true, "a": true, "an": true, "the": true, "do": true, "you": true,
		"have": true, "any": true, "is": true, "are": true, "there": true,
		"for": true, "me": true, "please": true, "looking": true, "want": true,
		"need": true, "much": true, "how": true, "what": true, "price": true,
		"of": true, "in": true, "stock": true, "find": true, "search": true,
		"show": true, "buy": true,
	}
	words := strings.Fields(strings.ToLower(strings.Trim(text, "?!. ")))
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, "?!.,")
		if w != "" && !filler[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
