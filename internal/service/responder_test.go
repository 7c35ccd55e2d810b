package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/draft"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/retrieval"
	"github.com/safedesk/safedesk/internal/port/websearch"
)

func seedOrder(store *mockStore, id string, status catalog.OrderStatus) {
	store.orders[id] = &catalog.Order{
		OrderID: id,
		Status:  status,
		Total:   149.99,
		Items:   []catalog.Item{{ProductID: "PROD-101", Name: "Wireless Mouse", Quantity: 1, Price: 149.99}},
	}
}

func TestOrderResponder_AsksForMissingID(t *testing.T) {
	r := NewOrderResponder(newMockStore(), staticGateway("unused"), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("where is my order?", "s1"), route.Decision{Target: route.TargetOrder})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Text, "order number") {
		t.Errorf("expected a prompt for the order number, got %q", a.Text)
	}
	if a.Responder != draft.DomainOrder {
		t.Errorf("responder = %s", a.Responder)
	}
}

func TestOrderResponder_UnknownOrder(t *testing.T) {
	r := NewOrderResponder(newMockStore(), staticGateway("unused"), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("where is ORD-999?", "s1"), route.Decision{Target: route.TargetOrder})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Text, "ORD-999") || !strings.Contains(a.Text, "couldn't find") {
		t.Errorf("expected a not-found reply, got %q", a.Text)
	}
}

func TestOrderResponder_DraftsFromFacts(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-123", catalog.OrderShipped)

	var prompt string
	gw := capturePromptGateway(&prompt, "Your order ORD-123 shipped and is on the way.")
	r := NewOrderResponder(store, gw, "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("where is ORD-123?", "s1"), route.Decision{Target: route.TargetOrder})
	if err != nil {
		t.Fatal(err)
	}
	if a.Degraded {
		t.Error("draft should not be degraded when the model answers")
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "orders/ORD-123" {
		t.Errorf("citations = %+v", a.Citations)
	}
	if !strings.Contains(prompt, "ORD-123") || !strings.Contains(prompt, "shipped") {
		t.Errorf("drafting prompt missing order facts:\n%s", prompt)
	}
}

func TestOrderResponder_RemembersSessionOrder(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-555", catalog.OrderProcessing)
	store.SetSessionContext(context.Background(), &turn.SessionContext{SessionID: "s1", LastOrderID: "ORD-555"})

	r := NewOrderResponder(store, staticGateway("It is still processing."), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("any update on it?", "s1"), route.Decision{Target: route.TargetOrder})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "orders/ORD-555" {
		t.Errorf("expected the remembered order to be resolved, citations = %+v", a.Citations)
	}
}

func TestOrderResponder_Cancellation(t *testing.T) {
	tests := []struct {
		name       string
		status     catalog.OrderStatus
		wantStatus catalog.OrderStatus
	}{
		{"processing cancels", catalog.OrderProcessing, catalog.OrderCancelled},
		{"shipped stays", catalog.OrderShipped, catalog.OrderShipped},
		{"delivered stays", catalog.OrderDelivered, catalog.OrderDelivered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			seedOrder(store, "ORD-123", tt.status)

			r := NewOrderResponder(store, staticGateway("done"), "test-model", testLogger())
			if _, err := r.Respond(context.Background(), turn.New("please cancel ORD-123", "s1"), route.Decision{Target: route.TargetOrder}); err != nil {
				t.Fatal(err)
			}
			if got := store.orders["ORD-123"].Status; got != tt.wantStatus {
				t.Errorf("status = %s, want %s", got, tt.wantStatus)
			}
		})
	}
}

func TestOrderResponder_DegradedWithoutModel(t *testing.T) {
	store := newMockStore()
	seedOrder(store, "ORD-123", catalog.OrderShipped)

	r := NewOrderResponder(store, failingGateway(domain.ErrGatewayUnavailable), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("where is ORD-123?", "s1"), route.Decision{Target: route.TargetOrder})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Degraded {
		t.Error("expected degraded draft when the drafting model is down")
	}
	if !strings.Contains(a.Text, "ORD-123") {
		t.Errorf("degraded draft should carry the facts, got %q", a.Text)
	}
	if !strings.Contains(a.Text, "information I have on file") {
		t.Errorf("degraded draft should state the limitation, got %q", a.Text)
	}
}

func TestOrderResponder_StoreFailure(t *testing.T) {
	store := newMockStore()
	store.failAll = errors.New("db down")

	r := NewOrderResponder(store, staticGateway("unused"), "test-model", testLogger())
	_, err := r.Respond(context.Background(), turn.New("where is ORD-123?", "s1"), route.Decision{Target: route.TargetOrder})
	var rf *ResponderFailure
	if !errors.As(err, &rf) {
		t.Fatalf("err = %v, want ResponderFailure", err)
	}
	if rf.Responder != draft.DomainOrder {
		t.Errorf("failure attributed to %s", rf.Responder)
	}
}

func TestProductResponder_ByID(t *testing.T) {
	store := newMockStore()
	store.products["PROD-101"] = &catalog.Product{
		ProductID: "PROD-101", Name: "Wireless Mouse", Price: 29.99, InStock: true,
	}

	r := NewProductResponder(store, staticGateway("The Wireless Mouse is in stock at $29.99."), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("is PROD-101 in stock?", "s1"), route.Decision{Target: route.TargetProduct})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "catalog/PROD-101" {
		t.Errorf("citations = %+v", a.Citations)
	}
}

func TestProductResponder_UnknownID(t *testing.T) {
	r := NewProductResponder(newMockStore(), staticGateway("unused"), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("tell me about PROD-404", "s1"), route.Decision{Target: route.TargetProduct})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Text, "PROD-404") {
		t.Errorf("expected a not-found reply naming the ID, got %q", a.Text)
	}
}

func TestProductResponder_EmptySearch(t *testing.T) {
	r := NewProductResponder(newMockStore(), staticGateway("unused"), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("do you have any gaming laptops?", "s1"), route.Decision{Target: route.TargetProduct})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Text, "couldn't find") {
		t.Errorf("expected an empty-catalog reply, got %q", a.Text)
	}
}

func TestSupportResponder_FAQMaterial(t *testing.T) {
	store := newMockStore()
	store.faqs["return"] = &catalog.FAQ{Topic: "return", Title: "Return policy", Content: "Returns accepted within 30 days."}

	var prompt string
	gw := capturePromptGateway(&prompt, "You can return items within 30 days.")
	r := NewSupportResponder(store, nil, nil, gw, "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("what is your return policy?", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "faq/return" {
		t.Errorf("citations = %+v", a.Citations)
	}
	if !strings.Contains(prompt, "Returns accepted within 30 days.") {
		t.Errorf("drafting prompt missing FAQ content:\n%s", prompt)
	}
}

func TestSupportResponder_RetrievalMaterial(t *testing.T) {
	kb := &mockRetrieval{passages: []retrieval.Passage{
		{Text: "Hold the pairing button for three seconds.", Score: 0.9, SourceID: "kb/pairing"},
	}}
	knowledge := NewKnowledgeService(kb, nil, 0, testLogger())
	r := NewSupportResponder(newMockStore(), knowledge, nil, staticGateway("Here is what I found."), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("how do I pair the wireless mouse?", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "kb/pairing" {
		t.Errorf("citations = %+v", a.Citations)
	}
}

func TestSupportResponder_WebSearchLastResort(t *testing.T) {
	web := &mockWebSearch{results: []websearch.Result{
		{Title: "Carrier guide", Snippet: "Carrier A delivers fastest.", URL: "https://example.com/a"},
	}}
	r := NewSupportResponder(newMockStore(), nil, web, staticGateway("According to the guide..."), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("which carrier do you use?", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Citations) != 1 || a.Citations[0].Source != "https://example.com/a" {
		t.Errorf("citations = %+v", a.Citations)
	}
}

func TestSupportResponder_NoMaterialGivesContactInfo(t *testing.T) {
	r := NewSupportResponder(newMockStore(), nil, nil, staticGateway("unused"), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("what colour is the sky?", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	contact := catalog.Contact()
	if !strings.Contains(a.Text, contact.Email) {
		t.Errorf("expected contact channels in reply, got %q", a.Text)
	}
}

func TestSupportResponder_Escalation(t *testing.T) {
	store := newMockStore()
	r := NewSupportResponder(store, nil, nil, staticGateway("unused"), "test-model", testLogger())

	a, err := r.Respond(context.Background(), turn.New("I want to speak to a human about this", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.tickets) != 1 {
		t.Fatalf("tickets = %d, want 1", len(store.tickets))
	}
	ticket := store.tickets[0]
	if ticket.Status != catalog.TicketOpen || ticket.SessionID != "s1" {
		t.Errorf("ticket = %+v", ticket)
	}
	if !strings.Contains(a.Text, ticket.TicketID) {
		t.Errorf("reply should name the ticket, got %q", a.Text)
	}
}

func TestExtractIdentifiers(t *testing.T) {
	d := route.Decision{}
	if got := extractOrderID("check ord-123 please", d, ""); got != "ORD-123" {
		t.Errorf("extractOrderID = %q", got)
	}
	d.Entities.OrderID = "ord-456"
	if got := extractOrderID("check my order", d, ""); got != "ORD-456" {
		t.Errorf("entity order id = %q", got)
	}
	if got := extractOrderID("check my order", route.Decision{}, "ORD-789"); got != "ORD-789" {
		t.Errorf("remembered order id = %q", got)
	}
	if got := extractProductID("about prod-101", route.Decision{}, ""); got != "PROD-101" {
		t.Errorf("extractProductID = %q", got)
	}
}

func TestSearchTerms(t *testing.T) {
	if got := searchTerms("Do you have any wireless mouse in stock?"); got != "wireless mouse" {
		t.Errorf("searchTerms = %q", got)
	}
}

func TestProductResponder_DegradedWithoutModel(t *testing.T) {
	store := newMockStore()
	store.products["PROD-101"] = &catalog.Product{ProductID: "PROD-101", Name: "Wireless Mouse", Price: 29.99, InStock: true}

	r := NewProductResponder(store, failingGateway(domain.ErrGatewayUnavailable), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("tell me about PROD-101", "s1"), route.Decision{Target: route.TargetProduct})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Degraded {
		t.Error("expected degraded draft when the drafting model is down")
	}
	if !strings.Contains(a.Text, "Wireless Mouse") {
		t.Errorf("degraded draft should carry the facts, got %q", a.Text)
	}
	if !strings.Contains(a.Text, "information I have on file") {
		t.Errorf("degraded draft should state the limitation, got %q", a.Text)
	}
}

func TestSupportResponder_DegradedWithoutModel(t *testing.T) {
	store := newMockStore()
	store.faqs["return"] = &catalog.FAQ{Topic: "return", Title: "Return policy", Content: "Returns accepted within 30 days."}

	r := NewSupportResponder(store, nil, nil, failingGateway(domain.ErrGatewayUnavailable), "test-model", testLogger())
	a, err := r.Respond(context.Background(), turn.New("what is your return policy?", "s1"), route.Decision{Target: route.TargetSupport})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Degraded {
		t.Error("expected degraded draft when the drafting model is down")
	}
	if !strings.Contains(a.Text, "Returns accepted within 30 days.") {
		t.Errorf("degraded draft should carry the reference material, got %q", a.Text)
	}
	if !strings.Contains(a.Text, "information I have on file") {
		t.Errorf("degraded draft should state the limitation, got %q", a.Text)
	}
}
