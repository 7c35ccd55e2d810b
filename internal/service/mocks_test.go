package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/port/completion"
	"github.com/safedesk/safedesk/internal/port/messagequeue"
	"github.com/safedesk/safedesk/internal/port/retrieval"
	"github.com/safedesk/safedesk/internal/port/websearch"
)

// newTestLiteLLMServer creates a mock LiteLLM server returning the given content.
func newTestLiteLLMServer(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"model": "test-model",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck // test code
	}))
}

// gatewayFunc adapts a function to the completion gateway port. Tests use it
// to script model output per call and to capture prompts.
type gatewayFunc func(ctx context.Context, req completion.Request) (string, error)

func (f gatewayFunc) Complete(ctx context.Context, req completion.Request) (string, error) {
	return f(ctx, req)
}

func staticGateway(content string) gatewayFunc {
	return func(ctx context.Context, req completion.Request) (string, error) {
		return content, nil
	}
}

func failingGateway(err error) gatewayFunc {
	return func(ctx context.Context, req completion.Request) (string, error) {
		return "", err
	}
}

// capturePromptGateway stores the last prompt in *dst and returns content.
func capturePromptGateway(dst *string, content string) gatewayFunc {
	return func(ctx context.Context, req completion.Request) (string, error) {
		*dst = req.Prompt
		return content, nil
	}
}

// mockStore is an in-memory database.Store.
type mockStore struct {
	mu       sync.Mutex
	orders   map[string]*catalog.Order
	products map[string]*catalog.Product
	faqs     map[string]*catalog.FAQ
	tickets  []*catalog.Ticket
	messages map[string][]turn.Message
	contexts map[string]*turn.SessionContext

	failAll error // when set, every call returns this error
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:   make(map[string]*catalog.Order),
		products: make(map[string]*catalog.Product),
		faqs:     make(map[string]*catalog.FAQ),
		messages: make(map[string][]turn.Message),
		contexts: make(map[string]*turn.SessionContext),
	}
}

func (m *mockStore) GetOrder(ctx context.Context, orderID string) (*catalog.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, orderID string, status catalog.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockStore) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) SearchProducts(ctx context.Context, query, category string, limit int) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	var out []catalog.Product
	for _, p := range m.products {
		out = append(out, *p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) ListProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Product
	for _, p := range m.products {
		if p.Category == category {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertProduct(ctx context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ProductID] = &cp
	return nil
}

func (m *mockStore) GetFAQ(ctx context.Context, topic string) (*catalog.FAQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	f, ok := m.faqs[topic]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockStore) UpsertFAQ(ctx context.Context, f *catalog.FAQ) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.faqs[f.Topic] = &cp
	return nil
}

func (m *mockStore) CreateTicket(ctx context.Context, t *catalog.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	cp := *t
	m.tickets = append(m.tickets, &cp)
	return nil
}

func (m *mockStore) AppendMessage(ctx context.Context, sessionID string, msg turn.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return nil
}

func (m *mockStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]turn.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]turn.Message(nil), msgs...), nil
}

func (m *mockStore) GetSessionContext(ctx context.Context, sessionID string) (*turn.SessionContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.contexts[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (m *mockStore) SetSessionContext(ctx context.Context, sc *turn.SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sc
	m.contexts[sc.SessionID] = &cp
	return nil
}

// mockQueue records published moderation events.
type mockQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	failWith  error
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: make(map[string][][]byte)}
}

func (q *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failWith != nil {
		return q.failWith
	}
	q.published[subject] = append(q.published[subject], data)
	return nil
}

func (q *mockQueue) PublishModerationEvent(ctx context.Context, subject string, ev messagequeue.ModerationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.Publish(ctx, subject, data)
}

func (q *mockQueue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (q *mockQueue) Close() error { return nil }

func (q *mockQueue) count(subject string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published[subject])
}

func (q *mockQueue) last(subject string) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	msgs := q.published[subject]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// mockRetrieval serves fixed passages.
type mockRetrieval struct {
	passages []retrieval.Passage
	indexed  []retrieval.Document
	err      error
}

func (m *mockRetrieval) Search(ctx context.Context, query string, topK int) ([]retrieval.Passage, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.passages, nil
}

func (m *mockRetrieval) Index(ctx context.Context, docs []retrieval.Document) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.indexed = append(m.indexed, docs...)
	return len(docs), nil
}

// mockWebSearch serves fixed results.
type mockWebSearch struct {
	results []websearch.Result
	err     error
}

func (m *mockWebSearch) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}
