package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/turn"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Orders ---

func (s *Store) GetOrder(ctx context.Context, orderID string) (*catalog.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT order_id, status, items, total, shipping_address, COALESCE(tracking_number, ''), created_at
		 FROM orders WHERE order_id = $1`, orderID)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get order %s: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status catalog.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE order_id = $1`, orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order status %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order status %s: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

// CreateOrder inserts a new order; used by the seed command.
func (s *Store) CreateOrder(ctx context.Context, o *catalog.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (order_id, status, items, total, shipping_address, tracking_number, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		 ON CONFLICT (order_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   items = EXCLUDED.items,
		   total = EXCLUDED.total,
		   shipping_address = EXCLUDED.shipping_address,
		   tracking_number = EXCLUDED.tracking_number`,
		o.OrderID, string(o.Status), itemsJSON, o.Total, o.ShippingAddress, o.TrackingNumber, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.OrderID, err)
	}
	return nil
}

// --- Products ---

func (s *Store) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT product_id, name, price, description, category, in_stock, specs
		 FROM products WHERE product_id = $1`, productID)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get product %s: %w", productID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return &p, nil
}

func (s *Store) SearchProducts(ctx context.Context, query, category string, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, name, price, description, category, in_stock, specs
		 FROM products
		 WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR category = $2)
		 ORDER BY name ASC LIMIT $3`, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) ListProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, name, price, description, category, in_stock, specs
		 FROM products WHERE category = $1 ORDER BY name ASC`, category)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) UpsertProduct(ctx context.Context, p *catalog.Product) error {
	specsJSON, err := json.Marshal(p.Specs)
	if err != nil {
		return fmt.Errorf("marshal specs: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO products (product_id, name, price, description, category, in_stock, specs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (product_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   price = EXCLUDED.price,
		   description = EXCLUDED.description,
		   category = EXCLUDED.category,
		   in_stock = EXCLUDED.in_stock,
		   specs = EXCLUDED.specs`,
		p.ProductID, p.Name, p.Price, p.Description, p.Category, p.InStock, specsJSON)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ProductID, err)
	}
	return nil
}

// --- FAQs ---

func (s *Store) GetFAQ(ctx context.Context, topic string) (*catalog.FAQ, error) {
	var f catalog.FAQ
	err := s.pool.QueryRow(ctx,
		`SELECT topic, title, content FROM faqs WHERE topic = $1`, topic,
	).Scan(&f.Topic, &f.Title, &f.Content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get faq %s: %w", topic, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get faq %s: %w", topic, err)
	}
	return &f, nil
}

func (s *Store) UpsertFAQ(ctx context.Context, f *catalog.FAQ) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO faqs (topic, title, content) VALUES ($1, $2, $3)
		 ON CONFLICT (topic) DO UPDATE SET title = EXCLUDED.title, content = EXCLUDED.content`,
		f.Topic, f.Title, f.Content)
	if err != nil {
		return fmt.Errorf("upsert faq %s: %w", f.Topic, err)
	}
	return nil
}

// ListFAQs returns every published FAQ; used by the knowledge indexer.
func (s *Store) ListFAQs(ctx context.Context) ([]catalog.FAQ, error) {
	rows, err := s.pool.Query(ctx, `SELECT topic, title, content FROM faqs ORDER BY topic ASC`)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []catalog.FAQ
	for rows.Next() {
		var f catalog.FAQ
		if err := rows.Scan(&f.Topic, &f.Title, &f.Content); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faqs = append(faqs, f)
	}
	return faqs, rows.Err()
}

// --- Support tickets ---

func (s *Store) CreateTicket(ctx context.Context, t *catalog.Ticket) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tickets (ticket_id, session_id, subject, description, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		t.TicketID, t.SessionID, t.Subject, t.Description, string(t.Status),
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ticket %s: %w", t.TicketID, err)
	}
	return nil
}

// --- Session transcripts ---

func (s *Store) AppendMessage(ctx context.Context, sessionID string, m turn.Message) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
		sessionID, string(m.Role), m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a session in
// chronological order.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]turn.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT role, content, created_at FROM (
		   SELECT role, content, created_at FROM messages
		   WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		 ) recent ORDER BY created_at ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var messages []turn.Message
	for rows.Next() {
		var m turn.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) GetSessionContext(ctx context.Context, sessionID string) (*turn.SessionContext, error) {
	var sc turn.SessionContext
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, COALESCE(last_topic, ''), COALESCE(last_order_id, ''), COALESCE(last_product_id, '')
		 FROM session_contexts WHERE session_id = $1`, sessionID,
	).Scan(&sc.SessionID, &sc.LastTopic, &sc.LastOrderID, &sc.LastProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get session context %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get session context %s: %w", sessionID, err)
	}
	return &sc, nil
}

func (s *Store) SetSessionContext(ctx context.Context, sc *turn.SessionContext) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_contexts (session_id, last_topic, last_order_id, last_product_id)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (session_id) DO UPDATE SET
		   last_topic = EXCLUDED.last_topic,
		   last_order_id = EXCLUDED.last_order_id,
		   last_product_id = EXCLUDED.last_product_id,
		   updated_at = now()`,
		sc.SessionID, sc.LastTopic, sc.LastOrderID, sc.LastProductID)
	if err != nil {
		return fmt.Errorf("set session context %s: %w", sc.SessionID, err)
	}
	return nil
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (catalog.Order, error) {
	var o catalog.Order
	var itemsJSON []byte
	err := row.Scan(&o.OrderID, &o.Status, &itemsJSON, &o.Total, &o.ShippingAddress, &o.TrackingNumber, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if itemsJSON != nil {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return o, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return o, nil
}

func scanProduct(row scannable) (catalog.Product, error) {
	var p catalog.Product
	var specsJSON []byte
	err := row.Scan(&p.ProductID, &p.Name, &p.Price, &p.Description, &p.Category, &p.InStock, &specsJSON)
	if err != nil {
		return p, err
	}
	if specsJSON != nil {
		if err := json.Unmarshal(specsJSON, &p.Specs); err != nil {
			return p, fmt.Errorf("unmarshal product specs: %w", err)
		}
	}
	return p, nil
}
