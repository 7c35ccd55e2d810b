// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/domain/turn"
)

// Store is the port interface for database operations.
type Store interface {
	// Orders
	GetOrder(ctx context.Context, orderID string) (*catalog.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status catalog.OrderStatus) error

	// Products
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
	SearchProducts(ctx context.Context, query, category string, limit int) ([]catalog.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]catalog.Product, error)
	UpsertProduct(ctx context.Context, p *catalog.Product) error

	// FAQs
	GetFAQ(ctx context.Context, topic string) (*catalog.FAQ, error)
	UpsertFAQ(ctx context.Context, f *catalog.FAQ) error

	// Support tickets
	CreateTicket(ctx context.Context, t *catalog.Ticket) error

	// Session transcripts and remembered entities
	AppendMessage(ctx context.Context, sessionID string, m turn.Message) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]turn.Message, error)
	GetSessionContext(ctx context.Context, sessionID string) (*turn.SessionContext, error)
	SetSessionContext(ctx context.Context, sc *turn.SessionContext) error
}
