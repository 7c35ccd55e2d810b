// Package catalog defines the commerce entities the specialist responders
// look up: orders, products, FAQ topics, and support tickets.
package catalog

import (
	"errors"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Item is one line of an order.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is a customer order.
type Order struct {
	OrderID         string      `json:"order_id"`
	Status          OrderStatus `json:"status"`
	Items           []Item      `json:"items"`
	Total           float64     `json:"total"`
	ShippingAddress string      `json:"shipping_address"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

var (
	// ErrAlreadyDelivered is returned when cancelling a delivered order.
	ErrAlreadyDelivered = errors.New("cannot cancel a delivered order")
	// ErrAlreadyShipped is returned when cancelling a shipped order; the
	// customer must initiate a return instead.
	ErrAlreadyShipped = errors.New("order already shipped; initiate a return instead")
	// ErrAlreadyCancelled is returned when cancelling twice.
	ErrAlreadyCancelled = errors.New("order is already cancelled")
)

// CanCancel reports whether the order may still be cancelled.
func (o *Order) CanCancel() error {
	switch o.Status {
	case OrderDelivered:
		return ErrAlreadyDelivered
	case OrderShipped:
		return ErrAlreadyShipped
	case OrderCancelled:
		return ErrAlreadyCancelled
	default:
		return nil
	}
}

// Product is one catalog entry.
type Product struct {
	ProductID   string            `json:"product_id"`
	Name        string            `json:"name"`
	Price       float64           `json:"price"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	InStock     bool              `json:"in_stock"`
	Specs       map[string]string `json:"specs,omitempty"`
}

// FAQ is a published answer for a support topic.
type FAQ struct {
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is an escalation created on the customer's behalf.
type Ticket struct {
	TicketID    string       `json:"ticket_id"`
	SessionID   string       `json:"session_id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ContactInfo is the brand's published support contact surface.
type ContactInfo struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Hours    string `json:"hours"`
	LiveChat string `json:"live_chat"`
}

// Contact returns the static support contact information.
func Contact() ContactInfo {
	return ContactInfo{
		Phone:    "+1 212 555 0123",
		Email:    "support@techstore.example",
		Hours:    "Monday-Friday 9:00-18:00, Saturday 10:00-14:00",
		LiveChat: "Available on the website during business hours",
	}
}
