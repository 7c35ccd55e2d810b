package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/safedesk/safedesk/internal/adapter/postgres"
	"github.com/safedesk/safedesk/internal/adapter/qdrant"
	"github.com/safedesk/safedesk/internal/config"
	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/service"
)

// runAdmin dispatches admin subcommands (hash-key, seed, migration-version).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "hash-key":
		return runAdminHashKey(args[1:])
	case "seed":
		return runAdminSeed(args[1:])
	case "migration-version":
		return runAdminMigrationVersion()
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: safedesk admin <command> [options]

Commands:
  hash-key           Hash an API key for the auth.key_hashes config list
  seed               Load demo catalog data and index FAQs into the knowledge base
  migration-version  Print the current database migration version
  help               Show this help message

Examples:
  safedesk admin hash-key
  safedesk admin seed --knowledge
  safedesk admin migration-version
`)
}

// runAdminHashKey reads an API key without echo and prints its bcrypt hash.
func runAdminHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ContinueOnError)
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(os.Stderr, "API key: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword(key, *cost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

func runAdminSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	withKnowledge := fs.Bool("knowledge", false, "also index FAQs into the vector store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := postgres.NewStore(pool)
	if err := seedCatalog(ctx, store); err != nil {
		return err
	}
	fmt.Println("catalog seeded")

	if *withKnowledge {
		if cfg.Qdrant.URL == "" {
			return fmt.Errorf("qdrant url not configured")
		}
		kb := qdrant.NewClient(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.Timeout)
		knowledge := service.NewKnowledgeService(kb, nil, 0, slog.Default())
		faqs, err := store.ListFAQs(ctx)
		if err != nil {
			return err
		}
		n, err := knowledge.IndexFAQs(ctx, faqs)
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d knowledge documents\n", n)
	}
	return nil
}

func runAdminMigrationVersion() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	version, err := postgres.MigrationVersion(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func seedCatalog(ctx context.Context, store *postgres.Store) error {
	orders := []catalog.Order{
		{
			OrderID: "ORD-001", Status: catalog.OrderShipped,
			Items:           []catalog.Item{{ProductID: "PROD-101", Name: "UltraBook Pro 15", Quantity: 1, Price: 1299.00}},
			Total:           1299.00,
			ShippingAddress: "100 Main St, Springfield",
			TrackingNumber:  "TRK-48291",
			CreatedAt:       time.Now().AddDate(0, 0, -4),
		},
		{
			OrderID: "ORD-002", Status: catalog.OrderProcessing,
			Items: []catalog.Item{
				{ProductID: "PROD-102", Name: "Wireless Mouse M3", Quantity: 2, Price: 29.90},
				{ProductID: "PROD-103", Name: "Mechanical Keyboard K8", Quantity: 1, Price: 89.00},
			},
			Total:           148.80,
			ShippingAddress: "22 Oak Ave, Riverton",
			CreatedAt:       time.Now().AddDate(0, 0, -1),
		},
		{
			OrderID: "ORD-003", Status: catalog.OrderDelivered,
			Items:           []catalog.Item{{ProductID: "PROD-104", Name: "4K Monitor 27\"", Quantity: 1, Price: 349.00}},
			Total:           349.00,
			ShippingAddress: "7 Pine Rd, Lakewood",
			TrackingNumber:  "TRK-11038",
			CreatedAt:       time.Now().AddDate(0, 0, -10),
		},
	}
	for i := range orders {
		if err := store.CreateOrder(ctx, &orders[i]); err != nil {
			return err
		}
	}

	products := []catalog.Product{
		{ProductID: "PROD-101", Name: "UltraBook Pro 15", Price: 1299.00, Category: "laptops", InStock: true,
			Description: "15-inch laptop with 16 GB RAM and 512 GB SSD.",
			Specs:       map[string]string{"ram": "16 GB", "storage": "512 GB SSD", "screen": "15.6\""}},
		{ProductID: "PROD-102", Name: "Wireless Mouse M3", Price: 29.90, Category: "accessories", InStock: true,
			Description: "Silent wireless mouse with 12-month battery life."},
		{ProductID: "PROD-103", Name: "Mechanical Keyboard K8", Price: 89.00, Category: "accessories", InStock: true,
			Description: "Hot-swappable mechanical keyboard with white backlight."},
		{ProductID: "PROD-104", Name: "4K Monitor 27\"", Price: 349.00, Category: "monitors", InStock: false,
			Description: "27-inch 4K IPS monitor with USB-C input."},
		{ProductID: "PROD-105", Name: "Noise-Cancelling Headphones NC700", Price: 249.00, Category: "audio", InStock: true,
			Description: "Over-ear headphones with active noise cancellation and 30h battery."},
	}
	for i := range products {
		if err := store.UpsertProduct(ctx, &products[i]); err != nil {
			return err
		}
	}

	faqs := []catalog.FAQ{
		{Topic: "return", Title: "Return policy",
			Content: "Items may be returned within 30 days of delivery in their original packaging. Start a return from your account page; a prepaid label is emailed within one business day."},
		{Topic: "refund", Title: "Refund processing",
			Content: "Refunds are issued to the original payment method after the returned item passes inspection, typically within 5-7 business days of arrival at our warehouse."},
		{Topic: "warranty", Title: "Warranty coverage",
			Content: "All electronics carry a 12-month limited warranty covering manufacturing defects. Accidental damage is not covered. Warranty claims require the order number."},
		{Topic: "shipping", Title: "Shipping options",
			Content: "Standard shipping takes 3-5 business days and is free over $50. Express shipping takes 1-2 business days for a flat $12.90 fee."},
		{Topic: "payment", Title: "Payment methods",
			Content: "We accept major credit cards, PayPal, and bank transfer. Payment is captured when the order ships, not when it is placed."},
	}
	for i := range faqs {
		if err := store.UpsertFAQ(ctx, &faqs[i]); err != nil {
			return err
		}
	}
	return nil
}

