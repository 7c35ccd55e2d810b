package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/safedesk/safedesk/internal/domain/catalog"
	"github.com/safedesk/safedesk/internal/port/cache"
	"github.com/safedesk/safedesk/internal/port/retrieval"
)

// KnowledgeService fronts the vector store with an in-process cache.
// It holds published knowledge only (FAQ and policy passages); nothing
// produced within a turn is stored here.
type KnowledgeService struct {
	retrieval retrieval.Gateway
	cache     cache.Cache
	ttl       time.Duration
	log       *slog.Logger
}

// NewKnowledgeService creates a KnowledgeService. cache may be nil to
// disable caching.
func NewKnowledgeService(gw retrieval.Gateway, c cache.Cache, ttl time.Duration, log *slog.Logger) *KnowledgeService {
	return &KnowledgeService{retrieval: gw, cache: c, ttl: ttl, log: log}
}

// SearchPassages returns the top knowledge passages for a query, serving
// from cache when possible. Retrieval failure returns an empty result, not
// an error: knowledge is an enrichment, never a hard dependency.
func (s *KnowledgeService) SearchPassages(ctx context.Context, query string, topK int) []retrieval.Passage {
	key := fmt.Sprintf("kb:%d:%s", topK, query)

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var passages []retrieval.Passage
			if err := json.Unmarshal(data, &passages); err == nil {
				return passages
			}
		}
	}

	passages, err := s.retrieval.Search(ctx, query, topK)
	if err != nil {
		s.log.Warn("knowledge search unavailable", "error", err)
		return nil
	}

	if s.cache != nil && len(passages) > 0 {
		if data, err := json.Marshal(passages); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Debug("knowledge cache set failed", "error", err)
			}
		}
	}
	return passages
}

// IndexFAQs writes FAQ entries into the vector store so they become
// retrievable. Used by seeding and content updates.
func (s *KnowledgeService) IndexFAQs(ctx context.Context, faqs []catalog.FAQ) (int, error) {
	docs := make([]retrieval.Document, 0, len(faqs))
	for _, f := range faqs {
		docs = append(docs, retrieval.Document{
			Text: f.Title + "\n" + f.Content,
			Metadata: map[string]string{
				"source": "faq/" + f.Topic,
				"topic":  f.Topic,
			},
		})
	}
	n, err := s.retrieval.Index(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("index faqs: %w", err)
	}
	return n, nil
}
