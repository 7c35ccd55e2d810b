// Package retrieval defines the semantic-search gateway port.
package retrieval

import "context"

// Passage is one ranked knowledge-base hit.
type Passage struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id"`
}

// Document is one entry to index into the knowledge base.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Gateway is the port interface for the vector-search backend. Search is
// read-only from the pipeline's perspective; Index is used by seeding only.
type Gateway interface {
	Search(ctx context.Context, query string, topK int) ([]Passage, error)
	Index(ctx context.Context, docs []Document) (int, error)
}
