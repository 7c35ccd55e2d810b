// Package qdrant provides an HTTP client for the Qdrant vector store,
// used as the knowledge retrieval backend for FAQ and policy passages.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/port/retrieval"
	"github.com/safedesk/safedesk/internal/resilience"
)

const defaultTimeout = 10 * time.Second

// Client talks to the Qdrant HTTP API for a single collection.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new Qdrant client bound to one collection.
func NewClient(baseURL, apiKey, collection string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type queryRequest struct {
	Query       queryText `json:"query"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

// queryText uses Qdrant's server-side inference: the collection is
// configured with an embedding model, so we send raw text.
type queryText struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Result struct {
		Points []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

// Search queries the collection and returns the top passages ordered by
// similarity score.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]retrieval.Passage, error) {
	if topK <= 0 {
		topK = 3
	}
	body, err := json.Marshal(queryRequest{
		Query:       queryText{Text: query},
		Limit:       topK,
		WithPayload: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	data, err := c.doRequest(ctx, fmt.Sprintf("/collections/%s/points/query", c.collection), body)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal query response: %w", err)
	}

	passages := make([]retrieval.Passage, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		text, _ := p.Payload["text"].(string)
		if text == "" {
			continue
		}
		source, _ := p.Payload["source"].(string)
		passages = append(passages, retrieval.Passage{
			Text:     text,
			Score:    p.Score,
			SourceID: source,
		})
	}
	return passages, nil
}

type upsertRequest struct {
	Points []upsertPoint `json:"points"`
}

type upsertPoint struct {
	ID      string         `json:"id"`
	Payload map[string]any `json:"payload"`
}

// Index upserts documents into the collection and returns the number of
// points written. Point IDs are derived from document content, so
// re-indexing the same document overwrites its existing point.
func (c *Client) Index(ctx context.Context, docs []retrieval.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	points := make([]upsertPoint, 0, len(docs))
	for _, d := range docs {
		payload := map[string]any{"text": d.Text}
		for k, v := range d.Metadata {
			payload[k] = v
		}
		points = append(points, upsertPoint{
			ID:      pointID(d),
			Payload: payload,
		})
	}

	body, err := json.Marshal(upsertRequest{Points: points})
	if err != nil {
		return 0, fmt.Errorf("marshal upsert: %w", err)
	}
	if _, err := c.doRequest(ctx, fmt.Sprintf("/collections/%s/points?wait=true", c.collection), body); err != nil {
		return 0, fmt.Errorf("qdrant index: %w", err)
	}
	return len(points), nil
}

// pointID derives a stable point ID from the document's source and text.
func pointID(d retrieval.Document) string {
	key := d.Metadata["source"] + "\x00" + d.Text
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func (c *Client) doRequest(ctx context.Context, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w: %w", domain.ErrGatewayUnavailable, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("qdrant API error %d: %w", resp.StatusCode, domain.ErrGatewayUnavailable)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("qdrant API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
