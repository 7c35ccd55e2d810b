package qdrant

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/safedesk/safedesk/internal/domain"
	"github.com/safedesk/safedesk/internal/port/retrieval"
)

func TestSearch(t *testing.T) {
	var got queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if key := r.Header.Get("api-key"); key != "secret" {
			t.Errorf("api-key = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"id":"1","score":0.91,"payload":{"text":"Returns accepted within 30 days.","source":"faq/return"}},
			{"id":"2","score":0.80,"payload":{"source":"faq/empty"}},
			{"id":"3","score":0.75,"payload":{"text":"Refunds take 5-7 business days."}}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "knowledge", 5*time.Second)
	passages, err := c.Search(t.Context(), "return policy", 3)
	if err != nil {
		t.Fatal(err)
	}

	if got.Query.Text != "return policy" || got.Limit != 3 || !got.WithPayload {
		t.Errorf("request = %+v", got)
	}
	// The payload without text is skipped.
	if len(passages) != 2 {
		t.Fatalf("passages = %d, want 2", len(passages))
	}
	if passages[0].SourceID != "faq/return" || passages[0].Score != 0.91 {
		t.Errorf("first passage = %+v", passages[0])
	}
	if passages[1].SourceID != "" {
		t.Errorf("second passage source = %q, want empty", passages[1].SourceID)
	}
}

func TestSearch_DefaultTopK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got queryRequest
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Limit != 3 {
			t.Errorf("limit = %d, want default 3", got.Limit)
		}
		_, _ = w.Write([]byte(`{"result":{"points":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "knowledge", 5*time.Second)
	if _, err := c.Search(t.Context(), "q", 0); err != nil {
		t.Fatal(err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "knowledge", 5*time.Second)
	_, err := c.Search(t.Context(), "q", 3)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Errorf("err = %v, want ErrGatewayUnavailable", err)
	}
}

func TestIndex(t *testing.T) {
	var got upsertRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if wait := r.URL.Query().Get("wait"); wait != "true" {
			t.Errorf("wait = %q", wait)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "knowledge", 5*time.Second)
	n, err := c.Index(t.Context(), []retrieval.Document{
		{Text: "Returns accepted within 30 days.", Metadata: map[string]string{"source": "faq/return"}},
		{Text: "Warranty covers two years."},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("indexed = %d, want 2", n)
	}
	if len(got.Points) != 2 {
		t.Fatalf("points = %d", len(got.Points))
	}
	if got.Points[0].ID == "" || got.Points[0].ID == got.Points[1].ID {
		t.Error("point IDs should be unique and non-empty")
	}
	if got.Points[0].Payload["source"] != "faq/return" {
		t.Errorf("payload = %v", got.Points[0].Payload)
	}

	// Same document always maps to the same point.
	doc := retrieval.Document{Text: "Returns accepted within 30 days.", Metadata: map[string]string{"source": "faq/return"}}
	if pointID(doc) != got.Points[0].ID {
		t.Error("point ID should be stable across re-indexing")
	}
}

func TestIndex_Empty(t *testing.T) {
	c := NewClient("http://unused.invalid", "", "knowledge", time.Second)
	n, err := c.Index(t.Context(), nil)
	if err != nil || n != 0 {
		t.Errorf("Index(nil) = %d, %v", n, err)
	}
}
