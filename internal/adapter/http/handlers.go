package http

import (
	"net/http"
	"strconv"

	"github.com/safedesk/safedesk/internal/adapter/ws"
	"github.com/safedesk/safedesk/internal/port/database"
	"github.com/safedesk/safedesk/internal/service"
)

const maxRequestBodySize = 64 << 10 // 64 KB

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	pipeline *service.PipelineService
	store    database.Store
	hub      *ws.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(pipeline *service.PipelineService, store database.Store, hub *ws.Hub) *Handlers {
	return &Handlers{pipeline: pipeline, store: store, hub: hub}
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// PostMessage runs one customer message through the pipeline. The endpoint
// never returns an error status for pipeline outcomes: a blocked turn is a
// 200 with the refusal body.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	req, ok := readJSON[postMessageRequest](w, r, maxRequestBodySize)
	if !ok {
		return
	}

	resp, _ := h.pipeline.Process(r.Context(), sessionID, req.Text)
	writeJSON(w, http.StatusOK, resp)
}

// GetTranscript returns the most recent transcript messages of a session.
func (h *Handlers) GetTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	messages, err := h.store.RecentMessages(r.Context(), sessionID, limit)
	if err != nil {
		writeDomainError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// GetOrder looks up one order for the support dashboard.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := urlParam(r, "order_id")
	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// SearchProducts searches the catalog for the support dashboard.
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.SearchProducts(r.Context(),
		r.URL.Query().Get("q"), r.URL.Query().Get("category"), 20)
	if err != nil {
		writeDomainError(w, err, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
