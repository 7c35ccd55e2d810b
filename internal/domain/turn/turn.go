// Package turn defines the immutable per-request records that flow through
// the conversation pipeline: the inbound ConversationTurn, the transcript
// Message, and the FinalResponse returned to the caller.
package turn

import (
	"time"

	"github.com/google/uuid"
)

// RefusalText is the fixed deterministic template emitted on every blocked
// turn. Blocked responses must never carry model-generated text, so this is
// the only text a FinalResponse with Blocked=true may contain.
const RefusalText = "I'm sorry, but I can't process that request. " +
	"Please rephrase your question and I'll be happy to help you " +
	"with orders, products, or general support."

// ConversationTurn is one inbound customer message. It is created once at
// pipeline entry and never mutated.
type ConversationTurn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	RawText   string    `json:"raw_text"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a ConversationTurn for the given raw text and session.
func New(rawText, sessionID string) ConversationTurn {
	return ConversationTurn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		RawText:   rawText,
		Timestamp: time.Now().UTC(),
	}
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session transcript.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionContext holds entities remembered across turns of one session.
// It feeds the router's context summary; it never reaches the reviewer.
type SessionContext struct {
	SessionID     string `json:"session_id"`
	LastTopic     string `json:"last_topic,omitempty"`
	LastOrderID   string `json:"last_order_id,omitempty"`
	LastProductID string `json:"last_product_id,omitempty"`
}

// FinalResponse is the only artifact returned to the caller. Every call to
// the pipeline yields exactly one of these, blocked or not.
type FinalResponse struct {
	Text        string   `json:"text"`
	Disclaimers []string `json:"disclaimers,omitempty"`
	Blocked     bool     `json:"blocked"`
	TraceID     string   `json:"trace_id"`
	DurationMS  int64    `json:"duration_ms"`
}

// Refusal builds the deterministic blocked response for a trace.
func Refusal(traceID string) *FinalResponse {
	return &FinalResponse{
		Text:    RefusalText,
		Blocked: true,
		TraceID: traceID,
	}
}
