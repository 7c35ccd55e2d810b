package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTurnStarted   = "turn.started"
	EventTurnStage     = "turn.stage"
	EventTurnCompleted = "turn.completed"
	EventTurnBlocked   = "turn.blocked"
)

// TurnStartedEvent is broadcast when a turn enters the pipeline.
type TurnStartedEvent struct {
	TraceID   string `json:"trace_id"`
	SessionID string `json:"session_id"`
}

// TurnStageEvent is broadcast as a turn moves between pipeline stages.
// It carries stage names only, never draft or response text.
type TurnStageEvent struct {
	TraceID string `json:"trace_id"`
	Stage   string `json:"stage"`
	Target  string `json:"target,omitempty"`
}

// TurnCompletedEvent is broadcast when a turn finishes.
type TurnCompletedEvent struct {
	TraceID    string `json:"trace_id"`
	SessionID  string `json:"session_id"`
	Blocked    bool   `json:"blocked"`
	DurationMS int64  `json:"duration_ms"`
}

// TurnBlockedEvent is broadcast when a turn is refused, with the stage that
// blocked it.
type TurnBlockedEvent struct {
	TraceID   string `json:"trace_id"`
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
