// Package messagequeue defines the message queue port and the moderation
// event subjects and payloads published by the pipeline.
package messagequeue

import "context"

// Handler processes a received message.
type Handler func(subject string, data []byte) error

// Queue is the port interface for the message queue.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	PublishModerationEvent(ctx context.Context, subject string, ev ModerationEvent) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}

// Moderation event subjects. A reporting consumer subscribes to
// "moderation.>" to receive all of them.
const (
	SubjectInputBlocked    = "moderation.input.blocked"
	SubjectInputFlagged    = "moderation.input.flagged"
	SubjectReviewRejected  = "moderation.review.rejected"
	SubjectResponderFailed = "moderation.responder.failed"
)

// ModerationEvent is the payload for every moderation subject.
type ModerationEvent struct {
	TraceID   string   `json:"trace_id"`
	SessionID string   `json:"session_id"`
	Stage     string   `json:"stage"`
	Reason    string   `json:"reason,omitempty"`
	Flags     []string `json:"flags,omitempty"`
}
