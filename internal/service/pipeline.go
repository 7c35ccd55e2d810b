// Package service wires the conversation pipeline: input filter, router,
// specialist responders, independent reviewer, and output filter, driven by
// a strict forward-only state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/safedesk/safedesk/internal/adapter/otel"
	"github.com/safedesk/safedesk/internal/adapter/ws"
	"github.com/safedesk/safedesk/internal/domain/draft"
	"github.com/safedesk/safedesk/internal/domain/filter"
	"github.com/safedesk/safedesk/internal/domain/review"
	"github.com/safedesk/safedesk/internal/domain/route"
	"github.com/safedesk/safedesk/internal/domain/turn"
	"github.com/safedesk/safedesk/internal/logger"
	"github.com/safedesk/safedesk/internal/port/database"
	"github.com/safedesk/safedesk/internal/port/messagequeue"
)

// State is one stage of the turn lifecycle. Transitions are forward-only:
// a turn visits each state at most once and never returns to an earlier one.
type State string

const (
	StateReceived       State = "received"
	StateInputFiltered  State = "input_filtered"
	StateRouted         State = "routed"
	StateResponded      State = "responded"
	StateReviewed       State = "reviewed"
	StateOutputFiltered State = "output_filtered"
	StateCompleted      State = "completed"
	StateBlocked        State = "blocked"
)

// StageRecord is one entry in a turn's trace.
type StageRecord struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// Trace records the full stage history of one turn for observability.
type Trace struct {
	TraceID   string        `json:"trace_id"`
	SessionID string        `json:"session_id"`
	Stages    []StageRecord `json:"stages"`
}

func (t *Trace) advance(state State, note string) {
	t.Stages = append(t.Stages, StageRecord{State: state, At: time.Now().UTC(), Note: note})
}

// Broadcaster publishes ops events to connected dashboards.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// PipelineService orchestrates one conversation turn end to end. Process
// never returns an error: every failure path ends in the deterministic
// refusal response.
type PipelineService struct {
	router     *RouterService
	responders map[route.Target]Responder
	reviewer   *ReviewerService
	store      database.Store
	queue      messagequeue.Queue
	hub        Broadcaster
	metrics    *otel.Metrics
	sem        *semaphore.Weighted
	log        *slog.Logger
}

// NewPipelineService creates a PipelineService. queue, hub, and metrics may
// be nil; the pipeline treats all three as advisory.
func NewPipelineService(
	router *RouterService,
	responders map[route.Target]Responder,
	reviewer *ReviewerService,
	store database.Store,
	queue messagequeue.Queue,
	hub Broadcaster,
	metrics *otel.Metrics,
	maxConcurrent int64,
	log *slog.Logger,
) *PipelineService {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	return &PipelineService{
		router:     router,
		responders: responders,
		reviewer:   reviewer,
		store:      store,
		queue:      queue,
		hub:        hub,
		metrics:    metrics,
		sem:        semaphore.NewWeighted(maxConcurrent),
		log:        log,
	}
}

// Process runs one turn through the pipeline and returns its response and
// trace. A panic anywhere inside resolves to the refusal response.
func (s *PipelineService) Process(ctx context.Context, sessionID, rawText string) (resp *turn.FinalResponse, trace *Trace) {
	t := turn.New(rawText, sessionID)
	ctx = logger.WithTraceID(ctx, t.ID)
	started := time.Now()

	trace = &Trace{TraceID: t.ID, SessionID: sessionID}
	trace.advance(StateReceived, "")

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("pipeline panic", "trace_id", t.ID, "panic", r)
			trace.advance(StateBlocked, "internal failure")
			resp = turn.Refusal(t.ID)
		}
		resp.DurationMS = time.Since(started).Milliseconds()
		s.finish(ctx, t, resp)
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		trace.advance(StateBlocked, "capacity")
		return turn.Refusal(t.ID), trace
	}
	defer s.sem.Release(1)

	if s.metrics != nil {
		s.metrics.TurnsStarted.Add(ctx, 1)
	}
	s.broadcast(ctx, ws.EventTurnStarted, ws.TurnStartedEvent{
		TraceID: t.ID, SessionID: sessionID,
	})

	ctx, span := otel.StartTurnSpan(ctx, t.ID, sessionID)
	defer span.End()

	return s.run(ctx, t, trace)
}

func (s *PipelineService) run(ctx context.Context, t turn.ConversationTurn, trace *Trace) (*turn.FinalResponse, *Trace) {
	// Input filter: deterministic, always first, no model involved.
	verdict := s.stageInputFilter(ctx, t)
	if !verdict.Passed {
		s.publishModeration(ctx, messagequeue.SubjectInputBlocked, t, string(StateInputFiltered), verdict.Reason, verdict.Flags)
		return s.block(ctx, t, trace, StateInputFiltered, verdict.Reason)
	}
	trace.advance(StateInputFiltered, verdict.Reason)
	if verdict.Severity == filter.SeverityWarn {
		s.publishModeration(ctx, messagequeue.SubjectInputFlagged, t, string(StateInputFiltered), verdict.Reason, verdict.Flags)
	}

	// Router: exactly one decision per turn.
	decision := s.stageRoute(ctx, t)
	if decision.Target == route.TargetRefuse {
		return s.block(ctx, t, trace, StateRouted, decision.Rationale)
	}
	trace.advance(StateRouted, string(decision.Target))
	s.rememberEntities(ctx, t.SessionID, decision)

	// Responder: drafts from tools it was constructed with.
	answer, err := s.stageRespond(ctx, t, decision)
	if err != nil {
		s.log.Error("responder failed", "trace_id", t.ID, "target", string(decision.Target), "error", err)
		s.publishModeration(ctx, messagequeue.SubjectResponderFailed, t, string(StateResponded), err.Error(), nil)
		return s.block(ctx, t, trace, StateResponded, "responder failure")
	}
	trace.advance(StateResponded, string(answer.Responder))

	// Reviewer: sees the draft alone, never the raw turn.
	text, reviewNote := s.stageReview(ctx, t, answer)
	if text == "" {
		return s.block(ctx, t, trace, StateReviewed, "review produced no usable text")
	}
	trace.advance(StateReviewed, reviewNote)

	// Output filter: deterministic, always last, after any model text.
	result := s.stageOutputFilter(ctx, text, answer.Responder)
	trace.advance(StateOutputFiltered, "")

	trace.advance(StateCompleted, "")
	return &turn.FinalResponse{
		Text:        result.CleanText,
		Disclaimers: result.Disclaimers,
		TraceID:     t.ID,
	}, trace
}

var errNoResponder = errors.New("no responder registered for target")

func (s *PipelineService) stageInputFilter(ctx context.Context, t turn.ConversationTurn) filter.Verdict {
	ctx, span := otel.StartStageSpan(ctx, string(StateInputFiltered))
	defer span.End()
	return timedStage(ctx, s, string(StateInputFiltered), func() filter.Verdict {
		return filter.EvaluateInput(t.RawText)
	})
}

func (s *PipelineService) stageRoute(ctx context.Context, t turn.ConversationTurn) route.Decision {
	ctx, span := otel.StartStageSpan(ctx, string(StateRouted))
	defer span.End()
	decision := timedStage(ctx, s, string(StateRouted), func() route.Decision {
		return s.router.Route(ctx, t)
	})
	s.broadcast(ctx, ws.EventTurnStage, ws.TurnStageEvent{
		TraceID: t.ID, Stage: string(StateRouted), Target: string(decision.Target),
	})
	return decision
}

func (s *PipelineService) stageRespond(ctx context.Context, t turn.ConversationTurn, decision route.Decision) (*draft.Answer, error) {
	ctx, span := otel.StartStageSpan(ctx, string(StateResponded))
	defer span.End()

	responder, ok := s.responders[decision.Target]
	if !ok {
		return nil, &ResponderFailure{Responder: draft.Domain(decision.Target), Err: errNoResponder}
	}

	start := time.Now()
	answer, err := responder.Respond(ctx, t, decision)
	s.recordStage(ctx, string(StateResponded), time.Since(start))
	if err != nil {
		if s.metrics != nil {
			s.metrics.GatewayErrors.Add(ctx, 1)
		}
		return nil, err
	}
	return answer, nil
}

// stageReview evaluates the draft and returns the text that carries
// forward: the draft itself on approval, the revised text on rejection.
func (s *PipelineService) stageReview(ctx context.Context, t turn.ConversationTurn, answer *draft.Answer) (string, string) {
	ctx, span := otel.StartStageSpan(ctx, string(StateReviewed))
	defer span.End()

	start := time.Now()
	verdict := s.reviewer.Review(ctx, review.NewInput(answer))
	s.recordStage(ctx, string(StateReviewed), time.Since(start))

	if verdict.Approved {
		return answer.Text, "approved"
	}

	if s.metrics != nil {
		s.metrics.ReviewRejected.Add(ctx, 1)
	}
	names := make([]string, 0, len(verdict.Violations))
	for _, v := range verdict.Violations {
		names = append(names, string(v))
	}
	s.publishModeration(ctx, messagequeue.SubjectReviewRejected, t, string(StateReviewed),
		strings.Join(names, ","), nil)

	return verdict.RevisedText, "revised: " + strings.Join(names, ",")
}

func (s *PipelineService) stageOutputFilter(ctx context.Context, text string, responder draft.Domain) filter.OutputResult {
	ctx, span := otel.StartStageSpan(ctx, string(StateOutputFiltered))
	defer span.End()
	return timedStage(ctx, s, string(StateOutputFiltered), func() filter.OutputResult {
		return filter.Output(text, responder)
	})
}

// block terminates the turn with the deterministic refusal.
func (s *PipelineService) block(ctx context.Context, t turn.ConversationTurn, trace *Trace, at State, reason string) (*turn.FinalResponse, *Trace) {
	trace.advance(StateBlocked, reason)
	if s.metrics != nil {
		s.metrics.TurnsBlocked.Add(ctx, 1)
	}
	s.broadcast(ctx, ws.EventTurnBlocked, ws.TurnBlockedEvent{
		TraceID: t.ID, SessionID: t.SessionID, Stage: string(at), Reason: reason,
	})
	s.log.Info("turn blocked", "trace_id", t.ID, "stage", string(at), "reason", reason)
	return turn.Refusal(t.ID), trace
}

// finish persists the transcript and emits completion telemetry. It runs
// for every turn, blocked or not.
func (s *PipelineService) finish(ctx context.Context, t turn.ConversationTurn, resp *turn.FinalResponse) {
	now := time.Now().UTC()
	if err := s.store.AppendMessage(ctx, t.SessionID, turn.Message{
		Role: turn.RoleUser, Content: t.RawText, CreatedAt: t.Timestamp,
	}); err != nil {
		s.log.Warn("transcript append failed", "trace_id", t.ID, "error", err)
	}
	if err := s.store.AppendMessage(ctx, t.SessionID, turn.Message{
		Role: turn.RoleAssistant, Content: resp.Text, CreatedAt: now,
	}); err != nil {
		s.log.Warn("transcript append failed", "trace_id", t.ID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.TurnsCompleted.Add(ctx, 1)
		s.metrics.TurnDuration.Record(ctx, float64(resp.DurationMS)/1000)
	}
	s.broadcast(ctx, ws.EventTurnCompleted, ws.TurnCompletedEvent{
		TraceID: t.ID, SessionID: t.SessionID,
		Blocked: resp.Blocked, DurationMS: resp.DurationMS,
	})
	s.log.Info("turn finished",
		"trace_id", t.ID, "session_id", t.SessionID,
		"blocked", resp.Blocked, "duration_ms", resp.DurationMS)
}

// rememberEntities updates the session context from router entities so
// follow-up turns can resolve "it" and "my order".
func (s *PipelineService) rememberEntities(ctx context.Context, sessionID string, decision route.Decision) {
	sc := &turn.SessionContext{SessionID: sessionID}
	if prev, err := s.store.GetSessionContext(ctx, sessionID); err == nil {
		sc = prev
	}

	changed := false
	if decision.Entities.Topic != "" && decision.Entities.Topic != sc.LastTopic {
		sc.LastTopic = decision.Entities.Topic
		changed = true
	}
	if decision.Entities.OrderID != "" && decision.Entities.OrderID != sc.LastOrderID {
		sc.LastOrderID = strings.ToUpper(decision.Entities.OrderID)
		changed = true
	}
	if decision.Entities.ProductID != "" && decision.Entities.ProductID != sc.LastProductID {
		sc.LastProductID = strings.ToUpper(decision.Entities.ProductID)
		changed = true
	}
	if !changed {
		return
	}
	if err := s.store.SetSessionContext(ctx, sc); err != nil {
		s.log.Warn("session context update failed", "session_id", sessionID, "error", err)
	}
}

// publishModeration emits an advisory moderation event; failures are logged
// and never affect the turn.
func (s *PipelineService) publishModeration(ctx context.Context, subject string, t turn.ConversationTurn, stage, reason string, flags []string) {
	if s.queue == nil {
		return
	}
	ev := messagequeue.ModerationEvent{
		TraceID:   t.ID,
		SessionID: t.SessionID,
		Stage:     stage,
		Reason:    reason,
		Flags:     flags,
	}
	if err := s.queue.PublishModerationEvent(ctx, subject, ev); err != nil {
		s.log.Warn("moderation publish failed", "subject", subject, "error", err)
	}
}

func (s *PipelineService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

// timedStage runs fn and records its duration under the stage name.
func timedStage[T any](ctx context.Context, s *PipelineService, stage string, fn func() T) T {
	start := time.Now()
	out := fn()
	s.recordStage(ctx, stage, time.Since(start))
	return out
}

func (s *PipelineService) recordStage(ctx context.Context, stage string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.StageDuration.Record(ctx, d.Seconds())
	}
	s.log.Debug("stage done", "stage", stage, "duration_ms", d.Milliseconds())
}
