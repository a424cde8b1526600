// Package events handles event emission for reconciliation lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Emitter publishes reconciliation lifecycle events. A nil producer makes
// every emit a no-op, so event emission can be disabled in tests and local
// runs without branching at call sites.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMatchProposed emits a match.proposed event with the ranked result
func (e *Emitter) EmitMatchProposed(ctx context.Context, attempt *models.MatchAttempt, result *models.MatchResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchProposed")
	defer span.End()

	data, _ := json.Marshal(result)
	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "match.proposed",
		DocumentID: attempt.DocumentID,
		AttemptID:  attempt.ID,
		Data:       data,
	})
}

// EmitMatchConfirmed emits a match.confirmed event
func (e *Emitter) EmitMatchConfirmed(ctx context.Context, attempt *models.MatchAttempt, entityID, userID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchConfirmed")
	defer span.End()

	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "match.confirmed",
		DocumentID: attempt.DocumentID,
		AttemptID:  attempt.ID,
		EntityID:   entityID,
		UserID:     userID,
	})
}

// EmitMatchRejected emits a match.rejected event
func (e *Emitter) EmitMatchRejected(ctx context.Context, attempt *models.MatchAttempt, userID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchRejected")
	defer span.End()

	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "match.rejected",
		DocumentID: attempt.DocumentID,
		AttemptID:  attempt.ID,
		UserID:     userID,
	})
}

// EmitFacilityCreated emits a facility.created event
func (e *Emitter) EmitFacilityCreated(ctx context.Context, facility *models.Facility, documentID, userID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitFacilityCreated")
	defer span.End()

	data, _ := json.Marshal(facility)
	e.publish(ctx, &kafka.ReconciliationEvent{
		EventType:  "facility.created",
		DocumentID: documentID,
		EntityID:   facility.ID,
		UserID:     userID,
		Data:       data,
	})
}

// publish is best-effort: reconciliation state is already durable in the
// registry before any event is emitted, so a broker outage must not fail the
// user's request.
func (e *Emitter) publish(ctx context.Context, event *kafka.ReconciliationEvent) {
	if e.producer == nil {
		return
	}
	if err := e.producer.PublishReconciliationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("event_type", event.EventType).Error("Failed to emit reconciliation event")
	}
}
