// Package reconcile implements the match attempt state machine: propose,
// confirm, reject, reprocess, and race-safe new-facility creation.
package reconcile

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Matcher runs the full match pipeline for one document's extracted fields
type Matcher interface {
	Match(ctx context.Context, extracted *models.ExtractedFields) (*models.MatchResult, error)
}

// AttemptStore is the append-only attempt persistence. Transition must be an
// atomic check-then-write against status=proposed, returning false when the
// row already left the proposed state.
type AttemptStore interface {
	Append(ctx context.Context, attempt *models.MatchAttempt) (*models.MatchAttempt, error)
	Get(ctx context.Context, id string) (*models.MatchAttempt, error)
	GetLatestByDocument(ctx context.Context, documentID string) (*models.MatchAttempt, error)
	GetConfirmedByDocument(ctx context.Context, documentID string) (*models.MatchAttempt, error)
	ListByDocument(ctx context.Context, documentID string) ([]models.MatchAttempt, error)
	Transition(ctx context.Context, attemptID string, to models.AttemptStatus, matchedEntityID *string, confidence *float64, method *string, userID string) (bool, error)
}

// FacilityRegistry is the write side of the canonical registry used for
// "none of these" creation.
type FacilityRegistry interface {
	Create(ctx context.Context, facility *models.Facility) (*models.Facility, error)
}

// Service is the sole writer of match attempts
type Service struct {
	matcher    Matcher
	attempts   AttemptStore
	facilities FacilityRegistry
	emitter    *events.Emitter
	logger     ectologger.Logger
}

// NewService creates a new reconciliation service
func NewService(matcher Matcher, attempts AttemptStore, facilities FacilityRegistry, emitter *events.Emitter, logger ectologger.Logger) *Service {
	return &Service{
		matcher:    matcher,
		attempts:   attempts,
		facilities: facilities,
		emitter:    emitter,
		logger:     logger,
	}
}

// Propose runs the match pipeline and appends a proposed attempt carrying the
// extracted snapshot and the ranked candidate list. Always appends; prior
// attempts for the document are never mutated.
func (s *Service) Propose(ctx context.Context, documentID string, extracted *models.ExtractedFields) (*models.MatchAttempt, *models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.Propose")
	defer span.End()

	result, err := s.matcher.Match(ctx, extracted)
	if err != nil {
		return nil, nil, err
	}

	attempt := &models.MatchAttempt{
		DocumentID: documentID,
		Extracted:  *extracted,
		Candidates: result.Candidates,
	}
	if len(result.Candidates) > 0 {
		top := result.Candidates[0]
		attempt.Confidence = &top.Confidence
		method := string(top.Method)
		attempt.Method = &method
	}

	attempt, err = s.attempts.Append(ctx, attempt)
	if err != nil {
		return nil, nil, err
	}

	s.emitter.EmitMatchProposed(ctx, attempt, result)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id":     documentID,
		"attempt_id":      attempt.ID,
		"candidates":      len(result.Candidates),
		"high_confidence": result.HasHighConfidenceMatch,
	}).Info("Match attempt proposed")

	return attempt, result, nil
}

// Confirm binds the document to the chosen facility via its latest attempt.
// Valid only from proposed; re-confirming the already-confirmed facility is an
// idempotent no-op, any other facility is a conflict. The conflict check is
// document-wide: reprocessing appends fresh proposed attempts but never
// releases an existing confirmation.
func (s *Service) Confirm(ctx context.Context, documentID, facilityID, userID string) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.Confirm")
	defer span.End()

	prior, err := s.attempts.GetConfirmedByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return s.resolveConfirmed(prior, facilityID)
	}

	attempt, err := s.attempts.GetLatestByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, NewAttemptNotFound("document %s has no match attempt", documentID)
	}

	switch attempt.Status {
	case models.AttemptStatusConfirmed:
		return s.resolveConfirmed(attempt, facilityID)
	case models.AttemptStatusRejected:
		return nil, NewConflictingConfirmation("match attempt %s was already rejected", attempt.ID)
	}

	confidence, method := s.chosenCandidateEvidence(attempt, facilityID)
	ok, err := s.attempts.Transition(ctx, attempt.ID, models.AttemptStatusConfirmed, &facilityID, confidence, method, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: another request transitioned the attempt first.
		// Re-read and decide whether the outcome we wanted already holds.
		current, err := s.attempts.Get(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.AttemptStatusConfirmed {
			return s.resolveConfirmed(current, facilityID)
		}
		return nil, NewConflictingConfirmation("match attempt %s was already rejected", attempt.ID)
	}

	confirmed, err := s.attempts.Get(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	s.emitter.EmitMatchConfirmed(ctx, confirmed, facilityID, userID)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id": documentID,
		"attempt_id":  attempt.ID,
		"facility_id": facilityID,
		"user_id":     userID,
	}).Info("Match attempt confirmed")

	return confirmed, nil
}

// Reject marks the document's latest attempt rejected so the document
// proceeds to new-entity creation without re-scoring. Idempotent.
func (s *Service) Reject(ctx context.Context, documentID, userID string) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.Reject")
	defer span.End()

	attempt, err := s.attempts.GetLatestByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, NewAttemptNotFound("document %s has no match attempt", documentID)
	}

	switch attempt.Status {
	case models.AttemptStatusRejected:
		return attempt, nil
	case models.AttemptStatusConfirmed:
		return nil, NewConflictingConfirmation("match attempt %s was already confirmed", attempt.ID)
	}

	ok, err := s.attempts.Transition(ctx, attempt.ID, models.AttemptStatusRejected, nil, nil, nil, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.attempts.Get(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.AttemptStatusRejected {
			return current, nil
		}
		return nil, NewConflictingConfirmation("match attempt %s was already confirmed", attempt.ID)
	}

	rejected, err := s.attempts.Get(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}

	s.emitter.EmitMatchRejected(ctx, rejected, userID)
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"document_id": documentID,
		"attempt_id":  attempt.ID,
		"user_id":     userID,
	}).Info("Match attempt rejected")

	return rejected, nil
}

// Reprocess re-runs the full pipeline against current registry state using
// the latest attempt's extracted snapshot and appends a NEW attempt,
// preserving the history of how confidence evolved. Safe to retry.
func (s *Service) Reprocess(ctx context.Context, documentID string) (*models.MatchAttempt, *models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.Reprocess")
	defer span.End()

	latest, err := s.attempts.GetLatestByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if latest == nil {
		return nil, nil, NewAttemptNotFound("document %s has no match attempt to reprocess", documentID)
	}

	extracted := latest.Extracted
	return s.Propose(ctx, documentID, &extracted)
}

// CreateFacility handles "none of these": register a brand-new facility for
// the document. A unique-constraint loss means another request just created
// the same facility; that converts into an automatic re-match instead of an
// error, so the caller receives the freshly created entity either way.
func (s *Service) CreateFacility(ctx context.Context, req *models.CreateFacilityRequest, userID string) (*models.Facility, *models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.CreateFacility")
	defer span.End()

	facility := &models.Facility{
		FacilityCode: req.FacilityCode,
		Name:         req.Name,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Zip:          req.Zip,
		Phone:        req.Phone,
		Fax:          req.Fax,
		Email:        req.Email,
	}

	created, err := s.facilities.Create(ctx, facility)
	if err != nil {
		if isDuplicateEntity(err) {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"document_id": req.DocumentID,
				"name":        req.Name,
			}).Info("Facility created concurrently elsewhere, re-matching")
			_, result, rematchErr := s.Reprocess(ctx, req.DocumentID)
			if rematchErr != nil {
				return nil, nil, rematchErr
			}
			return nil, result, nil
		}
		return nil, nil, err
	}

	s.emitter.EmitFacilityCreated(ctx, created, req.DocumentID, userID)
	return created, nil, nil
}

// History returns the document's full attempt audit trail, newest first.
func (s *Service) History(ctx context.Context, documentID string) ([]models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.History")
	defer span.End()

	return s.attempts.ListByDocument(ctx, documentID)
}

// ConfirmedFacilityID returns the confirmed facility binding for a document,
// or the FacilityNotConfirmed guard when no confirmation exists yet.
func (s *Service) ConfirmedFacilityID(ctx context.Context, documentID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Service.ConfirmedFacilityID")
	defer span.End()

	attempt, err := s.attempts.GetConfirmedByDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if attempt == nil || attempt.MatchedEntityID == nil {
		return "", NewFacilityNotConfirmed("document %s has no confirmed facility", documentID)
	}
	return *attempt.MatchedEntityID, nil
}

func (s *Service) resolveConfirmed(attempt *models.MatchAttempt, facilityID string) (*models.MatchAttempt, error) {
	if attempt.MatchedEntityID != nil && *attempt.MatchedEntityID == facilityID {
		return attempt, nil
	}
	return nil, NewConflictingConfirmation("match attempt %s is already confirmed to a different facility", attempt.ID)
}

// chosenCandidateEvidence pulls the confidence and method recorded for the
// chosen facility at match time. Confidence is never edited by a user; a
// manually selected facility outside the candidate list carries none.
func (s *Service) chosenCandidateEvidence(attempt *models.MatchAttempt, facilityID string) (*float64, *string) {
	for _, c := range attempt.Candidates {
		if c.FacilityID == facilityID {
			confidence := c.Confidence
			method := string(c.Method)
			return &confidence, &method
		}
	}
	manual := "manual"
	return nil, &manual
}

func isDuplicateEntity(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict
}
