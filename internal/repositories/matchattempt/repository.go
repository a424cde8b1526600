// Package matchattempt persists the append-only reconciliation audit trail
package matchattempt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const columns = "id, document_id, extracted, candidates, matched_entity_id, confidence, method, status, confirmed_by, confirmed_at, created_at"

// row is the persisted attempt shape. The extracted snapshot and ranked
// candidate list are stored as JSONB so the audit row is self-contained.
type row struct {
	ID              string                                   `db:"id"`
	DocumentID      string                                   `db:"document_id"`
	Extracted       database.JSONB[models.ExtractedFields]   `db:"extracted"`
	Candidates      database.JSONB[[]models.MatchCandidate]  `db:"candidates"`
	MatchedEntityID *string                                  `db:"matched_entity_id"`
	Confidence      *float64                                 `db:"confidence"`
	Method          *string                                  `db:"method"`
	Status          models.AttemptStatus                     `db:"status"`
	ConfirmedBy     *string                                  `db:"confirmed_by"`
	ConfirmedAt     *time.Time                               `db:"confirmed_at"`
	CreatedAt       time.Time                                `db:"created_at"`
}

func (r row) toModel() models.MatchAttempt {
	return models.MatchAttempt{
		ID:              r.ID,
		DocumentID:      r.DocumentID,
		Extracted:       r.Extracted.GetValue(),
		Candidates:      r.Candidates.GetValue(),
		MatchedEntityID: r.MatchedEntityID,
		Confidence:      r.Confidence,
		Method:          r.Method,
		Status:          r.Status,
		ConfirmedBy:     r.ConfirmedBy,
		ConfirmedAt:     r.ConfirmedAt,
		CreatedAt:       r.CreatedAt,
	}
}

// Repository handles match attempt persistence. Attempts are append-only; the
// only mutation ever applied is the single proposed -> terminal transition.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match attempt repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes a new proposed attempt row
func (r *Repository) Append(ctx context.Context, attempt *models.MatchAttempt) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.Append")
	defer span.End()

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	attempt.Status = models.AttemptStatusProposed
	attempt.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_attempts")
	sb.Cols("id", "document_id", "extracted", "candidates", "matched_entity_id", "confidence", "method", "status", "created_at")
	sb.Values(attempt.ID, attempt.DocumentID,
		database.JSONB[models.ExtractedFields]{Data: attempt.Extracted},
		database.JSONB[[]models.MatchCandidate]{Data: attempt.Candidates},
		attempt.MatchedEntityID, attempt.Confidence, attempt.Method, attempt.Status, attempt.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"attempt_id": attempt.ID, "document_id": attempt.DocumentID}).Error("Failed to append match attempt")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record match attempt")
	}

	return attempt, nil
}

// Get retrieves an attempt by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.Get")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM match_attempts WHERE id = $1", columns)

	var result row
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match attempt %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match attempt")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match attempt")
	}

	attempt := result.toModel()
	return &attempt, nil
}

// GetLatestByDocument retrieves the most recent attempt for a document.
// Returns nil without error when the document has never been matched.
func (r *Repository) GetLatestByDocument(ctx context.Context, documentID string) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.GetLatestByDocument")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM match_attempts WHERE document_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1", columns)

	var result row
	if err := r.db.GetContext(ctx, &result, query, documentID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest match attempt")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest match attempt")
	}

	attempt := result.toModel()
	return &attempt, nil
}

// GetConfirmedByDocument retrieves the confirmed attempt for a document, or
// nil when no attempt has been confirmed.
func (r *Repository) GetConfirmedByDocument(ctx context.Context, documentID string) (*models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.GetConfirmedByDocument")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM match_attempts WHERE document_id = $1 AND status = $2 ORDER BY confirmed_at DESC LIMIT 1", columns)

	var result row
	if err := r.db.GetContext(ctx, &result, query, documentID, models.AttemptStatusConfirmed); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get confirmed match attempt")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get confirmed match attempt")
	}

	attempt := result.toModel()
	return &attempt, nil
}

// ListByDocument retrieves a document's full attempt history, newest first
func (r *Repository) ListByDocument(ctx context.Context, documentID string) ([]models.MatchAttempt, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.ListByDocument")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM match_attempts WHERE document_id = $1 ORDER BY created_at DESC, id DESC", columns)

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, documentID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match attempts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match attempts")
	}

	attempts := make([]models.MatchAttempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.toModel())
	}
	return attempts, nil
}

// Transition applies the single proposed -> terminal state change. The WHERE
// on status makes the check-then-write atomic: of two concurrent
// confirmations only one sees rows=1; the other gets false and must re-read
// the row to decide whether the outcome it wanted already holds.
func (r *Repository) Transition(ctx context.Context, attemptID string, to models.AttemptStatus, matchedEntityID *string, confidence *float64, method *string, userID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "matchattempt.Repository.Transition")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE match_attempts
		SET status = $1, matched_entity_id = COALESCE($2, matched_entity_id), confidence = COALESCE($3, confidence), method = COALESCE($4, method), confirmed_by = $5, confirmed_at = $6
		WHERE id = $7 AND status = $8
	`

	result, err := r.db.ExecContext(ctx, query, to, matchedEntityID, confidence, method, userID, now, attemptID, models.AttemptStatusProposed)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"attempt_id": attemptID}).Error("Failed to transition match attempt")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to transition match attempt")
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}
