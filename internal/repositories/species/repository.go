// Package species persists the species reference data
package species

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository handles species reference data
type Repository struct {
	db     database.DB
	logger ectologger.Logger

	mu      sync.RWMutex
	humanID string
}

// NewRepository creates a new species repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all species in name order
func (r *Repository) List(ctx context.Context) ([]models.Species, error) {
	ctx, span := tracing.StartSpan(ctx, "species.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "is_human")
	sb.From("species")
	sb.OrderBy("name")

	query, args := sb.Build()
	var result []models.Species
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list species")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list species")
	}

	return result, nil
}

// HumanSpeciesID returns the id of the human species row, cached after the
// first lookup. Empty string when no human species is configured.
func (r *Repository) HumanSpeciesID(ctx context.Context) (string, error) {
	r.mu.RLock()
	if r.humanID != "" {
		id := r.humanID
		r.mu.RUnlock()
		return id, nil
	}
	r.mu.RUnlock()

	ctx, span := tracing.StartSpan(ctx, "species.Repository.HumanSpeciesID")
	defer span.End()

	var id string
	err := r.db.GetContext(ctx, &id, "SELECT id FROM species WHERE is_human = TRUE LIMIT 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up human species")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up human species")
	}

	r.mu.Lock()
	r.humanID = id
	r.mu.Unlock()
	return id, nil
}
