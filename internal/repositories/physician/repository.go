// Package physician persists facility physician rosters
package physician

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const columns = "id, facility_id, name, normalized_name, npi, specialty, phone, email, is_active, created_at, updated_at, deleted_at"

// Repository handles physician persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new physician repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListByFacility retrieves a facility's active physicians in name order
func (r *Repository) ListByFacility(ctx context.Context, facilityID string) ([]models.Physician, error) {
	ctx, span := tracing.StartSpan(ctx, "physician.Repository.ListByFacility")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("facility_physicians")
	sb.Where(
		sb.Equal("facility_id", facilityID),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("name")

	query, args := sb.Build()
	var physicians []models.Physician
	if err := r.db.SelectContext(ctx, &physicians, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list physicians")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list physicians")
	}

	return physicians, nil
}

// Create adds a physician to a facility. The (facility_id, normalized_name)
// unique index keeps the roster free of duplicates under concurrent adds.
func (r *Repository) Create(ctx context.Context, physician *models.Physician) (*models.Physician, error) {
	ctx, span := tracing.StartSpan(ctx, "physician.Repository.Create")
	defer span.End()

	if physician.ID == "" {
		physician.ID = uuid.New().String()
	}
	physician.NormalizedName = normalizers.NormalizeName(physician.Name)
	if physician.NormalizedName == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "physician name is required")
	}
	physician.IsActive = true
	physician.CreatedAt = time.Now().UTC()
	physician.UpdatedAt = physician.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("facility_physicians")
	sb.Cols("id", "facility_id", "name", "normalized_name", "npi", "specialty", "phone", "email", "is_active", "created_at", "updated_at")
	sb.Values(physician.ID, physician.FacilityID, physician.Name, physician.NormalizedName, physician.NPI, physician.Specialty, physician.Phone, physician.Email, physician.IsActive, physician.CreatedAt, physician.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("physician %q already exists at this facility", physician.Name))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"physician_id": physician.ID}).Error("Failed to create physician")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create physician")
	}

	return physician, nil
}

// IsDuplicate reports whether err is the unique-constraint outcome of Create.
func IsDuplicate(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict
}
