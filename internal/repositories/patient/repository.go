// Package patient persists facility patient records
package patient

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
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const columns = "id, facility_id, mrn, owner_first_name, owner_last_name, pet_name, species_id, date_of_birth, is_active, created_at, updated_at, deleted_at"

// Repository handles patient persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new patient repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByMRN retrieves a facility patient by medical record number. Returns nil
// without error when no patient carries the MRN.
func (r *Repository) GetByMRN(ctx context.Context, facilityID, mrn string) (*models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.GetByMRN")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM patients WHERE facility_id = $1 AND mrn = $2 AND deleted_at IS NULL LIMIT 1", columns)

	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, facilityID, mrn); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get patient by MRN")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}

	return &patient, nil
}

// FindCandidates bounds the lookup pool to a facility's active patients whose
// owner last name is trigram-similar to the search value.
func (r *Repository) FindCandidates(ctx context.Context, facilityID, ownerLastName string, limit int) ([]models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.FindCandidates")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	normalized := normalizers.NormalizeName(ownerLastName)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("patients")
	sb.Where(
		sb.Equal("facility_id", facilityID),
		fmt.Sprintf("similarity(LOWER(owner_last_name), %s) > 0.3", sb.Var(normalized)),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query patient candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query patient candidates")
	}

	return patients, nil
}

// Search retrieves a facility's patients where any of owner last name, owner
// first name, pet name, or MRN matches the term. Backing query for the
// any-field search endpoint; scoring happens in the lookup service.
func (r *Repository) Search(ctx context.Context, facilityID, term string, limit int) ([]models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.Search")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}
	normalized := normalizers.NormalizeName(term)
	pattern := "%" + normalized + "%"

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("patients")
	sb.Where(
		sb.Equal("facility_id", facilityID),
		sb.Or(
			sb.ILike("owner_last_name", pattern),
			sb.ILike("owner_first_name", pattern),
			sb.ILike("pet_name", pattern),
			sb.Equal("mrn", term),
		),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("owner_last_name", "id")
	sb.Limit(limit)

	query, args := sb.Build()
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search patients")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search patients")
	}

	return patients, nil
}

// Create registers a patient at a facility
func (r *Repository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	ctx, span := tracing.StartSpan(ctx, "patient.Repository.Create")
	defer span.End()

	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	patient.IsActive = true
	patient.CreatedAt = time.Now().UTC()
	patient.UpdatedAt = patient.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("patients")
	sb.Cols("id", "facility_id", "mrn", "owner_first_name", "owner_last_name", "pet_name", "species_id", "date_of_birth", "is_active", "created_at", "updated_at")
	sb.Values(patient.ID, patient.FacilityID, patient.MRN, patient.OwnerFirstName, patient.OwnerLastName, patient.PetName, patient.SpeciesID, patient.DateOfBirth, patient.IsActive, patient.CreatedAt, patient.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"patient_id": patient.ID}).Error("Failed to create patient")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create patient")
	}

	return patient, nil
}
