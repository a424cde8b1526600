// Package facility persists the canonical facility registry
package facility

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

const columns = "id, facility_code, name, normalized_name, address, city, state, zip, phone, normalized_phone, fax, normalized_fax, email, is_active, created_at, updated_at, deleted_at"

// row carries the persisted shape including the normalized columns that are
// not part of the public model.
type row struct {
	models.Facility
	NormalizedName  string  `db:"normalized_name"`
	NormalizedPhone *string `db:"normalized_phone"`
	NormalizedFax   *string `db:"normalized_fax"`
}

// Repository handles facility registry persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new facility repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a facility by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.Repository.Get")
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM facilities WHERE id = $1 AND deleted_at IS NULL", columns)

	var result row
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("facility %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get facility")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get facility")
	}

	return &result.Facility, nil
}

// FindCandidatesBy bounds the match candidate pool with indexed predicates:
// exact code, trigram-similar normalized name, normalized fax or phone,
// city+state, or zip. At least one predicate must be present.
func (r *Repository) FindCandidatesBy(ctx context.Context, query models.FacilityQuery) ([]models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.Repository.FindCandidatesBy")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("facilities")

	var predicates []string
	if query.FacilityCode != nil {
		predicates = append(predicates, sb.Equal("facility_code", *query.FacilityCode))
	}
	if query.Name != nil {
		// pg_trgm similarity; the threshold is deliberately loose, the
		// scoring tiers decide eligibility
		predicates = append(predicates, fmt.Sprintf("similarity(normalized_name, %s) > 0.3", sb.Var(*query.Name)))
	}
	if query.Fax != nil {
		predicates = append(predicates, sb.Equal("normalized_fax", *query.Fax))
	}
	if query.Phone != nil {
		predicates = append(predicates, sb.Equal("normalized_phone", *query.Phone))
	}
	if query.City != nil && query.State != nil {
		predicates = append(predicates, fmt.Sprintf("(LOWER(city) = LOWER(%s) AND LOWER(state) = LOWER(%s))", sb.Var(*query.City), sb.Var(*query.State)))
	}
	if query.Zip != nil {
		predicates = append(predicates, sb.Equal("zip", *query.Zip))
	}
	if len(predicates) == 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "candidate query requires at least one predicate")
	}

	sb.Where(
		sb.Or(predicates...),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
	)
	sb.OrderBy("id")
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	sb.Limit(limit)

	sql, args := sb.Build()
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query facility candidate pool")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query facility candidates")
	}

	facilities := make([]models.Facility, 0, len(rows))
	for _, row := range rows {
		facilities = append(facilities, row.Facility)
	}
	return facilities, nil
}

// Search performs facility name autocomplete against the normalized name
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.Repository.Search")
	defer span.End()

	normalized := normalizers.NormalizeFacilityName(term)
	if len(normalized) < 2 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "search term must be at least 2 characters")
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns)
	sb.From("facilities")
	sb.Where(
		sb.Or(
			sb.Like("normalized_name", "%"+normalized+"%"),
			fmt.Sprintf("similarity(normalized_name, %s) > 0.3", sb.Var(normalized)),
		),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
	)
	sb.OrderBy(fmt.Sprintf("similarity(normalized_name, %s) DESC", sb.Var(normalized)), "name")
	sb.Limit(limit)

	sql, args := sb.Build()
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search facilities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search facilities")
	}

	facilities := make([]models.Facility, 0, len(rows))
	for _, row := range rows {
		facilities = append(facilities, row.Facility)
	}
	return facilities, nil
}

// Create inserts a new facility. The partial unique index on normalized_name
// makes concurrent creation of the same physical facility race-free; the
// insert does nothing on conflict, and the empty row count surfaces as
// IsDuplicate so the caller can re-match instead of failing.
func (r *Repository) Create(ctx context.Context, facility *models.Facility) (*models.Facility, error) {
	ctx, span := tracing.StartSpan(ctx, "facility.Repository.Create")
	defer span.End()

	if facility.ID == "" {
		facility.ID = uuid.New().String()
	}
	facility.IsActive = true
	facility.CreatedAt = time.Now().UTC()
	facility.UpdatedAt = facility.CreatedAt

	normalizedName := normalizers.NormalizeFacilityName(facility.Name)
	if normalizedName == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "facility name is required")
	}

	ib := database.NewInsertBuilder().InsertInto("facilities").
		Cols("id", "facility_code", "name", "normalized_name", "address", "city", "state", "zip", "phone", "normalized_phone", "fax", "normalized_fax", "email", "is_active", "created_at", "updated_at").
		Values(facility.ID, facility.FacilityCode, facility.Name, normalizedName, facility.Address, facility.City, facility.State, facility.Zip,
			facility.Phone, normalizedPtr(facility.Phone), facility.Fax, normalizedPtr(facility.Fax), facility.Email, facility.IsActive, facility.CreatedAt, facility.UpdatedAt).
		OnConflictDoNothing()

	query, args := ib.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"facility_id": facility.ID}).Error("Failed to create facility")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create facility")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create facility")
	}
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("facility %q already exists", facility.Name))
	}

	return facility, nil
}

// IsDuplicate reports whether err is the unique-constraint outcome of Create,
// meaning another request just created the same facility.
func IsDuplicate(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict
}

func normalizedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	normalized := normalizers.NormalizePhone(*s)
	if normalized == "" {
		return nil
	}
	return &normalized
}
