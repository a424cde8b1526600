package facility

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	facilityrepo "github.com/Ramsey-B/fern/internal/repositories/facility"
	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/lookup"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

const defaultSearchLimit = 10

// Register registers facility registry routes
func Register(g *echo.Group) {
	g.GET("/search", Search)
	g.POST("", Create)
	g.GET("/:facilityID/physicians", ListPhysicians)
	g.POST("/:facilityID/physicians", AddPhysician)
}

// Search is the facility autocomplete endpoint
func Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "facility_handler.Search")
	defer span.End()

	term := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = defaultSearchLimit
	}

	ctx, repo, err := ectoinject.GetContext[*facilityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	facilities, err := repo.Search(ctx, term, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.FacilitySearchResponse{
		Items:      facilities,
		TotalCount: len(facilities),
	})
}

// Create registers a brand-new facility when none of the proposed candidates
// fit. Losing the creation race to a concurrent request degrades into an
// automatic re-match rather than an error.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "facility_handler.Create")
	defer span.End()

	userID := ctxmiddleware.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	var req models.CreateFacilityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconcile service")
	}

	facility, rematch, err := service.CreateFacility(ctx, &req, userID)
	if err != nil {
		return err
	}

	if rematch != nil {
		return c.JSON(http.StatusOK, models.CreateFacilityResponse{Rematch: rematch})
	}
	return c.JSON(http.StatusCreated, models.CreateFacilityResponse{Facility: facility})
}

// ListPhysicians returns the facility's active physician roster
func ListPhysicians(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "facility_handler.ListPhysicians")
	defer span.End()

	facilityID := c.Param("facilityID")

	ctx, service, err := ectoinject.GetContext[*lookup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lookup service")
	}

	resp, err := service.ListPhysicians(ctx, facilityID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// AddPhysician adds a physician to the facility roster
func AddPhysician(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "facility_handler.AddPhysician")
	defer span.End()

	facilityID := c.Param("facilityID")

	var req models.CreatePhysicianRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*lookup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lookup service")
	}

	physician, err := service.AddPhysician(ctx, facilityID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, physician)
}
