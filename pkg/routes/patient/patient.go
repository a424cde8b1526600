package patient

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/lookup"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers patient routes under the facilities group
func Register(g *echo.Group) {
	g.GET("/:facilityID/patients/lookup", Lookup)
	g.GET("/:facilityID/patients/search", Search)
	g.POST("/:facilityID/patients", Create)
}

// RegisterSpecies registers the species reference route
func RegisterSpecies(g *echo.Group) {
	g.GET("", ListSpecies)
}

// Lookup scores registry patients against extracted name fields for auto-fill.
// Requires the document's facility match to be confirmed first.
func Lookup(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "patient_handler.Lookup")
	defer span.End()

	facilityID := c.Param("facilityID")

	var req models.PatientLookupRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*lookup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lookup service")
	}

	resp, err := service.Lookup(ctx, facilityID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Search is the any-field patient autocomplete endpoint
func Search(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "patient_handler.Search")
	defer span.End()

	facilityID := c.Param("facilityID")
	term := c.QueryParam("q")

	ctx, service, err := ectoinject.GetContext[*lookup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lookup service")
	}

	resp, err := service.Search(ctx, facilityID, term)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Create registers a new patient at the facility
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "patient_handler.Create")
	defer span.End()

	facilityID := c.Param("facilityID")

	var req models.CreatePatientRequest
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

	patient, err := service.CreatePatient(ctx, facilityID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, patient)
}

// ListSpecies returns the species reference list for dropdowns
func ListSpecies(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "patient_handler.ListSpecies")
	defer span.End()

	ctx, service, err := ectoinject.GetContext[*lookup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get lookup service")
	}

	species, err := service.ListSpecies(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, species)
}
