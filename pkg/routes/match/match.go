package match

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxmiddleware "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/reconcile"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// Register registers the per-document reconciliation routes
func Register(g *echo.Group) {
	g.POST("/:documentID/match", Run)
	g.POST("/:documentID/confirm", Confirm)
	g.POST("/:documentID/reject", Reject)
	g.POST("/:documentID/reprocess", Reprocess)
	g.GET("/:documentID/attempts", History)
}

// Run scores the extracted fields against the registry and proposes an attempt
func Run(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.Run")
	defer span.End()

	documentID := c.Param("documentID")

	var extracted models.ExtractedFields
	if err := c.Bind(&extracted); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, service, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconcile service")
	}

	attempt, result, err := service.Propose(ctx, documentID, &extracted)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MatchRunResponse{
		Attempt: attempt,
		Result:  result,
	})
}

// Confirm binds the document to the chosen facility
func Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.Confirm")
	defer span.End()

	userID := ctxmiddleware.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	documentID := c.Param("documentID")

	var req models.ConfirmRequest
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

	attempt, err := service.Confirm(ctx, documentID, req.FacilityID, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, attempt)
}

// Reject marks the latest attempt rejected ("none of these")
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.Reject")
	defer span.End()

	userID := ctxmiddleware.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user id is required")
	}

	documentID := c.Param("documentID")

	ctx, service, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconcile service")
	}

	attempt, err := service.Reject(ctx, documentID, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, attempt)
}

// Reprocess re-runs matching against current registry state
func Reprocess(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.Reprocess")
	defer span.End()

	documentID := c.Param("documentID")

	ctx, service, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconcile service")
	}

	attempt, result, err := service.Reprocess(ctx, documentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MatchRunResponse{
		Attempt: attempt,
		Result:  result,
	})
}

// History returns the document's full attempt audit trail
func History(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "match_handler.History")
	defer span.End()

	documentID := c.Param("documentID")

	ctx, service, err := ectoinject.GetContext[*reconcile.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reconcile service")
	}

	attempts, err := service.History(ctx, documentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.MatchAttemptListResponse{
		Items:      attempts,
		TotalCount: len(attempts),
	})
}
