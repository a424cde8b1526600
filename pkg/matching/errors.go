package matching

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// NewValidationError reports malformed or missing extracted input. Not
// retryable; the caller must fix the request.
func NewValidationError(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, format, args...)
}

// NewRegistryUnavailable reports a transient registry query failure. Matching
// is read-only, so the whole call is safe to retry.
func NewRegistryUnavailable(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusServiceUnavailable, format, args...)
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusBadRequest
}

// IsRegistryUnavailable reports whether err is a transient registry failure.
func IsRegistryUnavailable(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusServiceUnavailable
}
