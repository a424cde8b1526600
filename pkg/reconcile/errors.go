package reconcile

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// NewConflictingConfirmation reports an attempt that is already bound to a
// different entity. Terminal; surfaced to the user for manual resolution,
// never auto-resolved.
func NewConflictingConfirmation(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusConflict, format, args...)
}

// NewAttemptNotFound reports a document with no match attempt on record.
func NewAttemptNotFound(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, format, args...)
}

// NewFacilityNotConfirmed reports a dependent lookup made before the
// document's facility binding was confirmed. A guard, not a bug.
func NewFacilityNotConfirmed(format string, args ...any) error {
	return httperror.NewHTTPErrorf(http.StatusPreconditionFailed, format, args...)
}

// IsConflictingConfirmation reports whether err is a confirmation conflict.
func IsConflictingConfirmation(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict
}

// IsAttemptNotFound reports whether err is a missing-attempt failure.
func IsAttemptNotFound(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}

// IsFacilityNotConfirmed reports whether err is the unconfirmed-facility guard.
func IsFacilityNotConfirmed(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusPreconditionFailed
}
