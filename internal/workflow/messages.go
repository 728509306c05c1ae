package workflow

import (
	"errors"
	"net/http"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/comparison"
	"github.com/veriscope/console/internal/registry"
	apperrors "github.com/veriscope/console/pkg/errors"
)

// TimeoutMessage is shown when a comparison outlives the client deadline
const TimeoutMessage = "Request timed out. The images may be too large or the server is taking too long to process."

// ErrDiscarded is returned to a compare whose session was cleared while it ran
var ErrDiscarded = apperrors.New("COMPARE_DISCARDED", "the session was cleared while the comparison was running", http.StatusConflict)

// MessageFor turns a comparison failure into the message the operator sees.
// Server messages are shown verbatim; transport failures without a message
// get fallback.
func MessageFor(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if backend.IsTimeout(err) {
		return TimeoutMessage
	}

	var fetchErr *comparison.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}

	if backend.IsTransport(err) {
		return fallback
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// compareError carries the operator message with a status the API can return
func compareError(err error, msg string) *apperrors.AppError {
	var fetchErr *comparison.FetchError
	var apiErr *backend.APIError
	switch {
	case backend.IsTimeout(err):
		return apperrors.Timeout(msg)
	case errors.As(err, &fetchErr):
		return apperrors.Upstream(msg, http.StatusBadGateway)
	case errors.As(err, &apiErr):
		return apperrors.Upstream(msg, apiErr.StatusCode)
	case backend.IsTransport(err):
		return apperrors.Network(msg, err)
	}
	return apperrors.Wrap(err, "COMPARE_FAILED", msg, http.StatusBadGateway)
}

func fallbackMessage(kind registry.Kind) string {
	return "Failed to compare " + string(kind) + "s"
}

func missingReferenceMessage(kind registry.Kind) string {
	return "Please select a reference " + kind.Noun()
}

func missingProvidedMessage(kind registry.Kind) string {
	return "Please select at least one provided " + kind.Noun()
}
