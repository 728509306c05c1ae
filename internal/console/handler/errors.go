package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/pkg/errors"
)

// upstream turns a failed API call into an operator-facing error of the form
// "prefix: detail". Errors that already carry a console code pass through.
func upstream(err error, prefix string) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		detail := apiErr.Message
		if detail == "" {
			detail = apiErr.Error()
		}
		return errors.Upstream(prefix+": "+detail, apiErr.StatusCode)
	case backend.IsTimeout(err):
		return errors.Timeout(prefix + ": request timed out")
	case backend.IsTransport(err):
		return errors.Network(prefix+": Network Error", err)
	}
	return errors.Wrap(err, "INTERNAL_ERROR", prefix+": "+err.Error(), http.StatusInternalServerError)
}

func kindParam(r *http.Request) (registry.Kind, error) {
	kind, err := registry.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", errors.BadRequest("kind must be photo or signature")
	}
	return kind, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.BadRequest(name + " must be a number")
	}
	return n, nil
}
