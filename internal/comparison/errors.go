package comparison

import (
	"errors"
	"fmt"

	"github.com/veriscope/console/internal/backend"
)

// Roles of a fetched file
const (
	RoleReference = "reference"
	RoleProvided  = "provided"
)

// FetchError means a stored file could not be downloaded for submission
type FetchError struct {
	Role string
	Noun string
	URL  string
	Err  error
}

// Error reads like "Failed to load reference image: 404 Not Found"
func (e *FetchError) Error() string {
	var apiErr *backend.APIError
	if errors.As(e.Err, &apiErr) {
		return fmt.Sprintf("Failed to load %s %s: %d %s", e.Role, e.Noun, apiErr.StatusCode, apiErr.Status)
	}
	return fmt.Sprintf("Failed to load %s %s", e.Role, e.Noun)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
