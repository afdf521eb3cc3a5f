package restclient

import "fmt"

// APIError is a non-2xx response from the backend.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Message is the backend-provided error message, if any.
	Message string
	// Path is the request path that failed.
	Path string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d for %s: %s", e.Status, e.Path, e.Message)
	}
	return fmt.Sprintf("backend returned %d for %s", e.Status, e.Path)
}

// Unauthorized reports whether the error is an HTTP 401.
func (e *APIError) Unauthorized() bool { return e.Status == 401 }
