package errors

import "errors"

// This package defines the sentinel errors shared by the service and API layers.
// Services wrap these with %w and the API layer maps them to HTTP responses
// with errors.Is, so no layer below the API needs to know about status codes.

var (
	// ErrNotFound is reported by the router for unknown routes and unsupported
	// methods. It is mapped to a 404 {"message":"Not Found"}.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that the inbound request failed validation.
	// This is mapped to a 400 Bad Request.
	ErrValidation = errors.New("validation failed")

	// ErrProvider signifies that the upstream completion provider failed,
	// either on the expansion call or on the relay call. The concrete
	// llm.ProviderError carries the upstream status and code.
	ErrProvider = errors.New("provider error")

	// ErrInternal signifies an unexpected error on the server.
	ErrInternal = errors.New("internal server error")
)
