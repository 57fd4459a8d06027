package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	app_errors "prompt-relay/internal/errors"
	"prompt-relay/internal/llm"
)

// ErrorResponse defines the standard JSON structure for error messages.
// Code, Type and Details are only set for provider and unknown failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Type    string `json:"type,omitempty"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}

// NotFoundResponse is returned for unknown routes and unsupported methods.
type NotFoundResponse struct {
	Message string `json:"message" example:"Not Found"`
}

// StatusResponse defines a generic success response.
type StatusResponse struct {
	Status string `json:"status"`
}

// respondWithError maps pipeline errors to HTTP responses. It must only be
// called before any part of the response has been written.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	logger := LoggerFromContext(r.Context()).With("component", chatComponent)

	var perr *llm.ProviderError
	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		respondWithJSON(w, http.StatusNotFound, NotFoundResponse{Message: "Not Found"})
		return
	case errors.Is(err, app_errors.ErrValidation):
		logger.Warn("Rejected invalid request", "error", err)
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.As(err, &perr):
		status := perr.HTTPStatusCode()
		logger.Error("Provider call failed",
			"stage", perr.Stage,
			"status_code", perr.StatusCode,
			"code", perr.Code,
			"error", err,
		)
		resp := ErrorResponse{
			Error: perr.Message,
			Code:  perr.Code,
			Type:  perr.Type,
		}
		if resp.Error == "" {
			resp.Error = perr.Error()
		}
		if len(perr.Body) > 0 {
			resp.Details = perr.Body
		}
		respondWithJSON(w, status, resp)
		return
	default:
		logger.Error("Unhandled error in chat pipeline", "error", err)
		respondWithJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Unknown error",
			Details: err.Error(),
		})
	}
}

// respondWithJSON is a low-level helper for marshaling a payload to JSON
// and writing it to the http.ResponseWriter with a given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	respondWithRawJSON(w, code, response)
}

// respondWithRawJSON writes bytes that are already JSON without re-encoding them.
func respondWithRawJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}
