package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	app_errors "prompt-relay/internal/errors"
)

// Stages identify which provider call failed.
const (
	StageExpansion  = "expansion"
	StageCompletion = "completion"
	StageStream     = "stream"
)

// ProviderError describes a failed call to the upstream provider, carrying
// whatever status and code information the provider reported.
type ProviderError struct {
	Stage      string
	StatusCode int
	Code       string
	Type       string
	Message    string
	// Body holds the provider's error payload when it was valid JSON.
	Body json.RawMessage
	// Err is the transport error, if the call never produced a response.
	Err error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("llm: %s call failed", e.Stage)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" with status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" (code %s)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap lets callers match any provider failure with errors.Is(err, ErrProvider)
// while still reaching the underlying transport error.
func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{app_errors.ErrProvider, e.Err}
	}
	return []error{app_errors.ErrProvider}
}

// HTTPStatusCode returns the provider status when it is a usable error status,
// otherwise 500.
func (e *ProviderError) HTTPStatusCode() int {
	if e.StatusCode >= 400 && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// newProviderError builds a ProviderError from a raw error body. It understands
// the OpenAI shape {"error":{...}}, the array-wrapped shape some
// OpenAI-compatible gateways return, and a bare {"error":"text"}.
func newProviderError(stage string, status int, body []byte) *ProviderError {
	pe := &ProviderError{Stage: stage, StatusCode: status}

	if gjson.ValidBytes(body) {
		pe.Body = json.RawMessage(body)

		root := gjson.ParseBytes(body)
		if root.IsArray() {
			root = root.Get("0")
		}
		errField := root.Get("error")
		switch {
		case errField.IsObject():
			pe.Message = errField.Get("message").String()
			pe.Code = errField.Get("code").String()
			pe.Type = errField.Get("type").String()
			if pe.Type == "" {
				pe.Type = errField.Get("status").String()
			}
		case errField.Type == gjson.String:
			pe.Message = errField.String()
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		pe.Message = truncate(text, 512)
	}

	if pe.Message == "" && status != 0 {
		pe.Message = http.StatusText(status)
	}
	return pe
}

// fromOpenAIError converts errors returned by the go-openai client.
func fromOpenAIError(stage string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &ProviderError{
			Stage:      stage,
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
		}
		if apiErr.Code != nil {
			pe.Code = fmt.Sprint(apiErr.Code)
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe := newProviderError(stage, reqErr.HTTPStatusCode, reqErr.Body)
		if pe.Message == "" && reqErr.Err != nil {
			pe.Message = reqErr.Err.Error()
		}
		return pe
	}

	return transportError(stage, err)
}

// transportError wraps a failure that happened before any provider response was read.
func transportError(stage string, err error) *ProviderError {
	return &ProviderError{Stage: stage, Message: err.Error(), Err: err}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
