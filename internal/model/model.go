package model

import "encoding/json"

// Relay defaults applied when the client omits the corresponding field.
const (
	DefaultMaxTokens   = 150
	DefaultTemperature = 0.7
)

// ChatRequest is the inbound chat-completion payload. Messages are kept as raw
// JSON so fields other than role and content reach the provider untouched.
// Model and Call are accepted for compatibility and ignored; any other
// top-level field is dropped during decoding. MaxTokens is decoded as a
// number so that integral values such as 100.0 are accepted.
type ChatRequest struct {
	Model       string            `json:"model,omitempty"`
	Messages    []json.RawMessage `json:"messages" validate:"required,min=1"`
	MaxTokens   *float64          `json:"max_tokens,omitempty" swaggertype:"integer"`
	Temperature *float64          `json:"temperature,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
	Call        json.RawMessage   `json:"call,omitempty" swaggertype:"object"`
}

// RewrittenRequest is derived from a ChatRequest after expansion. It owns a new
// message slice in which only the last message's content differs from the input.
// Both the streaming and the non-streaming relay consume the same value.
type RewrittenRequest struct {
	Messages    []json.RawMessage
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// ModelInfo is one entry of the OpenAI-style model list.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
	Purpose string `json:"purpose"`
}

// ModelList is the response body of GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}
