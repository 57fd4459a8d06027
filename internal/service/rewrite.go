package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	app_errors "prompt-relay/internal/errors"
)

// LastMessageContent returns the content of the final message. It fails with
// ErrValidation when the list is empty or the content is not a non-empty string.
func LastMessageContent(messages []json.RawMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: messages must be a non-empty array", app_errors.ErrValidation)
	}
	last := messages[len(messages)-1]
	if !gjson.ValidBytes(last) || !gjson.ParseBytes(last).IsObject() {
		return "", fmt.Errorf("%w: last message must be an object", app_errors.ErrValidation)
	}
	content := gjson.GetBytes(last, "content")
	if content.Type != gjson.String || content.Str == "" {
		return "", fmt.Errorf("%w: last message must have non-empty string content", app_errors.ErrValidation)
	}
	return content.Str, nil
}

// RewriteLastMessage returns a new slice in which the last message's content is
// replaced by text. Every other message, and every other field of the last
// message, is carried over byte for byte. The input slice is not modified.
func RewriteLastMessage(messages []json.RawMessage, text string) ([]json.RawMessage, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages must be a non-empty array", app_errors.ErrValidation)
	}
	out := make([]json.RawMessage, len(messages))
	copy(out, messages)

	lastIdx := len(messages) - 1
	updated, err := sjson.SetBytes(bytes.Clone(messages[lastIdx]), "content", text)
	if err != nil {
		return nil, fmt.Errorf("%w: rewrite last message: %v", app_errors.ErrInternal, err)
	}
	out[lastIdx] = updated
	return out, nil
}
