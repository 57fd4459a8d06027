package service_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "prompt-relay/internal/errors"
	"prompt-relay/internal/service"
)

func rawMessages(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, s := range items {
		out[i] = json.RawMessage(s)
	}
	return out
}

func TestLastMessageContent(t *testing.T) {
	testCases := []struct {
		name      string
		messages  []json.RawMessage
		expected  string
		expectErr bool
	}{
		{name: "Single user message", messages: rawMessages(`{"role":"user","content":"hi"}`), expected: "hi"},
		{name: "Uses last message", messages: rawMessages(`{"role":"system","content":"be brief"}`, `{"role":"user","content":"a cat"}`), expected: "a cat"},
		{name: "Empty list", messages: nil, expectErr: true},
		{name: "Missing content", messages: rawMessages(`{"role":"user"}`), expectErr: true},
		{name: "Empty content", messages: rawMessages(`{"role":"user","content":""}`), expectErr: true},
		{name: "Whitespace content is accepted", messages: rawMessages(`{"role":"user","content":"   "}`), expected: "   "},
		{name: "Non-string content", messages: rawMessages(`{"role":"user","content":[{"type":"text","text":"hi"}]}`), expectErr: true},
		{name: "Null content", messages: rawMessages(`{"role":"user","content":null}`), expectErr: true},
		{name: "Last message not an object", messages: rawMessages(`"hi"`), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			content, err := service.LastMessageContent(tc.messages)
			if tc.expectErr {
				assert.ErrorIs(t, err, app_errors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, content)
		})
	}
}

func TestRewriteLastMessage(t *testing.T) {
	t.Run("Only last content changes", func(t *testing.T) {
		original := rawMessages(
			`{"role":"system","content":"You are terse."}`,
			`{"role":"assistant","content":"ok","name":"bot"}`,
			`{"role":"user","content":"a cat","name":"alice","extra":{"k":[1,2]}}`,
		)
		snapshot := make([]string, len(original))
		for i, m := range original {
			snapshot[i] = string(m)
		}

		rewritten, err := service.RewriteLastMessage(original, "A detailed \"cat\" prompt\nwith lines")
		require.NoError(t, err)
		require.Len(t, rewritten, len(original))

		for i := 0; i < len(original)-1; i++ {
			assert.Equal(t, snapshot[i], string(rewritten[i]))
		}

		var last map[string]any
		require.NoError(t, json.Unmarshal(rewritten[2], &last))
		assert.Equal(t, "user", last["role"])
		assert.Equal(t, "alice", last["name"])
		assert.Equal(t, map[string]any{"k": []any{float64(1), float64(2)}}, last["extra"])
		assert.Equal(t, "A detailed \"cat\" prompt\nwith lines", last["content"])

		// The caller's messages are left untouched.
		for i, m := range original {
			assert.Equal(t, snapshot[i], string(m))
		}
	})

	t.Run("Empty list", func(t *testing.T) {
		_, err := service.RewriteLastMessage(nil, "x")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})
}
