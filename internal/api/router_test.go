package api_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"prompt-relay/internal/api"
	"prompt-relay/internal/llm"
	"prompt-relay/internal/service"
)

// fakeProvider is an OpenAI-compatible upstream. Expansion calls are told
// apart from relay calls by their max_tokens of 500.
type fakeProvider struct {
	mu        sync.Mutex
	expansion []string
	relay     []string

	expanded     string
	completion   string
	streamChunks []string
	breakStream  bool
	relayStatus  int
	relayError   string
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	isExpansion := gjson.GetBytes(body, "max_tokens").Int() == service.ExpansionMaxTokens

	p.mu.Lock()
	if isExpansion {
		p.expansion = append(p.expansion, string(body))
	} else {
		p.relay = append(p.relay, string(body))
	}
	p.mu.Unlock()

	if isExpansion {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"id":"exp","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, p.expanded)
		return
	}

	if p.relayStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.relayStatus)
		_, _ = w.Write([]byte(p.relayError))
		return
	}

	if !gjson.GetBytes(body, "stream").Bool() {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(p.completion))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, c := range p.streamChunks {
		_, _ = fmt.Fprintf(w, "data: %s\n\n", c)
		flusher.Flush()
	}
	if p.breakStream {
		panic(http.ErrAbortHandler)
	}
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
}

func newTestServer(t *testing.T, p *fakeProvider) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(p)
	t.Cleanup(upstream.Close)

	gen := llm.NewOpenAIGenerator(upstream.URL, "test-key", upstream.Client())
	completer := llm.NewOpenAIClient(upstream.URL, "test-key", upstream.Client())
	chatSvc := service.NewChatService(gen, completer, "expand-model", "complete-model")
	modelSvc := service.NewModelService("expand-model", "complete-model")

	router := api.NewRouter(api.NewChatHandler(chatSvc), api.NewModelHandler(modelSvc))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_CatScenario(t *testing.T) {
	p := &fakeProvider{
		expanded:   "A detailed portrait of a fluffy tabby cat",
		completion: `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Here is your cat."}}]}`,
	}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"a cat"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, p.completion, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	require.Len(t, p.expansion, 1)
	expansion := p.expansion[0]
	assert.Equal(t, "expand-model", gjson.Get(expansion, "model").String())
	assert.InDelta(t, 0.7, gjson.Get(expansion, "temperature").Float(), 1e-6)
	assert.Equal(t, int64(1), gjson.Get(expansion, "messages.#").Int())
	assert.Contains(t, gjson.Get(expansion, "messages.0.content").String(), "PROMPT: a cat.")

	require.Len(t, p.relay, 1)
	relay := p.relay[0]
	assert.Equal(t, "complete-model", gjson.Get(relay, "model").String())
	assert.Equal(t, int64(150), gjson.Get(relay, "max_tokens").Int())
	assert.InDelta(t, 0.7, gjson.Get(relay, "temperature").Float(), 1e-9)
	assert.False(t, gjson.Get(relay, "stream").Bool())
	assert.Equal(t, "user", gjson.Get(relay, "messages.0.role").String())
	assert.Equal(t, p.expanded, gjson.Get(relay, "messages.0.content").String())
}

func TestRouter_AliasRouteAndOverrides(t *testing.T) {
	p := &fakeProvider{expanded: "expanded", completion: `{"ok":true}`}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/api/chat/completions", "application/json",
		strings.NewReader(`{"model":"ignored","messages":[{"role":"system","content":"sys","name":"n"},{"role":"user","content":"hi"}],"max_tokens":42,"temperature":0.1,"call":{"id":1}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, p.relay, 1)
	relay := p.relay[0]
	assert.Equal(t, "complete-model", gjson.Get(relay, "model").String())
	assert.Equal(t, int64(42), gjson.Get(relay, "max_tokens").Int())
	assert.InDelta(t, 0.1, gjson.Get(relay, "temperature").Float(), 1e-9)
	assert.JSONEq(t, `{"role":"system","content":"sys","name":"n"}`, gjson.Get(relay, "messages.0").Raw)
	assert.Equal(t, "expanded", gjson.Get(relay, "messages.1.content").String())
	assert.False(t, gjson.Get(relay, "call").Exists())
}

func TestRouter_WhitespaceContentAndFloatMaxTokens(t *testing.T) {
	p := &fakeProvider{expanded: "expanded", completion: `{"ok":true}`}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"   "}],"max_tokens":100.0,"temperature":0}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, p.expansion, 1)
	assert.Contains(t, gjson.Get(p.expansion[0], "messages.0.content").String(), "PROMPT:    .")

	require.Len(t, p.relay, 1)
	assert.Equal(t, int64(100), gjson.Get(p.relay[0], "max_tokens").Int())
	assert.True(t, gjson.Get(p.relay[0], "temperature").Exists())
	assert.Zero(t, gjson.Get(p.relay[0], "temperature").Float())
}

func TestRouter_ProviderRateLimit(t *testing.T) {
	p := &fakeProvider{
		expanded:    "expanded",
		relayStatus: http.StatusTooManyRequests,
		relayError:  `{"error":{"message":"Too many requests","type":"requests","code":"rate_limited"}}`,
	}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "rate_limited", errResp.Code)
	assert.Equal(t, "Too many requests", errResp.Error)
}

func TestRouter_Stream(t *testing.T) {
	chunks := []string{
		`{"choices":[{"delta":{"role":"assistant"}}]}`,
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
	}
	p := &fakeProvider{expanded: "expanded", streamChunks: chunks}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var frames []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		frames = append(frames, strings.TrimPrefix(line, "data: "))
	}
	require.NoError(t, scanner.Err())

	require.Len(t, frames, len(chunks)+1)
	for i, c := range chunks {
		assert.Equal(t, c, frames[i])
	}
	assert.Equal(t, "[DONE]", frames[len(frames)-1])

	require.Len(t, p.relay, 1)
	assert.True(t, gjson.Get(p.relay[0], "stream").Bool())
}

func TestRouter_StreamUpstreamFailureAbortsConnection(t *testing.T) {
	p := &fakeProvider{
		expanded:     "expanded",
		streamChunks: []string{`{"n":1}`},
		breakStream:  true,
	}
	srv := newTestServer(t, p)

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}],"stream":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.Error(t, err)
	assert.Contains(t, string(body), `data: {"n":1}`)
	assert.NotContains(t, string(body), "[DONE]")
}

func TestRouter_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{})

	testCases := []struct {
		name   string
		method string
		path   string
	}{
		{name: "GET on chat completions", method: http.MethodGet, path: "/v1/chat/completions"},
		{name: "PUT on chat completions", method: http.MethodPut, path: "/v1/chat/completions"},
		{name: "Unknown route", method: http.MethodPost, path: "/v1/embeddings"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"message":"Not Found"}`, string(body))
		})
	}
}

func TestRouter_HealthAndModels(t *testing.T) {
	srv := newTestServer(t, &fakeProvider{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(srv.URL + "/v1/models")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "list", gjson.GetBytes(body, "object").String())
	assert.Equal(t, int64(2), gjson.GetBytes(body, "data.#").Int())
}
