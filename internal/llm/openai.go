package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Completer relays a conversation to the completion model. Both methods return
// the provider's bytes untouched so responses can be passed through verbatim.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (json.RawMessage, error)
	Stream(ctx context.Context, req *CompletionRequest) (ChunkStream, error)
}

// CompletionRequest is the body sent to the OpenAI-compatible chat completions
// endpoint. Messages are forwarded as raw JSON.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []json.RawMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
	Stream      bool              `json:"stream"`
}

type openAIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewOpenAIClient returns a Completer for any OpenAI-compatible API. The HTTP
// client carries no timeout: the call lives as long as the inbound request.
func NewOpenAIClient(baseURL, apiKey string, httpClient *http.Client) Completer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &openAIClient{
		client:  httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func chatURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/chat/completions"
}

func (c *openAIClient) Complete(ctx context.Context, req *CompletionRequest) (json.RawMessage, error) {
	req.Stream = false
	resp, err := c.post(ctx, req, StageCompletion)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(StageCompletion, fmt.Errorf("read response body: %w", err))
	}
	if !gjson.ValidBytes(body) {
		return nil, &ProviderError{
			Stage:      StageCompletion,
			StatusCode: resp.StatusCode,
			Message:    "provider returned a non-JSON completion body",
		}
	}
	return json.RawMessage(body), nil
}

func (c *openAIClient) Stream(ctx context.Context, req *CompletionRequest) (ChunkStream, error) {
	req.Stream = true
	resp, err := c.post(ctx, req, StageStream)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp.Body), nil
}

// post sends the request and returns the response only for 2xx statuses; the
// caller owns the body. Any other status is turned into a ProviderError.
func (c *openAIClient) post(ctx context.Context, req *CompletionRequest, stage string) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL(c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(stage, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, newProviderError(stage, resp.StatusCode, errBody)
	}
	return resp, nil
}
