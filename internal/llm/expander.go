package llm

import (
	"context"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces a single, non-streamed text answer for one prompt.
type Generator interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// GenerateRequest is a one-shot, single-user-message completion.
type GenerateRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

type openAIGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator returns a Generator backed by the go-openai client pointed
// at an OpenAI-compatible base URL.
func NewOpenAIGenerator(baseURL, apiKey string, httpClient *http.Client) Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &openAIGenerator{client: openai.NewClientWithConfig(cfg)}
}

// Generate returns the first choice's message content verbatim.
func (g *openAIGenerator) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fromOpenAIError(StageExpansion, err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Stage: StageExpansion, Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}
