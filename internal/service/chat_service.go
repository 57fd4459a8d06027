package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"prompt-relay/internal/llm"
	"prompt-relay/internal/model"
)

// ChatService runs the rewrite pipeline: expand the last message, splice the
// expansion into the conversation, then relay it to the completion model.
type ChatService struct {
	expander *PromptExpander
	relay    *CompletionRelay
}

func NewChatService(gen llm.Generator, completer llm.Completer, expansionModel, completionModel string) *ChatService {
	return &ChatService{
		expander: NewPromptExpander(gen, expansionModel),
		relay:    NewCompletionRelay(completer, completionModel),
	}
}

// Rewrite validates the last message, expands it and returns the rewritten
// request. The expansion always finishes before anything is relayed.
func (s *ChatService) Rewrite(ctx context.Context, req *model.ChatRequest) (*model.RewrittenRequest, error) {
	content, err := LastMessageContent(req.Messages)
	if err != nil {
		return nil, err
	}

	expanded, err := s.expander.Expand(ctx, content)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Expanded last message", "original_length", len(content), "expanded_length", len(expanded))

	messages, err := RewriteLastMessage(req.Messages, expanded)
	if err != nil {
		return nil, err
	}

	maxTokens, temperature := ResolveParams(req.MaxTokens, req.Temperature)
	return &model.RewrittenRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      req.Stream,
	}, nil
}

// Complete relays the rewritten request and returns the provider's completion
// object untouched.
func (s *ChatService) Complete(ctx context.Context, req *model.RewrittenRequest) (json.RawMessage, error) {
	return s.relay.Complete(ctx, req)
}

// Stream opens a provider stream for the rewritten request.
func (s *ChatService) Stream(ctx context.Context, req *model.RewrittenRequest) (llm.ChunkStream, error) {
	return s.relay.Stream(ctx, req)
}
