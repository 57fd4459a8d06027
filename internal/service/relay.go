package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"prompt-relay/internal/llm"
	"prompt-relay/internal/metrics"
	"prompt-relay/internal/model"
)

// ResolveParams applies the relay defaults. max_tokens is truncated to an
// integer; a missing value, or one below 1 after truncation, becomes 150.
// A missing temperature becomes 0.7. Unlike max_tokens, an explicit
// temperature of 0 is intentionally not replaced by the default; it is sent
// upstream as 0.
func ResolveParams(maxTokens *float64, temperature *float64) (int, float64) {
	mt := model.DefaultMaxTokens
	if maxTokens != nil && *maxTokens >= 1 && *maxTokens <= math.MaxInt32 {
		mt = int(*maxTokens)
	}
	temp := model.DefaultTemperature
	if temperature != nil {
		temp = *temperature
	}
	return mt, temp
}

// CompletionRelay forwards a rewritten conversation to the completion model.
type CompletionRelay struct {
	completer llm.Completer
	model     string
}

func NewCompletionRelay(completer llm.Completer, model string) *CompletionRelay {
	return &CompletionRelay{completer: completer, model: model}
}

func (r *CompletionRelay) request(req *model.RewrittenRequest, stream bool) *llm.CompletionRequest {
	return &llm.CompletionRequest{
		Model:       r.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// Complete makes one blocking call and returns the provider's body unmodified.
func (r *CompletionRelay) Complete(ctx context.Context, req *model.RewrittenRequest) (json.RawMessage, error) {
	body, err := r.completer.Complete(ctx, r.request(req, false))
	metrics.RecordProviderCall(llm.StageCompletion, err)
	if err != nil {
		return nil, fmt.Errorf("relay completion: %w", err)
	}
	return body, nil
}

// Stream opens the provider stream. The caller owns the returned stream and
// must close it.
func (r *CompletionRelay) Stream(ctx context.Context, req *model.RewrittenRequest) (llm.ChunkStream, error) {
	stream, err := r.completer.Stream(ctx, r.request(req, true))
	metrics.RecordProviderCall(llm.StageStream, err)
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w", err)
	}
	return stream, nil
}
