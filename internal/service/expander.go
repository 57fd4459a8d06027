package service

import (
	"context"
	"fmt"

	"prompt-relay/internal/llm"
	"prompt-relay/internal/metrics"
)

// Expansion call parameters. They are fixed so the rewrite is reproducible.
const (
	ExpansionMaxTokens   = 500
	ExpansionTemperature = 0.7
)

const expansionTemplate = `
Create a prompt which can act as a prompt templete where I put the original prompt and it can modify it according to my intentions so that the final modified prompt is more detailed.You can expand certain terms or keywords.
----------
PROMPT: %s.
MODIFIED PROMPT: `

// BuildExpansionPrompt embeds the original content into the instruction template.
func BuildExpansionPrompt(content string) string {
	return fmt.Sprintf(expansionTemplate, content)
}

// PromptExpander rewrites a user message into a more detailed prompt with a
// single call to the expansion model.
type PromptExpander struct {
	gen   llm.Generator
	model string
}

func NewPromptExpander(gen llm.Generator, model string) *PromptExpander {
	return &PromptExpander{gen: gen, model: model}
}

// Expand returns the model's answer verbatim. There is no retry and no
// fallback to the original content.
func (e *PromptExpander) Expand(ctx context.Context, content string) (string, error) {
	text, err := e.gen.Generate(ctx, &llm.GenerateRequest{
		Model:       e.model,
		Prompt:      BuildExpansionPrompt(content),
		MaxTokens:   ExpansionMaxTokens,
		Temperature: ExpansionTemperature,
	})
	metrics.RecordProviderCall(llm.StageExpansion, err)
	if err != nil {
		return "", fmt.Errorf("expand prompt: %w", err)
	}
	return text, nil
}
