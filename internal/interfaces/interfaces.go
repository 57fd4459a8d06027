package interfaces

import (
	"context"
	"encoding/json"

	"prompt-relay/internal/llm"
	"prompt-relay/internal/model"
)

// The API layer depends on these contracts rather than on the concrete
// services, so handlers can be tested against mocks.

// ChatService runs the expand-then-relay pipeline.
type ChatService interface {
	Rewrite(ctx context.Context, req *model.ChatRequest) (*model.RewrittenRequest, error)
	Complete(ctx context.Context, req *model.RewrittenRequest) (json.RawMessage, error)
	Stream(ctx context.Context, req *model.RewrittenRequest) (llm.ChunkStream, error)
}

// ModelService lists the models the server is configured with.
type ModelService interface {
	List(ctx context.Context) (*model.ModelList, error)
}
