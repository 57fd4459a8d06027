package service

import (
	"context"

	"prompt-relay/internal/model"
)

const modelOwner = "prompt-relay"

// ModelService reports the models this server is pinned to.
type ModelService struct {
	expansionModel  string
	completionModel string
}

// NewModelService creates a new ModelService.
func NewModelService(expansionModel, completionModel string) *ModelService {
	return &ModelService{expansionModel: expansionModel, completionModel: completionModel}
}

// List returns the completion model first, followed by the expansion model.
// When both are the same model it is listed once.
func (s *ModelService) List(ctx context.Context) (*model.ModelList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := &model.ModelList{Object: "list"}
	list.Data = append(list.Data, model.ModelInfo{
		ID:      s.completionModel,
		Object:  "model",
		OwnedBy: modelOwner,
		Purpose: "completion",
	})
	if s.expansionModel == s.completionModel {
		list.Data[0].Purpose = "expansion,completion"
		return list, nil
	}
	list.Data = append(list.Data, model.ModelInfo{
		ID:      s.expansionModel,
		Object:  "model",
		OwnedBy: modelOwner,
		Purpose: "expansion",
	})
	return list, nil
}
