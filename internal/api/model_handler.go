package api

import (
	"net/http"

	"prompt-relay/internal/interfaces"
)

// ModelHandler serves the model listing.
type ModelHandler struct {
	service interfaces.ModelService
}

func NewModelHandler(svc interfaces.ModelService) *ModelHandler {
	return &ModelHandler{service: svc}
}

// HandleListModels godoc
// @Summary      List models
// @Description  Lists the completion and expansion models this server is configured with.
// @Tags         Models
// @Produce      json
// @Success      200  {object}  model.ModelList
// @Failure      500  {object}  ErrorResponse
// @Router       /v1/models [get]
func (h *ModelHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.service.List(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models)
}
