package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	app_errors "prompt-relay/internal/errors"
	"prompt-relay/internal/interfaces"
	"prompt-relay/internal/model"
	"prompt-relay/internal/sse"
)

const (
	chatComponent = "api.chat.completions"

	maxRequestBodyBytes = 10 << 20
)

type ChatHandler struct {
	service interfaces.ChatService
}

func NewChatHandler(svc interfaces.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// HandleChatCompletions godoc
// @Summary      Create a chat completion with an expanded prompt
// @Description  Rewrites the last message into a more detailed prompt with one call to the expansion model, then relays the conversation to the completion model. With stream=true the response is a server-sent event stream of provider chunks terminated by data: [DONE].
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Param        request  body      model.ChatRequest  true  "Chat completion request"
// @Success      200      {object}  map[string]any     "Provider completion object, passed through unchanged"
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  NotFoundResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /v1/chat/completions [post]
func (h *ChatHandler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := LoggerFromContext(ctx).With("component", chatComponent)

	req, err := decodeChatRequest(w, r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := validateChatRequest(req); err != nil {
		respondWithError(w, r, err)
		return
	}

	rewritten, err := h.service.Rewrite(ctx, req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if !rewritten.Stream {
		body, err := h.service.Complete(ctx, rewritten)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		respondWithRawJSON(w, http.StatusOK, body)
		return
	}

	stream, err := h.service.Stream(ctx, rewritten)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			logger.Debug("Failed to close provider stream", "error", cerr)
		}
	}()

	out := sse.Relay(ctx, stream, sse.NewWriter(w))
	switch {
	case out.State == sse.Done:
		logger.Info("Stream finished", "frames", out.Frames)
	case out.ClientGone:
		logger.Info("Client disconnected during stream", "frames", out.Frames, "error", out.Err)
	default:
		// The status line is already sent. Aborting the handler resets the
		// connection so the client sees an incomplete stream instead of [DONE].
		logger.Error("Upstream stream failed", "frames", out.Frames, "error", out.Err)
		panic(http.ErrAbortHandler)
	}
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*model.ChatRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body exceeds %d bytes", app_errors.ErrValidation, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: read request body: %v", app_errors.ErrInternal, err)
	}
	if err := checkChatShape(body); err != nil {
		return nil, err
	}

	var req model.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid request payload: %v", app_errors.ErrValidation, err)
	}
	return &req, nil
}
