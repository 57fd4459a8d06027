package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	app_errors "prompt-relay/internal/errors"
	"prompt-relay/internal/model"
	"prompt-relay/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateRequest checks a payload against its struct tags and wraps any
// failure in ErrValidation.
func validateRequest(payload any) error {
	err := getInstance().Struct(payload)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: an unexpected error occurred during validation: %s", app_errors.ErrValidation, err.Error())
	}

	var errorMessages []string
	for _, fieldErr := range validationErrors {
		errorMessages = append(errorMessages, fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("%w: %s", app_errors.ErrValidation, strings.Join(errorMessages, "; "))
}

// checkChatShape rejects bodies that cannot be decoded into a ChatRequest
// with a message naming the problem rather than a JSON decoder error.
func checkChatShape(body []byte) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: request body must be valid JSON", app_errors.ErrValidation)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return fmt.Errorf("%w: request body must be a JSON object", app_errors.ErrValidation)
	}
	messages := root.Get("messages")
	if !messages.Exists() || !messages.IsArray() {
		return fmt.Errorf("%w: messages must be a non-empty array", app_errors.ErrValidation)
	}
	return nil
}

// validateChatRequest applies the struct rules and then requires the last
// message to carry non-empty string content.
func validateChatRequest(req *model.ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must be a non-empty array", app_errors.ErrValidation)
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	_, err := service.LastMessageContent(req.Messages)
	return err
}
