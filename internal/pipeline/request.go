package pipeline

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/tmvbd/internal/intent"
	"github.com/kalambet/tmvbd/internal/profile"
)

// Validation failures. Both are reported to callers before any pipeline work.
var (
	ErrMissingFields       = errors.New("Message and session ID are required")
	ErrUnsupportedLanguage = errors.New("language must be one of: en, bn")
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New()

// ChatRequest is one inbound conversational turn.
type ChatRequest struct {
	Message      string                   `json:"message" validate:"required"`
	SessionID    string                   `json:"sessionId" validate:"required"`
	Language     intent.Locale            `json:"language,omitempty" validate:"omitempty,oneof=en bn"`
	UserID       string                   `json:"userId,omitempty"`
	CustomerData *profile.CustomerProfile `json:"customerData,omitempty"`
}

// Validate checks required fields and the language selector.
func (r ChatRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating request: %w", err)
	}
	for _, fe := range verrs {
		if fe.Field() == "Language" {
			return fmt.Errorf("%w (got %q)", ErrUnsupportedLanguage, r.Language)
		}
	}
	return ErrMissingFields
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) || errors.Is(err, ErrUnsupportedLanguage)
}
