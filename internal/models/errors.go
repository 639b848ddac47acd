package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes for workflow transition failures. Handlers map these to HTTP
// statuses; services compare codes rather than error identity.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeIllegalTransition  = "ILLEGAL_TRANSITION"
	CodeNoPreviousStage    = "NO_PREVIOUS_STAGE"
	CodeAlreadyInitialized = "ALREADY_INITIALIZED"
	CodeEmptyTemplate      = "EMPTY_TEMPLATE"
	CodeCheckpointNotFound = "CHECKPOINT_NOT_FOUND"
	CodeAlreadyInserted    = "ALREADY_INSERTED"
	CodeUnknownOption      = "UNKNOWN_DEADLINE_OPTION"
	CodeCorruptedState     = "CORRUPTED_STATE"
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// NewIllegalTransitionError reports a stage action attempted from a status
// that does not permit it (e.g. completing an already-completed stage).
func NewIllegalTransitionError(action string, status StageStatus) *AppError {
	return &AppError{
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("cannot %s a stage with status %q", action, status),
	}
}

// NewNoPreviousStageError reports a return attempted on the first stage.
func NewNoPreviousStageError() *AppError {
	return &AppError{
		Code:    CodeNoPreviousStage,
		Message: "the first stage cannot be returned to a previous stage",
	}
}

// NewAlreadyInitializedError reports a second workflow initialization on the
// same paper.
func NewAlreadyInitializedError(paperID uint) *AppError {
	return &AppError{
		Code:    CodeAlreadyInitialized,
		Message: fmt.Sprintf("workflow for paper %d is already initialized", paperID),
	}
}

// NewEmptyTemplateError reports a stage template that produced zero stages.
func NewEmptyTemplateError() *AppError {
	return &AppError{
		Code:    CodeEmptyTemplate,
		Message: "stage template produced no stages",
	}
}

// NewCheckpointNotFoundError reports a stage insertion whose anchor stage is
// missing or not yet completed.
func NewCheckpointNotFoundError(stageName string) *AppError {
	return &AppError{
		Code:    CodeCheckpointNotFound,
		Message: fmt.Sprintf("checkpoint stage %q not found or not completed", stageName),
	}
}

// NewAlreadyInsertedError reports a repeated insertion of the same stage name.
func NewAlreadyInsertedError(stageName string) *AppError {
	return &AppError{
		Code:    CodeAlreadyInserted,
		Message: fmt.Sprintf("stage %q already exists for this paper", stageName),
	}
}

// NewUnknownOptionError reports a deadline option key with no configured entry.
func NewUnknownOptionError(key string) *AppError {
	return &AppError{
		Code:    CodeUnknownOption,
		Message: fmt.Sprintf("unknown deadline option %q", key),
	}
}

// NewCorruptedStateError reports a violated workflow invariant detected at
// runtime. It indicates a prior bug and is logged at error level by callers.
func NewCorruptedStateError(message string) *AppError {
	return &AppError{
		Code:    CodeCorruptedState,
		Message: message,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}

// IsCode reports whether err is an *AppError carrying the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
