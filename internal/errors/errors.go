package errors

import (
	"fmt"
	"log"
	"net/http"
)

type ErrorType string

const (
	ValidationError     ErrorType = "VALIDATION_ERROR"
	AuthenticationError ErrorType = "AUTHENTICATION_ERROR"
	AuthorizationError  ErrorType = "AUTHORIZATION_ERROR"
	NotFoundError       ErrorType = "NOT_FOUND_ERROR"
	ConflictError       ErrorType = "CONFLICT_ERROR"
	DatabaseError       ErrorType = "DATABASE_ERROR"
	ExternalAPIError    ErrorType = "EXTERNAL_API_ERROR"
	InternalError       ErrorType = "INTERNAL_ERROR"

	// RenderFailure and StorageFailure are fatal to a single ingest but
	// never take the process down. DatabaseLocked is returned when a
	// store fails to open at startup, which the entrypoints treat as fatal.
	RenderFailure  ErrorType = "RENDER_FAILURE"
	StorageFailure ErrorType = "STORAGE_FAILURE"
	DatabaseLocked ErrorType = "DATABASE_LOCKED"
)

type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ValidationError,
		Message: message,
		Code:    http.StatusBadRequest,
	}
}

func NewAuthenticationError(message string) *AppError {
	return &AppError{
		Type:    AuthenticationError,
		Message: message,
		Code:    http.StatusUnauthorized,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    NotFoundError,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ConflictError,
		Message: message,
		Code:    http.StatusConflict,
	}
}

func NewDatabaseError(message string, details string) *AppError {
	return &AppError{
		Type:    DatabaseError,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: details,
	}
}

func NewExternalAPIError(message string, details string) *AppError {
	return &AppError{
		Type:    ExternalAPIError,
		Message: message,
		Code:    http.StatusBadGateway,
		Details: details,
	}
}

func NewRenderFailure(message string, details string) *AppError {
	return &AppError{
		Type:    RenderFailure,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: details,
	}
}

func NewStorageFailure(message string, details string) *AppError {
	return &AppError{
		Type:    StorageFailure,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: details,
	}
}

// NewDatabaseLocked reports a fatal, actionable error at content-store
// initialization when the underlying SQLite file can't be opened for
// writing because another process holds a conflicting lock.
func NewDatabaseLocked(path string, details string) *AppError {
	return &AppError{
		Type:    DatabaseLocked,
		Message: fmt.Sprintf("database %q is locked by another process", path),
		Code:    http.StatusInternalServerError,
		Details: details,
	}
}

func NewInternalError(message string, details string) *AppError {
	return &AppError{
		Type:    InternalError,
		Message: message,
		Code:    http.StatusInternalServerError,
		Details: details,
	}
}

func LogError(err error, context string) {
	if appErr, ok := err.(*AppError); ok {
		log.Printf("[ERROR] %s: %s (Type: %s, Code: %d)", context, appErr.Message, appErr.Type, appErr.Code)
		if appErr.Details != "" {
			log.Printf("[ERROR] Details: %s", appErr.Details)
		}
	} else {
		log.Printf("[ERROR] %s: %s", context, err.Error())
	}
}

func WrapDatabaseError(err error, operation string) *AppError {
	details := fmt.Sprintf("Database operation '%s' failed: %s", operation, err.Error())
	LogError(err, fmt.Sprintf("Database Error - %s", operation))
	return NewDatabaseError("Database operation failed", details)
}

func WrapExternalAPIError(err error, service string) *AppError {
	details := fmt.Sprintf("External API '%s' failed: %s", service, err.Error())
	LogError(err, fmt.Sprintf("External API Error - %s", service))
	return NewExternalAPIError(fmt.Sprintf("%s service unavailable", service), details)
}
