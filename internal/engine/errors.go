package engine

import (
	"errors"
	"fmt"

	"autocrud/internal/metadata"
)

// AppError is the structured error surfaced by the HTTP layer. Validation
// failures carry per-field details; everything else carries a code and a
// user-safe message.
type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

// entityLookupError maps a registry lookup failure: an unknown name is a
// 404, a metadata source that failed to load is a 500.
func entityLookupError(name string, err error) *AppError {
	if errors.Is(err, metadata.ErrEntityNotFound) {
		return UnknownEntityError(name)
	}
	return &AppError{
		Code:    "METADATA_LOAD_FAILED",
		Status:  500,
		Message: "Entity metadata could not be loaded",
	}
}

// UnknownRelationError is a configuration error: a field path named a
// relation the entity does not declare. It fails the whole request.
func UnknownRelationError(entity, relation string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_RELATION",
		Status:  400,
		Message: fmt.Sprintf("Unknown relation %s on entity %s", relation, entity),
	}
}

func UnknownFieldError(entity, field string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_FIELD",
		Status:  400,
		Message: fmt.Sprintf("Unknown field %s on entity %s", field, entity),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

// UnauthorizedActionError is returned when the forbidden-action set denies
// the requested action for the user's role.
func UnauthorizedActionError(action, entity string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN_ACTION",
		Status:  403,
		Message: fmt.Sprintf("Action %s is not permitted on %s", action, entity),
	}
}

func PersistenceError(err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_FAILED",
		Status:  500,
		Message: "The operation could not be completed",
	}
}

func StorageError(err error) *AppError {
	return &AppError{
		Code:    "STORAGE_FAILED",
		Status:  500,
		Message: "File storage failed",
	}
}
