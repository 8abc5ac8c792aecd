package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindAccessDenied ErrorKind = "access_denied"
	KindUnauthorized ErrorKind = "unauthorized"
	KindConflict     ErrorKind = "conflict"
	KindUpstream     ErrorKind = "upstream_unavailable"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ServiceError is an error the HTTP layer can show to the caller as is.
type ServiceError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Errors  []FieldError
}

func (e ServiceError) Error() string {
	return e.Message
}

func ErrNotFound(msg string) error {
	return ServiceError{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func ErrBadRequest(msg string) error {
	return ServiceError{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg,
		Errors: []FieldError{{Message: msg}}}
}

func ErrForbidden(msg string) error {
	return ServiceError{Kind: KindAccessDenied, Status: http.StatusForbidden, Message: msg}
}

func ErrUnauthorized(msg string) error {
	return ServiceError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

// ErrConflict reports a uniqueness or version clash. It maps to 400 like other client errors.
func ErrConflict(msg string) error {
	return ServiceError{Kind: KindConflict, Status: http.StatusBadRequest, Message: msg}
}

func ErrUpstream(msg string, cause error) error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return ServiceError{Kind: KindUpstream, Status: http.StatusServiceUnavailable, Message: msg}
}

func AsServiceError(err error) (ServiceError, bool) {
	var se ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return ServiceError{}, false
}

func IsKind(err error, kind ErrorKind) bool {
	se, ok := AsServiceError(err)
	return ok && se.Kind == kind
}

func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
