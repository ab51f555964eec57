package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/quotewright/internal/common"
	"github.com/Veraticus/quotewright/internal/storage"
)

// Envelope wraps every action reply.
type Envelope struct {
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

func failure(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}

// requestError marks a payload the handler could not bind.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return e.err.Error()
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(err error) error {
	return &requestError{err: err}
}

var clientErrors = []error{
	common.ErrInvalidInput,
	common.ErrInvalidFormat,
	common.ErrInvalidFormula,
	storage.ErrInvalidID,
	storage.ErrEmptyString,
	storage.ErrInvalidGroup,
	storage.ErrInvalidLineItem,
	storage.ErrInvalidPreference,
}

// classify maps an action error to a status and the message sent back.
// Unexpected failures are logged and reported without detail.
func (s *Server) classify(action string, err error) (int, string) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, describeBindError(reqErr.err)
	}
	if errors.Is(err, common.ErrNotFound) {
		return http.StatusNotFound, err.Error()
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}

	s.logger.Error("Action failed", "action", action, "error", err)
	return http.StatusInternalServerError, "internal error"
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Sprintf("invalid request: %v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fieldPath(fe), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// fieldPath drops the root struct name from a namespace like
// SaveRequest.Context.Screen.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
