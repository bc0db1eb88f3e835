// Package apperr classifies errors returned to API callers.
//
// Every error surfaced synchronously carries one of the gateway error codes.
// Anything that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeBadRequest     Code = "BAD_REQUEST_ERROR"
	CodeNotFound       Code = "NOT_FOUND_ERROR"
	CodeInvalidVPA     Code = "INVALID_VPA"
	CodeInvalidCard    Code = "INVALID_CARD"
	CodeExpiredCard    Code = "EXPIRED_CARD"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Error is a classified API error.
type Error struct {
	Code        Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

func BadRequest(description string) *Error { return New(CodeBadRequest, description) }

func NotFound(description string) *Error { return New(CodeNotFound, description) }

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Description returns the caller-facing description of err. Internal errors
// are never described to the caller.
func Description(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Description != "" {
		return e.Description
	}
	if CodeOf(err) == CodeInternal {
		return "internal server error"
	}
	return string(CodeOf(err))
}

var codeToStatus = map[Code]int{
	CodeBadRequest:     http.StatusBadRequest,
	CodeInvalidVPA:     http.StatusBadRequest,
	CodeInvalidCard:    http.StatusBadRequest,
	CodeExpiredCard:    http.StatusBadRequest,
	CodeNotFound:       http.StatusNotFound,
	CodeAuthentication: http.StatusUnauthorized,
}

func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := codeToStatus[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
