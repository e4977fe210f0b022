// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines application error types carrying HTTP status codes.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is an error with an associated HTTP status code and a
// user-facing message. The wrapped error is kept for logging.
type AppError struct {
	StatusCode int    // HTTP status code to return
	Message    string // User-facing error message
	Err        error  // Underlying error
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

// WrapInvalidInput wraps an error as a 400 Bad Request.
func WrapInvalidInput(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, Err: err}
}

// WrapInternal wraps an error as a 500 Internal Server Error.
func WrapInternal(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// WrapTaskNotFound wraps an error as a 404 Not Found.
func WrapTaskNotFound(err error) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: "Task not found", Err: err}
}

// WrapCommandFailed wraps a failed external call as a 500 Internal Server Error.
func WrapCommandFailed(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// WrapUnauthorized wraps an error as a 401 Unauthorized.
func WrapUnauthorized(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusUnauthorized, Message: message, Err: err}
}
