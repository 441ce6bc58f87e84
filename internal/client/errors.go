package client

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus marks a response the client could not interpret.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// APIError is an error object returned by the recorder.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap lets callers match any APIError with ErrUnexpectedStatus.
func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
