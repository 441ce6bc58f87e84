package repository

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrNotFound    = errors.New("recording not found")
	ErrInvalidName = errors.New("invalid recording name")
	ErrUnavailable = errors.New("recording storage unavailable")
)
