package recording

import "errors"

// Sentinel kinds for controller errors.
var (
	ErrEmptyName         = errors.New("recording name is empty")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNoExporter        = errors.New("no exporter configured")
)
