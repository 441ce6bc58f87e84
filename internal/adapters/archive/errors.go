package archive

import "errors"

// Sentinel kinds for archive errors.
var (
	ErrNoSource = errors.New("archive source missing")
	ErrUpload   = errors.New("archive upload failed")
)
