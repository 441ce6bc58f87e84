package export

import "errors"

// Error kinds returned by the exporter. Callers match them with errors.Is.
var (
	ErrStorageUnavailable = errors.New("document storage unavailable")
	ErrDirectoryCreation  = errors.New("cannot create export directory")
	ErrWrite              = errors.New("cannot write recording")
	ErrMalformed          = errors.New("malformed recording")
)

// Kind names the error kind of err for metrics and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrDirectoryCreation):
		return "directory_creation"
	case errors.Is(err, ErrWrite):
		return "write"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
