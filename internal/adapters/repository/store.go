// Package repository catalogs saved recordings.
package repository

import (
	"context"
	"os"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Entry describes one saved recording.
type Entry struct {
	Name     string
	Path     string
	Size     int64
	Modified time.Time
}

// Store provides read and delete access to saved recordings.
type Store interface {
	// List returns every recording ordered by name.
	List(ctx context.Context) ([]Entry, error)

	// Open returns the recording file for streaming. The caller closes it.
	// Returns ErrNotFound if no recording has that name.
	Open(ctx context.Context, name string) (*os.File, Entry, error)

	// Load decodes a recording into frames.
	Load(ctx context.Context, name string) ([]model.Frame, error)

	// Delete removes a recording.
	Delete(ctx context.Context, name string) error

	// Count returns the number of recordings.
	Count(ctx context.Context) int
}
