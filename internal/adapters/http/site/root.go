// Package site serves the embedded operator console.
package site

import (
	"context"
	"net/http"
)

// Register attaches the console to GET / on mux. API routes registered on
// the same mux take precedence because their patterns are more specific.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
