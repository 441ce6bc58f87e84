// Package archive mirrors saved recordings to durable storage.
package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sink stores one object per recording.
type Sink interface {
	// Put copies r to the object key and returns its URI.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Close() error
}

// ObjectKey joins a prefix and a recording file name with a single slash.
func ObjectKey(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// NoopSink drops every object. It stands in when archiving is off.
type NoopSink struct{}

// Put implements Sink by draining r.
func (NoopSink) Put(_ context.Context, key string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "noop://" + key, nil
}

// Close implements Sink.
func (NoopSink) Close() error { return nil }

// DirSink copies objects under a local directory, creating parents as needed.
type DirSink struct {
	root string
}

// NewDirSink returns a sink writing under root.
func NewDirSink(root string) *DirSink {
	return &DirSink{root: root}
}

// Put implements Sink. The object is written to a temp file and renamed.
func (s *DirSink) Put(ctx context.Context, key string, r io.Reader) (uri string, err error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".archive-*.tmp")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(dst), nil
}

// Close implements Sink.
func (s *DirSink) Close() error { return nil }

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
