package archive

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSSink writes objects to a Google Cloud Storage bucket using application
// default credentials.
type GCSSink struct {
	client *storage.Client
	name   string
	open   func(ctx context.Context, key string) io.WriteCloser
}

// NewGCSSink connects to the bucket. The bucket must already exist.
func NewGCSSink(ctx context.Context, bucket string) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	b := client.Bucket(bucket)
	return &GCSSink{
		client: client,
		name:   bucket,
		open: func(ctx context.Context, key string) io.WriteCloser {
			w := b.Object(key).NewWriter(ctx)
			w.ContentType = "text/csv"
			return w
		},
	}, nil
}

// Put implements Sink.
func (s *GCSSink) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wc := s.open(wctx, key)
	if _, err := io.Copy(wc, r); err != nil {
		// A writer closed after its context is cancelled discards the object.
		cancel()
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.name, key), nil
}

// Close releases the client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
