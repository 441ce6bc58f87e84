package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/export"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
)

func newTestStore(t *testing.T) (*FileStore, *export.Exporter) {
	t.Helper()
	exp := export.New(export.WithRoot(t.TempDir()), export.WithLogger(logger.Nop()))
	s := NewFileStore(context.Background(), exp.Dir,
		WithLogger(logger.Nop()),
		WithMetricsUpdateInterval(time.Hour),
	)
	t.Cleanup(func() { _ = s.Close() })
	return s, exp
}

func saveTestRecording(t *testing.T, exp *export.Exporter, name string, frames int) {
	t.Helper()
	rec := make([]model.Frame, frames)
	for i := range rec {
		rec[i] = model.Frame{"head": {Joint: "head", Timestamp: float64(i), Rotation: model.IdentityQuat}}
	}
	if _, err := exp.Export(context.Background(), rec, name); err != nil {
		t.Fatalf("export %s: %v", name, err)
	}
}

func TestFileStore_EmptyFolder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
	if n := s.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}
	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	s, exp := newTestStore(t)
	saveTestRecording(t, exp, "walk", 2)
	saveTestRecording(t, exp, "jump", 1)

	dir, _ := exp.Dir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".take.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Name != "jump" || entries[1].Name != "walk" {
		t.Errorf("expected [jump walk], got [%s %s]", entries[0].Name, entries[1].Name)
	}
	if entries[1].Size <= entries[0].Size {
		t.Errorf("expected walk to be larger than jump")
	}
	if n := s.Count(ctx); n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}
}

func TestFileStore_HiddenNamesCannotBeSaved(t *testing.T) {
	ctx := context.Background()
	s, exp := newTestStore(t)

	_, err := exp.Export(ctx, []model.Frame{{"head": {Joint: "head", Rotation: model.IdentityQuat}}}, ".take")
	if !errors.Is(err, export.ErrWrite) {
		t.Fatalf("expected ErrWrite for a dot-prefixed name, got %v", err)
	}
	entries, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an empty catalog, got %+v", entries)
	}
}

func TestFileStore_OpenAndLoad(t *testing.T) {
	ctx := context.Background()
	s, exp := newTestStore(t)
	saveTestRecording(t, exp, "walk", 3)

	f, entry, err := s.Open(ctx, "walk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != entry.Size {
		t.Errorf("expected %d bytes, read %d", entry.Size, len(data))
	}

	frames, err := s.Load(ctx, "walk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if ts := frames[2]["head"].Timestamp; ts != 2 {
		t.Errorf("expected timestamp 2, got %v", ts)
	}
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, exp := newTestStore(t)
	saveTestRecording(t, exp, "walk", 1)

	if err := s.Delete(ctx, "walk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := s.Open(ctx, "walk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "walk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFileStore_InvalidNames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, name := range []string{"", "..", "../etc/passwd", `a\b`, ".take", ".bodytrack"} {
		if _, _, err := s.Open(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Open(%q): expected ErrInvalidName, got %v", name, err)
		}
		if err := s.Delete(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Delete(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestFileStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(ctx, func() (string, error) { return "", export.ErrStorageUnavailable },
		WithLogger(logger.Nop()))
	defer s.Close()

	if _, err := s.List(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if n := s.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}
}

func TestFileStore_CloseIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
