package core

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/upload"
)

func newTestCoreService(t *testing.T) *CoreService {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.ConnectionString = ":memory:"
	cfg.Upload.SpoolDir = t.TempDir()

	svc, err := NewCoreService(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func writeImage(t *testing.T, name, content string) upload.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	f, err := upload.FromPath(path)
	if err != nil {
		t.Fatalf("FromPath error: %v", err)
	}
	return f
}

func TestImportFiles(t *testing.T) {
	svc := newTestCoreService(t)
	ctx := context.Background()

	result, err := svc.ImportFiles(ctx, []upload.File{
		writeImage(t, "first.png", "one"),
		writeImage(t, "notes.txt", "not an image"),
		writeImage(t, "second.jpg", "two"),
	})
	if err != nil {
		t.Fatalf("ImportFiles error: %v", err)
	}
	if result.Committed() != 2 {
		t.Fatalf("expected 2 committed files, got %d", result.Committed())
	}
	if result.Selection.RejectedType != 1 {
		t.Fatalf("expected 1 rejected non-image, got %d", result.Selection.RejectedType)
	}

	view := svc.Images(gallery.NavHome, "")
	if len(view.Images) != 2 || view.Images[0].Title != "second.jpg" {
		t.Fatalf("unexpected gallery %+v", view.Images)
	}
	if !strings.HasPrefix(view.Images[0].Source, "data:image/jpeg;base64,") {
		t.Fatalf("expected jpeg data url, got %q", view.Images[0].Source)
	}
}

func TestImportFiles_OnlyNonImages(t *testing.T) {
	svc := newTestCoreService(t)

	_, err := svc.ImportFiles(context.Background(), []upload.File{writeImage(t, "a.txt", "text")})
	if !errors.Is(err, upload.ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if svc.Store().Len() != 0 {
		t.Fatal("expected no records")
	}
}

type tooBig struct{ upload.File }

func (tooBig) Size() int64                  { return upload.MaxFileSize + 1 }
func (tooBig) Open() (io.ReadCloser, error) { return nil, errors.New("must not be read") }

func TestImportFiles_AllOversized(t *testing.T) {
	svc := newTestCoreService(t)

	result, err := svc.ImportFiles(context.Background(), []upload.File{tooBig{writeImage(t, "huge.png", "x")}})
	if err != nil {
		t.Fatalf("ImportFiles error: %v", err)
	}
	if result.Selection.RejectedSize != 1 || result.Committed() != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCoreService_FavoriteAndDelete(t *testing.T) {
	svc := newTestCoreService(t)
	ctx := context.Background()

	record, err := svc.Store().AddImage(ctx, gallery.RecordInput{Title: "Sunset", SizeLabel: "1.2 MB"})
	if err != nil {
		t.Fatalf("AddImage error: %v", err)
	}

	if err := svc.ToggleFavorite(ctx, record.ID); err != nil {
		t.Fatalf("ToggleFavorite error: %v", err)
	}
	if view := svc.Images(gallery.NavFavorites, ""); len(view.Images) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(view.Images))
	}

	if err := svc.DeleteImage(ctx, record.ID); err != nil {
		t.Fatalf("DeleteImage error: %v", err)
	}
	if _, ok := svc.GetImageByID(record.ID); ok {
		t.Fatal("expected record to be gone")
	}
	if err := svc.DeleteImage(ctx, record.ID); err != nil {
		t.Fatalf("second DeleteImage error: %v", err)
	}
}

func TestNewCoreService_ReloadsPersistedGallery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.db")
	cfg := DefaultConfig()
	cfg.Database.ConnectionString = path

	first, err := NewCoreService(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	if _, err := first.Store().AddImage(context.Background(), gallery.RecordInput{Title: "kept"}); err != nil {
		t.Fatalf("AddImage error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	second, err := NewCoreService(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewCoreService (reopen) error: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if images := second.Store().Images(); len(images) != 1 || images[0].Title != "kept" {
		t.Fatalf("expected persisted record, got %+v", images)
	}
}

func TestNewCoreService_UnsupportedDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Type = "postgres"
	if _, err := NewCoreService(context.Background(), &cfg); err == nil {
		t.Fatal("expected error for unsupported database")
	}
}
