package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jo-hoe/gogallery/internal/gallery"
)

var ErrPreviewReleased = errors.New("preview already released")

// Preview is a staged file spooled to a temporary file so it can be displayed
// before upload. Every Preview must be released exactly once.
type Preview struct {
	path        string
	contentType string

	mu        sync.Mutex
	released  bool
	once      sync.Once
	onRelease func()
}

func newPreview(dir string, contentType string, content []byte, onRelease func()) (*Preview, error) {
	f, err := os.CreateTemp(dir, "gogallery-preview-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close preview file: %w", err)
	}
	return &Preview{path: f.Name(), contentType: contentType, onRelease: onRelease}, nil
}

func (p *Preview) ContentType() string { return p.contentType }

// Open returns a reader for the preview content.
func (p *Preview) Open() (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil, ErrPreviewReleased
	}
	return os.Open(p.path)
}

// DataURL reads the preview content and encodes it inline.
func (p *Preview) DataURL() (string, error) {
	r, err := p.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read preview file: %w", err)
	}
	return gallery.EncodeDataURL(p.contentType, content), nil
}

// Release deletes the temporary file. Only the first call has an effect.
func (p *Preview) Release() {
	p.once.Do(func() {
		p.mu.Lock()
		p.released = true
		p.mu.Unlock()

		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to remove preview file", "path", p.path, "error", err)
		}
		if p.onRelease != nil {
			p.onRelease()
		}
	})
}
