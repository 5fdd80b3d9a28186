package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/imageinfo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	// StatusError is reached only when reading the staged file or committing it fails.
	StatusError Status = "error"
)

const (
	DefaultTickInterval = 200 * time.Millisecond
	DefaultMaxIncrement = 15.0
	DefaultIdleTimeout  = 30 * time.Minute
)

var tracer = otel.Tracer("github.com/jo-hoe/gogallery/internal/upload")

var (
	ErrSessionClosed   = errors.New("upload session closed")
	ErrEntryBusy       = errors.New("entry is uploading")
	ErrTransferRunning = errors.New("transfer already running")
)

// Committer receives finished uploads. *gallery.Store implements it.
type Committer interface {
	AddImage(ctx context.Context, input gallery.RecordInput) (gallery.ImageRecord, error)
}

// Options tune validation and the simulated transfer.
type Options struct {
	MaxFileSize int64
	// SpoolDir holds preview files; empty means os.TempDir().
	SpoolDir string
	// TickInterval is the delay between progress steps; zero or less disables waiting.
	TickInterval time.Duration
	// MaxIncrement bounds the random progress added per step.
	MaxIncrement float64
	// Random returns values in [0, 1); defaults to math/rand/v2.
	Random func() float64
	// IdleTimeout is how long an untouched session survives before the Manager reaps it.
	IdleTimeout time.Duration
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = MaxFileSize
	}
	if o.MaxIncrement <= 0 {
		o.MaxIncrement = DefaultMaxIncrement
	}
	if o.Random == nil {
		o.Random = rand.Float64
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Entry is a snapshot of one staged file.
type Entry struct {
	ID          string
	Name        string
	ContentType string
	Size        int64
	SizeLabel   string
	Info        imageinfo.Info
	Progress    float64
	Status      Status
}

type stagedEntry struct {
	Entry
	preview *Preview
	removed bool
}

// Session is one upload dialog: the files staged in it and at most one running transfer.
type Session struct {
	ID string

	committer Committer
	opts      Options

	mu       sync.Mutex
	entries  []*stagedEntry
	transfer *Transfer
	closed   bool
	lastUsed time.Time
}

// NewSession creates an empty upload session committing into committer.
func NewSession(committer Committer, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		ID:        uuid.NewString(),
		committer: committer,
		opts:      opts,
		lastUsed:  opts.Now(),
	}
}

// Touch marks the session as used now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = s.opts.Now()
	s.mu.Unlock()
}

// Idle reports whether the session went untouched for the idle timeout and has
// no transfer running.
func (s *Session) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transfer != nil && !s.transfer.finished() {
		return false
	}
	return s.opts.Now().Sub(s.lastUsed) >= s.opts.IdleTimeout
}

// Add validates files and stages the accepted ones as pending entries.
func (s *Session) Add(files []File) (Selection, error) {
	selection, err := Validate(files, s.opts.MaxFileSize)
	if err != nil {
		return selection, err
	}

	staged := make([]*stagedEntry, 0, len(selection.Accepted))
	for _, f := range selection.Accepted {
		entry, oversized, err := s.stage(f)
		if err != nil {
			for _, e := range staged {
				e.preview.Release()
			}
			return selection, fmt.Errorf("failed to stage %s: %w", f.Name(), err)
		}
		if oversized {
			// the declared size lied; count it like any other oversized file
			selection.RejectedSize++
			continue
		}
		staged = append(staged, entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		for _, e := range staged {
			e.preview.Release()
		}
		return selection, ErrSessionClosed
	}
	s.entries = append(s.entries, staged...)
	s.lastUsed = s.opts.Now()

	slog.Info("files staged for upload", "session_id", s.ID,
		"staged", len(staged), "rejected_type", selection.RejectedType, "rejected_size", selection.RejectedSize)
	return selection, nil
}

func (s *Session) stage(f File) (*stagedEntry, bool, error) {
	r, err := f.Open()
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = r.Close() }()

	content, err := io.ReadAll(io.LimitReader(r, s.opts.MaxFileSize+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(content)) > s.opts.MaxFileSize {
		return nil, true, nil
	}

	info, err := imageinfo.Inspect(content)
	if err != nil {
		slog.Debug("staged file has no readable image header", "filename", f.Name(), "error", err)
	}

	entry := &stagedEntry{
		Entry: Entry{
			ID:          uuid.NewString(),
			Name:        f.Name(),
			ContentType: f.ContentType(),
			Size:        int64(len(content)),
			SizeLabel:   fmt.Sprintf("%.2f MB", float64(len(content))/1024/1024),
			Info:        info,
			Status:      StatusPending,
		},
	}
	entry.preview, err = newPreview(s.opts.SpoolDir, f.ContentType(), content, func() {
		slog.Debug("preview released", "session_id", s.ID, "entry_id", entry.ID)
	})
	if err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// Entries returns snapshots of the staged files in staging order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.opts.Now()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Entry
	}
	return out
}

// Preview returns the preview of a staged entry.
func (s *Session) Preview(entryID string) (*Preview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(entryID); e != nil {
		return e.preview, true
	}
	return nil, false
}

// Remove unstages an entry and releases its preview. Unknown IDs are a no-op.
func (s *Session) Remove(entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.entries, func(e *stagedEntry) bool { return e.ID == entryID })
	if idx < 0 {
		return nil
	}
	if s.entries[idx].Status == StatusUploading {
		return ErrEntryBusy
	}
	s.entries[idx].removed = true
	s.entries[idx].preview.Release()
	s.entries = slices.Delete(s.entries, idx, idx+1)
	return nil
}

// Uploading reports whether a transfer is in progress.
func (s *Session) Uploading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer != nil && !s.transfer.finished()
}

// Completed reports whether there are entries and all of them completed.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return false
	}
	for _, e := range s.entries {
		if e.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// Start uploads all pending entries one after another in the background.
// The returned Transfer can be cancelled; entries not committed by then are skipped.
func (s *Session) Start(ctx context.Context) (*Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if len(s.entries) == 0 {
		return nil, ErrNothingStaged
	}
	if s.transfer != nil && !s.transfer.finished() {
		return nil, ErrTransferRunning
	}

	var pending []*stagedEntry
	for _, e := range s.entries {
		if e.Status == StatusPending {
			pending = append(pending, e)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Transfer{cancel: cancel, done: make(chan struct{})}
	s.transfer = t
	s.lastUsed = s.opts.Now()

	go func() {
		defer close(t.done)
		defer cancel()
		t.err = s.run(ctx, pending)
	}()
	return t, nil
}

func (s *Session) run(ctx context.Context, pending []*stagedEntry) error {
	for i, e := range pending {
		if err := s.transferEntry(ctx, e); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("upload cancelled", "session_id", s.ID, "remaining", len(pending)-i)
				return err
			}
			slog.Error("upload failed", "session_id", s.ID, "entry_id", e.ID, "filename", e.Name, "error", err)
			// a failed file does not stop the remaining ones
		}
	}
	return nil
}

func (s *Session) transferEntry(ctx context.Context, e *stagedEntry) (err error) {
	if !s.begin(e) {
		return nil
	}

	ctx, span := tracer.Start(ctx, "upload.Session.transfer", trace.WithAttributes(
		attribute.String("upload.session_id", s.ID),
		attribute.String("upload.filename", e.Name),
		attribute.Int64("upload.size", e.Size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transfer")
		}
		span.End()
	}()

	progress := 0.0
	for {
		if err := s.wait(ctx); err != nil {
			return err
		}
		progress += s.opts.Random() * s.opts.MaxIncrement
		if progress >= 100 {
			break
		}
		p := progress
		s.update(e, func(e *stagedEntry) { e.Progress = p })
	}
	s.update(e, func(e *stagedEntry) { e.Progress = 100 })

	src, err := e.preview.DataURL()
	if err != nil {
		s.update(e, func(e *stagedEntry) { e.Status = StatusError })
		return fmt.Errorf("failed to encode %s: %w", e.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// once started, a commit is not torn by cancellation
	record, err := s.committer.AddImage(context.WithoutCancel(ctx), gallery.RecordInput{
		Source:          src,
		Title:           e.Name,
		SizeLabel:       gallery.SizeLabel(e.Size),
		UploadedAtLabel: gallery.JustNowLabel,
		IsFavorite:      false,
	})
	if err != nil {
		s.update(e, func(e *stagedEntry) { e.Status = StatusError })
		return fmt.Errorf("failed to commit %s: %w", e.Name, err)
	}

	s.update(e, func(e *stagedEntry) { e.Status = StatusCompleted })
	slog.Info("upload completed", "session_id", s.ID, "entry_id", e.ID, "image_id", record.ID, "filename", e.Name)
	return nil
}

// begin marks e as uploading unless it was removed after the transfer started.
func (s *Session) begin(e *stagedEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.removed {
		return false
	}
	e.Status = StatusUploading
	return true
}

func (s *Session) wait(ctx context.Context) error {
	if s.opts.TickInterval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.TickInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) update(e *stagedEntry, fn func(e *stagedEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(e)
}

// Close cancels a running transfer, waits for it and releases every preview.
// Calling Close more than once is harmless.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	t := s.transfer
	s.mu.Unlock()

	if t != nil {
		t.Cancel()
		<-t.Done()
	}

	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.mu.Unlock()

	for _, e := range entries {
		e.preview.Release()
	}
	slog.Debug("upload session closed", "session_id", s.ID, "released", len(entries))
}

func (s *Session) find(entryID string) *stagedEntry {
	for _, e := range s.entries {
		if e.ID == entryID {
			return e
		}
	}
	return nil
}

// Transfer is a running upload of a session's pending entries.
type Transfer struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel stops further progress; the current file is not committed unless its
// commit already began.
func (t *Transfer) Cancel() { t.cancel() }

func (t *Transfer) Done() <-chan struct{} { return t.done }

// Wait blocks until the transfer ends and returns context.Canceled if it was cancelled.
func (t *Transfer) Wait() error {
	<-t.done
	return t.err
}

func (t *Transfer) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
