package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jo-hoe/gogallery/internal/database"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StorageKey is the fixed key the collection document is persisted under.
const StorageKey = "image-storage"

const documentVersion = 0

var tracer = otel.Tracer("github.com/jo-hoe/gogallery/internal/gallery")

// Listener receives a snapshot of the collection after each mutation.
type Listener func(images []ImageRecord)

type subscription struct {
	id       uint64
	listener Listener
}

type persistedState struct {
	Images []ImageRecord `json:"images"`
}

type persistedDocument struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

// Store owns the ordered image collection (most recent first).
//
// Every mutation writes the whole collection to the database and then notifies
// subscribers synchronously, in subscription order. Mutations are serialized, so
// listeners see notifications in the order the mutations happened. Listeners may
// read from the store but must not mutate it.
type Store struct {
	database database.DatabaseService
	key      string
	newID    func() (string, error)

	writeMu sync.Mutex

	mu     sync.RWMutex
	images []ImageRecord

	subMu       sync.Mutex
	subscribers []subscription
	nextSubID   uint64
}

func NewStore(databaseService database.DatabaseService) *Store {
	return &Store{
		database: databaseService,
		key:      StorageKey,
		newID:    generateID,
	}
}

// Load replaces the in-memory collection with the persisted one.
// A missing document yields an empty collection.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "gallery.Store.Load")
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.database.GetState(ctx, s.key)
	if errors.Is(err, database.ErrStateNotFound) {
		slog.Info("no persisted gallery found, starting empty", "key", s.key)
		s.setImages(nil)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read state")
		return fmt.Errorf("failed to read gallery state: %w", err)
	}

	var doc persistedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode state")
		return fmt.Errorf("failed to decode gallery state: %w", err)
	}

	s.setImages(doc.State.Images)
	span.SetAttributes(attribute.Int("gallery.images", len(doc.State.Images)))
	slog.Info("gallery loaded", "images", len(doc.State.Images))
	return nil
}

// Save writes the current collection to the database.
func (s *Store) Save(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx, s.Images())
}

func (s *Store) save(ctx context.Context, images []ImageRecord) error {
	ctx, span := tracer.Start(ctx, "gallery.Store.Save")
	defer span.End()
	span.SetAttributes(attribute.Int("gallery.images", len(images)))

	if images == nil {
		images = []ImageRecord{}
	}
	data, err := json.Marshal(persistedDocument{
		State:   persistedState{Images: images},
		Version: documentVersion,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode state")
		return fmt.Errorf("failed to encode gallery state: %w", err)
	}
	if err := s.database.SetState(ctx, s.key, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write state")
		return fmt.Errorf("failed to write gallery state: %w", err)
	}
	return nil
}

// AddImage assigns a fresh ID and prepends the record. It performs no validation.
func (s *Store) AddImage(ctx context.Context, input RecordInput) (ImageRecord, error) {
	id, err := s.newID()
	if err != nil {
		return ImageRecord{}, fmt.Errorf("failed to generate image id: %w", err)
	}
	record := input.withID(id)

	err = s.mutate(ctx, func(images []ImageRecord) ([]ImageRecord, bool) {
		next := make([]ImageRecord, 0, len(images)+1)
		next = append(next, record)
		return append(next, images...), true
	})
	if err != nil {
		return ImageRecord{}, err
	}
	slog.Debug("image added", "image_id", record.ID, "title", record.Title)
	return record, nil
}

// RemoveImage deletes the record with the given ID. Unknown IDs are a no-op.
func (s *Store) RemoveImage(ctx context.Context, id string) error {
	return s.mutate(ctx, func(images []ImageRecord) ([]ImageRecord, bool) {
		idx := indexOf(images, id)
		if idx < 0 {
			return images, false
		}
		return slices.Delete(slices.Clone(images), idx, idx+1), true
	})
}

// ToggleFavorite flips the favorite flag of the record. Unknown IDs are a no-op.
func (s *Store) ToggleFavorite(ctx context.Context, id string) error {
	return s.mutate(ctx, func(images []ImageRecord) ([]ImageRecord, bool) {
		idx := indexOf(images, id)
		if idx < 0 {
			return images, false
		}
		next := slices.Clone(images)
		next[idx].IsFavorite = !next[idx].IsFavorite
		return next, true
	})
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(images []ImageRecord) ([]ImageRecord, bool) {
		return nil, len(images) > 0
	})
}

// mutate applies fn to the current collection, persists the result and notifies
// subscribers. On a failed write the previous collection is restored.
func (s *Store) mutate(ctx context.Context, fn func(images []ImageRecord) ([]ImageRecord, bool)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	previous := s.Images()
	next, changed := fn(previous)
	if !changed {
		return nil
	}

	s.setImages(next)
	if err := s.save(ctx, next); err != nil {
		s.setImages(previous)
		return err
	}

	s.notify(s.Images())
	return nil
}

// Images returns a snapshot of the collection in display order.
func (s *Store) Images() []ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.images)
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (ImageRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexOf(s.images, id)
	if idx < 0 {
		return ImageRecord{}, false
	}
	return s.images[idx], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// SearchImages returns the records matching query, see Search.
func (s *Store) SearchImages(query string) []ImageRecord {
	return Search(s.Images(), query)
}

// GetFavorites returns the favorite records in collection order.
func (s *Store) GetFavorites() []ImageRecord {
	return FilterFavorites(s.Images())
}

// View composes the navigation filter and search over the current collection.
func (s *Store) View(nav Nav, query string) GalleryView {
	return Compose(s.Images(), nav, query)
}

// Subscribe registers a listener and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (s *Store) Subscribe(listener Listener) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

func (s *Store) notify(images []ImageRecord) {
	s.subMu.Lock()
	subscribers := slices.Clone(s.subscribers)
	s.subMu.Unlock()

	for _, sub := range subscribers {
		sub.listener(slices.Clone(images))
	}
}

func (s *Store) setImages(images []ImageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = slices.Clone(images)
}

func indexOf(images []ImageRecord, id string) int {
	return slices.IndexFunc(images, func(img ImageRecord) bool {
		return img.ID == id
	})
}
