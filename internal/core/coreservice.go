package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/gogallery/internal/database"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/telemetry"
	"github.com/jo-hoe/gogallery/internal/upload"
)

// CoreService wires the state database, the image store and the upload sessions.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	store           *gallery.Store
	uploads         *upload.Manager
	shutdownTracing func(context.Context) error
}

func NewCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	shutdownTracing, err := telemetry.Setup(ctx, config.Tracing.ServiceName, config.Tracing.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	store := gallery.NewStore(databaseService)
	if err := store.Load(ctx); err != nil {
		_ = databaseService.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		store:           store,
		uploads:         upload.NewManager(store, config.UploadOptions()),
		shutdownTracing: shutdownTracing,
	}, nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Store() *gallery.Store {
	return service.store
}

func (service *CoreService) Uploads() *upload.Manager {
	return service.uploads
}

func (service *CoreService) Images(nav gallery.Nav, query string) gallery.GalleryView {
	return service.store.View(nav, query)
}

func (service *CoreService) GetImageByID(id string) (gallery.ImageRecord, bool) {
	return service.store.Get(id)
}

func (service *CoreService) ToggleFavorite(ctx context.Context, id string) error {
	return service.store.ToggleFavorite(ctx, id)
}

func (service *CoreService) DeleteImage(ctx context.Context, id string) error {
	return service.store.RemoveImage(ctx, id)
}

// ImportResult describes a synchronous import.
type ImportResult struct {
	Selection upload.Selection
	Entries   []upload.Entry
}

// Committed counts the imported files that reached the store.
func (r ImportResult) Committed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == upload.StatusCompleted {
			n++
		}
	}
	return n
}

// ImportFiles runs files through validation and commits them without the
// simulated transfer delay.
func (service *CoreService) ImportFiles(ctx context.Context, files []upload.File) (ImportResult, error) {
	opts := service.config.UploadOptions()
	opts.TickInterval = 0
	opts.MaxIncrement = 100
	opts.Random = func() float64 { return 1 }

	session := upload.NewSession(service.store, opts)
	defer session.Close()

	selection, err := session.Add(files)
	result := ImportResult{Selection: selection}
	if err != nil {
		return result, err
	}

	transfer, err := session.Start(ctx)
	if errors.Is(err, upload.ErrNothingStaged) {
		return result, nil
	}
	if err != nil {
		return result, err
	}
	if err := transfer.Wait(); err != nil {
		return result, err
	}
	result.Entries = session.Entries()
	return result, nil
}

// Close releases upload sessions, the database and the tracer provider.
func (service *CoreService) Close() error {
	service.uploads.Close()

	var errs []error
	if err := service.databaseService.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	if err := service.shutdownTracing(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
	}
	return errors.Join(errs...)
}
