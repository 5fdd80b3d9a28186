package backend

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const uploadFilesField = "files"

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type listImagesRequest struct {
	Nav   string `query:"nav" validate:"omitempty,oneof=home favorites settings"`
	Query string `query:"q" validate:"max=256"`
}

type imageIDRequest struct {
	ID string `param:"id" validate:"required,max=64"`
}

type ImageListResponse struct {
	Nav    gallery.Nav           `json:"nav"`
	Query  string                `json:"query"`
	Empty  string                `json:"empty"`
	Images []gallery.ImageRecord `json:"images"`
}

type ImportResponse struct {
	Committed    int    `json:"committed"`
	RejectedType int    `json:"rejectedType"`
	RejectedSize int    `json:"rejectedSize"`
	Notice       string `json:"notice,omitempty"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/images", s.listImagesHandler)
	api.GET("/images/favorites", s.listFavoritesHandler)
	api.POST("/images", s.importImagesHandler, middleware.BodyLimit(s.config.UploadBodyLimit()))
	api.POST("/images/:id/favorite", s.toggleFavoriteHandler)
	api.DELETE("/images/:id", s.deleteImageHandler)
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	var req listImagesRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newImageListResponse(s.coreService.Images(gallery.ParseNav(req.Nav), req.Query)))
}

func (s *APIService) listFavoritesHandler(ctx echo.Context) error {
	images := s.coreService.Store().GetFavorites()
	if images == nil {
		images = []gallery.ImageRecord{}
	}
	return ctx.JSON(http.StatusOK, images)
}

func (s *APIService) importImagesHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Warn("importImagesHandler: invalid multipart form", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form with field "+uploadFilesField)
	}

	headers := form.File[uploadFilesField]
	files := make([]upload.File, 0, len(headers))
	for _, header := range headers {
		files = append(files, upload.FromMultipart(header))
	}

	result, err := s.coreService.ImportFiles(ctx.Request().Context(), files)
	if errors.Is(err, upload.ErrNoImages) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, upload.NoticeImagesOnly)
	}
	if err != nil {
		slog.Error("importImagesHandler: failed to import images", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to import images")
	}

	response := ImportResponse{
		Committed:    result.Committed(),
		RejectedType: result.Selection.RejectedType,
		RejectedSize: result.Selection.RejectedSize,
		Notice:       result.Selection.Notice(),
	}
	status := http.StatusCreated
	if response.Committed == 0 {
		status = http.StatusUnprocessableEntity
	}
	return ctx.JSON(status, response)
}

func (s *APIService) toggleFavoriteHandler(ctx echo.Context) error {
	var req imageIDRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}
	if err := s.coreService.ToggleFavorite(ctx.Request().Context(), req.ID); err != nil {
		slog.Error("toggleFavoriteHandler: failed to toggle favorite", "image_id", req.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update favorite")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) deleteImageHandler(ctx echo.Context) error {
	var req imageIDRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}
	if err := s.coreService.DeleteImage(ctx.Request().Context(), req.ID); err != nil {
		slog.Error("deleteImageHandler: failed to delete image", "image_id", req.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete image")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func newImageListResponse(view gallery.GalleryView) ImageListResponse {
	images := view.Images
	if images == nil {
		images = []gallery.ImageRecord{}
	}
	return ImageListResponse{
		Nav:    view.Nav,
		Query:  view.Query,
		Empty:  emptyStateName(view.Empty),
		Images: images,
	}
}

func emptyStateName(state gallery.EmptyState) string {
	switch state {
	case gallery.EmptyNoImages:
		return "no_images"
	case gallery.EmptyNoResults:
		return "no_results"
	default:
		return "none"
	}
}
