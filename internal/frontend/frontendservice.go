package frontend

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	MainPageName    = "index.html"
	themeCookieName = "gallery_theme"
	themeDark       = "dark"
	themeLight      = "light"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
	events      *EventHub
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
		events:      NewEventHub(coreService.Store()),
	}
}

// Close ends all open event streams.
func (service *FrontendService) Close() {
	service.events.Close()
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)
	e.POST("/htmx/theme", service.htmxToggleThemeHandler)

	// Gallery fragments and card actions
	e.GET("/htmx/images", service.htmxListImagesHandler)
	e.POST("/htmx/image/:id/favorite", service.htmxToggleFavoriteHandler)
	e.DELETE("/htmx/image/:id", service.htmxDeleteImageHandler)
	e.GET("/htmx/image/:id/preview", service.htmxPreviewHandler)
	e.GET("/image/:id/raw", service.rawImageHandler)
	e.GET("/image/:id/download", service.downloadHandler)
	e.GET("/image/:id/share", service.shareHandler)

	// Upload dialog
	e.GET("/htmx/upload", service.htmxOpenUploadHandler)
	e.POST("/htmx/upload/files", service.htmxStageFilesHandler, middleware.BodyLimit(service.config.UploadBodyLimit()))
	e.DELETE("/htmx/upload/:entry", service.htmxRemoveStagedHandler)
	e.POST("/htmx/upload/start", service.htmxStartUploadHandler)
	e.GET("/htmx/upload/progress", service.htmxUploadProgressHandler)
	e.POST("/htmx/upload/close", service.htmxCloseUploadHandler)
	e.GET("/upload/preview/:entry", service.uploadPreviewHandler)

	e.GET("/events", service.events.handler)

	// Static assets
	e.GET("/icon.svg", service.iconHandler)
	e.GET("/app.js", service.scriptHandler)
}

type navItemData struct {
	gallery.NavItem
	Active bool
}

type pageData struct {
	NavItems []navItemData
	Nav      gallery.Nav
	Query    string
	Dark     bool
	Gallery  galleryData
}

type galleryData struct {
	gallery.GalleryView
}

func (service *FrontendService) galleryFor(ctx echo.Context) galleryData {
	nav := gallery.ParseNav(ctx.FormValue("nav"))
	return galleryData{GalleryView: service.coreService.Images(nav, ctx.FormValue("q"))}
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	view := service.galleryFor(ctx)

	items := make([]navItemData, 0, len(gallery.NavItems))
	for _, item := range gallery.NavItems {
		items = append(items, navItemData{NavItem: item, Active: item.ID == view.Nav})
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, pageData{
		NavItems: items,
		Nav:      view.Nav,
		Query:    view.Query,
		Dark:     isDarkMode(ctx),
		Gallery:  view,
	})
}

func (service *FrontendService) htmxListImagesHandler(ctx echo.Context) error {
	// Prevent caching so the latest images are always shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "gallery", service.galleryFor(ctx))
}

func (service *FrontendService) htmxToggleFavoriteHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := service.coreService.ToggleFavorite(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxToggleFavoriteHandler: failed to toggle favorite",
			"status", http.StatusInternalServerError, "image_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to update favorite")
	}

	record, ok := service.coreService.GetImageByID(id)
	if !ok {
		// removed concurrently; close the preview
		return ctx.HTML(http.StatusOK, "")
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "preview", record)
}

func (service *FrontendService) htmxDeleteImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := service.coreService.DeleteImage(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxDeleteImageHandler: failed to delete image",
			"status", http.StatusInternalServerError, "image_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete image")
	}

	// Prevent caching so the latest state is shown
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "gallery", service.galleryFor(ctx))
}

func (service *FrontendService) htmxPreviewHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	record, ok := service.coreService.GetImageByID(id)
	if !ok {
		slog.Warn("htmxPreviewHandler: image not found", "status", http.StatusNotFound, "image_id", id)
		return ctx.String(http.StatusNotFound, "Image not found")
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "preview", record)
}

func (service *FrontendService) htmxToggleThemeHandler(ctx echo.Context) error {
	theme := themeDark
	if isDarkMode(ctx) {
		theme = themeLight
	}
	ctx.SetCookie(&http.Cookie{
		Name:     themeCookieName,
		Value:    theme,
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ctx.Response().Header().Set("X-Theme", theme)
	return ctx.NoContent(http.StatusOK)
}

func isDarkMode(ctx echo.Context) bool {
	cookie, err := ctx.Cookie(themeCookieName)
	return err == nil && cookie.Value == themeDark
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	return service.assetHandler(ctx, "views/icon.svg", "image/svg+xml")
}

func (service *FrontendService) scriptHandler(ctx echo.Context) error {
	return service.assetHandler(ctx, "views/app.js", "text/javascript; charset=utf-8")
}

func (service *FrontendService) assetHandler(ctx echo.Context, name, contentType string) error {
	data, err := assetsFS.ReadFile(name)
	if err != nil {
		slog.Error("assetHandler: failed to read asset", "status", http.StatusInternalServerError, "asset", name, "error", err)
		return ctx.String(http.StatusInternalServerError, fmt.Sprintf("Failed to load %s", name))
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, contentType, data)
}
