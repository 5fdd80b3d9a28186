package frontend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/labstack/echo/v4"
)

const (
	shareTextPrefix     = "Check out this image: "
	clipboardCopiedText = "Image copied to clipboard!"
)

// SharePayload is what the share button hands to navigator.share, or to the
// clipboard when the browser cannot share files.
type SharePayload struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	Clipboard string `json:"clipboard"`
	Notice    string `json:"notice"`
}

func newSharePayload(record gallery.ImageRecord) SharePayload {
	return SharePayload{
		Title:     record.Title,
		Text:      shareTextPrefix + record.Title,
		FileName:  record.Title,
		URL:       fmt.Sprintf("/image/%s/raw", record.ID),
		Clipboard: record.Source,
		Notice:    clipboardCopiedText,
	}
}

func (service *FrontendService) shareHandler(ctx echo.Context) error {
	record, ok := service.coreService.GetImageByID(ctx.Param("id"))
	if !ok {
		slog.Warn("shareHandler: image not found", "status", http.StatusNotFound, "image_id", ctx.Param("id"))
		return ctx.String(http.StatusNotFound, "Image not found")
	}
	service.setNoCache(ctx)
	return ctx.JSON(http.StatusOK, newSharePayload(record))
}

func (service *FrontendService) rawImageHandler(ctx echo.Context) error {
	return service.serveImage(ctx, false)
}

func (service *FrontendService) downloadHandler(ctx echo.Context) error {
	return service.serveImage(ctx, true)
}

// serveImage writes the decoded image content. Remote sources are redirected to.
func (service *FrontendService) serveImage(ctx echo.Context, attachment bool) error {
	id := ctx.Param("id")
	record, ok := service.coreService.GetImageByID(id)
	if !ok {
		slog.Warn("serveImage: image not found", "status", http.StatusNotFound, "image_id", id)
		return ctx.String(http.StatusNotFound, "Image not found")
	}

	if gallery.IsRemoteSource(record.Source) {
		return ctx.Redirect(http.StatusFound, record.Source)
	}

	mimeType, content, err := gallery.DecodeDataURL(record.Source)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gallery.ErrUnsupportedSource) {
			status = http.StatusUnprocessableEntity
		}
		slog.Error("serveImage: failed to decode image source", "status", status, "image_id", id, "error", err)
		return ctx.String(status, "Image not available")
	}

	if attachment {
		ctx.Response().Header().Set(echo.HeaderContentDisposition,
			fmt.Sprintf("attachment; filename=%q", gallery.DownloadFileName(record.Title)))
	}
	return ctx.Blob(http.StatusOK, mimeType, content)
}
