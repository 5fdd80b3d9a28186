package frontend

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/gogallery/internal/upload"
	"github.com/labstack/echo/v4"
)

const (
	uploadCookieName    = "gallery_upload"
	uploadFilesField    = "files"
	defaultPollInterval = "200ms"
)

type uploadData struct {
	Entries      []upload.Entry
	Notice       string
	Uploading    bool
	Completed    bool
	PollInterval string
	MaxMB        int64
}

func (service *FrontendService) uploadDataFor(session *upload.Session, notice string) uploadData {
	data := uploadData{
		Notice:       notice,
		PollInterval: defaultPollInterval,
		MaxMB:        service.maxFileSize() / 1024 / 1024,
	}
	if interval := service.config.Upload.TickInterval; interval > 0 {
		data.PollInterval = interval.String()
	}
	if session != nil {
		data.Entries = session.Entries()
		data.Uploading = session.Uploading()
		data.Completed = session.Completed()
	}
	return data
}

func (service *FrontendService) maxFileSize() int64 {
	if size := service.config.Upload.MaxFileSizeBytes; size > 0 {
		return size
	}
	return upload.MaxFileSize
}

func (service *FrontendService) currentSession(ctx echo.Context) (*upload.Session, bool) {
	cookie, err := ctx.Cookie(uploadCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return service.coreService.Uploads().Get(cookie.Value)
}

func (service *FrontendService) setSessionCookie(ctx echo.Context, id string, maxAge int) {
	ctx.SetCookie(&http.Cookie{
		Name:     uploadCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// htmxOpenUploadHandler opens a fresh upload session, discarding a previous one.
func (service *FrontendService) htmxOpenUploadHandler(ctx echo.Context) error {
	if previous, ok := service.currentSession(ctx); ok {
		service.coreService.Uploads().CloseSession(previous.ID)
	}

	session := service.coreService.Uploads().Open()
	service.setSessionCookie(ctx, session.ID, 0)
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "upload-dialog", service.uploadDataFor(session, ""))
}

func (service *FrontendService) htmxStageFilesHandler(ctx echo.Context) error {
	session, ok := service.currentSession(ctx)
	if !ok {
		return ctx.String(http.StatusBadRequest, "No upload in progress")
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Error("htmxStageFilesHandler: failed to parse multipart form",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded files")
	}

	headers := form.File[uploadFilesField]
	files := make([]upload.File, 0, len(headers))
	for _, header := range headers {
		files = append(files, upload.FromMultipart(header))
	}

	selection, err := session.Add(files)
	notice := selection.Notice()
	switch {
	case errors.Is(err, upload.ErrNoImages):
		notice = upload.NoticeImagesOnly
	case errors.Is(err, upload.ErrSessionClosed):
		return ctx.String(http.StatusBadRequest, "No upload in progress")
	case err != nil:
		slog.Error("htmxStageFilesHandler: failed to stage files",
			"status", http.StatusInternalServerError, "session_id", session.ID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to stage files")
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "upload-list", service.uploadDataFor(session, notice))
}

func (service *FrontendService) htmxRemoveStagedHandler(ctx echo.Context) error {
	session, ok := service.currentSession(ctx)
	if !ok {
		return ctx.String(http.StatusBadRequest, "No upload in progress")
	}

	notice := ""
	if err := session.Remove(ctx.Param("entry")); errors.Is(err, upload.ErrEntryBusy) {
		notice = "This file is uploading and cannot be removed."
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "upload-list", service.uploadDataFor(session, notice))
}

func (service *FrontendService) htmxStartUploadHandler(ctx echo.Context) error {
	session, ok := service.currentSession(ctx)
	if !ok {
		return ctx.String(http.StatusBadRequest, "No upload in progress")
	}

	notice := ""
	// the transfer outlives this request; closing the session cancels it
	_, err := session.Start(context.WithoutCancel(ctx.Request().Context()))
	switch {
	case errors.Is(err, upload.ErrNothingStaged):
		notice = upload.NoticeNothingStaged
	case errors.Is(err, upload.ErrTransferRunning):
	case err != nil:
		slog.Error("htmxStartUploadHandler: failed to start upload",
			"status", http.StatusInternalServerError, "session_id", session.ID, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to start upload")
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "upload-list", service.uploadDataFor(session, notice))
}

func (service *FrontendService) htmxUploadProgressHandler(ctx echo.Context) error {
	session, ok := service.currentSession(ctx)
	if !ok {
		return ctx.String(http.StatusBadRequest, "No upload in progress")
	}
	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "upload-list", service.uploadDataFor(session, ""))
}

// htmxCloseUploadHandler cancels a running transfer, releases every preview and
// removes the dialog.
func (service *FrontendService) htmxCloseUploadHandler(ctx echo.Context) error {
	if session, ok := service.currentSession(ctx); ok {
		service.coreService.Uploads().CloseSession(session.ID)
	}
	service.setSessionCookie(ctx, "", -1)
	return ctx.HTML(http.StatusOK, "")
}

func (service *FrontendService) uploadPreviewHandler(ctx echo.Context) error {
	session, ok := service.currentSession(ctx)
	if !ok {
		return ctx.String(http.StatusNotFound, "Preview not available")
	}
	preview, ok := session.Preview(ctx.Param("entry"))
	if !ok {
		return ctx.String(http.StatusNotFound, "Preview not available")
	}

	reader, err := preview.Open()
	if err != nil {
		slog.Warn("uploadPreviewHandler: preview not readable",
			"status", http.StatusNotFound, "entry_id", ctx.Param("entry"), "error", err)
		return ctx.String(http.StatusNotFound, "Preview not available")
	}
	defer func() { _ = reader.Close() }()

	service.setNoCache(ctx)
	return ctx.Stream(http.StatusOK, preview.ContentType(), reader)
}
