package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/jo-hoe/gogallery/internal/common"
	"github.com/jo-hoe/gogallery/internal/core"
	"github.com/jo-hoe/gogallery/internal/database"
	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/labstack/echo/v4"
)

func newTestAPI(t *testing.T) (*echo.Echo, *core.CoreService) {
	t.Helper()
	return newTestAPIWith(t, nil)
}

func newTestAPIWith(t *testing.T, configure func(cfg *core.ServiceConfig)) (*echo.Echo, *core.CoreService) {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Database.Type = database.TypeMemory
	cfg.Upload.SpoolDir = t.TempDir()
	if configure != nil {
		configure(&cfg)
	}

	coreService, err := core.NewCoreService(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = &common.RequestValidator{}
	NewAPIService(&cfg, coreService).SetRoutes(e)
	return e, coreService
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func mustAdd(t *testing.T, coreService *core.CoreService, title string) gallery.ImageRecord {
	t.Helper()
	record, err := coreService.Store().AddImage(context.Background(), gallery.RecordInput{Title: title, SizeLabel: "1.0 MB"})
	if err != nil {
		t.Fatalf("AddImage error: %v", err)
	}
	return record
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) ImageListResponse {
	t.Helper()
	var resp ImageListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal error: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestListImages(t *testing.T) {
	e, coreService := newTestAPI(t)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeList(t, rec)
	if resp.Empty != "no_images" || len(resp.Images) != 0 {
		t.Fatalf("unexpected empty response %+v", resp)
	}

	mustAdd(t, coreService, "Beach")
	sunset := mustAdd(t, coreService, "Sunset")
	if err := coreService.ToggleFavorite(context.Background(), sunset.ID); err != nil {
		t.Fatalf("ToggleFavorite error: %v", err)
	}

	tests := []struct {
		name   string
		target string
		titles []string
		empty  string
	}{
		{name: "all newest first", target: "/api/images", titles: []string{"Sunset", "Beach"}, empty: "none"},
		{name: "search", target: "/api/images?q=BEA", titles: []string{"Beach"}, empty: "none"},
		{name: "favorites", target: "/api/images?nav=favorites", titles: []string{"Sunset"}, empty: "none"},
		{name: "favorites and search", target: "/api/images?nav=favorites&q=beach", titles: nil, empty: "no_results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeList(t, doRequest(e, httptest.NewRequest(http.MethodGet, tt.target, nil)))
			if resp.Empty != tt.empty {
				t.Errorf("expected empty %q, got %q", tt.empty, resp.Empty)
			}
			if len(resp.Images) != len(tt.titles) {
				t.Fatalf("expected %d images, got %d", len(tt.titles), len(resp.Images))
			}
			for i, title := range tt.titles {
				if resp.Images[i].Title != title {
					t.Errorf("image %d: expected %q, got %q", i, title, resp.Images[i].Title)
				}
			}
		})
	}
}

func TestListImages_InvalidNav(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/images?nav=trash", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nav must be one of: home, favorites, settings") {
		t.Fatalf("expected field message, got %s", rec.Body.String())
	}
}

func TestListFavorites(t *testing.T) {
	e, coreService := newTestAPI(t)

	rec := doRequest(e, httptest.NewRequest(http.MethodGet, "/api/images/favorites", nil))
	if rec.Body.String() != "[]\n" {
		t.Fatalf("expected empty array, got %q", rec.Body.String())
	}

	record := mustAdd(t, coreService, "Sunset")
	rec = doRequest(e, httptest.NewRequest(http.MethodPost, "/api/images/"+record.ID+"/favorite", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(e, httptest.NewRequest(http.MethodGet, "/api/images/favorites", nil))
	var favorites []gallery.ImageRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &favorites); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(favorites) != 1 || favorites[0].ID != record.ID || !favorites[0].IsFavorite {
		t.Fatalf("unexpected favorites %+v", favorites)
	}
}

func TestDeleteImage(t *testing.T) {
	e, coreService := newTestAPI(t)
	record := mustAdd(t, coreService, "Sunset")

	rec := doRequest(e, httptest.NewRequest(http.MethodDelete, "/api/images/"+record.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if coreService.Store().Len() != 0 {
		t.Fatal("expected record to be removed")
	}

	rec = doRequest(e, httptest.NewRequest(http.MethodDelete, "/api/images/"+record.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for unknown id, got %d", rec.Code)
	}
}

type part struct {
	name        string
	contentType string
	content     []byte
}

func importRequest(t *testing.T, parts []part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFilesField, p.name))
		header.Set("Content-Type", p.contentType)
		w, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart error: %v", err)
		}
		if _, err := w.Write(p.content); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestImportImages(t *testing.T) {
	e, coreService := newTestAPI(t)

	rec := doRequest(e, importRequest(t, []part{
		{name: "a.png", contentType: "image/png", content: []byte("a")},
		{name: "b.gif", contentType: "image/gif", content: []byte("b")},
		{name: "c.txt", contentType: "text/plain", content: []byte("c")},
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if resp.Committed != 2 || resp.RejectedType != 1 || resp.RejectedSize != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	images := coreService.Store().Images()
	if len(images) != 2 || images[0].Title != "b.gif" || images[1].Title != "a.png" {
		t.Fatalf("expected sequential commits newest first, got %+v", images)
	}
}

func TestImportImages_OnlyNonImages(t *testing.T) {
	e, coreService := newTestAPI(t)

	rec := doRequest(e, importRequest(t, []part{{name: "c.txt", contentType: "text/plain", content: []byte("c")}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("Please select image files only.")) {
		t.Fatalf("expected notice in body, got %s", rec.Body.String())
	}
	if coreService.Store().Len() != 0 {
		t.Fatal("expected no records")
	}
}

func TestImportImages_NotMultipart(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := doRequest(e, httptest.NewRequest(http.MethodPost, "/api/images", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestImportImages_RequestTooLarge(t *testing.T) {
	e, coreService := newTestAPIWith(t, func(cfg *core.ServiceConfig) {
		cfg.Upload.MaxRequestBytes = 1024
	})

	rec := doRequest(e, importRequest(t, []part{
		{name: "big.png", contentType: "image/png", content: bytes.Repeat([]byte("x"), 4096)},
	}))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if coreService.Store().Len() != 0 {
		t.Fatal("expected no records")
	}
}
