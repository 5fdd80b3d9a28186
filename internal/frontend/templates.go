package frontend

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/jo-hoe/gogallery/internal/gallery"
	"github.com/jo-hoe/gogallery/internal/upload"
	"github.com/labstack/echo/v4"
)

const viewsPattern = "views/*.html"

//go:embed views/*.html
var templateFS embed.FS

//go:embed views/icon.svg views/app.js
var assetsFS embed.FS

// Template renders the embedded views for echo.
type Template struct {
	templates *template.Template
}

func newTemplate() *Template {
	return &Template{
		templates: template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, viewsPattern)),
	}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

var templateFuncs = template.FuncMap{
	"percent":      func(p float64) string { return fmt.Sprintf("%.0f", p) },
	"isNoResults":  func(e gallery.EmptyState) bool { return e == gallery.EmptyNoResults },
	"isEmpty":      func(e gallery.EmptyState) bool { return e != gallery.EmptyNone },
	"isPending":    func(s upload.Status) bool { return s == upload.StatusPending },
	"isUploading":  func(s upload.Status) bool { return s == upload.StatusUploading },
	"downloadName": gallery.DownloadFileName,
}
