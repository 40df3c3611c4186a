package viewer

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
)

//go:embed web/*
var content embed.FS

const pageTemplate = "image.html"

var page = template.Must(template.ParseFS(content, "web/"+pageTemplate))

// Page is the data the image page is rendered from.
type Page struct {
	DeviceID     string
	Name         string
	SerialNumber string
	Status       string
	ImageURL     string
	ContentType  string

	// AssetBase is the URL prefix Assets is mounted under.
	AssetBase string
}

// Render writes the image page for p to w.
func Render(w io.Writer, p Page) error {
	if err := page.ExecuteTemplate(w, pageTemplate, p); err != nil {
		return fmt.Errorf("rendering image page: %w", err)
	}
	return nil
}

// Assets returns an http.Handler serving the embedded static files.
// Template sources are not served.
// Panics if the embedded web assets cannot be loaded (build error).
func Assets() http.Handler {
	webFS, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("viewer: failed to load embedded web assets: %v", err))
	}
	fileServer := http.FileServer(http.FS(webFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := path.Clean("/" + r.URL.Path)
		if upath == "/" || path.Ext(upath) == ".html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}
