// Package web embeds the console's HTML templates and static assets.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates returns the page templates. layout.html defines the shell and
// every other file defines "content" for one page.
func Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic("web: failed to create template filesystem: " + err.Error())
	}
	return sub
}

// StaticHandler serves the embedded stylesheet and scripts. Mount it under
// /static/ with the prefix stripped.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create static filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" || strings.HasSuffix(path, "/") {
			http.NotFound(w, r)
			return
		}

		f, err := subFS.Open(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
		}
		fileServer.ServeHTTP(w, r)
	})
}
