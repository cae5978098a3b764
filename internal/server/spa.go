package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/luma-agent/luma/internal/model"
)

// spaHandler serves the bundled chat client and falls back to index.html
// for client-side routes. API routes are registered on the mux first and
// take priority over this catch-all.
type spaHandler struct {
	fs     http.FileSystem
	static http.Handler
}

func newSPAHandler(fsys fs.FS) http.Handler {
	httpFS := http.FS(fsys)
	return &spaHandler{
		fs:     httpFS,
		static: http.FileServer(httpFS),
	}
}

func (h *spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, r, http.StatusMethodNotAllowed, model.ErrCodeInvalidInput, "method not allowed")
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)

	// Unmatched API paths are real 404s, not client routes.
	if isAPIPath(urlPath) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "endpoint not found")
		return
	}

	if urlPath != "/" {
		if f, err := h.fs.Open(urlPath); err == nil {
			_ = f.Close()
			setCacheHeaders(w, urlPath)
			h.static.ServeHTTP(w, r)
			return
		}
	}

	r.URL.Path = "/"
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.static.ServeHTTP(w, r)
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/") ||
		p == "/ws" ||
		p == "/mcp" ||
		p == "/health"
}

// setCacheHeaders caches hashed bundle assets for a year and everything
// else for an hour.
func setCacheHeaders(w http.ResponseWriter, urlPath string) {
	if strings.HasPrefix(urlPath, "/assets/") {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
}
