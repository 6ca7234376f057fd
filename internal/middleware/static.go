package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

const placeholderCoverSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" fill="#1a1a2e"/><circle cx="100" cy="95" r="52" fill="none" stroke="#666" stroke-width="6"/><circle cx="100" cy="95" r="10" fill="#666"/><text x="100" y="178" text-anchor="middle" font-family="Arial" font-size="14" fill="#888">ALBUM</text></svg>`

// StaticFileServer serves album cover art from dir, falling back to an
// inline placeholder when the requested file does not exist.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean(r.URL.Path))

		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderCoverSVG))
	})
}
