package api

import (
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

var contentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/MP2T",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".vtt":  "text/vtt",
	".json": "application/json",
}

// serveBundle serves published bundle files. Staging directories and locks
// are hidden, so that players never see a partially written bundle.
func (a *ApiManagerCtx) serveBundle(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "*")
	if resource == "" || strings.HasSuffix(resource, "/") {
		http.NotFound(w, r)
		return
	}

	for _, elem := range strings.Split(resource, "/") {
		if elem == "" || strings.HasPrefix(elem, ".") {
			http.NotFound(w, r)
			return
		}
	}

	if contentType, ok := contentTypes[strings.ToLower(path.Ext(resource))]; ok {
		w.Header().Set("Content-Type", contentType)
	}

	// playlists of running renditions may still change
	if strings.HasSuffix(resource, ".m3u8") {
		w.Header().Set("Cache-Control", "no-cache")
	}

	r.URL.Path = "/" + resource
	http.FileServer(http.Dir(a.hlsDir)).ServeHTTP(w, r)
}
