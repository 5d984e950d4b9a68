package api

import (
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// ServeBlob serves GET /blobs/{path}?token=... for stores whose bytes live in
// this process. The token must have been signed for exactly this path.
func (h *Handler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/blobs/")
	if err := h.blobs.Signer().Verify(key, r.URL.Query().Get("token")); err != nil {
		h.fail(w, r, err)
		return
	}

	obj, err := h.blobs.Open(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() {
		if err := obj.Body.Close(); err != nil {
			h.logger.WarnContext(r.Context(), "closing blob", slog.String("path", key), slog.String("error", err.Error()))
		}
	}()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, path.Base(key), obj.ModTime, obj.Body)
}
