package api

import "net/http"

// Search serves GET /api/search?q=...&folder_id=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	result, err := h.service.Search(r.Context(), ActorFrom(r.Context()), q.Get("q"), optionalID(q.Get("folder_id")), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
