package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UploadFile serves POST /api/files/upload, a multipart form with a "file"
// part and an optional "folder_id" field.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanup()

	folderID := optionalID(r.FormValue("folder_id"))
	file, err := h.service.UploadFile(r.Context(), ActorFrom(r.Context()), folderID, upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

// ListFiles serves GET /api/files?folder_id=...
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	folderID := optionalID(r.URL.Query().Get("folder_id"))
	files, err := h.service.ListFiles(r.Context(), ActorFrom(r.Context()), folderID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) ListTrashedFiles(w http.ResponseWriter, r *http.Request) {
	trash, err := h.service.ListTrash(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trash.Files)
}

func (h *Handler) StorageUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.service.StorageUsage(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.GetFile(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	file, err := h.service.RenameFile(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// ReplaceContent serves POST /api/files/{id}/new-version.
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanup()

	file, err := h.service.ReplaceContent(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), upload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.ListVersions(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.FileDownloadURL(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, url)
}

func (h *Handler) DownloadVersion(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.VersionDownloadURL(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, url)
}

func (h *Handler) TrashFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.TrashFile(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"File moved to trash"})
}

func (h *Handler) RestoreFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RestoreFile(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"File restored"})
}

func (h *Handler) PurgeFile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PurgeFile(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"File permanently deleted"})
}
