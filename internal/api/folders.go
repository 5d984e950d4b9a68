package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createFolderRequest struct {
	Name           string  `json:"name" validate:"required"`
	ParentFolderID *string `json:"parent_folder_id"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required"`
}

type moveFolderRequest struct {
	ParentFolderID *string `json:"parent_folder_id"`
}

func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	folder, err := h.service.CreateFolder(r.Context(), ActorFrom(r.Context()), req.Name, req.ParentFolderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// ListFolders serves GET /api/folders?parent_folder_id=...
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	parent := optionalID(r.URL.Query().Get("parent_folder_id"))
	folders, err := h.service.ListFolders(r.Context(), ActorFrom(r.Context()), parent, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *Handler) ListTrashedFolders(w http.ResponseWriter, r *http.Request) {
	trash, err := h.service.ListTrash(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trash.Folders)
}

func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := h.service.GetFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	folder, err := h.service.RenameFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// MoveFolder serves POST /api/folders/{id}/move. A null parent_folder_id
// moves the folder to the root.
func (h *Handler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	var req moveFolderRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	folder, err := h.service.MoveFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"), req.ParentFolderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (h *Handler) TrashFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.TrashFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Folder moved to trash"})
}

func (h *Handler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	crumbs, err := h.service.Breadcrumbs(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crumbs)
}

func (h *Handler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RestoreFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Folder restored"})
}

func (h *Handler) PurgeFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.PurgeFolder(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{"Folder permanently deleted"})
}

// ListTrash serves GET /api/trash with both trashed folders and files.
func (h *Handler) ListTrash(w http.ResponseWriter, r *http.Request) {
	trash, err := h.service.ListTrash(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trash)
}
