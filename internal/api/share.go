package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"drive-go/internal/model"
)

type createLinkRequest struct {
	ResourceID   string `json:"resource_id" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	Role         string `json:"role" validate:"required"`
}

type createLinkResponse struct {
	Message    string            `json:"message"`
	Link       string            `json:"link"`
	Permission *model.Permission `json:"permission"`
}

type grantRequest struct {
	ResourceID   string `json:"resource_id" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	Role         string `json:"role" validate:"required"`
}

type accessResponse struct {
	Resource     any                `json:"resource"`
	Role         model.Role         `json:"role"`
	ResourceType model.ResourceType `json:"resource_type"`
}

// parseTarget validates the resource type and role of a share request.
func parseTarget(resourceType, role string) (model.ResourceType, model.Role, error) {
	typ, err := model.ParseResourceType(resourceType)
	if err != nil {
		return "", model.RoleNone, badRequest("invalid role or resource type", err)
	}
	rl, err := model.ParseRole(role)
	if err != nil {
		return "", model.RoleNone, badRequest("invalid role or resource type", err)
	}
	return typ, rl, nil
}

// shareURL is the frontend address of a link token.
func (h *Handler) shareURL(token string) string {
	return strings.TrimSuffix(h.shareBaseURL, "/") + "/share/" + token
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	typ, role, err := parseTarget(req.ResourceType, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perm, err := h.service.CreateLink(r.Context(), ActorFrom(r.Context()), req.ResourceID, typ, role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createLinkResponse{
		Message:    "Link generated successfully",
		Link:       h.shareURL(*perm.SharedLink),
		Permission: perm,
	})
}

// AccessLink serves GET /api/share/access/{link}. It needs no credential.
func (h *Handler) AccessLink(w http.ResponseWriter, r *http.Request) {
	shared, err := h.service.ResolveLink(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := accessResponse{Role: shared.Role, ResourceType: shared.ResourceType}
	if shared.File != nil {
		resp.Resource = shared.File
	} else {
		resp.Resource = shared.Folder
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	typ, role, err := parseTarget(req.ResourceType, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perm, err := h.service.GrantRole(r.Context(), ActorFrom(r.Context()), req.ResourceID, typ, req.UserID, role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, perm)
}

// ListPermissions serves GET /api/share/permissions?resource_id=&resource_type=
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := model.ParseResourceType(q.Get("resource_type"))
	if err != nil {
		h.fail(w, r, badRequest("invalid resource type", err))
		return
	}
	perms, err := h.service.ListPermissions(r.Context(), ActorFrom(r.Context()), q.Get("resource_id"), typ)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevokePermission(r.Context(), ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListShared(w http.ResponseWriter, r *http.Request) {
	shared, err := h.service.ListShared(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared)
}
