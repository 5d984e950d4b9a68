package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drive-go/internal/drive"
)

// NewRouter mounts every route of h. Everything under /api passes through
// Authenticate.
func NewRouter(h *Handler, verifier drive.Verifier, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(Metrics())

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	if h.blobs != nil {
		r.Get("/blobs/*", h.ServeBlob)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", h.CreateFolder)
			r.Get("/", h.ListFolders)
			r.Get("/trash", h.ListTrashedFolders)
			r.Get("/{id}", h.GetFolder)
			r.Put("/{id}", h.RenameFolder)
			r.Post("/{id}/move", h.MoveFolder)
			r.Delete("/{id}", h.TrashFolder)
			r.Get("/{id}/breadcrumbs", h.Breadcrumbs)
			r.Post("/{id}/restore", h.RestoreFolder)
			r.Delete("/{id}/permanent", h.PurgeFolder)
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", h.UploadFile)
			r.Get("/", h.ListFiles)
			r.Get("/trash", h.ListTrashedFiles)
			r.Get("/storage/usage", h.StorageUsage)
			r.Get("/versions/{id}/download", h.DownloadVersion)
			r.Get("/{id}", h.GetFile)
			r.Put("/{id}", h.RenameFile)
			r.Post("/{id}/new-version", h.ReplaceContent)
			r.Get("/{id}/versions", h.ListVersions)
			r.Get("/{id}/download", h.DownloadFile)
			r.Delete("/{id}", h.TrashFile)
			r.Post("/{id}/restore", h.RestoreFile)
			r.Delete("/{id}/permanent", h.PurgeFile)
		})

		r.Route("/share", func(r chi.Router) {
			r.Post("/link", h.CreateLink)
			r.Get("/access/{link}", h.AccessLink)
			r.Post("/grants", h.GrantRole)
			r.Get("/permissions", h.ListPermissions)
			r.Delete("/permissions/{id}", h.RevokePermission)
			r.Get("/with-me", h.ListShared)
		})

		r.Get("/search", h.Search)
		r.Get("/trash", h.ListTrash)
	})

	return r
}
