// Package api exposes a DriveService over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"

	"drive-go/internal/drive"
	"drive-go/internal/objectstore"
)

const (
	// multipartMemory is how much of a multipart body is held in memory before
	// spilling to temporary files.
	multipartMemory = 8 << 20

	// multipartOverhead allows for boundaries and form fields around the file.
	multipartOverhead = 1 << 20

	maxJSONBody = 1 << 20
)

// Options configures a Handler.
type Options struct {
	// ShareBaseURL prefixes share links: {ShareBaseURL}/share/{token}.
	ShareBaseURL string

	// Blobs is set when the object store's bytes are served by this process.
	// Its signed URLs point at /blobs/.
	Blobs objectstore.LocalStore
}

// Handler implements the HTTP routes on top of a DriveService.
type Handler struct {
	service        *drive.DriveService
	blobs          objectstore.LocalStore
	logger         *slog.Logger
	validate       *validator.Validate
	shareBaseURL   string
	maxUploadBytes int64
}

// NewHandler creates a Handler.
func NewHandler(service *drive.DriveService, logger *slog.Logger, opts Options) *Handler {
	return &Handler{
		service:        service,
		blobs:          opts.Blobs,
		logger:         logger.With(slog.String("component", "api")),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		shareBaseURL:   opts.ShareBaseURL,
		maxUploadBytes: service.Options().MaxUploadBytes,
	}
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func (h *Handler) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return badRequest("invalid request", err)
	}
	return nil
}

// optionalID reads a parent or folder ID parameter. Absent, "null" and
// "undefined" all mean the root.
func optionalID(v string) *string {
	switch v {
	case "", "null", "undefined":
		return nil
	default:
		return &v
	}
}

// pageFrom reads limit, offset, sort and order from the query string.
func pageFrom(r *http.Request) (drive.Page, error) {
	q := r.URL.Query()
	page := drive.Page{
		Sort:  drive.ParseSortKey(q.Get("sort")),
		Order: drive.ParseSortOrder(q.Get("order")),
	}
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return drive.Page{}, badRequest(name+" must be an integer", nil)
		}
		*dst = n
	}
	return page, nil
}

// readUpload parses a multipart body holding a "file" part. The returned
// cleanup releases the part and any temporary files.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (drive.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return drive.Upload{}, nil, badRequest("upload exceeds "+strconv.FormatInt(h.maxUploadBytes, 10)+" bytes", nil)
		}
		return drive.Upload{}, nil, badRequest("invalid multipart form", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		if errors.Is(err, http.ErrMissingFile) {
			return drive.Upload{}, nil, badRequest("no file uploaded", nil)
		}
		return drive.Upload{}, nil, badRequest("reading file part", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	cleanup := func() {
		file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return drive.Upload{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, cleanup, nil
}

type message struct {
	Message string `json:"message"`
}

// Health reports whether the object store is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
