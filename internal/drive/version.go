package drive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"drive-go/internal/model"
)

const (
	defaultContentType = "application/octet-stream"
	keyAttempts        = 3

	// maxKeyNameBytes keeps the last key segment, with its millis prefix,
	// under the 255 byte filename limit of common filesystems.
	maxKeyNameBytes = 200
	maxKeyExtBytes  = 16
)

// Upload describes bytes offered by a client.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (s *DriveService) validateUpload(u Upload) (Upload, error) {
	if u.Body == nil {
		return u, fmt.Errorf("%w: no file uploaded", ErrBadRequest)
	}
	if u.Size < 0 {
		return u, fmt.Errorf("%w: negative size", ErrBadRequest)
	}
	if u.Size > s.opts.MaxUploadBytes {
		return u, fmt.Errorf("%w: file of %d bytes exceeds the %d byte upload limit", ErrBadRequest, u.Size, s.opts.MaxUploadBytes)
	}
	name, err := validateName(u.Name)
	if err != nil {
		return u, err
	}
	u.Name = name
	if strings.TrimSpace(u.ContentType) == "" {
		u.ContentType = defaultContentType
	}
	return u, nil
}

// storageKey returns {owner}/{unix millis}_{name}, with path separators in
// the name replaced so the key keeps exactly one level of namespacing. Long
// names are shortened; the display name is unaffected.
func storageKey(ownerID string, at time.Time, name string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%s/%d_%s", ownerID, at.UnixMilli(), truncateKeyName(safe))
}

// truncateKeyName cuts name to maxKeyNameBytes on a rune boundary, keeping a
// short extension.
func truncateKeyName(name string) string {
	if len(name) <= maxKeyNameBytes {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > maxKeyExtBytes || len(ext) == len(name) {
		ext = ""
	}
	stem := name[:len(name)-len(ext)]
	cut := maxKeyNameBytes - len(ext)
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return stem[:cut] + ext
}

// checkQuota fails when adding delta bytes would take the owner's active
// usage past the quota.
func (s *DriveService) checkQuota(ctx context.Context, ownerID string, delta int64) error {
	used, err := s.database.SumActiveFileSize(ctx, ownerID)
	if err != nil {
		return upstream("computing storage usage", err)
	}
	if used+delta > s.opts.QuotaBytes {
		return fmt.Errorf("%w: %d of %d bytes used, %d more requested", ErrQuotaExceeded, used, s.opts.QuotaBytes, delta)
	}
	return nil
}

// putBlob stores u under a fresh key for ownerID. Stores refuse to overwrite
// an existing key, so a collision moves the timestamp forward a millisecond
// and tries again.
func (s *DriveService) putBlob(ctx context.Context, ownerID string, at time.Time, u Upload) (string, error) {
	for attempt := 0; attempt < keyAttempts; attempt++ {
		key := storageKey(ownerID, at.Add(time.Duration(attempt)*time.Millisecond), u.Name)
		path, err := s.store.Put(ctx, key, u.Body, u.Size, u.ContentType)
		if err == nil {
			return path, nil
		}
		if KindOf(err) != KindConflict {
			return "", upstream("storing content", err)
		}
		s.logger.Debug("storage key taken", "key", key)
	}
	return "", fmt.Errorf("%w: no free storage key for %s", ErrConflict, u.Name)
}

// discardBlob deletes a blob whose metadata write failed.
func (s *DriveService) discardBlob(ctx context.Context, path string) {
	if err := s.store.Delete(ctx, path); err != nil {
		s.logger.Warn("failed to delete orphaned blob", "path", path, "error", err)
	}
}

// UploadFile stores a new file owned by the actor, at the root when folderID
// is nil. The folder must be active and owned by the actor. The
// upload is rejected before any I/O when it is too large or would exceed the
// actor's quota.
func (s *DriveService) UploadFile(ctx context.Context, actor Actor, folderID *string, u Upload) (_ *model.File, err error) {
	defer observe("upload_file", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	u, err = s.validateUpload(u)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		if err := s.requireOwnFolder(ctx, actor, *folderID); err != nil {
			return nil, err
		}
	}
	if err := s.checkQuota(ctx, actor.UserID, u.Size); err != nil {
		return nil, err
	}

	now := s.now()
	path, err := s.putBlob(ctx, actor.UserID, now, u)
	if err != nil {
		return nil, err
	}

	file := &model.File{
		ID:        s.idgen.New(),
		Name:      u.Name,
		Size:      u.Size,
		Format:    u.ContentType,
		Path:      path,
		PublicURL: s.store.PublicURL(path),
		Version:   1,
		FolderID:  folderID,
		OwnerID:   actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.database.CreateFile(ctx, file); err != nil {
		s.discardBlob(ctx, path)
		return nil, upstream("creating file", err)
	}

	uploadedBytes.Add(float64(u.Size))
	s.logger.Info("file uploaded", "file_id", file.ID, "owner_id", file.OwnerID, "size", file.Size)
	return file, nil
}

// GetFile returns an active file the actor may view.
func (s *DriveService) GetFile(ctx context.Context, actor Actor, id string) (_ *model.File, err error) {
	defer observe("get_file", &err)
	return s.loadFile(ctx, actor, id, activeOnly, model.RoleViewer)
}

// snapshotThenMutate records the pre-mutation state of file as a FileVersion
// and writes updated in the same transaction, bumping the version by one. The
// write is a compare-and-swap on the version read by the caller.
func (s *DriveService) snapshotThenMutate(ctx context.Context, file *model.File, mutate func(*model.File)) (*model.File, error) {
	now := s.now()
	snapshot := &model.FileVersion{
		ID:        s.idgen.New(),
		FileID:    file.ID,
		Name:      file.Name,
		Size:      file.Size,
		Format:    file.Format,
		Path:      file.Path,
		CreatedAt: now,
	}

	updated := *file
	mutate(&updated)
	updated.Version = file.Version + 1
	updated.UpdatedAt = now

	if err := s.database.SnapshotAndUpdateFile(ctx, file.Version, snapshot, &updated); err != nil {
		if KindOf(err) == KindConflict {
			versionConflicts.Inc()
		}
		return nil, upstream("updating file", err)
	}
	return &updated, nil
}

// RenameFile renames a file through the version chain. Renaming to the
// current name changes nothing and creates no version.
func (s *DriveService) RenameFile(ctx context.Context, actor Actor, id, name string) (_ *model.File, err error) {
	defer observe("rename_file", &err)

	name, err = validateName(name)
	if err != nil {
		return nil, err
	}
	file, err := s.loadFile(ctx, actor, id, activeOnly, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if file.Name == name {
		return file, nil
	}

	updated, err := s.snapshotThenMutate(ctx, file, func(f *model.File) {
		f.Name = name
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file renamed", "file_id", id, "version", updated.Version)
	return updated, nil
}

// ReplaceContent uploads new bytes for a file through the version chain. The
// file takes the upload's name, size and content type. Quota is charged for
// the size difference against the file's owner.
func (s *DriveService) ReplaceContent(ctx context.Context, actor Actor, id string, u Upload) (_ *model.File, err error) {
	defer observe("replace_content", &err)

	file, err := s.loadFile(ctx, actor, id, activeOnly, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(u.Name) == "" {
		u.Name = file.Name
	}
	u, err = s.validateUpload(u)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, file.OwnerID, u.Size-file.Size); err != nil {
		return nil, err
	}

	path, err := s.putBlob(ctx, file.OwnerID, s.now(), u)
	if err != nil {
		return nil, err
	}

	updated, err := s.snapshotThenMutate(ctx, file, func(f *model.File) {
		f.Name = u.Name
		f.Size = u.Size
		f.Format = u.ContentType
		f.Path = path
		f.PublicURL = s.store.PublicURL(path)
	})
	if err != nil {
		s.discardBlob(ctx, path)
		return nil, err
	}

	uploadedBytes.Add(float64(u.Size))
	s.logger.Info("file content replaced", "file_id", id, "version", updated.Version, "size", updated.Size)
	return updated, nil
}

// ListVersions returns the version chain of a file, newest first.
func (s *DriveService) ListVersions(ctx context.Context, actor Actor, fileID string) (_ []*model.FileVersion, err error) {
	defer observe("list_versions", &err)

	if _, err := s.loadFile(ctx, actor, fileID, activeOnly, model.RoleViewer); err != nil {
		return nil, err
	}
	versions, err := s.database.ListFileVersions(ctx, fileID)
	if err != nil {
		return nil, upstream("listing versions", err)
	}
	return versions, nil
}

// DownloadURL is a time-limited link to stored bytes.
type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *DriveService) signedURL(ctx context.Context, path string) (*DownloadURL, error) {
	ttl := s.opts.DownloadURLTTL
	url, err := s.store.SignedURL(ctx, path, ttl)
	if err != nil {
		return nil, upstream("signing download url", err)
	}
	return &DownloadURL{URL: url, ExpiresAt: s.now().Add(ttl)}, nil
}

// FileDownloadURL signs the current content of a file.
func (s *DriveService) FileDownloadURL(ctx context.Context, actor Actor, fileID string) (_ *DownloadURL, err error) {
	defer observe("file_download_url", &err)

	file, err := s.loadFile(ctx, actor, fileID, activeOnly, model.RoleViewer)
	if err != nil {
		return nil, err
	}
	return s.signedURL(ctx, file.Path)
}

// VersionDownloadURL signs the content of a past version. The actor needs
// viewer on the owning file.
func (s *DriveService) VersionDownloadURL(ctx context.Context, actor Actor, versionID string) (_ *DownloadURL, err error) {
	defer observe("version_download_url", &err)

	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}
	version, err := s.database.FindFileVersion(ctx, versionID)
	if err != nil {
		return nil, upstream("finding version", err)
	}
	if version == nil {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, versionID)
	}
	if _, err := s.loadFile(ctx, actor, version.FileID, activeOnly, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.signedURL(ctx, version.Path)
}
