package drive

import (
	"context"
	"strings"
	"time"

	"drive-go/internal/model"
)

// SortKey selects the ordering column of a listing.
type SortKey string

const (
	SortByName SortKey = "name"
	SortBySize SortKey = "size" // files only; folders fall back to name
	SortByDate SortKey = "date"
)

// ParseSortKey maps a client-supplied key onto the allow-list.
// Unrecognized keys fall back to SortByName.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(s)); k {
	case SortBySize, SortByDate:
		return k
	default:
		return SortByName
	}
}

// SortOrder is the direction of a listing.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder maps a client-supplied order. Anything but "desc" is ascending.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(strings.ToLower(s)) == OrderDesc {
		return OrderDesc
	}
	return OrderAsc
}

// ListQuery filters and pages active resources owned by one principal.
type ListQuery struct {
	OwnerID string

	// ParentID restricts the listing to direct children of a folder, or to the
	// root when nil. It is ignored when AnyParent is set.
	ParentID  *string
	AnyParent bool

	// Terms are lowercase search tokens; every term must prefix-match a word
	// of the resource name.
	Terms []string

	Sort   SortKey
	Order  SortOrder
	Limit  int
	Offset int
}

// Database provides the persistence contract of the engine.
// Lookups return (nil, nil) when the row does not exist.
type Database interface {
	// Folder operations

	CreateFolder(ctx context.Context, folder *model.Folder) error

	// FindFolder returns the folder in any lifecycle state.
	FindFolder(ctx context.Context, id string) (*model.Folder, error)

	// UpdateFolder persists name, parent and updated_at.
	UpdateFolder(ctx context.Context, folder *model.Folder) error

	// ListFolders returns active folders matching q.
	ListFolders(ctx context.Context, q ListQuery) ([]*model.Folder, error)

	// File operations

	CreateFile(ctx context.Context, file *model.File) error

	// FindFile returns the file in any lifecycle state.
	FindFile(ctx context.Context, id string) (*model.File, error)

	// ListFiles returns active files matching q.
	ListFiles(ctx context.Context, q ListQuery) ([]*model.File, error)

	// SnapshotAndUpdateFile inserts snapshot and overwrites the file row in one
	// transaction. The update only applies while the stored version still equals
	// expectedVersion; otherwise nothing is written and ErrVersionConflict is
	// returned.
	SnapshotAndUpdateFile(ctx context.Context, expectedVersion int64, snapshot *model.FileVersion, updated *model.File) error

	// Version chain

	// ListFileVersions returns the snapshots of a file, newest first.
	ListFileVersions(ctx context.Context, fileID string) ([]*model.FileVersion, error)

	FindFileVersion(ctx context.Context, id string) (*model.FileVersion, error)

	// Lifecycle

	// TrashFile stamps an active file. Reports false when the file is missing
	// or already trashed.
	TrashFile(ctx context.Context, id string, at time.Time) (bool, error)

	// RestoreFile clears the stamp of a trashed file. Reports false when the
	// file is missing or active.
	RestoreFile(ctx context.Context, id string) (bool, error)

	// PurgeFile deletes the file row, its versions and its permissions, and
	// returns every object-store path that belonged to it.
	PurgeFile(ctx context.Context, id string) ([]string, error)

	// TrashFolder stamps an active folder and, when cascade is set, every
	// active descendant folder and file. Returns the number of rows stamped.
	TrashFolder(ctx context.Context, id string, at time.Time, cascade bool) (int64, error)

	// RestoreFolder clears the stamp of a trashed folder and, when cascade is
	// set, of every descendant stamped at the same instant. Returns the number
	// of rows restored.
	RestoreFolder(ctx context.Context, id string, stamp time.Time, cascade bool) (int64, error)

	// PurgeFolder deletes the folder and its permissions. With cascade it
	// deletes the whole subtree and returns the object-store paths of every
	// deleted file; without it, a folder that still has children yields
	// ErrFolderNotEmpty. With trashedOnly, a subtree holding any active
	// descendant yields ErrFolderHasActiveItems and nothing is deleted.
	PurgeFolder(ctx context.Context, id string, cascade, trashedOnly bool) ([]string, error)

	// ListTrashedFolders and ListTrashedFiles return the owner's trashed rows,
	// most recently trashed first.
	ListTrashedFolders(ctx context.Context, ownerID string) ([]*model.Folder, error)
	ListTrashedFiles(ctx context.Context, ownerID string) ([]*model.File, error)

	// SumActiveFileSize returns the total size of the owner's active files.
	SumActiveFileSize(ctx context.Context, ownerID string) (int64, error)

	// Permission operations

	// CreatePermission inserts a grant or link. A duplicate grant or link
	// token yields an error wrapping ErrConflict.
	CreatePermission(ctx context.Context, perm *model.Permission) error

	FindPermission(ctx context.Context, id string) (*model.Permission, error)

	FindPermissionByLink(ctx context.Context, token string) (*model.Permission, error)

	// FindUserPermissions returns the non-link rows granting userID access to
	// the resource.
	FindUserPermissions(ctx context.Context, userID, resourceID string, resourceType model.ResourceType) ([]*model.Permission, error)

	// ListPermissions returns every row targeting the resource, links included.
	ListPermissions(ctx context.Context, resourceID string, resourceType model.ResourceType) ([]*model.Permission, error)

	DeletePermission(ctx context.Context, id string) error

	// ListSharedFolders and ListSharedFiles return active resources on which
	// userID holds a non-link permission row.
	ListSharedFolders(ctx context.Context, userID string) ([]*model.Folder, error)
	ListSharedFiles(ctx context.Context, userID string) ([]*model.File, error)

	// Close closes the database connection.
	Close() error
}
