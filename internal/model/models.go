package model

import "time"

// Folder is a node in an owner's folder tree.
type Folder struct {
	ID             string     `json:"id"`               // UUID
	Name           string     `json:"name"`             // Display name, not unique among siblings
	ParentFolderID *string    `json:"parent_folder_id"` // nil for folders at the root
	OwnerID        string     `json:"owner_id"`         // Principal that created the folder
	DeletedAt      *time.Time `json:"deleted_at"`       // Set while the folder is in the trash
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsTrashed reports whether the folder is soft-deleted.
func (f *Folder) IsTrashed() bool {
	return f.DeletedAt != nil
}

// File is the current state of an uploaded file.
type File struct {
	ID        string     `json:"id"`         // UUID
	Name      string     `json:"name"`       // Original filename
	Size      int64      `json:"size"`       // Bytes, never negative
	Format    string     `json:"format"`     // Content type reported at upload
	Path      string     `json:"path"`       // Object store key of the current content
	PublicURL string     `json:"public_url"` // Unsigned URL of the current content
	Version   int64      `json:"version"`    // Starts at 1, +1 per version-chain entry
	FolderID  *string    `json:"folder_id"`  // nil for files at the root
	OwnerID   string     `json:"owner_id"`   // Principal charged for the file's bytes
	DeletedAt *time.Time `json:"deleted_at"` // Set while the file is in the trash
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsTrashed reports whether the file is soft-deleted.
func (f *File) IsTrashed() bool {
	return f.DeletedAt != nil
}

// FileVersion is an immutable snapshot of a file's state taken before a mutation.
type FileVersion struct {
	ID        string    `json:"id"`      // UUID
	FileID    string    `json:"file_id"` // Foreign key to File
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Format    string    `json:"format"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Permission grants Role on a resource to UserID, or to anyone holding
// SharedLink when it is set.
type Permission struct {
	ID           string       `json:"id"`      // UUID
	UserID       string       `json:"user_id"` // Grantee, or the granter for link permissions
	ResourceID   string       `json:"resource_id"`
	ResourceType ResourceType `json:"resource_type"`
	Role         Role         `json:"role"`
	SharedLink   *string      `json:"shared_link"` // Bearer capability token, globally unique
	CreatedAt    time.Time    `json:"created_at"`
}

// IsLink reports whether the permission is a share-link capability.
func (p *Permission) IsLink() bool {
	return p.SharedLink != nil
}

// Breadcrumb is one step of a root-first folder path.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
