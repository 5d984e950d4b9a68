package drive

import (
	"context"
	"fmt"

	"drive-go/internal/model"
)

// CreateFolder creates a folder owned by the actor, at the root when parentID
// is nil. The parent must be active and owned by the actor: a folder's
// children always share its owner.
func (s *DriveService) CreateFolder(ctx context.Context, actor Actor, name string, parentID *string) (_ *model.Folder, err error) {
	defer observe("create_folder", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	name, err = validateName(name)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		if err := s.requireOwnFolder(ctx, actor, *parentID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	folder := &model.Folder{
		ID:             s.idgen.New(),
		Name:           name,
		ParentFolderID: parentID,
		OwnerID:        actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.database.CreateFolder(ctx, folder); err != nil {
		return nil, upstream("creating folder", err)
	}

	s.logger.Info("folder created", "folder_id", folder.ID, "owner_id", folder.OwnerID)
	return folder, nil
}

// GetFolder returns an active folder the actor may view.
func (s *DriveService) GetFolder(ctx context.Context, actor Actor, id string) (_ *model.Folder, err error) {
	defer observe("get_folder", &err)
	return s.loadFolder(ctx, actor, id, activeOnly, model.RoleViewer)
}

// RenameFolder changes a folder's name. Folders are not versioned.
func (s *DriveService) RenameFolder(ctx context.Context, actor Actor, id, name string) (_ *model.Folder, err error) {
	defer observe("rename_folder", &err)

	name, err = validateName(name)
	if err != nil {
		return nil, err
	}
	folder, err := s.loadFolder(ctx, actor, id, activeOnly, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if folder.Name == name {
		return folder, nil
	}

	folder.Name = name
	folder.UpdatedAt = s.now()
	if err := s.database.UpdateFolder(ctx, folder); err != nil {
		return nil, upstream("renaming folder", err)
	}
	return folder, nil
}

// MoveFolder re-parents a folder, to the root when parentID is nil. The actor
// needs editor on the folder and on the destination. Moving a folder into
// itself or one of its descendants is rejected.
func (s *DriveService) MoveFolder(ctx context.Context, actor Actor, id string, parentID *string) (_ *model.Folder, err error) {
	defer observe("move_folder", &err)

	folder, err := s.loadFolder(ctx, actor, id, activeOnly, model.RoleEditor)
	if err != nil {
		return nil, err
	}
	if sameParent(folder.ParentFolderID, parentID) {
		return folder, nil
	}

	if parentID != nil {
		if *parentID == folder.ID {
			return nil, fmt.Errorf("%w: a folder cannot contain itself", ErrBadRequest)
		}
		dest, err := s.loadFolder(ctx, actor, *parentID, activeOnly, model.RoleEditor)
		if err != nil {
			return nil, err
		}
		if dest.OwnerID != folder.OwnerID {
			return nil, fmt.Errorf("%w: cannot move a folder into another owner's tree", ErrBadRequest)
		}
		if err := s.checkNotDescendant(ctx, folder.ID, dest); err != nil {
			return nil, err
		}
	}

	folder.ParentFolderID = parentID
	folder.UpdatedAt = s.now()
	if err := s.database.UpdateFolder(ctx, folder); err != nil {
		return nil, upstream("moving folder", err)
	}

	s.logger.Info("folder moved", "folder_id", folder.ID)
	return folder, nil
}

// requireOwnFolder checks that the actor may add children to a folder. A
// folder's children always carry its owner_id, so only the owner may add them.
func (s *DriveService) requireOwnFolder(ctx context.Context, actor Actor, id string) error {
	folder, err := s.loadFolder(ctx, actor, id, activeOnly, model.RoleEditor)
	if err != nil {
		return err
	}
	if folder.OwnerID != actor.UserID {
		authorizationDenials.WithLabelValues("foreign_parent").Inc()
		return fmt.Errorf("%w: only the owner of folder %s can add to it", ErrForbidden, id)
	}
	return nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// checkNotDescendant walks up from dest and fails if it reaches folderID.
// The walk is bounded by MaxDepth and never revisits a folder.
func (s *DriveService) checkNotDescendant(ctx context.Context, folderID string, dest *model.Folder) error {
	visited := make(map[string]bool)
	current := dest
	for depth := 0; current != nil; depth++ {
		if depth >= s.opts.MaxDepth {
			return fmt.Errorf("%w: folder tree deeper than %d", ErrBadRequest, s.opts.MaxDepth)
		}
		if current.ID == folderID {
			return fmt.Errorf("%w: cannot move a folder into its own descendant", ErrBadRequest)
		}
		if visited[current.ID] {
			return fmt.Errorf("%w: cycle detected at folder %s", ErrInternal, current.ID)
		}
		visited[current.ID] = true

		if current.ParentFolderID == nil {
			return nil
		}
		parent, err := s.database.FindFolder(ctx, *current.ParentFolderID)
		if err != nil {
			return upstream("finding ancestor folder", err)
		}
		current = parent
	}
	return nil
}

// Breadcrumbs returns the root-first path ending at folderID. The walk is
// best-effort: it stops at the first ancestor that is missing, trashed, not
// viewable by the actor, or fails to load, and at MaxDepth steps. A start
// folder that cannot be shown yields an empty path.
func (s *DriveService) Breadcrumbs(ctx context.Context, actor Actor, folderID string) (_ []model.Breadcrumb, err error) {
	defer observe("breadcrumbs", &err)

	if actor.Anonymous() {
		return nil, fmt.Errorf("%w: credential required", ErrUnauthenticated)
	}

	crumbs := []model.Breadcrumb{}
	visited := make(map[string]bool)
	current := &folderID

	for depth := 0; current != nil; depth++ {
		if depth >= s.opts.MaxDepth {
			s.logger.Warn("breadcrumb walk hit depth limit", "folder_id", folderID, "max_depth", s.opts.MaxDepth)
			break
		}
		if visited[*current] {
			s.logger.Warn("breadcrumb walk found a cycle", "folder_id", folderID, "at", *current)
			break
		}
		visited[*current] = true

		folder, err := s.database.FindFolder(ctx, *current)
		if err != nil {
			s.logger.Warn("breadcrumb walk truncated", "folder_id", folderID, "at", *current, "error", err)
			break
		}
		if folder == nil || folder.IsTrashed() {
			break
		}
		d, err := s.Authorize(ctx, actor, folderResource(folder), model.RoleViewer)
		if err != nil {
			s.logger.Warn("breadcrumb walk truncated", "folder_id", folderID, "at", *current, "error", err)
			break
		}
		if !d.Allowed {
			break
		}

		crumbs = append(crumbs, model.Breadcrumb{ID: folder.ID, Name: folder.Name})
		current = folder.ParentFolderID
	}

	for i, j := 0, len(crumbs)-1; i < j; i, j = i+1, j-1 {
		crumbs[i], crumbs[j] = crumbs[j], crumbs[i]
	}
	return crumbs, nil
}

// listScope checks the actor may list children of parentID and builds the
// base query. Listings only return resources owned by the actor. Children of a
// trashed folder stay listable since trashing does not cascade by default.
func (s *DriveService) listScope(ctx context.Context, actor Actor, parentID *string, page Page) (ListQuery, error) {
	if err := requireUser(actor); err != nil {
		return ListQuery{}, err
	}
	if parentID != nil {
		if _, err := s.loadFolder(ctx, actor, *parentID, anyState, model.RoleViewer); err != nil {
			return ListQuery{}, err
		}
	}
	page = s.normalize(page)
	return ListQuery{
		OwnerID:  actor.UserID,
		ParentID: parentID,
		Sort:     page.Sort,
		Order:    page.Order,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}, nil
}

// ListFolders returns a page of the actor's active folders directly under
// parentID, or at the root when it is nil.
func (s *DriveService) ListFolders(ctx context.Context, actor Actor, parentID *string, page Page) (_ []*model.Folder, err error) {
	defer observe("list_folders", &err)

	q, err := s.listScope(ctx, actor, parentID, page)
	if err != nil {
		return nil, err
	}
	folders, err := s.database.ListFolders(ctx, q)
	if err != nil {
		return nil, upstream("listing folders", err)
	}
	return folders, nil
}

// ListFiles returns a page of the actor's active files directly under
// parentID, or at the root when it is nil.
func (s *DriveService) ListFiles(ctx context.Context, actor Actor, parentID *string, page Page) (_ []*model.File, err error) {
	defer observe("list_files", &err)

	q, err := s.listScope(ctx, actor, parentID, page)
	if err != nil {
		return nil, err
	}
	files, err := s.database.ListFiles(ctx, q)
	if err != nil {
		return nil, upstream("listing files", err)
	}
	return files, nil
}
