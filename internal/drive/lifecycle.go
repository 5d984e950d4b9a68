package drive

import (
	"context"
	"fmt"

	"drive-go/internal/model"
)

// purgeState is the lifecycle a resource must be in to be purged.
func (s *DriveService) purgeState() lifecycle {
	if s.opts.RequireTrashBeforePurge {
		return trashedOnly
	}
	return anyState
}

// TrashFile moves an active file to the trash.
func (s *DriveService) TrashFile(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("trash_file", &err)

	if _, err := s.loadFile(ctx, actor, id, activeOnly, model.RoleEditor); err != nil {
		return err
	}
	ok, err := s.database.TrashFile(ctx, id, s.now())
	if err != nil {
		return upstream("trashing file", err)
	}
	if !ok {
		return fmt.Errorf("%w: file %s", ErrNotFound, id)
	}

	s.logger.Info("file trashed", "file_id", id)
	return nil
}

// RestoreFile brings a trashed file back. Restoring an active file is
// NotFound.
func (s *DriveService) RestoreFile(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("restore_file", &err)

	if _, err := s.loadFile(ctx, actor, id, trashedOnly, model.RoleEditor); err != nil {
		return err
	}
	ok, err := s.database.RestoreFile(ctx, id)
	if err != nil {
		return upstream("restoring file", err)
	}
	if !ok {
		return fmt.Errorf("%w: file %s", ErrNotFound, id)
	}

	s.logger.Info("file restored", "file_id", id)
	return nil
}

// PurgeFile permanently deletes a file, its version chain and its
// permissions, then removes its blobs. Requires owner.
func (s *DriveService) PurgeFile(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("purge_file", &err)

	if _, err := s.loadFile(ctx, actor, id, s.purgeState(), model.RoleOwner); err != nil {
		return err
	}
	paths, err := s.database.PurgeFile(ctx, id)
	if err != nil {
		return upstream("purging file", err)
	}
	s.deleteBlobs(ctx, paths)

	s.logger.Info("file purged", "file_id", id, "blobs", len(paths))
	return nil
}

// TrashFolder moves an active folder to the trash, with its subtree when
// cascading is enabled.
func (s *DriveService) TrashFolder(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("trash_folder", &err)

	if _, err := s.loadFolder(ctx, actor, id, activeOnly, model.RoleEditor); err != nil {
		return err
	}
	n, err := s.database.TrashFolder(ctx, id, s.now(), s.opts.CascadeTrash)
	if err != nil {
		return upstream("trashing folder", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}

	s.logger.Info("folder trashed", "folder_id", id, "rows", n, "cascade", s.opts.CascadeTrash)
	return nil
}

// RestoreFolder brings a trashed folder back. With cascading enabled, the
// descendants trashed together with it come back too; items trashed on their
// own beforehand stay in the trash.
func (s *DriveService) RestoreFolder(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("restore_folder", &err)

	folder, err := s.loadFolder(ctx, actor, id, trashedOnly, model.RoleEditor)
	if err != nil {
		return err
	}
	n, err := s.database.RestoreFolder(ctx, id, *folder.DeletedAt, s.opts.CascadeTrash)
	if err != nil {
		return upstream("restoring folder", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: folder %s", ErrNotFound, id)
	}

	s.logger.Info("folder restored", "folder_id", id, "rows", n, "cascade", s.opts.CascadeTrash)
	return nil
}

// PurgeFolder permanently deletes a folder. With cascading enabled the whole
// subtree goes with it; otherwise the folder must be empty. When purging
// requires the trash, every descendant must be trashed too. Requires owner.
func (s *DriveService) PurgeFolder(ctx context.Context, actor Actor, id string) (err error) {
	defer observe("purge_folder", &err)

	if _, err := s.loadFolder(ctx, actor, id, s.purgeState(), model.RoleOwner); err != nil {
		return err
	}
	paths, err := s.database.PurgeFolder(ctx, id, s.opts.CascadeTrash, s.opts.RequireTrashBeforePurge)
	if err != nil {
		return upstream("purging folder", err)
	}
	s.deleteBlobs(ctx, paths)

	s.logger.Info("folder purged", "folder_id", id, "blobs", len(paths))
	return nil
}

// deleteBlobs removes purged content. The rows are already gone, so failures
// only leave orphaned blobs and are logged rather than returned.
func (s *DriveService) deleteBlobs(ctx context.Context, paths []string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		if err := s.store.Delete(ctx, p); err != nil {
			s.logger.Error("failed to delete blob", "path", p, "error", err)
		}
	}
}

// Trash lists an owner's trashed resources.
type Trash struct {
	Folders []*model.Folder `json:"folders"`
	Files   []*model.File   `json:"files"`
}

// ListTrash returns the actor's trashed folders and files.
func (s *DriveService) ListTrash(ctx context.Context, actor Actor) (_ *Trash, err error) {
	defer observe("list_trash", &err)

	if err := requireUser(actor); err != nil {
		return nil, err
	}
	folders, err := s.database.ListTrashedFolders(ctx, actor.UserID)
	if err != nil {
		return nil, upstream("listing trashed folders", err)
	}
	files, err := s.database.ListTrashedFiles(ctx, actor.UserID)
	if err != nil {
		return nil, upstream("listing trashed files", err)
	}
	return &Trash{Folders: folders, Files: files}, nil
}
