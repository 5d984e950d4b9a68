package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// TrashFile stamps an active file.
func (s *SQLiteDatabase) TrashFile(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("trashing file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking trashed rows: %w", err)
	}
	return n > 0, nil
}

// RestoreFile clears the stamp of a trashed file.
func (s *SQLiteDatabase) RestoreFile(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL", id)
	if err != nil {
		return false, fmt.Errorf("restoring file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking restored rows: %w", err)
	}
	return n > 0, nil
}

// PurgeFile deletes a file with its versions and permissions and returns the
// paths of its current and past content.
func (s *SQLiteDatabase) PurgeFile(ctx context.Context, id string) ([]string, error) {
	var paths []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		paths, err = filePaths(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		if err := deletePermissions(ctx, tx, model.ResourceFile, []string{id}); err != nil {
			return err
		}
		// file_versions rows go with the file through ON DELETE CASCADE.
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// activeSubtree selects a folder and every active folder below it, walking
// only through active folders.
const activeSubtree = `
	WITH RECURSIVE subtree(id) AS (
		SELECT id FROM folders WHERE id = ?
		UNION
		SELECT f.id FROM folders f JOIN subtree s ON f.parent_folder_id = s.id
		WHERE f.deleted_at IS NULL
	)`

// stampedSubtree selects a folder and every folder below it trashed at the
// same instant.
const stampedSubtree = `
	WITH RECURSIVE subtree(id) AS (
		SELECT id FROM folders WHERE id = ?
		UNION
		SELECT f.id FROM folders f JOIN subtree s ON f.parent_folder_id = s.id
		WHERE f.deleted_at = ?
	)`

// wholeSubtree selects a folder and all of its descendants.
const wholeSubtree = `
	WITH RECURSIVE subtree(id) AS (
		SELECT id FROM folders WHERE id = ?
		UNION
		SELECT f.id FROM folders f JOIN subtree s ON f.parent_folder_id = s.id
	)`

// TrashFolder stamps an active folder, and its active subtree when cascade
// is set.
func (s *SQLiteDatabase) TrashFolder(ctx context.Context, id string, at time.Time, cascade bool) (int64, error) {
	at = at.UTC()
	if !cascade {
		res, err := s.db.ExecContext(ctx,
			"UPDATE folders SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", at, id)
		if err != nil {
			return 0, fmt.Errorf("trashing folder: %w", err)
		}
		return res.RowsAffected()
	}

	var total int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var root int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM folders WHERE id = ? AND deleted_at IS NULL", id).Scan(&root)
		if err != nil {
			return fmt.Errorf("checking folder: %w", err)
		}
		if root == 0 {
			return nil
		}

		// Files first: once the folders are stamped the walk no longer sees them.
		res, err := tx.ExecContext(ctx, activeSubtree+`
			UPDATE files SET deleted_at = ?
			WHERE folder_id IN (SELECT id FROM subtree) AND deleted_at IS NULL`, id, at)
		if err != nil {
			return fmt.Errorf("trashing files in subtree: %w", err)
		}
		files, _ := res.RowsAffected()

		res, err = tx.ExecContext(ctx, activeSubtree+`
			UPDATE folders SET deleted_at = ?
			WHERE id IN (SELECT id FROM subtree) AND deleted_at IS NULL`, id, at)
		if err != nil {
			return fmt.Errorf("trashing folders in subtree: %w", err)
		}
		folders, _ := res.RowsAffected()

		total = files + folders
		return nil
	})
	return total, err
}

// RestoreFolder clears the stamp of a trashed folder, and of every descendant
// carrying the same stamp when cascade is set.
func (s *SQLiteDatabase) RestoreFolder(ctx context.Context, id string, stamp time.Time, cascade bool) (int64, error) {
	stamp = stamp.UTC()
	if !cascade {
		res, err := s.db.ExecContext(ctx,
			"UPDATE folders SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL", id)
		if err != nil {
			return 0, fmt.Errorf("restoring folder: %w", err)
		}
		return res.RowsAffected()
	}

	var total int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stampedSubtree+`
			UPDATE files SET deleted_at = NULL
			WHERE folder_id IN (SELECT id FROM subtree) AND deleted_at = ?`, id, stamp, stamp)
		if err != nil {
			return fmt.Errorf("restoring files in subtree: %w", err)
		}
		files, _ := res.RowsAffected()

		res, err = tx.ExecContext(ctx, stampedSubtree+`
			UPDATE folders SET deleted_at = NULL
			WHERE id IN (SELECT id FROM subtree) AND deleted_at IS NOT NULL
			  AND (id = ? OR deleted_at = ?)`, id, stamp, id, stamp)
		if err != nil {
			return fmt.Errorf("restoring folders in subtree: %w", err)
		}
		folders, _ := res.RowsAffected()

		if folders == 0 {
			// The root was not trashed; undo the file restores.
			return errNothingRestored
		}
		total = files + folders
		return nil
	})
	if errors.Is(err, errNothingRestored) {
		return 0, nil
	}
	return total, err
}

var errNothingRestored = errors.New("nothing restored")

// PurgeFolder deletes a folder and its permissions, or with cascade its whole
// subtree, and returns the content paths of every deleted file. With
// trashedOnly, an active descendant anywhere in the subtree aborts the purge.
func (s *SQLiteDatabase) PurgeFolder(ctx context.Context, id string, cascade, trashedOnly bool) ([]string, error) {
	var paths []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if !cascade {
			var children int
			err := tx.QueryRowContext(ctx, `
				SELECT (SELECT COUNT(*) FROM folders WHERE parent_folder_id = ?)
				     + (SELECT COUNT(*) FROM files WHERE folder_id = ?)`, id, id).Scan(&children)
			if err != nil {
				return fmt.Errorf("counting children: %w", err)
			}
			if children > 0 {
				return drive.ErrFolderNotEmpty
			}
			if err := deletePermissions(ctx, tx, model.ResourceFolder, []string{id}); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id); err != nil {
				return fmt.Errorf("deleting folder: %w", err)
			}
			return nil
		}

		folderIDs, err := queryStrings(ctx, tx, wholeSubtree+" SELECT id FROM subtree", id)
		if err != nil {
			return fmt.Errorf("walking subtree: %w", err)
		}
		if len(folderIDs) == 0 {
			return nil
		}
		in := placeholders(len(folderIDs))

		if trashedOnly {
			var active int
			err := tx.QueryRowContext(ctx, wholeSubtree+`
				SELECT (SELECT COUNT(*) FROM folders
				        WHERE id IN (SELECT id FROM subtree) AND id != ? AND deleted_at IS NULL)
				     + (SELECT COUNT(*) FROM files
				        WHERE folder_id IN (SELECT id FROM subtree) AND deleted_at IS NULL)`,
				id, id).Scan(&active)
			if err != nil {
				return fmt.Errorf("counting active descendants: %w", err)
			}
			if active > 0 {
				return drive.ErrFolderHasActiveItems
			}
		}

		fileIDs, err := queryStrings(ctx, tx,
			"SELECT id FROM files WHERE folder_id IN ("+in+")", stringArgs(folderIDs)...)
		if err != nil {
			return fmt.Errorf("listing files in subtree: %w", err)
		}

		if len(fileIDs) > 0 {
			paths, err = filePaths(ctx, tx, fileIDs)
			if err != nil {
				return err
			}
			if err := deletePermissions(ctx, tx, model.ResourceFile, fileIDs); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM files WHERE id IN ("+placeholders(len(fileIDs))+")", stringArgs(fileIDs)...); err != nil {
				return fmt.Errorf("deleting files: %w", err)
			}
		}
		if err := deletePermissions(ctx, tx, model.ResourceFolder, folderIDs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM folders WHERE id IN ("+in+")", stringArgs(folderIDs)...); err != nil {
			return fmt.Errorf("deleting folders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// filePaths returns the current and past content paths of the given files.
func filePaths(ctx context.Context, q queryer, fileIDs []string) ([]string, error) {
	in := placeholders(len(fileIDs))
	args := stringArgs(fileIDs)
	paths, err := queryStrings(ctx, q, `
		SELECT path FROM files WHERE id IN (`+in+`)
		UNION
		SELECT path FROM file_versions WHERE file_id IN (`+in+`)`,
		append(args, args...)...)
	if err != nil {
		return nil, fmt.Errorf("collecting content paths: %w", err)
	}
	return paths, nil
}

func deletePermissions(ctx context.Context, q queryer, typ model.ResourceType, ids []string) error {
	args := append([]any{string(typ)}, stringArgs(ids)...)
	_, err := q.ExecContext(ctx,
		"DELETE FROM permissions WHERE resource_type = ? AND resource_id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("deleting permissions: %w", err)
	}
	return nil
}

func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListTrashedFolders returns the owner's trashed folders, most recent first.
func (s *SQLiteDatabase) ListTrashedFolders(ctx context.Context, ownerID string) ([]*model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+folderColumns+` FROM folders
		WHERE owner_id = ? AND deleted_at IS NOT NULL ORDER BY deleted_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing trashed folders: %w", err)
	}
	return collectFolders(rows)
}

// ListTrashedFiles returns the owner's trashed files, most recent first.
func (s *SQLiteDatabase) ListTrashedFiles(ctx context.Context, ownerID string) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+fileColumns+` FROM files
		WHERE owner_id = ? AND deleted_at IS NOT NULL ORDER BY deleted_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing trashed files: %w", err)
	}
	return collectFiles(rows)
}
