package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

const permissionColumns = "id, user_id, resource_id, resource_type, role, shared_link, created_at"

func scanPermission(row rowScanner) (*model.Permission, error) {
	var (
		p       model.Permission
		typ     string
		role    string
		link    sql.NullString
		created sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.ResourceID, &typ, &role, &link, &created); err != nil {
		return nil, err
	}
	rt, err := model.ParseResourceType(typ)
	if err != nil {
		return nil, fmt.Errorf("permission %s: %w", p.ID, err)
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("permission %s: %w", p.ID, err)
	}
	p.ResourceType = rt
	p.Role = r
	p.SharedLink = stringPtr(link)
	p.CreatedAt = created.Time.UTC()
	return &p, nil
}

func collectPermissions(rows *sql.Rows) ([]*model.Permission, error) {
	defer rows.Close()
	perms := []*model.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a grant or link. Duplicate grants and link tokens
// are reported as drive.ErrConflict.
func (s *SQLiteDatabase) CreatePermission(ctx context.Context, p *model.Permission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (id, user_id, resource_id, resource_type, role, shared_link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ResourceID, string(p.ResourceType), p.Role.String(), nullString(p.SharedLink), p.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: permission already exists", drive.ErrConflict)
		}
		return fmt.Errorf("inserting permission: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindPermission(ctx context.Context, id string) (*model.Permission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+permissionColumns+" FROM permissions WHERE id = ?", id)
	return findPermission(row)
}

func (s *SQLiteDatabase) FindPermissionByLink(ctx context.Context, token string) (*model.Permission, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+permissionColumns+" FROM permissions WHERE shared_link = ?", token)
	return findPermission(row)
}

func findPermission(row *sql.Row) (*model.Permission, error) {
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding permission: %w", err)
	}
	return p, nil
}

func (s *SQLiteDatabase) FindUserPermissions(ctx context.Context, userID, resourceID string, typ model.ResourceType) ([]*model.Permission, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+permissionColumns+` FROM permissions
		WHERE user_id = ? AND resource_id = ? AND resource_type = ? AND shared_link IS NULL`,
		userID, resourceID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("finding user permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (s *SQLiteDatabase) ListPermissions(ctx context.Context, resourceID string, typ model.ResourceType) ([]*model.Permission, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+permissionColumns+` FROM permissions
		WHERE resource_id = ? AND resource_type = ? ORDER BY created_at, id`,
		resourceID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (s *SQLiteDatabase) DeletePermission(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM permissions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting permission: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListSharedFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("f", folderColumns)+` FROM folders f
		WHERE f.deleted_at IS NULL AND f.owner_id <> ? AND EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.resource_type = 'folder' AND p.resource_id = f.id
			  AND p.user_id = ? AND p.shared_link IS NULL)
		ORDER BY f.name, f.id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing shared folders: %w", err)
	}
	return collectFolders(rows)
}

func (s *SQLiteDatabase) ListSharedFiles(ctx context.Context, userID string) ([]*model.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("f", fileColumns)+` FROM files f
		WHERE f.deleted_at IS NULL AND f.owner_id <> ? AND EXISTS (
			SELECT 1 FROM permissions p
			WHERE p.resource_type = 'file' AND p.resource_id = f.id
			  AND p.user_id = ? AND p.shared_link IS NULL)
		ORDER BY f.name, f.id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing shared files: %w", err)
	}
	return collectFiles(rows)
}

// prefixed qualifies each column of a comma-separated list with alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
