package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"drive-go/internal/database/migrations"
	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// SQLiteDatabase implements the drive.Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and applies pending
// migrations. path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection. The caller is
// responsible for configuring it and applying migrations.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens a SQLite connection pool with foreign keys enforced,
// a busy timeout and UTC timestamps. Settings go in the DSN so that every
// pooled connection gets them. An in-memory database is private to its
// connection, so its pool is limited to one.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_loc=UTC"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// DB exposes the underlying pool for migration tooling.
func (s *SQLiteDatabase) DB() *sql.DB {
	return s.db
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction, committing when it returns nil.
func (s *SQLiteDatabase) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Folder operations

const folderColumns = "id, name, parent_folder_id, owner_id, deleted_at, created_at, updated_at"

func scanFolder(row rowScanner) (*model.Folder, error) {
	var (
		f       model.Folder
		parent  sql.NullString
		deleted sql.NullTime
	)
	if err := row.Scan(&f.ID, &f.Name, &parent, &f.OwnerID, &deleted, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ParentFolderID = stringPtr(parent)
	f.DeletedAt = timePtr(deleted)
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

func collectFolders(rows *sql.Rows) ([]*model.Folder, error) {
	defer rows.Close()
	folders := []*model.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *SQLiteDatabase) CreateFolder(ctx context.Context, f *model.Folder) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folders (id, name, search_text, parent_folder_id, owner_id, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, drive.SearchText(f.Name), nullString(f.ParentFolderID), f.OwnerID,
		nullTime(f.DeletedAt), f.CreatedAt.UTC(), f.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting folder: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindFolder(ctx context.Context, id string) (*model.Folder, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id)
	f, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding folder: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) UpdateFolder(ctx context.Context, f *model.Folder) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE folders SET name = ?, search_text = ?, parent_folder_id = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, drive.SearchText(f.Name), nullString(f.ParentFolderID), f.UpdatedAt.UTC(), f.ID)
	if err != nil {
		return fmt.Errorf("updating folder: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListFolders(ctx context.Context, q drive.ListQuery) ([]*model.Folder, error) {
	query, args := buildListQuery("folders", "parent_folder_id", folderColumns, folderSortColumns, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}
	return collectFolders(rows)
}

// File operations

const fileColumns = "id, name, size, format, path, public_url, version, folder_id, owner_id, deleted_at, created_at, updated_at"

func scanFile(row rowScanner) (*model.File, error) {
	var (
		f       model.File
		folder  sql.NullString
		deleted sql.NullTime
	)
	err := row.Scan(&f.ID, &f.Name, &f.Size, &f.Format, &f.Path, &f.PublicURL, &f.Version,
		&folder, &f.OwnerID, &deleted, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.FolderID = stringPtr(folder)
	f.DeletedAt = timePtr(deleted)
	f.CreatedAt = f.CreatedAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	return &f, nil
}

func collectFiles(rows *sql.Rows) ([]*model.File, error) {
	defer rows.Close()
	files := []*model.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteDatabase) CreateFile(ctx context.Context, f *model.File) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, name, search_text, size, format, path, public_url, version, folder_id, owner_id, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, drive.SearchText(f.Name), f.Size, f.Format, f.Path, f.PublicURL, f.Version,
		nullString(f.FolderID), f.OwnerID, nullTime(f.DeletedAt), f.CreatedAt.UTC(), f.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindFile(ctx context.Context, id string) (*model.File, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return f, nil
}

func (s *SQLiteDatabase) ListFiles(ctx context.Context, q drive.ListQuery) ([]*model.File, error) {
	query, args := buildListQuery("files", "folder_id", fileColumns, fileSortColumns, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return collectFiles(rows)
}

func (s *SQLiteDatabase) SnapshotAndUpdateFile(ctx context.Context, expectedVersion int64, v *model.FileVersion, f *model.File) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO file_versions (id, file_id, name, size, format, path, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			v.ID, v.FileID, v.Name, v.Size, v.Format, v.Path, v.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("inserting file version: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE files
			SET name = ?, search_text = ?, size = ?, format = ?, path = ?, public_url = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ? AND deleted_at IS NULL`,
			f.Name, drive.SearchText(f.Name), f.Size, f.Format, f.Path, f.PublicURL, f.Version, f.UpdatedAt.UTC(),
			f.ID, expectedVersion)
		if err != nil {
			return fmt.Errorf("updating file: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking updated rows: %w", err)
		}
		if n == 0 {
			return drive.ErrVersionConflict
		}
		return nil
	})
}

// Version chain

const versionColumns = "id, file_id, name, size, format, path, created_at"

func scanVersion(row rowScanner) (*model.FileVersion, error) {
	var v model.FileVersion
	if err := row.Scan(&v.ID, &v.FileID, &v.Name, &v.Size, &v.Format, &v.Path, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

func (s *SQLiteDatabase) ListFileVersions(ctx context.Context, fileID string) ([]*model.FileVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM file_versions WHERE file_id = ? ORDER BY created_at DESC, rowid DESC", fileID)
	if err != nil {
		return nil, fmt.Errorf("listing file versions: %w", err)
	}
	defer rows.Close()

	versions := []*model.FileVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning file version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteDatabase) FindFileVersion(ctx context.Context, id string) (*model.FileVersion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+versionColumns+" FROM file_versions WHERE id = ?", id)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file version: %w", err)
	}
	return v, nil
}

// SumActiveFileSize returns the total size of the owner's active files.
func (s *SQLiteDatabase) SumActiveFileSize(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(size), 0) FROM files WHERE owner_id = ? AND deleted_at IS NULL", ownerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing file sizes: %w", err)
	}
	return total, nil
}

// Compile-time check that SQLiteDatabase implements drive.Database interface
var _ drive.Database = (*SQLiteDatabase)(nil)
