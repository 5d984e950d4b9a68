package database

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"drive-go/internal/drive"
	"drive-go/internal/model"
)

var testEpoch = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

// newTestDB creates a new in-memory database with migrations applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestFolder(t *testing.T, db *SQLiteDatabase, owner, name string, parent *string) *model.Folder {
	t.Helper()
	f := &model.Folder{
		ID:             uuid.New().String(),
		Name:           name,
		ParentFolderID: parent,
		OwnerID:        owner,
		CreatedAt:      testEpoch,
		UpdatedAt:      testEpoch,
	}
	if err := db.CreateFolder(context.Background(), f); err != nil {
		t.Fatalf("CreateFolder(%q) error = %v", name, err)
	}
	return f
}

func createTestFile(t *testing.T, db *SQLiteDatabase, owner, name string, size int64, folder *string, created time.Time) *model.File {
	t.Helper()
	id := uuid.New().String()
	f := &model.File{
		ID:        id,
		Name:      name,
		Size:      size,
		Format:    "text/plain",
		Path:      owner + "/" + id,
		PublicURL: "http://drive.test/blobs/" + owner + "/" + id,
		Version:   1,
		FolderID:  folder,
		OwnerID:   owner,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := db.CreateFile(context.Background(), f); err != nil {
		t.Fatalf("CreateFile(%q) error = %v", name, err)
	}
	return f
}

func fileNames(files []*model.File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func folderNames(folders []*model.Folder) []string {
	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name
	}
	return names
}

func TestSQLiteDatabase_FindFolder(t *testing.T) {
	t.Run("returns nil when folder not found", func(t *testing.T) {
		db := newTestDB(t)

		f, err := db.FindFolder(context.Background(), uuid.New().String())
		if err != nil {
			t.Fatalf("FindFolder() error = %v", err)
		}
		if f != nil {
			t.Errorf("FindFolder() = %v, want nil", f)
		}
	})

	t.Run("finds existing folder", func(t *testing.T) {
		db := newTestDB(t)
		parent := createTestFolder(t, db, "alice", "Projects", nil)
		created := createTestFolder(t, db, "alice", "Drive", &parent.ID)

		found, err := db.FindFolder(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("FindFolder() error = %v", err)
		}
		if found == nil {
			t.Fatal("FindFolder() returned nil, want folder")
		}
		if found.Name != "Drive" {
			t.Errorf("Name = %v, want Drive", found.Name)
		}
		if found.ParentFolderID == nil || *found.ParentFolderID != parent.ID {
			t.Errorf("ParentFolderID = %v, want %v", found.ParentFolderID, parent.ID)
		}
		if !found.CreatedAt.Equal(testEpoch) {
			t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, testEpoch)
		}
		if found.DeletedAt != nil {
			t.Errorf("DeletedAt = %v, want nil", found.DeletedAt)
		}
	})
}

func TestSQLiteDatabase_UpdateFolder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestFolder(t, db, "alice", "A", nil)
	b := createTestFolder(t, db, "alice", "Old name", nil)

	b.Name = "Quarterly reports"
	b.ParentFolderID = &a.ID
	b.UpdatedAt = testEpoch.Add(time.Hour)
	if err := db.UpdateFolder(ctx, b); err != nil {
		t.Fatalf("UpdateFolder() error = %v", err)
	}

	got, _ := db.FindFolder(ctx, b.ID)
	if got.Name != "Quarterly reports" {
		t.Errorf("Name = %v, want Quarterly reports", got.Name)
	}
	if got.ParentFolderID == nil || *got.ParentFolderID != a.ID {
		t.Errorf("ParentFolderID = %v, want %v", got.ParentFolderID, a.ID)
	}

	// search_text follows the new name
	hits, err := db.ListFolders(ctx, drive.ListQuery{OwnerID: "alice", AnyParent: true, Terms: []string{"quarter"}})
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ID != b.ID {
		t.Errorf("search after rename = %v, want [%s]", folderNames(hits), b.Name)
	}
}

func TestSQLiteDatabase_ListFiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	docs := createTestFolder(t, db, "alice", "Docs", nil)

	createTestFile(t, db, "alice", "b.txt", 300, nil, testEpoch.Add(2*time.Minute))
	createTestFile(t, db, "alice", "a.txt", 100, nil, testEpoch.Add(3*time.Minute))
	createTestFile(t, db, "alice", "c.txt", 200, nil, testEpoch.Add(1*time.Minute))
	createTestFile(t, db, "alice", "nested.txt", 1, &docs.ID, testEpoch)
	createTestFile(t, db, "bob", "a-bob.txt", 1, nil, testEpoch)
	trashed := createTestFile(t, db, "alice", "gone.txt", 1, nil, testEpoch)
	if _, err := db.TrashFile(ctx, trashed.ID, testEpoch); err != nil {
		t.Fatalf("TrashFile() error = %v", err)
	}

	tests := []struct {
		name  string
		query drive.ListQuery
		want  []string
	}{
		{
			name:  "root by name",
			query: drive.ListQuery{OwnerID: "alice", Sort: drive.SortByName, Order: drive.OrderAsc, Limit: 10},
			want:  []string{"a.txt", "b.txt", "c.txt"},
		},
		{
			name:  "root by size desc",
			query: drive.ListQuery{OwnerID: "alice", Sort: drive.SortBySize, Order: drive.OrderDesc, Limit: 10},
			want:  []string{"b.txt", "c.txt", "a.txt"},
		},
		{
			name:  "root by date",
			query: drive.ListQuery{OwnerID: "alice", Sort: drive.SortByDate, Order: drive.OrderAsc, Limit: 10},
			want:  []string{"c.txt", "b.txt", "a.txt"},
		},
		{
			name:  "unknown sort falls back to name",
			query: drive.ListQuery{OwnerID: "alice", Sort: "owner_id; DROP TABLE files", Limit: 10},
			want:  []string{"a.txt", "b.txt", "c.txt"},
		},
		{
			name:  "second page",
			query: drive.ListQuery{OwnerID: "alice", Sort: drive.SortByName, Limit: 2, Offset: 2},
			want:  []string{"c.txt"},
		},
		{
			name:  "inside folder",
			query: drive.ListQuery{OwnerID: "alice", ParentID: &docs.ID, Limit: 10},
			want:  []string{"nested.txt"},
		},
		{
			name:  "any parent",
			query: drive.ListQuery{OwnerID: "alice", AnyParent: true, Limit: 10},
			want:  []string{"a.txt", "b.txt", "c.txt", "nested.txt"},
		},
		{
			name:  "search term prefix",
			query: drive.ListQuery{OwnerID: "alice", AnyParent: true, Terms: []string{"nest"}, Limit: 10},
			want:  []string{"nested.txt"},
		},
		{
			name:  "search matches word starts only",
			query: drive.ListQuery{OwnerID: "alice", AnyParent: true, Terms: []string{"ested"}, Limit: 10},
			want:  []string{},
		},
		{
			name:  "all terms must match",
			query: drive.ListQuery{OwnerID: "alice", AnyParent: true, Terms: []string{"a", "txt"}, Limit: 10},
			want:  []string{"a.txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListFiles(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListFiles() error = %v", err)
			}
			if names := fileNames(got); !slices.Equal(names, tt.want) {
				t.Errorf("ListFiles() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestSQLiteDatabase_SnapshotAndUpdateFile(t *testing.T) {
	newSnapshot := func(f *model.File, at time.Time) *model.FileVersion {
		return &model.FileVersion{
			ID:        uuid.New().String(),
			FileID:    f.ID,
			Name:      f.Name,
			Size:      f.Size,
			Format:    f.Format,
			Path:      f.Path,
			CreatedAt: at,
		}
	}

	t.Run("applies update and records snapshot", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		f := createTestFile(t, db, "alice", "report.txt", 10, nil, testEpoch)

		snap := newSnapshot(f, testEpoch.Add(time.Minute))
		updated := *f
		updated.Name = "final.txt"
		updated.Version = 2
		updated.UpdatedAt = testEpoch.Add(time.Minute)
		if err := db.SnapshotAndUpdateFile(ctx, 1, snap, &updated); err != nil {
			t.Fatalf("SnapshotAndUpdateFile() error = %v", err)
		}

		got, _ := db.FindFile(ctx, f.ID)
		if got.Name != "final.txt" || got.Version != 2 {
			t.Errorf("file = %s v%d, want final.txt v2", got.Name, got.Version)
		}
		versions, err := db.ListFileVersions(ctx, f.ID)
		if err != nil {
			t.Fatalf("ListFileVersions() error = %v", err)
		}
		if len(versions) != 1 || versions[0].Name != "report.txt" {
			t.Errorf("versions = %v, want one snapshot named report.txt", versions)
		}
	})

	t.Run("stale version writes nothing", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		f := createTestFile(t, db, "alice", "report.txt", 10, nil, testEpoch)

		updated := *f
		updated.Name = "lost.txt"
		updated.Version = 6
		err := db.SnapshotAndUpdateFile(ctx, 5, newSnapshot(f, testEpoch), &updated)
		if !errors.Is(err, drive.ErrVersionConflict) {
			t.Fatalf("SnapshotAndUpdateFile() error = %v, want ErrVersionConflict", err)
		}
		if !errors.Is(err, drive.ErrConflict) {
			t.Errorf("ErrVersionConflict does not match ErrConflict")
		}

		got, _ := db.FindFile(ctx, f.ID)
		if got.Name != "report.txt" || got.Version != 1 {
			t.Errorf("file = %s v%d, want report.txt v1", got.Name, got.Version)
		}
		versions, _ := db.ListFileVersions(ctx, f.ID)
		if len(versions) != 0 {
			t.Errorf("len(versions) = %d, want 0", len(versions))
		}
	})

	t.Run("trashed file is not updated", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		f := createTestFile(t, db, "alice", "report.txt", 10, nil, testEpoch)
		db.TrashFile(ctx, f.ID, testEpoch)

		updated := *f
		updated.Version = 2
		if err := db.SnapshotAndUpdateFile(ctx, 1, newSnapshot(f, testEpoch), &updated); !errors.Is(err, drive.ErrVersionConflict) {
			t.Errorf("SnapshotAndUpdateFile() error = %v, want ErrVersionConflict", err)
		}
	})

	t.Run("versions listed newest first", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		f := createTestFile(t, db, "alice", "v1.txt", 10, nil, testEpoch)

		current := *f
		for i, name := range []string{"v2.txt", "v3.txt"} {
			next := current
			next.Name = name
			next.Version = current.Version + 1
			if err := db.SnapshotAndUpdateFile(ctx, current.Version, newSnapshot(&current, testEpoch.Add(time.Duration(i)*time.Minute)), &next); err != nil {
				t.Fatalf("SnapshotAndUpdateFile(%s) error = %v", name, err)
			}
			current = next
		}

		versions, _ := db.ListFileVersions(ctx, f.ID)
		got := make([]string, len(versions))
		for i, v := range versions {
			got[i] = v.Name
		}
		if want := []string{"v2.txt", "v1.txt"}; !slices.Equal(got, want) {
			t.Errorf("versions = %v, want %v", got, want)
		}

		found, err := db.FindFileVersion(ctx, versions[1].ID)
		if err != nil || found == nil || found.Name != "v1.txt" {
			t.Errorf("FindFileVersion() = %v, %v; want v1.txt", found, err)
		}
	})
}

func TestSQLiteDatabase_TrashAndRestoreFolder(t *testing.T) {
	setup := func(t *testing.T) (*SQLiteDatabase, *model.Folder, *model.Folder, *model.File) {
		db := newTestDB(t)
		root := createTestFolder(t, db, "alice", "Root", nil)
		child := createTestFolder(t, db, "alice", "Child", &root.ID)
		file := createTestFile(t, db, "alice", "deep.txt", 5, &child.ID, testEpoch)
		return db, root, child, file
	}

	t.Run("without cascade only the folder is stamped", func(t *testing.T) {
		db, root, child, file := setup(t)
		ctx := context.Background()

		n, err := db.TrashFolder(ctx, root.ID, testEpoch, false)
		if err != nil || n != 1 {
			t.Fatalf("TrashFolder() = %d, %v; want 1, nil", n, err)
		}
		if c, _ := db.FindFolder(ctx, child.ID); c.IsTrashed() {
			t.Error("child folder trashed without cascade")
		}
		if f, _ := db.FindFile(ctx, file.ID); f.IsTrashed() {
			t.Error("file trashed without cascade")
		}
	})

	t.Run("cascade stamps subtree and restore clears it", func(t *testing.T) {
		db, root, child, file := setup(t)
		ctx := context.Background()

		n, err := db.TrashFolder(ctx, root.ID, testEpoch, true)
		if err != nil || n != 3 {
			t.Fatalf("TrashFolder() = %d, %v; want 3, nil", n, err)
		}
		if n, _ := db.TrashFolder(ctx, root.ID, testEpoch, true); n != 0 {
			t.Errorf("second TrashFolder() = %d, want 0", n)
		}

		trashedFolders, _ := db.ListTrashedFolders(ctx, "alice")
		trashedFiles, _ := db.ListTrashedFiles(ctx, "alice")
		if len(trashedFolders) != 2 || len(trashedFiles) != 1 {
			t.Errorf("trash = %d folders, %d files; want 2, 1", len(trashedFolders), len(trashedFiles))
		}

		n, err = db.RestoreFolder(ctx, root.ID, testEpoch, true)
		if err != nil || n != 3 {
			t.Fatalf("RestoreFolder() = %d, %v; want 3, nil", n, err)
		}
		if c, _ := db.FindFolder(ctx, child.ID); c.IsTrashed() {
			t.Error("child folder still trashed")
		}
		if f, _ := db.FindFile(ctx, file.ID); f.IsTrashed() {
			t.Error("file still trashed")
		}
	})

	t.Run("restore leaves separately trashed items", func(t *testing.T) {
		db, root, _, file := setup(t)
		ctx := context.Background()

		db.TrashFile(ctx, file.ID, testEpoch)
		db.TrashFolder(ctx, root.ID, testEpoch.Add(time.Minute), true)

		if n, err := db.RestoreFolder(ctx, root.ID, testEpoch.Add(time.Minute), true); err != nil || n != 2 {
			t.Fatalf("RestoreFolder() = %d, %v; want 2, nil", n, err)
		}
		if f, _ := db.FindFile(ctx, file.ID); !f.IsTrashed() {
			t.Error("separately trashed file was restored")
		}
	})

	t.Run("restore of active folder changes nothing", func(t *testing.T) {
		db, root, _, _ := setup(t)
		if n, err := db.RestoreFolder(context.Background(), root.ID, testEpoch, true); err != nil || n != 0 {
			t.Errorf("RestoreFolder() = %d, %v; want 0, nil", n, err)
		}
	})
}

func TestSQLiteDatabase_PurgeFolder(t *testing.T) {
	t.Run("refuses non-empty folder without cascade", func(t *testing.T) {
		db := newTestDB(t)
		root := createTestFolder(t, db, "alice", "Root", nil)
		createTestFile(t, db, "alice", "x.txt", 1, &root.ID, testEpoch)

		_, err := db.PurgeFolder(context.Background(), root.ID, false, true)
		if !errors.Is(err, drive.ErrFolderNotEmpty) {
			t.Errorf("PurgeFolder() error = %v, want ErrFolderNotEmpty", err)
		}
	})

	t.Run("cascade refuses active descendants when trashed only", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		root := createTestFolder(t, db, "alice", "Root", nil)
		child := createTestFolder(t, db, "alice", "Child", &root.ID)
		file := createTestFile(t, db, "alice", "keep.txt", 1, &child.ID, testEpoch)

		if _, err := db.TrashFolder(ctx, root.ID, testEpoch, false); err != nil {
			t.Fatalf("TrashFolder() error = %v", err)
		}
		_, err := db.PurgeFolder(ctx, root.ID, true, true)
		if !errors.Is(err, drive.ErrFolderHasActiveItems) {
			t.Fatalf("PurgeFolder() error = %v, want ErrFolderHasActiveItems", err)
		}
		if f, _ := db.FindFile(ctx, file.ID); f == nil {
			t.Error("active file deleted by refused purge")
		}
		if f, _ := db.FindFolder(ctx, child.ID); f == nil {
			t.Error("active folder deleted by refused purge")
		}

		if _, err := db.TrashFolder(ctx, child.ID, testEpoch, false); err != nil {
			t.Fatalf("TrashFolder(child) error = %v", err)
		}
		if _, err := db.TrashFile(ctx, file.ID, testEpoch); err != nil {
			t.Fatalf("TrashFile() error = %v", err)
		}
		paths, err := db.PurgeFolder(ctx, root.ID, true, true)
		if err != nil {
			t.Fatalf("PurgeFolder() after trashing everything error = %v", err)
		}
		if len(paths) != 1 || paths[0] != file.Path {
			t.Errorf("PurgeFolder() paths = %v, want [%s]", paths, file.Path)
		}
	})

	t.Run("cascade removes subtree and returns every path", func(t *testing.T) {
		db := newTestDB(t)
		ctx := context.Background()
		root := createTestFolder(t, db, "alice", "Root", nil)
		child := createTestFolder(t, db, "alice", "Child", &root.ID)
		top := createTestFile(t, db, "alice", "top.txt", 1, &root.ID, testEpoch)
		deep := createTestFile(t, db, "alice", "deep.txt", 1, &child.ID, testEpoch)

		old := top.Path
		updated := *top
		updated.Path = "alice/new-content"
		updated.Version = 2
		snap := &model.FileVersion{ID: uuid.New().String(), FileID: top.ID, Name: top.Name, Path: old, CreatedAt: testEpoch}
		if err := db.SnapshotAndUpdateFile(ctx, 1, snap, &updated); err != nil {
			t.Fatalf("SnapshotAndUpdateFile() error = %v", err)
		}
		grant := &model.Permission{ID: uuid.New().String(), UserID: "bob", ResourceID: child.ID,
			ResourceType: model.ResourceFolder, Role: model.RoleViewer, CreatedAt: testEpoch}
		if err := db.CreatePermission(ctx, grant); err != nil {
			t.Fatalf("CreatePermission() error = %v", err)
		}

		paths, err := db.PurgeFolder(ctx, root.ID, true, false)
		if err != nil {
			t.Fatalf("PurgeFolder() error = %v", err)
		}
		slices.Sort(paths)
		want := []string{old, updated.Path, deep.Path}
		slices.Sort(want)
		if !slices.Equal(paths, want) {
			t.Errorf("PurgeFolder() paths = %v, want %v", paths, want)
		}

		if f, _ := db.FindFolder(ctx, child.ID); f != nil {
			t.Error("child folder survived purge")
		}
		if f, _ := db.FindFile(ctx, deep.ID); f != nil {
			t.Error("file survived purge")
		}
		if p, _ := db.FindPermission(ctx, grant.ID); p != nil {
			t.Error("permission survived purge")
		}
	})
}

func TestSQLiteDatabase_Permissions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	folder := createTestFolder(t, db, "alice", "Shared", nil)
	file := createTestFile(t, db, "alice", "shared.txt", 1, nil, testEpoch)
	token := "tok-123"

	grant := &model.Permission{ID: uuid.New().String(), UserID: "bob", ResourceID: folder.ID,
		ResourceType: model.ResourceFolder, Role: model.RoleEditor, CreatedAt: testEpoch}
	link := &model.Permission{ID: uuid.New().String(), UserID: "alice", ResourceID: file.ID,
		ResourceType: model.ResourceFile, Role: model.RoleViewer, SharedLink: &token, CreatedAt: testEpoch}
	for _, p := range []*model.Permission{grant, link} {
		if err := db.CreatePermission(ctx, p); err != nil {
			t.Fatalf("CreatePermission() error = %v", err)
		}
	}

	t.Run("duplicate grant conflicts", func(t *testing.T) {
		dup := *grant
		dup.ID = uuid.New().String()
		dup.Role = model.RoleViewer
		if err := db.CreatePermission(ctx, &dup); !errors.Is(err, drive.ErrConflict) {
			t.Errorf("CreatePermission() error = %v, want ErrConflict", err)
		}
	})

	t.Run("duplicate link token conflicts", func(t *testing.T) {
		dup := *link
		dup.ID = uuid.New().String()
		if err := db.CreatePermission(ctx, &dup); !errors.Is(err, drive.ErrConflict) {
			t.Errorf("CreatePermission() error = %v, want ErrConflict", err)
		}
	})

	t.Run("finds link by token", func(t *testing.T) {
		p, err := db.FindPermissionByLink(ctx, token)
		if err != nil || p == nil {
			t.Fatalf("FindPermissionByLink() = %v, %v", p, err)
		}
		if p.ResourceID != file.ID || p.Role != model.RoleViewer || !p.IsLink() {
			t.Errorf("FindPermissionByLink() = %+v", p)
		}
		if p, _ := db.FindPermissionByLink(ctx, "unknown"); p != nil {
			t.Errorf("FindPermissionByLink(unknown) = %v, want nil", p)
		}
	})

	t.Run("user permissions exclude links", func(t *testing.T) {
		perms, err := db.FindUserPermissions(ctx, "alice", file.ID, model.ResourceFile)
		if err != nil {
			t.Fatalf("FindUserPermissions() error = %v", err)
		}
		if len(perms) != 0 {
			t.Errorf("FindUserPermissions() = %d rows, want 0", len(perms))
		}
		perms, _ = db.FindUserPermissions(ctx, "bob", folder.ID, model.ResourceFolder)
		if len(perms) != 1 || perms[0].Role != model.RoleEditor {
			t.Errorf("FindUserPermissions(bob) = %v, want one editor grant", perms)
		}
	})

	t.Run("shared listings", func(t *testing.T) {
		folders, err := db.ListSharedFolders(ctx, "bob")
		if err != nil {
			t.Fatalf("ListSharedFolders() error = %v", err)
		}
		if len(folders) != 1 || folders[0].ID != folder.ID {
			t.Errorf("ListSharedFolders(bob) = %v", folderNames(folders))
		}
		files, _ := db.ListSharedFiles(ctx, "alice")
		if len(files) != 0 {
			t.Errorf("ListSharedFiles(alice) = %v, want none", fileNames(files))
		}
	})

	t.Run("delete permission", func(t *testing.T) {
		if err := db.DeletePermission(ctx, grant.ID); err != nil {
			t.Fatalf("DeletePermission() error = %v", err)
		}
		perms, _ := db.ListPermissions(ctx, folder.ID, model.ResourceFolder)
		if len(perms) != 0 {
			t.Errorf("ListPermissions() = %d rows after delete, want 0", len(perms))
		}
	})
}

func TestSQLiteDatabase_SumActiveFileSize(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if total, err := db.SumActiveFileSize(ctx, "alice"); err != nil || total != 0 {
		t.Errorf("SumActiveFileSize() = %d, %v; want 0, nil", total, err)
	}

	createTestFile(t, db, "alice", "a", 100, nil, testEpoch)
	trashed := createTestFile(t, db, "alice", "b", 50, nil, testEpoch)
	createTestFile(t, db, "bob", "c", 7, nil, testEpoch)
	db.TrashFile(ctx, trashed.ID, testEpoch)

	if total, _ := db.SumActiveFileSize(ctx, "alice"); total != 100 {
		t.Errorf("SumActiveFileSize() = %d, want 100", total)
	}
}

func TestSQLiteDatabase_BackupTo(t *testing.T) {
	db := newTestDB(t)
	folder := createTestFolder(t, db, "alice", "Docs", nil)

	destPath := filepath.Join(t.TempDir(), "backup.db")
	if err := db.BackupTo(context.Background(), destPath); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	// Open the backup and verify it has the data
	backup, err := NewSQLiteDatabase(destPath)
	if err != nil {
		t.Fatalf("opening backup: %v", err)
	}
	defer backup.Close()

	got, err := backup.FindFolder(context.Background(), folder.ID)
	if err != nil {
		t.Fatalf("FindFolder() error = %v", err)
	}
	if got == nil {
		t.Error("backup does not contain the folder")
	}
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	t.Run("passes on migrated database", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("fails on DB without migrations applied", func(t *testing.T) {
		conn, err := OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		db := NewSQLiteDatabaseFromDB(conn)
		defer db.Close()

		// DB has no schema at all, should fail
		if err := db.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() expected error for missing schema")
		}
	})
}
