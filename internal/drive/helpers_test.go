package drive_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/testutil"
)

var (
	alice = drive.UserActor("alice")
	bob   = drive.UserActor("bob")
	carol = drive.UserActor("carol")
)

func ptr(s string) *string { return &s }

func newEnv(t *testing.T) *testutil.Env {
	t.Helper()
	return testutil.NewTestService(t, nil)
}

func newEnvWith(t *testing.T, mutate func(*drive.Options)) *testutil.Env {
	t.Helper()
	opts := drive.DefaultOptions()
	mutate(&opts)
	return testutil.NewTestService(t, &opts)
}

func mustFolder(t *testing.T, svc *drive.DriveService, actor drive.Actor, name string, parent *string) *model.Folder {
	t.Helper()
	f, err := svc.CreateFolder(context.Background(), actor, name, parent)
	if err != nil {
		t.Fatalf("CreateFolder(%q) error = %v", name, err)
	}
	return f
}

func textUpload(name, content string) drive.Upload {
	return drive.Upload{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

func mustUpload(t *testing.T, svc *drive.DriveService, actor drive.Actor, folder *string, name, content string) *model.File {
	t.Helper()
	f, err := svc.UploadFile(context.Background(), actor, folder, textUpload(name, content))
	if err != nil {
		t.Fatalf("UploadFile(%q) error = %v", name, err)
	}
	return f
}

func wantKind(t *testing.T, op string, err error, want drive.Kind) {
	t.Helper()
	if got := drive.KindOf(err); got != want {
		t.Fatalf("%s kind = %q, want %q (err = %v)", op, got, want, err)
	}
}

func fileIDs(files []*model.File) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

func folderIDs(folders []*model.Folder) []string {
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}
	return ids
}

func crumbNames(crumbs []model.Breadcrumb) []string {
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return names
}

func strconvMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
