package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filippo.io/age"

	"drive-go/internal/drive"
)

const testSecret = "blob-signing-secret-blob-signing"

func testSigner() *URLSigner {
	return NewURLSigner(testSecret, "http://drive.test/")
}

func testEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("GenerateX25519Identity() error = %v", err)
	}
	return NewAgeEncryptor(identity)
}

// localStores returns one instance of each store this process serves itself.
func localStores(t *testing.T) map[string]LocalStore {
	t.Helper()
	fsStore, err := NewFileSystemStore(t.TempDir(), testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	encStore, err := NewFileSystemStore(t.TempDir(), testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	return map[string]LocalStore{
		"memory":               NewMemoryStore(testSigner()),
		"filesystem":           fsStore,
		"encrypted filesystem": encStore.WithEncryption(testEncryptor(t)),
	}
}

func TestLocalStore_Put(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		content   []byte
		size      int64
		wantKind  drive.Kind
		wantStore bool
	}{
		{"stores content", "owner-1/1700000000000_a.txt", []byte("hello world"), 11, "", true},
		{"empty content", "owner-1/1700000000000_empty", []byte{}, 0, "", true},
		{"size mismatch short", "owner-1/short", []byte("abc"), 10, drive.KindBadRequest, false},
		{"size mismatch long", "owner-1/long", []byte("abcdef"), 3, drive.KindBadRequest, false},
		{"escaping key", "../outside", []byte("x"), 1, drive.KindBadRequest, false},
		{"absolute key", "/etc/passwd", []byte("x"), 1, drive.KindBadRequest, false},
		{"empty key", "", []byte("x"), 1, drive.KindBadRequest, false},
	}

	for storeName := range localStores(t) {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				store := localStores(t)[storeName]
				ctx := context.Background()

				got, err := store.Put(ctx, tt.key, bytes.NewReader(tt.content), tt.size, "text/plain")
				if kind := drive.KindOf(err); kind != tt.wantKind {
					t.Fatalf("Put() kind = %q, want %q (err = %v)", kind, tt.wantKind, err)
				}
				if !tt.wantStore {
					return
				}
				if got != tt.key {
					t.Errorf("Put() = %q, want %q", got, tt.key)
				}

				obj, err := store.Open(ctx, tt.key)
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				defer obj.Body.Close()
				data, err := io.ReadAll(obj.Body)
				if err != nil {
					t.Fatalf("reading object: %v", err)
				}
				if !bytes.Equal(data, tt.content) {
					t.Errorf("content = %q, want %q", data, tt.content)
				}
				if obj.Size != tt.size {
					t.Errorf("Size = %d, want %d", obj.Size, tt.size)
				}
			})
		}
	}
}

func TestLocalStore_PutExistingKeyConflicts(t *testing.T) {
	for name, store := range localStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "k/one", strings.NewReader("first"), 5, ""); err != nil {
				t.Fatalf("first Put() error = %v", err)
			}

			second := strings.NewReader("second")
			_, err := store.Put(ctx, "k/one", second, 6, "")
			if !errors.Is(err, drive.ErrConflict) {
				t.Fatalf("second Put() error = %v, want ErrConflict", err)
			}
			if second.Len() != 6 {
				t.Errorf("second Put() consumed %d bytes of the body", 6-second.Len())
			}

			obj, err := store.Open(ctx, "k/one")
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer obj.Body.Close()
			data, _ := io.ReadAll(obj.Body)
			if string(data) != "first" {
				t.Errorf("content = %q, want %q", data, "first")
			}
		})
	}
}

func TestLocalStore_Delete(t *testing.T) {
	for name, store := range localStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "k/gone", strings.NewReader("bye"), 3, ""); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := store.Delete(ctx, "k/gone"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Open(ctx, "k/gone"); !errors.Is(err, drive.ErrNotFound) {
				t.Errorf("Open() after Delete error = %v, want ErrNotFound", err)
			}
			if err := store.Delete(ctx, "k/gone"); err != nil {
				t.Errorf("second Delete() error = %v, want nil", err)
			}
		})
	}
}

func TestLocalStore_URLs(t *testing.T) {
	for name, store := range localStores(t) {
		t.Run(name, func(t *testing.T) {
			path := "owner 1/1700000000000_report.pdf"
			if got, want := store.PublicURL(path), "http://drive.test/blobs/owner%201/1700000000000_report.pdf"; got != want {
				t.Errorf("PublicURL() = %q, want %q", got, want)
			}

			signed, err := store.SignedURL(context.Background(), path, time.Hour)
			if err != nil {
				t.Fatalf("SignedURL() error = %v", err)
			}
			u, err := url.Parse(signed)
			if err != nil {
				t.Fatalf("parsing signed url: %v", err)
			}
			token := u.Query().Get("token")
			if token == "" {
				t.Fatal("signed url has no token")
			}
			if err := store.Signer().Verify(path, token); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestURLSigner_Verify(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	signer := testSigner().WithClock(func() time.Time { return now })

	signed, err := signer.Sign("a/b", time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	u, _ := url.Parse(signed)
	token := u.Query().Get("token")

	tests := []struct {
		name    string
		signer  *URLSigner
		path    string
		token   string
		wantErr bool
	}{
		{"valid", signer, "a/b", token, false},
		{"other path", signer, "a/c", token, true},
		{"garbage token", signer, "a/b", "not-a-token", true},
		{"wrong secret", NewURLSigner("another-secret-another-secret-00", "http://drive.test").WithClock(func() time.Time { return now }), "a/b", token, true},
		{"expired", signer.WithClock(func() time.Time { return now.Add(2 * time.Minute) }), "a/b", token, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.signer.Verify(tt.path, tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, drive.ErrForbidden) {
				t.Errorf("Verify() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestFileSystemStore_LeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemStore(root, testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	ctx := context.Background()
	if _, err := store.Put(ctx, "o/ok", strings.NewReader("data"), 4, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Put(ctx, "o/bad", strings.NewReader("data"), 9, ""); err == nil {
		t.Fatal("Put() expected size mismatch error")
	}

	entries, err := os.ReadDir(filepath.Join(root, "objects", "o"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ok" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory entries = %v, want [ok]", names)
	}
}

func TestFileSystemStore_ValidateSetup(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileSystemStore(root, testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	if err := store.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if err := store.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error for missing root")
	}
}

func TestLocalStore_ContentType(t *testing.T) {
	for name, store := range localStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// The extension suggests text/plain; the recorded type wins.
			if _, err := store.Put(ctx, "o/1_notes.txt", strings.NewReader("{}"), 2, "application/json"); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			obj, err := store.Open(ctx, "o/1_notes.txt")
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			obj.Body.Close()
			if obj.ContentType != "application/json" {
				t.Errorf("ContentType = %q, want %q", obj.ContentType, "application/json")
			}
		})
	}
}

func TestFileSystemStore_ContentTypeFallsBackToExtension(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir(), testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "o/1_page.html", strings.NewReader("<p>"), 3, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	obj, err := store.Open(ctx, "o/1_page.html")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	obj.Body.Close()
	if !strings.HasPrefix(obj.ContentType, "text/html") {
		t.Errorf("ContentType = %q, want text/html", obj.ContentType)
	}

	if err := store.Delete(ctx, "o/1_page.html"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestFileSystemStore_EncryptsAtRest(t *testing.T) {
	root := t.TempDir()
	plain, err := NewFileSystemStore(root, testSigner())
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}
	enc := testEncryptor(t)
	store := plain.WithEncryption(enc)
	ctx := context.Background()

	content := "quarterly numbers, do not share"
	if _, err := store.Put(ctx, "o/1_secret.txt", strings.NewReader(content), int64(len(content)), "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(root, "objects", "o", "1_secret.txt"))
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if bytes.Contains(raw, []byte(content)) {
		t.Error("stored object contains the plaintext")
	}

	obj, err := store.Open(ctx, "o/1_secret.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer obj.Body.Close()
	data, _ := io.ReadAll(obj.Body)
	if string(data) != content {
		t.Errorf("decrypted content = %q, want %q", data, content)
	}
	if obj.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", obj.Size, len(content))
	}

	other := plain.WithEncryption(testEncryptor(t))
	if _, err := other.Open(ctx, "o/1_secret.txt"); err == nil {
		t.Error("Open() with another identity expected error")
	}
}

func TestGenerateAgeIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "age.txt")

	recipient, err := GenerateAgeIdentity(path)
	if err != nil {
		t.Fatalf("GenerateAgeIdentity() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("identity file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("identity file mode = %o, want 600", perm)
	}

	enc, err := LoadAgeEncryptor(path)
	if err != nil {
		t.Fatalf("LoadAgeEncryptor() error = %v", err)
	}
	if enc.Recipient() != recipient {
		t.Errorf("Recipient() = %q, want %q", enc.Recipient(), recipient)
	}

	if _, err := GenerateAgeIdentity(path); err == nil {
		t.Error("second GenerateAgeIdentity() expected error")
	}
}
