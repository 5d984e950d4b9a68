package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"drive-go/internal/drive"
)

// FileSystemStore is a filesystem-based implementation of the ObjectStore
// interface. Object keys map onto paths below root, with the content type
// recorded next to each object in a parallel tree:
//
//	<root>/
//	  objects/<owner_id>/<unix_millis>_<name>
//	  types/<owner_id>/<unix_millis>_<name>
//
// With an AgeEncryptor set, objects are stored age-encrypted and decrypted
// on Open.
type FileSystemStore struct {
	root      string
	signer    *URLSigner
	encryptor *AgeEncryptor
}

const (
	objectsDir = "objects"
	typesDir   = "types"
)

// NewFileSystemStore creates a store rooted at the given path.
func NewFileSystemStore(root string, signer *URLSigner) (*FileSystemStore, error) {
	for _, dir := range []string{objectsDir, typesDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store root: %w", err)
		}
	}
	return &FileSystemStore{root: root, signer: signer}, nil
}

// WithEncryption returns a copy of the store that encrypts new objects and
// decrypts stored ones with enc.
func (s *FileSystemStore) WithEncryption(enc *AgeEncryptor) *FileSystemStore {
	cp := *s
	cp.encryptor = enc
	return &cp
}

func (s *FileSystemStore) paths(key string) (object, contentType string, err error) {
	if err := validKey(key); err != nil {
		return "", "", err
	}
	rel := filepath.FromSlash(key)
	return filepath.Join(s.root, objectsDir, rel), filepath.Join(s.root, typesDir, rel), nil
}

// Put stores the content under key. An existing key is a conflict and the
// reader is left untouched.
func (s *FileSystemStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	dest, typePath, err := s.paths(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: object %s already exists", drive.ErrConflict, key)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := writeFile(dest, r, size, s.encryptor); err != nil {
		return "", err
	}

	// Written after the link: a conflicting Put must not replace another
	// object's type.
	if contentType != "" {
		if err := os.MkdirAll(filepath.Dir(typePath), 0755); err != nil {
			return "", fmt.Errorf("failed to create type directory: %w", err)
		}
		if err := os.WriteFile(typePath, []byte(contentType), 0644); err != nil {
			return "", fmt.Errorf("failed to record content type: %w", err)
		}
	}
	return key, nil
}

func (s *FileSystemStore) Open(_ context.Context, path string) (*Object, error) {
	src, typePath, err := s.paths(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: object %s", drive.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	obj := &Object{
		Body:        f,
		Size:        info.Size(),
		ContentType: readContentType(typePath, src),
		ModTime:     info.ModTime(),
	}
	if s.encryptor == nil {
		return obj, nil
	}

	defer f.Close()
	data, err := s.encryptor.Decrypt(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt object %s: %w", path, err)
	}
	obj.Body = nopSeekCloser{bytes.NewReader(data)}
	obj.Size = int64(len(data))
	return obj, nil
}

// readContentType returns the recorded type, or one guessed from the object's
// extension for objects stored without one.
func readContentType(typePath, objectPath string) string {
	if data, err := os.ReadFile(typePath); err == nil {
		if ct := strings.TrimSpace(string(data)); ct != "" {
			return ct
		}
	}
	return mime.TypeByExtension(filepath.Ext(objectPath))
}

// Delete removes the object. A missing object is not an error.
func (s *FileSystemStore) Delete(_ context.Context, path string) error {
	target, typePath, err := s.paths(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if err := os.Remove(typePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete content type: %w", err)
	}
	return nil
}

func (s *FileSystemStore) PublicURL(path string) string {
	return s.signer.URL(path)
}

func (s *FileSystemStore) SignedURL(_ context.Context, path string, ttl time.Duration) (string, error) {
	return s.signer.Sign(path, ttl)
}

func (s *FileSystemStore) Signer() *URLSigner {
	return s.signer
}

// ValidateSetup verifies that the root is an accessible directory.
func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store root is not a directory: %s", s.root)
	}
	return nil
}

// writeFile writes data from r to destPath using atomic write (temp file + link),
// encrypting it when enc is set. expectedSize counts plaintext bytes.
func writeFile(destPath string, r io.Reader, expectedSize int64, enc *AgeEncryptor) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	var w io.Writer = tmpFile
	var encWriter io.WriteCloser
	if enc != nil {
		encWriter, err = enc.EncryptTo(tmpFile)
		if err != nil {
			tmpFile.Close()
			return err
		}
		w = encWriter
	}

	written, err := io.Copy(w, io.LimitReader(r, expectedSize+1))
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if encWriter != nil {
		if err := encWriter.Close(); err != nil {
			tmpFile.Close()
			return fmt.Errorf("failed to finalize encryption: %w", err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("%w: size mismatch: expected %d bytes, got %d", drive.ErrBadRequest, expectedSize, written)
	}

	// Link fails if the destination appeared meanwhile, unlike Rename.
	if err := os.Link(tmpPath, destPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: object already exists", drive.ErrConflict)
		}
		return fmt.Errorf("failed to link temp file: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemStore implements LocalStore interface
var _ LocalStore = (*FileSystemStore)(nil)
