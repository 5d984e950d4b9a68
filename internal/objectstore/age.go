package objectstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// AgeEncryptor encrypts blobs at rest with an X25519 age identity. The
// identity file holds the private key in plaintext and must be readable only
// by the server.
type AgeEncryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewAgeEncryptor wraps an X25519 identity.
func NewAgeEncryptor(identity *age.X25519Identity) *AgeEncryptor {
	return &AgeEncryptor{identity: identity, recipient: identity.Recipient()}
}

// LoadAgeEncryptor reads the first X25519 identity from path.
func LoadAgeEncryptor(path string) (*AgeEncryptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading age identity: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	for _, id := range identities {
		if x, ok := id.(*age.X25519Identity); ok {
			return NewAgeEncryptor(x), nil
		}
	}
	return nil, fmt.Errorf("no X25519 identity found in %s", path)
}

// GenerateAgeIdentity writes a new X25519 identity to path and returns its
// public recipient. An existing file is never overwritten.
func GenerateAgeIdentity(path string) (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("age identity %s already exists", path)
		}
		return "", fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	recipient := identity.Recipient().String()
	content := fmt.Sprintf("# public key: %s\n%s\n", recipient, identity.String())
	if _, err := io.WriteString(f, content); err != nil {
		return "", fmt.Errorf("writing identity: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing identity file: %w", err)
	}
	return recipient, nil
}

// Recipient returns the public key blobs are encrypted to.
func (e *AgeEncryptor) Recipient() string {
	return e.recipient.String()
}

// EncryptTo returns a writer that encrypts into w. Close finalizes the stream
// without closing w.
func (e *AgeEncryptor) EncryptTo(w io.Writer) (io.WriteCloser, error) {
	enc, err := age.Encrypt(w, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	return enc, nil
}

// Decrypt reads all of the ciphertext in r and returns the plaintext.
func (e *AgeEncryptor) Decrypt(r io.Reader) ([]byte, error) {
	dec, err := age.Decrypt(r, e.identity)
	if err != nil {
		return nil, fmt.Errorf("creating decrypted reader: %w", err)
	}
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decrypting data: %w", err)
	}
	return data, nil
}
