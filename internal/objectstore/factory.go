package objectstore

import (
	"context"
	"fmt"

	"drive-go/internal/config"
	"drive-go/internal/drive"
)

// NewStoreFromConfig creates an object store from the storage configuration.
// publicBaseURL is where this process serves blobs of local stores.
func NewStoreFromConfig(ctx context.Context, cfg config.StorageConfig, publicBaseURL string) (drive.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(NewURLSigner(cfg.SigningSecret, publicBaseURL)), nil
	case "filesystem":
		store, err := NewFileSystemStore(cfg.FSRoot, NewURLSigner(cfg.SigningSecret, publicBaseURL))
		if err != nil {
			return nil, err
		}
		if cfg.AgeIdentityFile == "" {
			return store, nil
		}
		enc, err := LoadAgeEncryptor(cfg.AgeIdentityFile)
		if err != nil {
			return nil, err
		}
		return store.WithEncryption(enc), nil
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
