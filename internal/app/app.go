package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"drive-go/internal/api"
	"drive-go/internal/config"
	"drive-go/internal/database"
	"drive-go/internal/database/migrations"
	"drive-go/internal/drive"
	"drive-go/internal/identity"
	"drive-go/internal/objectstore"
)

// DriveApp is the application layer between the CLI and DriveService.
// It constructs all dependencies from config and closes them on Close.
type DriveApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	store    drive.ObjectStore
	verifier *identity.JWTVerifier
	service  *drive.DriveService
	logger   *slog.Logger
	logFile  *os.File
}

// NewDriveApp creates a fully wired DriveApp from the given config.
// The caller must call Close when done.
func NewDriveApp(ctx context.Context, cfg *config.Config) (*DriveApp, error) {
	logger, logFile, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	closeLog := func() {
		if logFile != nil {
			logFile.Close()
		}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	store, err := objectstore.NewStoreFromConfig(ctx, cfg.Storage, cfg.Server.PublicBaseURL)
	if err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	verifier, err := identity.NewJWTVerifier(identity.Config{
		Secret:    cfg.Identity.JWTSecret,
		Issuer:    cfg.Identity.Issuer,
		Audience:  cfg.Identity.Audience,
		CacheSize: cfg.Identity.CacheSize,
		CacheTTL:  cfg.Identity.CacheTTL.Duration,
	})
	if err != nil {
		db.Close()
		closeLog()
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	svc := drive.NewDriveService(db, store, &slogAdapter{l: logger}, drive.RealClock{},
		drive.UUIDGenerator{}, drive.RandomTokenGenerator{}, ServiceOptions(cfg))

	return &DriveApp{
		cfg:      cfg,
		db:       db,
		store:    store,
		verifier: verifier,
		service:  svc,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// ServiceOptions maps the limits and policies of cfg onto drive.Options.
func ServiceOptions(cfg *config.Config) drive.Options {
	return drive.Options{
		QuotaBytes:              cfg.Limits.QuotaBytes,
		MaxUploadBytes:          cfg.Limits.MaxUploadBytes,
		DownloadURLTTL:          cfg.Storage.DownloadURLTTL.Duration,
		DefaultPageLimit:        cfg.Limits.DefaultPageLimit,
		DefaultSearchLimit:      cfg.Limits.DefaultSearchLimit,
		MaxPageLimit:            cfg.Limits.MaxPageLimit,
		MaxDepth:                cfg.Limits.MaxDepth,
		CascadeTrash:            cfg.Policy.CascadeTrash,
		RequireTrashBeforePurge: cfg.Policy.RequireTrashBeforePurge,
	}
}

// Service returns the wired DriveService.
func (a *DriveApp) Service() *drive.DriveService {
	return a.service
}

// Handler returns the HTTP routes. Blob routes are mounted only when the
// object store's bytes are served by this process.
func (a *DriveApp) Handler() http.Handler {
	shareBase := a.cfg.Server.ShareBaseURL
	if shareBase == "" {
		shareBase = a.cfg.Server.PublicBaseURL
	}
	opts := api.Options{ShareBaseURL: shareBase}
	if local, ok := a.store.(objectstore.LocalStore); ok {
		opts.Blobs = local
	}
	h := api.NewHandler(a.service, a.logger, opts)
	return api.NewRouter(h, a.verifier, a.logger)
}

// Serve checks the object store, then serves HTTP until ctx is cancelled.
func (a *DriveApp) Serve(ctx context.Context) error {
	if err := a.service.Ping(ctx); err != nil {
		return fmt.Errorf("object store not ready: %w", err)
	}
	return api.NewServer(a.cfg.Server, a.Handler(), a.logger).Run(ctx)
}

// IssueToken signs a bearer token for subject.
func (a *DriveApp) IssueToken(subject string, ttl time.Duration) (string, error) {
	return a.verifier.Issue(subject, ttl)
}

// VerifyToken returns the principal a bearer token carries.
func (a *DriveApp) VerifyToken(ctx context.Context, token string) (string, error) {
	return a.verifier.Verify(ctx, token)
}

// ResolveLink returns what a share-link token points at.
func (a *DriveApp) ResolveLink(ctx context.Context, token string) (*drive.SharedResource, error) {
	return a.service.ResolveLink(ctx, token)
}

// Usage reports the storage consumption of a principal.
func (a *DriveApp) Usage(ctx context.Context, userID string) (*drive.Usage, error) {
	return a.service.StorageUsage(ctx, drive.UserActor(userID))
}

// BackupDatabase writes a consistent copy of the metadata database to destPath.
func (a *DriveApp) BackupDatabase(ctx context.Context, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("backup destination %s already exists", destPath)
	}
	return a.db.BackupTo(ctx, destPath)
}

// Close closes the database and the log file.
func (a *DriveApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}

// Migrate applies ("up") or reverts ("down") the schema of the configured
// database without opening the rest of the application.
func Migrate(cfg config.DatabaseConfig, direction string) error {
	if cfg.Type != "sqlite" {
		return fmt.Errorf("migrations apply to sqlite databases, not %q", cfg.Type)
	}
	db, err := database.OpenConnection(cfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		return migrations.MigrateUp(db)
	case "down":
		return migrations.MigrateDown(db)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}

// MigrationStatus reports the schema version of the configured database.
func MigrationStatus(cfg config.DatabaseConfig) (migrations.Status, error) {
	if cfg.Type != "sqlite" {
		return migrations.Status{}, fmt.Errorf("migrations apply to sqlite databases, not %q", cfg.Type)
	}
	db, err := database.OpenConnection(cfg.Path)
	if err != nil {
		return migrations.Status{}, err
	}
	defer db.Close()
	return migrations.ReadStatus(db)
}

// GenerateSecret returns a random secret suitable for the signing and JWT keys.
func GenerateSecret() (string, error) {
	return drive.RandomTokenGenerator{}.New()
}
