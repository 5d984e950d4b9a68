package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drive-go/internal/config"
	"drive-go/internal/drive"
)

const (
	testSigningSecret = "signing-secret-signing-secret-00"
	testJWTSecret     = "jwt-secret-jwt-secret-jwt-secret"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir(), testSigningSecret, testJWTSecret)
	cfg.Log.Dir = ""
	cfg.Log.Level = "error"
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Storage.Type = "memory"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *DriveApp {
	t.Helper()
	a, err := NewDriveApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewDriveApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewDriveApp(t *testing.T) {
	t.Run("memory backends", func(t *testing.T) {
		a := newTestApp(t, newTestConfig(t))
		if err := a.Service().Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("filesystem store with sqlite database", func(t *testing.T) {
		dir := t.TempDir()
		cfg := config.NewConfig(dir, testSigningSecret, testJWTSecret)
		cfg.Log.Level = "error"

		a := newTestApp(t, cfg)
		if _, err := os.Stat(filepath.Join(dir, "drive.db")); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "log", "drive.log")); err != nil {
			t.Errorf("log file not created: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	t.Run("rejects short jwt secret", func(t *testing.T) {
		cfg := newTestConfig(t)
		cfg.Identity.JWTSecret = "short"
		if _, err := NewDriveApp(context.Background(), cfg); err == nil {
			t.Fatal("NewDriveApp() expected error for short jwt secret")
		}
	})
}

func TestServiceOptions(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Limits.QuotaBytes = 1000
	cfg.Limits.MaxUploadBytes = 100
	cfg.Storage.DownloadURLTTL = config.Duration{Duration: time.Minute}
	cfg.Policy.CascadeTrash = true

	opts := ServiceOptions(cfg)
	if opts.QuotaBytes != 1000 || opts.MaxUploadBytes != 100 {
		t.Errorf("limits = %d/%d, want 1000/100", opts.QuotaBytes, opts.MaxUploadBytes)
	}
	if opts.DownloadURLTTL != time.Minute {
		t.Errorf("DownloadURLTTL = %v, want %v", opts.DownloadURLTTL, time.Minute)
	}
	if !opts.CascadeTrash || !opts.RequireTrashBeforePurge {
		t.Errorf("policy = %+v, want cascade and trash-before-purge on", opts)
	}
}

func TestDriveApp_TokensAndHandler(t *testing.T) {
	a := newTestApp(t, newTestConfig(t))
	ctx := context.Background()

	token, err := a.IssueToken("alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	subject, err := a.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if subject != "alice" {
		t.Errorf("VerifyToken() = %q, want %q", subject, "alice")
	}

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/folders", strings.NewReader(`{"name":"Docs"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/folders error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/folders status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var folder struct {
		ID      string `json:"id"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&folder); err != nil {
		t.Fatalf("decoding folder: %v", err)
	}
	if folder.OwnerID != "alice" {
		t.Errorf("OwnerID = %q, want %q", folder.OwnerID, "alice")
	}

	usage, err := a.Usage(ctx, "alice")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if usage.Used != 0 {
		t.Errorf("Used = %d, want 0", usage.Used)
	}

	if _, err := a.ResolveLink(ctx, "missing"); !errors.Is(err, drive.ErrNotFound) {
		t.Errorf("ResolveLink() error = %v, want NotFound", err)
	}
}

func TestDriveApp_BackupDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig(dir, testSigningSecret, testJWTSecret)
	cfg.Log.Dir = ""
	cfg.Log.Level = "error"
	a := newTestApp(t, cfg)

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := a.BackupDatabase(context.Background(), dest); err != nil {
		t.Fatalf("BackupDatabase() error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if err := a.BackupDatabase(context.Background(), dest); err == nil {
		t.Error("BackupDatabase() expected error for existing destination")
	}
}

func TestMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "drive.db")}

	st, err := MigrationStatus(cfg)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if st.Current != 0 || st.Pending() == 0 {
		t.Fatalf("fresh status = %+v, want pending migrations", st)
	}

	if err := Migrate(cfg, "up"); err != nil {
		t.Fatalf("Migrate(up) error = %v", err)
	}
	st, err = MigrationStatus(cfg)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if st.Pending() != 0 || st.Current != st.Latest {
		t.Errorf("status after up = %+v, want current", st)
	}

	if err := Migrate(cfg, "down"); err != nil {
		t.Fatalf("Migrate(down) error = %v", err)
	}
	if err := Migrate(cfg, "sideways"); err == nil {
		t.Error("Migrate(sideways) expected error")
	}
	if _, err := MigrationStatus(config.DatabaseConfig{Type: "memory"}); err == nil {
		t.Error("MigrationStatus(memory) expected error")
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	b, _ := GenerateSecret()
	if len(a) < 32 {
		t.Errorf("len(GenerateSecret()) = %d, want >= 32", len(a))
	}
	if a == b {
		t.Error("GenerateSecret() returned the same value twice")
	}
}
