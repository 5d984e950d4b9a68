package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"drive-go/internal/app"
	"drive-go/internal/config"
	"drive-go/internal/objectstore"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

// resolveConfigPath returns the --config flag or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults.ConfigPath, nil
}

func readConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.ReadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a DriveApp. The caller must defer app.Close().
func newApp(ctx context.Context) (*app.DriveApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewDriveApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "drive",
	Short:        "Multi-user file drive server",
	SilenceUsage: true,
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx)
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE:  runMigrate("up"),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE:  runMigrate("down"),
}

func runMigrate(direction string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.Migrate(cfg.Database, direction); err != nil {
			return err
		}
		fmt.Printf("Migrated %s\n", direction)
		return nil
	}
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		st, err := app.MigrationStatus(cfg.Database)
		if err != nil {
			return err
		}
		fmt.Printf("Current: %d\n", st.Current)
		fmt.Printf("Latest:  %d\n", st.Latest)
		fmt.Printf("Pending: %d\n", st.Pending())
		if st.Dirty {
			fmt.Println("Dirty:   yes")
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path := defaults.ConfigPath
		if configPath != "" {
			path = configPath
		}

		signingSecret, err := app.GenerateSecret()
		if err != nil {
			return fmt.Errorf("generating signing secret: %w", err)
		}
		jwtSecret, err := app.GenerateSecret()
		if err != nil {
			return fmt.Errorf("generating jwt secret: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir, signingSecret, jwtSecret)
		if err := os.MkdirAll(defaults.BaseDir, 0700); err != nil {
			return fmt.Errorf("creating base dir: %w", err)
		}
		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.ReadFromFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Listen:      %s\n", cfg.Server.Addr)
		fmt.Printf("Public URL:  %s\n", cfg.Server.PublicBaseURL)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.Path)
		fmt.Printf("Storage:     %s\n", cfg.Storage.Type)
		if cfg.Storage.AgeIdentityFile != "" {
			fmt.Printf("Encryption:  age (%s)\n", cfg.Storage.AgeIdentityFile)
		}
		fmt.Printf("Quota:       %d bytes\n", cfg.Limits.QuotaBytes)
		fmt.Printf("Max upload:  %d bytes\n", cfg.Limits.MaxUploadBytes)
		fmt.Printf("Cascade:     %t\n", cfg.Policy.CascadeTrash)
		fmt.Printf("Log Dir:     %s\n", cfg.Log.Dir)
		return nil
	},
}

var configAgeKeygenCmd = &cobra.Command{
	Use:   "age-keygen [PATH]",
	Short: "Generate an age identity for encrypting blobs at rest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path := filepath.Join(defaults.BaseDir, "age-identity.txt")
		if len(args) > 0 {
			path = args[0]
		}

		recipient, err := objectstore.GenerateAgeIdentity(path)
		if err != nil {
			return err
		}
		fmt.Printf("Identity written to %s\n", path)
		fmt.Printf("Public key: %s\n", recipient)
		fmt.Printf("Set storage.age_identity_file = %q to encrypt new blobs.\n", path)
		return nil
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and inspect bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue SUBJECT",
	Short: "Issue a bearer token for a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := a.IssueToken(args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var tokenVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a bearer token read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := promptSecret("Token: ")
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		subject, err := a.VerifyToken(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Printf("Subject: %s\n", subject)
		return nil
	},
}

// promptSecret reads a value without echo when stdin is a terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	s, err := reader.ReadString('\n')
	if err != nil && s == "" {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// link command
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Inspect share links",
}

var linkResolveCmd = &cobra.Command{
	Use:   "resolve TOKEN",
	Short: "Show what a share link grants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.ResolveLink(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

// usage command
var usageCmd = &cobra.Command{
	Use:   "usage USER",
	Short: "Show storage usage of a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.Usage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d / %d bytes (%.1f%%)\n", u.Used, u.Max, u.Percent)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a consistent copy of the metadata database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Database copied to %s\n", args[0])
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file")

	// migrate subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configAgeKeygenCmd)

	// token subcommands
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenVerifyCmd)
	tokenIssueCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	linkCmd.AddCommand(linkResolveCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(dbCmd)
}
