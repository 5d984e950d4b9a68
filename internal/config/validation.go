package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate = validator.New()

// Validate checks cfg against its struct tags and the rules tags cannot
// express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	durations := []struct {
		name string
		d    Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout},
		{"storage.download_url_ttl", cfg.Storage.DownloadURLTTL},
		{"identity.cache_ttl", cfg.Identity.CacheTTL},
	}
	for _, d := range durations {
		if d.d.Duration < 0 {
			return fmt.Errorf("%s: must not be negative", d.name)
		}
	}
	if cfg.Limits.MaxUploadBytes > cfg.Limits.QuotaBytes {
		return fmt.Errorf("limits.max_upload_bytes: %d exceeds quota_bytes %d",
			cfg.Limits.MaxUploadBytes, cfg.Limits.QuotaBytes)
	}
	if cfg.Storage.AgeIdentityFile != "" && cfg.Storage.Type != "filesystem" {
		return fmt.Errorf("storage.age_identity_file: only supported for type filesystem, not %q", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "s3" && (cfg.Storage.S3AccessKeyID == "") != (cfg.Storage.S3SecretAccessKey == "") {
		return fmt.Errorf("storage: s3_access_key_id and s3_secret_access_key must be set together")
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
