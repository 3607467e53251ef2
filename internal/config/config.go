package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/ezie-mag-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	KitName    string `env:"EZIE_KIT_NAME" validate:"required,excludesall=/\\"`
	ArchiveDir string `env:"EZIE_ARCHIVE_DIR" validate:"required_without=HourlyDir"`
	Merge      bool   `env:"EZIE_MERGE"`
	// HourlyDir overrides the merged directory as the Record Merger input.
	HourlyDir string `env:"EZIE_HOURLY_DIR"`

	CollisionPolicy domain.CollisionPolicy  `env:"EZIE_COLLISION_POLICY" validate:"oneof=overwrite skip error"`
	OnParseError    domain.ParseErrorPolicy `env:"EZIE_ON_PARSE_ERROR" validate:"oneof=fail skip"`

	ExportPath      string `env:"EZIE_EXPORT_PATH" validate:"omitempty,exportext"`
	MetricsTextfile string `env:"METRICS_TEXTFILE"`

	LogLevel        string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat       string `env:"LOG_FORMAT" validate:"oneof=json text"`
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	merge, err := strconv.ParseBool(sharedcfg.EnvOrDefault("EZIE_MERGE", "true"))
	if err != nil {
		return nil, errors.New("invalid EZIE_MERGE")
	}

	cfg := &Config{
		KitName:         sharedcfg.EnvOrDefault("EZIE_KIT_NAME", ""),
		ArchiveDir:      sharedcfg.EnvOrDefault("EZIE_ARCHIVE_DIR", ""),
		Merge:           merge,
		HourlyDir:       sharedcfg.EnvOrDefault("EZIE_HOURLY_DIR", ""),
		CollisionPolicy: domain.CollisionPolicy(sharedcfg.EnvOrDefault("EZIE_COLLISION_POLICY", string(domain.CollisionOverwrite))),
		OnParseError:    domain.ParseErrorPolicy(sharedcfg.EnvOrDefault("EZIE_ON_PARSE_ERROR", string(domain.OnParseErrorFail))),
		ExportPath:      sharedcfg.EnvOrDefault("EZIE_EXPORT_PATH", ""),
		MetricsTextfile: sharedcfg.EnvOrDefault("METRICS_TEXTFILE", ""),
		LogLevel:        strings.ToLower(sharedcfg.EnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(sharedcfg.EnvOrDefault("LOG_FORMAT", "json")),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports the first offending variable.
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "required_without":
		return fmt.Errorf("%s or EZIE_HOURLY_DIR is required", fe.Field())
	default:
		return fmt.Errorf("invalid %s: %q", fe.Field(), fe.Value())
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("exportext", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(filepath.Ext(fl.Field().String())) {
		case ".csv", ".xlsx", ".txt":
			return true
		}
		return false
	})
	return v
}
