package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the YAML overlay the loader looks for. Every key is
// optional; built-in defaults cover the rest.
const ConfigFileName = "maitre.yaml"

// maitreYAMLConfig is the shape of maitre.yaml. Sections are pointers so
// an absent section keeps its built-in defaults untouched.
type maitreYAMLConfig struct {
	Server        *ServerConfig        `yaml:"server"`
	Store         *StoreConfig         `yaml:"store"`
	Sync          *SyncConfig          `yaml:"sync"`
	Audit         *AuditConfig         `yaml:"audit"`
	Locking       *LockingConfig       `yaml:"locking"`
	Queue         *QueueConfig         `yaml:"queue"`
	Reservations  *ReservationsConfig  `yaml:"reservations"`
	Notifications *NotificationsConfig `yaml:"notifications"`
	Maintenance   *MaintenanceConfig   `yaml:"maintenance"`
}

// Initialize loads, merges, and validates the configuration. This is the
// primary entry point.
//
// Steps performed:
//  1. Start from built-in defaults
//  2. Overlay maitre.yaml from configDir if present
//  3. Expand {{.ENV_VAR}} references before parsing
//  4. Pull provider credentials from the environment
//  5. Validate the resolved configuration
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"store_backend", cfg.Store.Backend,
		"reservations_disabled", cfg.Reservations.Disabled,
		"audit_dir", cfg.Audit.LogDir)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(configDir string) (*Config, error) {
	cfg := &Config{
		configDir:     configDir,
		Server:        DefaultServerConfig(),
		Store:         DefaultStoreConfig(),
		Sync:          DefaultSyncConfig(),
		Audit:         DefaultAuditConfig(),
		Locking:       DefaultLockingConfig(),
		Queue:         DefaultQueueConfig(),
		Reservations:  DefaultReservationsConfig(),
		Notifications: DefaultNotificationsConfig(),
		Maintenance:   DefaultMaintenanceConfig(),
	}

	overlay, err := loadMaitreYAML(configDir)
	if err != nil {
		return nil, NewLoadError(ConfigFileName, err)
	}
	if overlay != nil {
		if err := mergeOverlay(cfg, overlay); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", ConfigFileName, err)
		}
	}

	cfg.Notifications.LoadCredentialsFromEnv()
	return cfg, nil
}

// loadMaitreYAML reads the overlay file. A missing file is not an error;
// the built-in defaults are a complete configuration.
func loadMaitreYAML(configDir string) (*maitreYAMLConfig, error) {
	path := filepath.Join(configDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No configuration file found, using defaults", "path", path)
			return nil, nil
		}
		return nil, err
	}

	// Expand environment variables using {{.VAR}} template syntax
	data = ExpandEnv(data)

	var overlay maitreYAMLConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &overlay, nil
}

// mergeOverlay merges user-provided sections over the defaults. Non-zero
// user values override; unset keys keep their defaults.
func mergeOverlay(cfg *Config, overlay *maitreYAMLConfig) error {
	if overlay.Server != nil {
		if err := mergo.Merge(cfg.Server, overlay.Server, mergo.WithOverride); err != nil {
			return fmt.Errorf("section server: %w", err)
		}
	}
	if overlay.Store != nil {
		if err := mergo.Merge(cfg.Store, overlay.Store, mergo.WithOverride); err != nil {
			return fmt.Errorf("section store: %w", err)
		}
	}
	if overlay.Sync != nil {
		if err := mergo.Merge(cfg.Sync, overlay.Sync, mergo.WithOverride); err != nil {
			return fmt.Errorf("section sync: %w", err)
		}
	}
	if overlay.Audit != nil {
		if err := mergo.Merge(cfg.Audit, overlay.Audit, mergo.WithOverride); err != nil {
			return fmt.Errorf("section audit: %w", err)
		}
	}
	if overlay.Locking != nil {
		if err := mergo.Merge(cfg.Locking, overlay.Locking, mergo.WithOverride); err != nil {
			return fmt.Errorf("section locking: %w", err)
		}
	}
	if overlay.Queue != nil {
		if err := mergo.Merge(cfg.Queue, overlay.Queue, mergo.WithOverride); err != nil {
			return fmt.Errorf("section queue: %w", err)
		}
	}
	if overlay.Reservations != nil {
		if err := mergo.Merge(cfg.Reservations, overlay.Reservations, mergo.WithOverride); err != nil {
			return fmt.Errorf("section reservations: %w", err)
		}
		// Boolean flags merge by hand: mergo treats false as unset.
		cfg.Reservations.Disabled = overlay.Reservations.Disabled
		cfg.Reservations.AutoConfirm = overlay.Reservations.AutoConfirm
	}
	if overlay.Notifications != nil {
		if err := mergo.Merge(cfg.Notifications, overlay.Notifications, mergo.WithOverride); err != nil {
			return fmt.Errorf("section notifications: %w", err)
		}
	}
	if overlay.Maintenance != nil {
		if err := mergo.Merge(cfg.Maintenance, overlay.Maintenance, mergo.WithOverride); err != nil {
			return fmt.Errorf("section maintenance: %w", err)
		}
	}
	return nil
}

// validate performs validation on the resolved configuration
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}
