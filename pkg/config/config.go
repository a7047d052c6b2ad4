// Package config loads and validates the maitre configuration: built-in
// defaults, an optional maitre.yaml overlay, and environment variables
// for credentials.
package config

import "time"

// Config is the fully resolved runtime configuration.
type Config struct {
	configDir string

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

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`

	// Port is the listen port.
	Port int `yaml:"port"`

	// ReadTimeout bounds how long reading a request may take.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds how long writing a response may take. It must
	// stay generous because WebSocket upgrades share the listener.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the grace period for draining on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0,
		ShutdownTimeout: 10 * time.Second,
	}
}

// StoreBackend selects which document-store implementation to run.
type StoreBackend string

const (
	BackendMemory   StoreBackend = "memory"
	BackendBolt     StoreBackend = "bolt"
	BackendPostgres StoreBackend = "postgres"
)

// StoreConfig selects the persistence backend. Postgres connection
// settings come from DB_* environment variables, not from YAML.
type StoreConfig struct {
	// Backend is one of memory, bolt, postgres.
	Backend StoreBackend `yaml:"backend"`

	// BoltPath is the database file used by the bolt backend.
	BoltPath string `yaml:"bolt_path"`
}

// DefaultStoreConfig returns the built-in store defaults.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend:  BackendMemory,
		BoltPath: "data/maitre.db",
	}
}

// SyncConfig holds the WebSocket hub settings.
type SyncConfig struct {
	// WriteTimeout bounds a single frame write to one terminal.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// AllowedOrigins is the extra Origin allow-list for browser terminals.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultSyncConfig returns the built-in sync defaults.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		WriteTimeout: 5 * time.Second,
	}
}

// AuditConfig holds the audit pipeline settings.
type AuditConfig struct {
	// LogDir is where day files are written.
	LogDir string `yaml:"log_dir"`

	// BufferSize is the flush threshold of the in-memory buffer.
	BufferSize int `yaml:"buffer_size"`

	// FlushInterval is the periodic flush tick.
	FlushInterval time.Duration `yaml:"flush_interval"`

	// MaxFileSizeMB triggers rotation of the current day file.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`

	// RetentionDays is how long day files are kept.
	RetentionDays int `yaml:"retention_days"`
}

// DefaultAuditConfig returns the built-in audit defaults.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		LogDir:        "logs/audit",
		BufferSize:    100,
		FlushInterval: 10 * time.Second,
		MaxFileSizeMB: 100,
		RetentionDays: 90,
	}
}

// LockingConfig holds the editing-lease settings.
type LockingConfig struct {
	// LeaseTimeout is how long a lease stays valid without a refresh.
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
}

// DefaultLockingConfig returns the built-in locking defaults.
func DefaultLockingConfig() *LockingConfig {
	return &LockingConfig{
		LeaseTimeout: 5 * time.Minute,
	}
}

// MaintenanceConfig holds the background sweep settings.
type MaintenanceConfig struct {
	// Interval is the sweep tick.
	Interval time.Duration `yaml:"interval"`

	// StoreIDs lists the tenants swept for reservation no-shows.
	StoreIDs []string `yaml:"store_ids"`
}

// DefaultMaintenanceConfig returns the built-in maintenance defaults.
func DefaultMaintenanceConfig() *MaintenanceConfig {
	return &MaintenanceConfig{
		Interval: 5 * time.Minute,
		StoreIDs: []string{"default"},
	}
}
