package config

import (
	"fmt"
	"time"
)

// ConfigValidator validates the resolved configuration with clear error
// messages (fail-fast: stops at the first error).
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll checks every section in dependency order.
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateServer(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := v.validateStore(); err != nil {
		return fmt.Errorf("store validation failed: %w", err)
	}
	if err := v.validateAudit(); err != nil {
		return fmt.Errorf("audit validation failed: %w", err)
	}
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateReservations(); err != nil {
		return fmt.Errorf("reservations validation failed: %w", err)
	}
	if err := v.validateNotifications(); err != nil {
		return fmt.Errorf("notifications validation failed: %w", err)
	}
	if err := v.validateMaintenance(); err != nil {
		return fmt.Errorf("maintenance validation failed: %w", err)
	}
	return nil
}

func (v *ConfigValidator) validateServer() error {
	s := v.cfg.Server
	if s.Port < 1 || s.Port > 65535 {
		return NewValidationError("server", "port", fmt.Errorf("%w: %d", ErrInvalidValue, s.Port))
	}
	return nil
}

func (v *ConfigValidator) validateStore() error {
	s := v.cfg.Store
	switch s.Backend {
	case BackendMemory, BackendBolt, BackendPostgres:
	default:
		return NewValidationError("store", "backend", fmt.Errorf("%w: %q", ErrInvalidValue, s.Backend))
	}
	if s.Backend == BackendBolt && s.BoltPath == "" {
		return NewValidationError("store", "bolt_path", fmt.Errorf("required for the bolt backend"))
	}
	return nil
}

func (v *ConfigValidator) validateAudit() error {
	a := v.cfg.Audit
	if a.LogDir == "" {
		return NewValidationError("audit", "log_dir", fmt.Errorf("required"))
	}
	if a.BufferSize < 1 {
		return NewValidationError("audit", "buffer_size", fmt.Errorf("must be at least 1"))
	}
	if a.FlushInterval <= 0 {
		return NewValidationError("audit", "flush_interval", fmt.Errorf("must be positive"))
	}
	if a.MaxFileSizeMB < 1 {
		return NewValidationError("audit", "max_file_size_mb", fmt.Errorf("must be at least 1"))
	}
	if a.RetentionDays < 1 {
		return NewValidationError("audit", "retention_days", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue
	if q.NoShowTimeout <= 0 {
		return NewValidationError("queue", "no_show_timeout", fmt.Errorf("must be positive"))
	}
	if q.EstimatePerPartyMinutes <= 0 {
		return NewValidationError("queue", "estimate_per_party_minutes", fmt.Errorf("must be positive"))
	}
	if q.MaxPartySize < 1 {
		return NewValidationError("queue", "max_party_size", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *ConfigValidator) validateReservations() error {
	r := v.cfg.Reservations
	if r.MinPartySize < 1 {
		return NewValidationError("reservations", "min_party_size", fmt.Errorf("must be at least 1"))
	}
	if r.MaxPartySize < r.MinPartySize {
		return NewValidationError("reservations", "max_party_size",
			fmt.Errorf("must be at least min_party_size (%d)", r.MinPartySize))
	}
	if r.SlotDurationMinutes < 1 {
		return NewValidationError("reservations", "slot_duration_minutes", fmt.Errorf("must be at least 1"))
	}
	if r.MinDurationMinutes < 1 || r.MaxDurationMinutes < r.MinDurationMinutes {
		return NewValidationError("reservations", "max_duration_minutes",
			fmt.Errorf("duration bounds must satisfy 1 <= min <= max"))
	}
	if r.DefaultDurationMinutes < r.MinDurationMinutes || r.DefaultDurationMinutes > r.MaxDurationMinutes {
		return NewValidationError("reservations", "default_duration_minutes",
			fmt.Errorf("must lie within [%d, %d]", r.MinDurationMinutes, r.MaxDurationMinutes))
	}
	for day, hours := range r.OperatingHours {
		if hours.Closed {
			continue
		}
		if _, err := time.Parse("15:04", hours.Open); err != nil {
			return NewValidationError("reservations", "operating_hours",
				fmt.Errorf("%s: invalid open time %q", day, hours.Open))
		}
		if _, err := time.Parse("15:04", hours.Close); err != nil {
			return NewValidationError("reservations", "operating_hours",
				fmt.Errorf("%s: invalid close time %q", day, hours.Close))
		}
	}
	return nil
}

func (v *ConfigValidator) validateNotifications() error {
	n := v.cfg.Notifications
	if n.RetryDelay <= 0 {
		return NewValidationError("notifications", "retry_delay", fmt.Errorf("must be positive"))
	}
	if n.MaxRetries < 0 {
		return NewValidationError("notifications", "max_retries", fmt.Errorf("must not be negative"))
	}
	return nil
}

func (v *ConfigValidator) validateMaintenance() error {
	m := v.cfg.Maintenance
	if m.Interval <= 0 {
		return NewValidationError("maintenance", "interval", fmt.Errorf("must be positive"))
	}
	return nil
}
