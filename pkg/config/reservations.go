package config

// DayHours is the operating window of one weekday. Close of "00:00"
// means midnight of the following day.
type DayHours struct {
	Open   string `yaml:"open"`  // HH:MM
	Close  string `yaml:"close"` // HH:MM
	Closed bool   `yaml:"closed"`
}

// ReservationsConfig contains the booking rules: advance window, party
// bounds, slot grid, and the background sweeps.
type ReservationsConfig struct {
	// Disabled turns reservation creation off entirely.
	Disabled bool `yaml:"disabled"`

	// MinAdvanceHours is the least notice a booking needs. A booking at
	// exactly this boundary is accepted.
	MinAdvanceHours int `yaml:"min_advance_hours"`

	// MaxAdvanceDays is how far ahead bookings are accepted.
	MaxAdvanceDays int `yaml:"max_advance_days"`

	// MinPartySize and MaxPartySize bound accepted party sizes.
	MinPartySize int `yaml:"min_party_size"`
	MaxPartySize int `yaml:"max_party_size"`

	// SlotDurationMinutes is the availability grid step.
	SlotDurationMinutes int `yaml:"slot_duration_minutes"`

	// DefaultDurationMinutes is assumed when a booking has no duration.
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`

	// MinDurationMinutes and MaxDurationMinutes bound booking durations.
	MinDurationMinutes int `yaml:"min_duration_minutes"`
	MaxDurationMinutes int `yaml:"max_duration_minutes"`

	// NoShowGraceMinutes is how long after the reserved time a CONFIRMED
	// booking survives before the no-show sweep claims it.
	NoShowGraceMinutes int `yaml:"no_show_grace_minutes"`

	// ReminderHours is how long before the reserved time the reminder
	// notification goes out.
	ReminderHours int `yaml:"reminder_hours"`

	// AutoConfirm makes new bookings start CONFIRMED instead of PENDING.
	AutoConfirm bool `yaml:"auto_confirm"`

	// FallbackTableCount stands in for the floor size while the table
	// registry is empty, so availability still works on a fresh install.
	FallbackTableCount int `yaml:"fallback_table_count"`

	// OperatingHours maps lowercase weekday names to opening windows.
	// A missing day counts as closed.
	OperatingHours map[string]DayHours `yaml:"operating_hours"`
}

// DefaultReservationsConfig returns the built-in reservation defaults.
func DefaultReservationsConfig() *ReservationsConfig {
	return &ReservationsConfig{
		MinAdvanceHours:        1,
		MaxAdvanceDays:         30,
		MinPartySize:           1,
		MaxPartySize:           20,
		SlotDurationMinutes:    15,
		DefaultDurationMinutes: 120,
		MinDurationMinutes:     30,
		MaxDurationMinutes:     300,
		NoShowGraceMinutes:     30,
		ReminderHours:          24,
		FallbackTableCount:     10,
		OperatingHours: map[string]DayHours{
			"monday":    {Open: "11:00", Close: "23:00"},
			"tuesday":   {Open: "11:00", Close: "23:00"},
			"wednesday": {Open: "11:00", Close: "23:00"},
			"thursday":  {Open: "11:00", Close: "23:00"},
			"friday":    {Open: "11:00", Close: "00:00"},
			"saturday":  {Open: "11:00", Close: "00:00"},
			"sunday":    {Open: "11:00", Close: "22:00"},
		},
	}
}

// HoursFor returns the operating window of a weekday ("monday", ...).
// The second return is false when the restaurant is closed that day.
func (c *ReservationsConfig) HoursFor(weekday string) (DayHours, bool) {
	h, ok := c.OperatingHours[weekday]
	if !ok || h.Closed || h.Open == "" || h.Close == "" {
		return DayHours{}, false
	}
	return h, true
}
