package models

import (
	"fmt"
	"time"
)

// ReservationStatus is the lifecycle state of a booking.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationArrived   ReservationStatus = "ARRIVED"
	ReservationSeated    ReservationStatus = "SEATED"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationNoShow    ReservationStatus = "NO_SHOW"
)

// Terminal reports whether the status admits no further transitions.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCompleted || s == ReservationCancelled || s == ReservationNoShow
}

// CanTransitionTo checks the lifecycle DAG:
// PENDING → CONFIRMED → ARRIVED → SEATED → COMPLETED, any non-terminal
// state → CANCELLED, and CONFIRMED → NO_SHOW.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == ReservationCancelled {
		return true
	}
	switch s {
	case ReservationPending:
		return next == ReservationConfirmed
	case ReservationConfirmed:
		return next == ReservationArrived || next == ReservationNoShow
	case ReservationArrived:
		return next == ReservationSeated
	case ReservationSeated:
		return next == ReservationCompleted
	}
	return false
}

// ReservationSource records the channel a booking came in through.
type ReservationSource string

const (
	SourcePhone    ReservationSource = "PHONE"
	SourceWebsite  ReservationSource = "WEBSITE"
	SourceWhatsApp ReservationSource = "WHATSAPP"
	SourceWalkIn   ReservationSource = "WALK_IN"
	SourcePartner  ReservationSource = "PARTNER"
)

// TablePreference is a seating feature a customer can ask for.
type TablePreference string

const (
	PrefWindow     TablePreference = "WINDOW"
	PrefQuiet      TablePreference = "QUIET"
	PrefOutdoor    TablePreference = "OUTDOOR"
	PrefIndoor     TablePreference = "INDOOR"
	PrefPrivate    TablePreference = "PRIVATE"
	PrefBar        TablePreference = "BAR"
	PrefHighchair  TablePreference = "HIGHCHAIR"
	PrefWheelchair TablePreference = "WHEELCHAIR"
)

// Recurrence is the repeat cadence of a standing reservation.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "NONE"
	RecurrenceDaily   Recurrence = "DAILY"
	RecurrenceWeekly  Recurrence = "WEEKLY"
	RecurrenceMonthly Recurrence = "MONTHLY"
)

// Wire formats for reservation dates and times. All instants are UTC.
const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// Reservation is a future booking identified by its confirmation code.
type Reservation struct {
	Entity

	CustomerName     string            `json:"customer_name"`
	CustomerPhone    string            `json:"customer_phone"`
	CustomerEmail    string            `json:"customer_email,omitempty"`
	PartySize        int               `json:"party_size"`
	ReservationDate  string            `json:"reservation_date"` // YYYY-MM-DD
	ReservationTime  string            `json:"reservation_time"` // HH:MM
	DurationMinutes  int               `json:"duration_minutes"`
	TablePreferences []TablePreference `json:"table_preferences,omitempty"`
	Status           ReservationStatus `json:"status"`
	Source           ReservationSource `json:"source"`
	ConfirmationCode string            `json:"confirmation_code"`
	AssignedTables   []string          `json:"assigned_tables,omitempty"`

	Recurrence         Recurrence `json:"recurrence"`
	RecurrenceParentID string     `json:"recurrence_parent_id,omitempty"`
	RecurrenceEndDate  string     `json:"recurrence_end_date,omitempty"`

	DepositAmount    float64 `json:"deposit_amount,omitempty"`
	DepositPaid      bool    `json:"deposit_paid"`
	DepositRefunded  bool    `json:"deposit_refunded"`
	NotificationSent bool    `json:"notification_sent"`
	ReminderSent     bool    `json:"reminder_sent"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	SeatedAt    *time.Time `json:"seated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// StartTime parses the reservation's date and time into a UTC instant.
func (r *Reservation) StartTime() (time.Time, error) {
	return ParseSlot(r.ReservationDate, r.ReservationTime)
}

// Window returns the occupancy interval [start, start+duration).
func (r *Reservation) Window() (start, end time.Time, err error) {
	start, err = r.StartTime()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(time.Duration(r.DurationMinutes) * time.Minute), nil
}

// ParseSlot combines a YYYY-MM-DD date and HH:MM time into a UTC instant.
func ParseSlot(date, slot string) (time.Time, error) {
	t, err := time.Parse(DateFormat+" "+TimeFormat, date+" "+slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %q %q: %w", date, slot, err)
	}
	return t.UTC(), nil
}

// CreateReservationRequest contains fields for creating a booking.
type CreateReservationRequest struct {
	CustomerName     string            `json:"customer_name"`
	CustomerPhone    string            `json:"customer_phone"`
	CustomerEmail    string            `json:"customer_email,omitempty"`
	PartySize        int               `json:"party_size"`
	ReservationDate  string            `json:"reservation_date"`
	ReservationTime  string            `json:"reservation_time"`
	DurationMinutes  int               `json:"duration_minutes,omitempty"`
	TablePreferences []TablePreference `json:"table_preferences,omitempty"`
	Source           ReservationSource `json:"source,omitempty"`
	AssignedTables   []string          `json:"assigned_tables,omitempty"`

	Recurrence        Recurrence `json:"recurrence,omitempty"`
	RecurrenceEndDate string     `json:"recurrence_end_date,omitempty"`

	DepositAmount float64        `json:"deposit_amount,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// UpdateReservationRequest carries a version-checked partial update.
type UpdateReservationRequest struct {
	Version          int                `json:"version"`
	CustomerName     *string            `json:"customer_name,omitempty"`
	CustomerPhone    *string            `json:"customer_phone,omitempty"`
	CustomerEmail    *string            `json:"customer_email,omitempty"`
	PartySize        *int               `json:"party_size,omitempty"`
	ReservationDate  *string            `json:"reservation_date,omitempty"`
	ReservationTime  *string            `json:"reservation_time,omitempty"`
	DurationMinutes  *int               `json:"duration_minutes,omitempty"`
	TablePreferences *[]TablePreference `json:"table_preferences,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
}

// BlockedSlot marks a time window closed for reservations, either for a
// set of tables or (tables_affected == nil) the whole floor.
type BlockedSlot struct {
	Entity

	Date           string   `json:"date"`       // YYYY-MM-DD
	StartTime      string   `json:"start_time"` // HH:MM
	EndTime        string   `json:"end_time"`   // HH:MM
	Reason         string   `json:"reason"`
	TablesAffected []string `json:"tables_affected,omitempty"`
}

// AvailabilitySlot is one slot in an availability response.
type AvailabilitySlot struct {
	Time            string `json:"time"` // HH:MM
	Available       bool   `json:"available"`
	AvailableTables int    `json:"available_tables"`
}

// BlockSlotRequest closes a time window for reservations.
type BlockSlotRequest struct {
	Date           string   `json:"date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Reason         string   `json:"reason,omitempty"`
	TablesAffected []string `json:"tables_affected,omitempty"`
}

// ReservationStatistics is the aggregate booking view of a store.
type ReservationStatistics struct {
	TodayCount int `json:"today_count"`
	WeekCount  int `json:"week_count"`
	MonthCount int `json:"month_count"`

	NoShowRate       float64 `json:"no_show_rate"`
	CancellationRate float64 `json:"cancellation_rate"`
	ConfirmationRate float64 `json:"confirmation_rate"`

	AveragePartySize       float64 `json:"average_party_size"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`

	PeakHours       []string `json:"peak_hours"`       // top 3, "HH:00"
	PopularWeekdays []string `json:"popular_weekdays"` // top 3

	DepositTotal    float64 `json:"deposit_total"`
	DepositRefunded float64 `json:"deposit_refunded"`
}

// DayAvailability is the availability surface for one date.
type DayAvailability struct {
	Date        string             `json:"date"`
	PartySize   int                `json:"party_size"`
	Slots       []AvailabilitySlot `json:"slots"`
	FullyBooked bool               `json:"fully_booked"`
	Restriction string             `json:"restriction,omitempty"`
}
