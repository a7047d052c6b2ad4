package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/notify"
	"github.com/posfloor/maitre/pkg/store"
	"github.com/posfloor/maitre/pkg/timers"
)

// reminderTimerPrefix keys the per-reservation reminder timers.
const reminderTimerPrefix = "reservation-reminder:"

// codeAlphabet spells confirmation codes: 6 uppercase alphanumerics.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxRecurrenceChildren caps runaway recurrence expansion.
const maxRecurrenceChildren = 100

// QueueAdmitter admits an arrived party without assigned tables to the
// waiting list. Satisfied by *QueueService.
type QueueAdmitter interface {
	AddToQueue(ctx context.Context, actor Actor, req models.AddQueueEntryRequest) (*models.QueueEntry, error)
}

// ReservationService manages bookings: availability, creation with table
// allocation, the lifecycle state machine, recurrence, and the no-show
// sweep.
//
// Slot checks, table allocation, and code generation serialize on one
// mutex so two concurrent creations cannot both claim the last table.
type ReservationService struct {
	store  store.Store
	clock  clock.Clock
	cfg    *config.ReservationsConfig
	bus    *bus.Bus
	audit  AuditTrail
	sync   SyncPublisher
	locks  *lock.Manager
	timers *timers.Registry
	notify *notify.Pipeline
	queue  QueueAdmitter
	logger *slog.Logger

	mu sync.Mutex
}

// NewReservationService creates a new ReservationService
func NewReservationService(st store.Store, clk clock.Clock, cfg *config.ReservationsConfig, evts *bus.Bus,
	trail AuditTrail, sync SyncPublisher, locks *lock.Manager, reg *timers.Registry,
	pipeline *notify.Pipeline, queue QueueAdmitter) *ReservationService {
	if cfg == nil {
		cfg = config.DefaultReservationsConfig()
	}
	return &ReservationService{
		store:  st,
		clock:  clk,
		cfg:    cfg,
		bus:    evts,
		audit:  trail,
		sync:   sync,
		locks:  locks,
		timers: reg,
		notify: pipeline,
		queue:  queue,
		logger: slog.Default().With("component", "reservation_service"),
	}
}

// CheckAvailability builds the slot grid for a date and reports, per
// slot, whether a party of the given size can be seated.
func (s *ReservationService) CheckAvailability(ctx context.Context, storeID, date string, partySize int) (*models.DayAvailability, error) {
	if partySize < 1 {
		return nil, NewValidationError("party_size", "must be at least 1")
	}
	day, err := time.Parse(models.DateFormat, date)
	if err != nil {
		return nil, NewValidationError("date", fmt.Sprintf("invalid date %q", date))
	}

	out := &models.DayAvailability{Date: date, PartySize: partySize}
	weekday := strings.ToLower(day.Weekday().String())
	hours, open := s.cfg.HoursFor(weekday)
	if !open {
		out.FullyBooked = true
		out.Restriction = "Closed on this day"
		return out, nil
	}

	openMin, err := minutesOfDay(hours.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid operating hours for %s: %w", weekday, err)
	}
	closeMin, err := minutesOfDay(hours.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid operating hours for %s: %w", weekday, err)
	}
	if closeMin <= openMin {
		// Next-day closing, e.g. 00:00 or 02:00.
		closeMin += 24 * 60
	}

	anyFree := false
	for t := openMin; t < closeMin; t += s.cfg.SlotDurationMinutes {
		slot := fmt.Sprintf("%02d:%02d", (t/60)%24, t%60)
		free, available, err := s.checkSlot(ctx, storeID, date, slot, s.cfg.DefaultDurationMinutes, partySize, "")
		if err != nil {
			return nil, err
		}
		out.Slots = append(out.Slots, models.AvailabilitySlot{
			Time:            slot,
			Available:       available,
			AvailableTables: free,
		})
		anyFree = anyFree || available
	}
	out.FullyBooked = !anyFree
	return out, nil
}

// CreateReservation validates a booking request, claims a slot, assigns
// tables, and expands recurrence.
func (s *ReservationService) CreateReservation(ctx context.Context, actor Actor, req models.CreateReservationRequest) (*models.Reservation, error) {
	if s.cfg.Disabled {
		return nil, ErrReservationsDisabled
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, NewValidationError("customer_name", "required")
	}
	phone := notify.FormatPhone(req.CustomerPhone)
	if phone == "" {
		return nil, NewValidationError("customer_phone", "required")
	}
	if digits := len(phone) - 1; digits < 10 || digits > 15 {
		return nil, NewValidationError("customer_phone", "must have 10 to 15 digits")
	}
	if req.PartySize < s.cfg.MinPartySize || req.PartySize > s.cfg.MaxPartySize {
		return nil, NewValidationError("party_size",
			fmt.Sprintf("must be between %d and %d", s.cfg.MinPartySize, s.cfg.MaxPartySize))
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = s.cfg.DefaultDurationMinutes
	}
	if duration < s.cfg.MinDurationMinutes || duration > s.cfg.MaxDurationMinutes {
		return nil, NewValidationError("duration_minutes",
			fmt.Sprintf("must be between %d and %d", s.cfg.MinDurationMinutes, s.cfg.MaxDurationMinutes))
	}

	start, err := models.ParseSlot(req.ReservationDate, req.ReservationTime)
	if err != nil {
		return nil, NewValidationError("reservation_datetime",
			fmt.Sprintf("invalid date/time %q %q", req.ReservationDate, req.ReservationTime))
	}
	now := s.clock.Now().UTC()
	if err := s.checkAdvanceWindow(start, now); err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = models.SourcePhone
	}
	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}
	if recurrence != models.RecurrenceNone {
		if req.RecurrenceEndDate == "" {
			return nil, NewValidationError("recurrence_end_date", "required for recurring reservations")
		}
		end, err := time.Parse(models.DateFormat, req.RecurrenceEndDate)
		if err != nil {
			return nil, NewValidationError("recurrence_end_date", fmt.Sprintf("invalid date %q", req.RecurrenceEndDate))
		}
		firstDay, _ := time.Parse(models.DateFormat, req.ReservationDate)
		if end.Before(firstDay) {
			return nil, NewValidationError("recurrence_end_date", "must not precede the reservation date")
		}
	}

	s.mu.Lock()
	_, available, err := s.checkSlot(ctx, actor.StoreID, req.ReservationDate, req.ReservationTime, duration, req.PartySize, "")
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !available {
		s.mu.Unlock()
		return nil, ErrSlotUnavailable
	}

	assigned := req.AssignedTables
	if len(assigned) > 0 {
		if err := s.verifyTablesFree(ctx, actor.StoreID, req.ReservationDate, req.ReservationTime, duration, assigned, ""); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	} else {
		assigned = s.findBestTables(ctx, actor.StoreID, req.ReservationDate, req.ReservationTime, duration,
			req.PartySize, req.TablePreferences)
	}

	code, err := s.generateCode(ctx, actor.StoreID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	r := &models.Reservation{
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    phone,
		CustomerEmail:    req.CustomerEmail,
		PartySize:        req.PartySize,
		ReservationDate:  req.ReservationDate,
		ReservationTime:  req.ReservationTime,
		DurationMinutes:  duration,
		TablePreferences: req.TablePreferences,
		Status:           models.ReservationPending,
		Source:           source,
		ConfirmationCode: code,
		AssignedTables:   assigned,

		Recurrence:        recurrence,
		RecurrenceEndDate: req.RecurrenceEndDate,

		DepositAmount: req.DepositAmount,
		Metadata:      req.Metadata,
	}
	r.Init(uuid.NewString(), actor.StoreID, now)
	if s.cfg.AutoConfirm {
		r.Status = models.ReservationConfirmed
		r.ConfirmedAt = &now
	}

	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.scheduleReminder(r)
	s.publishEvent(TopicReservationCreated, r)
	s.auditReservation(actor, "RESERVATION_CREATE", r, audit.SeverityInfo,
		fmt.Sprintf("Reservation %s for %s (party of %d) on %s %s",
			r.ConfirmationCode, r.CustomerName, r.PartySize, r.ReservationDate, r.ReservationTime))
	s.publishSync(actor, models.SyncCreate, r)

	if r.Status == models.ReservationConfirmed {
		s.sendConfirmation(ctx, r)
	}

	if recurrence != models.RecurrenceNone {
		s.expandRecurrence(ctx, actor, r)
	}

	s.logger.Info("Reservation created",
		"reservation_id", r.ID, "code", r.ConfirmationCode, "tables", len(r.AssignedTables))
	return r, nil
}

// GetReservation returns one reservation of the store.
func (s *ReservationService) GetReservation(ctx context.Context, storeID, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := getDoc(ctx, s.store, store.ColReservations, id, &r); err != nil {
		return nil, err
	}
	if r.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &r, nil
}

// GetByCode looks a reservation up by its confirmation code.
func (s *ReservationService) GetByCode(ctx context.Context, storeID, code string) (*models.Reservation, error) {
	docs, err := s.store.Query(ctx, store.ColReservations, store.Filter{
		"store_id":          storeID,
		"confirmation_code": strings.ToUpper(strings.TrimSpace(code)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up confirmation code: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var r models.Reservation
	if err := store.FromDocument(docs[0], &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReservations returns the store's reservations, optionally filtered
// by date and status, ordered by start time.
func (s *ReservationService) ListReservations(ctx context.Context, storeID, date string, status models.ReservationStatus) ([]*models.Reservation, error) {
	filter := store.Filter{"store_id": storeID}
	if date != "" {
		filter["reservation_date"] = date
	}
	if status != "" {
		filter["status"] = string(status)
	}
	docs, err := s.store.Query(ctx, store.ColReservations, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	list := s.decodeReservations(docs)
	sort.Slice(list, func(i, j int) bool {
		if list[i].ReservationDate != list[j].ReservationDate {
			return list[i].ReservationDate < list[j].ReservationDate
		}
		return list[i].ReservationTime < list[j].ReservationTime
	})
	return list, nil
}

// UpdateReservation applies a version-checked partial update. Moving the
// booking re-validates the advance window and slot availability.
func (s *ReservationService) UpdateReservation(ctx context.Context, actor Actor, id string, req models.UpdateReservationRequest) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.GetReservation(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, NewBusinessError("cannot update reservation in status %s", r.Status)
	}
	if s.locks != nil {
		if err := s.locks.ValidateVersion("reservation", r.ID, req.Version, r.Version, actor.UserID); err != nil {
			return nil, err
		}
	}

	old := map[string]any{
		"reservation_date": r.ReservationDate,
		"reservation_time": r.ReservationTime,
		"party_size":       r.PartySize,
	}

	if req.CustomerName != nil {
		r.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerPhone != nil {
		r.CustomerPhone = notify.FormatPhone(*req.CustomerPhone)
	}
	if req.CustomerEmail != nil {
		r.CustomerEmail = *req.CustomerEmail
	}
	moved := false
	if req.PartySize != nil && *req.PartySize != r.PartySize {
		if *req.PartySize < s.cfg.MinPartySize || *req.PartySize > s.cfg.MaxPartySize {
			return nil, NewValidationError("party_size",
				fmt.Sprintf("must be between %d and %d", s.cfg.MinPartySize, s.cfg.MaxPartySize))
		}
		r.PartySize = *req.PartySize
		moved = true
	}
	if req.ReservationDate != nil && *req.ReservationDate != r.ReservationDate {
		r.ReservationDate = *req.ReservationDate
		moved = true
	}
	if req.ReservationTime != nil && *req.ReservationTime != r.ReservationTime {
		r.ReservationTime = *req.ReservationTime
		moved = true
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != r.DurationMinutes {
		if *req.DurationMinutes < s.cfg.MinDurationMinutes || *req.DurationMinutes > s.cfg.MaxDurationMinutes {
			return nil, NewValidationError("duration_minutes",
				fmt.Sprintf("must be between %d and %d", s.cfg.MinDurationMinutes, s.cfg.MaxDurationMinutes))
		}
		r.DurationMinutes = *req.DurationMinutes
		moved = true
	}
	if req.TablePreferences != nil {
		r.TablePreferences = *req.TablePreferences
	}
	if req.Metadata != nil {
		r.Metadata = req.Metadata
	}

	now := s.clock.Now().UTC()
	if moved {
		start, err := models.ParseSlot(r.ReservationDate, r.ReservationTime)
		if err != nil {
			return nil, NewValidationError("reservation_datetime",
				fmt.Sprintf("invalid date/time %q %q", r.ReservationDate, r.ReservationTime))
		}
		if err := s.checkAdvanceWindow(start, now); err != nil {
			return nil, err
		}
		_, available, err := s.checkSlot(ctx, r.StoreID, r.ReservationDate, r.ReservationTime, r.DurationMinutes, r.PartySize, r.ID)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, ErrSlotUnavailable
		}
		if len(r.AssignedTables) > 0 {
			if err := s.verifyTablesFree(ctx, r.StoreID, r.ReservationDate, r.ReservationTime, r.DurationMinutes, r.AssignedTables, r.ID); err != nil {
				return nil, err
			}
		}
	}

	r.Touch(now)
	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		return nil, err
	}

	if moved {
		s.scheduleReminder(r)
	}
	s.publishEvent(TopicReservationUpdated, r)
	if s.audit != nil {
		s.audit.Log(audit.Entry{
			Action:     "RESERVATION_UPDATE",
			EntityType: "reservation",
			EntityID:   r.ID,
			UserID:     actor.UserID,
			TerminalID: actor.TerminalID,
			Severity:   audit.SeverityInfo,
			Description: fmt.Sprintf("Updated reservation %s (version %d)",
				r.ConfirmationCode, r.Version),
			OldValue: old,
			NewValue: map[string]any{
				"reservation_date": r.ReservationDate,
				"reservation_time": r.ReservationTime,
				"party_size":       r.PartySize,
			},
		})
	}
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// Confirm moves a pending reservation to CONFIRMED and sends the
// confirmation notification.
func (s *ReservationService) Confirm(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	r, err := s.applyTransition(ctx, actor, id, models.ReservationConfirmed)
	if err != nil {
		return nil, err
	}
	s.publishEvent(TopicReservationConfirmed, r)
	s.auditReservation(actor, "RESERVATION_CONFIRM", r, audit.SeverityInfo,
		fmt.Sprintf("Confirmed reservation %s", r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)
	s.sendConfirmation(ctx, r)
	return r, nil
}

// MarkArrived records the party's arrival. With assigned tables the
// reservation is seated directly; without, the party joins the queue.
func (s *ReservationService) MarkArrived(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	r, err := s.applyTransition(ctx, actor, id, models.ReservationArrived)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(r.ID)
	s.publishEvent(TopicReservationArrived, r)
	s.auditReservation(actor, "RESERVATION_ARRIVE", r, audit.SeverityInfo,
		fmt.Sprintf("Party for reservation %s arrived", r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)

	if len(r.AssignedTables) > 0 {
		return s.Seat(ctx, actor, id, nil)
	}

	if s.queue != nil {
		_, err := s.queue.AddToQueue(ctx, actor, models.AddQueueEntryRequest{
			CustomerName:       r.CustomerName,
			CustomerPhone:      r.CustomerPhone,
			PartySize:          r.PartySize,
			NotificationMethod: models.NotifyNone,
			TablePreferences:   r.TablePreferences,
			Metadata: map[string]any{
				"reservation_id":    r.ID,
				"confirmation_code": r.ConfirmationCode,
			},
		})
		if err != nil {
			s.logger.Warn("Failed to enqueue arrived reservation",
				"reservation_id", r.ID, "error", err)
		}
	}
	return r, nil
}

// Seat seats an arrived party, optionally assigning tables now.
func (s *ReservationService) Seat(ctx context.Context, actor Actor, id string, tableIDs []string) (*models.Reservation, error) {
	if len(tableIDs) > 0 {
		s.mu.Lock()
		r, err := s.GetReservation(ctx, actor.StoreID, id)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if err := s.verifyTablesFree(ctx, r.StoreID, r.ReservationDate, r.ReservationTime, r.DurationMinutes, tableIDs, r.ID); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		r.AssignedTables = tableIDs
		r.Touch(s.clock.Now().UTC())
		if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()
	}

	r, err := s.applyTransition(ctx, actor, id, models.ReservationSeated)
	if err != nil {
		return nil, err
	}
	for _, tableID := range r.AssignedTables {
		s.setTableStatus(ctx, r.StoreID, tableID, models.TableOccupied)
	}
	s.publishEvent(TopicReservationSeated, r)
	s.auditReservation(actor, "RESERVATION_SEAT", r, audit.SeverityInfo,
		fmt.Sprintf("Seated reservation %s at %d table(s)", r.ConfirmationCode, len(r.AssignedTables)))
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// Complete closes out a seated reservation and frees its tables.
func (s *ReservationService) Complete(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	r, err := s.applyTransition(ctx, actor, id, models.ReservationCompleted)
	if err != nil {
		return nil, err
	}
	for _, tableID := range r.AssignedTables {
		s.setTableStatus(ctx, r.StoreID, tableID, models.TableAvailable)
	}
	s.publishEvent(TopicReservationCompleted, r)
	s.auditReservation(actor, "RESERVATION_COMPLETE", r, audit.SeverityInfo,
		fmt.Sprintf("Completed reservation %s", r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// Cancel cancels a non-terminal reservation.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	wasSeated := false
	if current, err := s.GetReservation(ctx, actor.StoreID, id); err == nil {
		wasSeated = current.Status == models.ReservationSeated
	}

	r, err := s.applyTransition(ctx, actor, id, models.ReservationCancelled)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(r.ID)
	if wasSeated {
		for _, tableID := range r.AssignedTables {
			s.setTableStatus(ctx, r.StoreID, tableID, models.TableAvailable)
		}
	}
	s.publishEvent(TopicReservationCancelled, r)
	s.auditReservation(actor, "RESERVATION_CANCEL", r, audit.SeverityInfo,
		fmt.Sprintf("Cancelled reservation %s", r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// MarkNoShow expires a confirmed reservation whose party never arrived
// and bumps the customer's no-show counter.
func (s *ReservationService) MarkNoShow(ctx context.Context, actor Actor, id string) (*models.Reservation, error) {
	r, err := s.applyTransition(ctx, actor, id, models.ReservationNoShow)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(r.ID)
	s.recordCustomerNoShow(ctx, r)
	s.publishEvent(TopicReservationNoShow, r)
	s.auditReservation(actor, "RESERVATION_NO_SHOW", r, audit.SeverityWarning,
		fmt.Sprintf("Reservation %s marked as no-show", r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// AssignTables manually binds tables to a reservation after verifying
// each one is free under the overlap rule.
func (s *ReservationService) AssignTables(ctx context.Context, actor Actor, id string, tableIDs []string) (*models.Reservation, error) {
	if len(tableIDs) == 0 {
		return nil, NewValidationError("table_ids", "required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.GetReservation(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, NewBusinessError("cannot assign tables to reservation in status %s", r.Status)
	}
	if err := s.verifyTablesFree(ctx, r.StoreID, r.ReservationDate, r.ReservationTime, r.DurationMinutes, tableIDs, r.ID); err != nil {
		return nil, err
	}

	r.AssignedTables = tableIDs
	r.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		return nil, err
	}

	s.auditReservation(actor, "RESERVATION_ASSIGN_TABLES", r, audit.SeverityInfo,
		fmt.Sprintf("Assigned %d table(s) to reservation %s", len(tableIDs), r.ConfirmationCode))
	s.publishSync(actor, models.SyncUpdate, r)
	return r, nil
}

// ProcessNoShows expires every CONFIRMED reservation older than the
// grace period. Returns how many were expired.
func (s *ReservationService) ProcessNoShows(ctx context.Context, actor Actor, storeID string) (int, error) {
	docs, err := s.store.Query(ctx, store.ColReservations, store.Filter{
		"store_id": storeID,
		"status":   string(models.ReservationConfirmed),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list confirmed reservations: %w", err)
	}

	cutoff := s.clock.Now().UTC().Add(-time.Duration(s.cfg.NoShowGraceMinutes) * time.Minute)
	expired := 0
	for _, r := range s.decodeReservations(docs) {
		start, err := r.StartTime()
		if err != nil {
			s.logger.Warn("Skipping reservation with invalid slot", "reservation_id", r.ID, "error", err)
			continue
		}
		if !start.Before(cutoff) {
			continue
		}
		if _, err := s.MarkNoShow(ctx, actor, r.ID); err != nil {
			s.logger.Warn("Failed to expire reservation", "reservation_id", r.ID, "error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		s.logger.Info("No-show sweep finished", "store_id", storeID, "expired", expired)
	}
	return expired, nil
}

// BlockSlot closes a time window for reservations.
func (s *ReservationService) BlockSlot(ctx context.Context, actor Actor, req models.BlockSlotRequest) (*models.BlockedSlot, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if _, err := time.Parse(models.DateFormat, req.Date); err != nil {
		return nil, NewValidationError("date", fmt.Sprintf("invalid date %q", req.Date))
	}
	startMin, err := minutesOfDay(req.StartTime)
	if err != nil {
		return nil, NewValidationError("start_time", fmt.Sprintf("invalid time %q", req.StartTime))
	}
	endMin, err := minutesOfDay(req.EndTime)
	if err != nil {
		return nil, NewValidationError("end_time", fmt.Sprintf("invalid time %q", req.EndTime))
	}
	if endMin <= startMin && req.EndTime != "00:00" {
		return nil, NewValidationError("end_time", "must be after start_time")
	}

	now := s.clock.Now().UTC()
	b := &models.BlockedSlot{
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Reason:         req.Reason,
		TablesAffected: req.TablesAffected,
	}
	b.Init(uuid.NewString(), actor.StoreID, now)

	if err := putDoc(ctx, s.store, store.ColBlockedSlots, b.ID, b); err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Log(audit.Entry{
			Action:      "RESERVATION_BLOCK_SLOT",
			EntityType:  "blocked_slot",
			EntityID:    b.ID,
			UserID:      actor.UserID,
			TerminalID:  actor.TerminalID,
			Severity:    audit.SeverityInfo,
			Description: fmt.Sprintf("Blocked %s %s-%s: %s", b.Date, b.StartTime, b.EndTime, b.Reason),
		})
	}
	if s.sync != nil {
		s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
			Type:     models.SyncCreate,
			Entity:   "blocked_slot",
			EntityID: b.ID,
			Data:     syncData(b),
		})
	}
	return b, nil
}

// UnblockSlot reopens a previously blocked window.
func (s *ReservationService) UnblockSlot(ctx context.Context, actor Actor, id string) error {
	var b models.BlockedSlot
	if err := getDoc(ctx, s.store, store.ColBlockedSlots, id, &b); err != nil {
		return err
	}
	if b.StoreID != actor.StoreID {
		return ErrNotFound
	}
	if _, err := s.store.Delete(ctx, store.ColBlockedSlots, id); err != nil {
		return fmt.Errorf("failed to delete blocked slot: %w", err)
	}
	if s.sync != nil {
		s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
			Type:     models.SyncDelete,
			Entity:   "blocked_slot",
			EntityID: id,
		})
	}
	return nil
}

// Statistics aggregates the store's booking activity.
func (s *ReservationService) Statistics(ctx context.Context, storeID string) (*models.ReservationStatistics, error) {
	docs, err := s.store.Query(ctx, store.ColReservations, store.Filter{"store_id": storeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	list := s.decodeReservations(docs)

	now := s.clock.Now().UTC()
	today := now.Format(models.DateFormat)
	weekStart := startOfWeek(now)
	monthPrefix := now.Format("2006-01")

	stats := &models.ReservationStatistics{}
	var partySum, durationSum float64
	var confirmedOrBetter, cancelled, noShows int
	hourCounts := make(map[string]int)
	weekdayCounts := make(map[string]int)

	for _, r := range list {
		if r.ReservationDate == today {
			stats.TodayCount++
		}
		if day, err := time.Parse(models.DateFormat, r.ReservationDate); err == nil {
			if !day.Before(weekStart) && day.Before(weekStart.AddDate(0, 0, 7)) {
				stats.WeekCount++
			}
			weekdayCounts[day.Weekday().String()]++
		}
		if strings.HasPrefix(r.ReservationDate, monthPrefix) {
			stats.MonthCount++
		}

		partySum += float64(r.PartySize)
		durationSum += float64(r.DurationMinutes)
		if len(r.ReservationTime) >= 2 {
			hourCounts[r.ReservationTime[:2]+":00"]++
		}

		switch r.Status {
		case models.ReservationConfirmed, models.ReservationArrived,
			models.ReservationSeated, models.ReservationCompleted:
			confirmedOrBetter++
		case models.ReservationCancelled:
			cancelled++
		case models.ReservationNoShow:
			noShows++
		}

		if r.DepositPaid {
			stats.DepositTotal += r.DepositAmount
		}
		if r.DepositRefunded {
			stats.DepositRefunded += r.DepositAmount
		}
	}

	if n := len(list); n > 0 {
		stats.NoShowRate = float64(noShows) / float64(n)
		stats.CancellationRate = float64(cancelled) / float64(n)
		stats.ConfirmationRate = float64(confirmedOrBetter+noShows) / float64(n)
		stats.AveragePartySize = partySum / float64(n)
		stats.AverageDurationMinutes = durationSum / float64(n)
	}
	stats.PeakHours = topCounts(hourCounts, 3)
	stats.PopularWeekdays = topCounts(weekdayCounts, 3)
	return stats, nil
}

// applyTransition validates and applies one step of the lifecycle DAG,
// stamping the transition's timestamp.
func (s *ReservationService) applyTransition(ctx context.Context, actor Actor, id string, next models.ReservationStatus) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.GetReservation(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(next) {
		return nil, NewBusinessError("cannot transition reservation from %s to %s", r.Status, next)
	}

	now := s.clock.Now().UTC()
	r.Status = next
	switch next {
	case models.ReservationConfirmed:
		r.ConfirmedAt = &now
	case models.ReservationArrived:
		r.ArrivedAt = &now
	case models.ReservationSeated:
		r.SeatedAt = &now
	case models.ReservationCompleted:
		r.CompletedAt = &now
	case models.ReservationCancelled:
		r.CancelledAt = &now
	}
	r.Touch(now)

	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// checkSlot reports whether a party fits into one slot: free tables on
// the floor after overlapping bookings and blocked windows, compared to
// ceil(party/4) required tables.
func (s *ReservationService) checkSlot(ctx context.Context, storeID, date, slot string, durationMin, partySize int, excludeID string) (free int, available bool, err error) {
	required := (partySize + 3) / 4

	total, err := s.tableCount(ctx, storeID)
	if err != nil {
		return 0, false, err
	}

	start, err := models.ParseSlot(date, slot)
	if err != nil {
		return 0, false, NewValidationError("reservation_time", fmt.Sprintf("invalid slot %q", slot))
	}
	end := start.Add(time.Duration(durationMin) * time.Minute)

	busy, floorClosed, err := s.busyTables(ctx, storeID, date, start, end, excludeID)
	if err != nil {
		return 0, false, err
	}
	if floorClosed {
		return 0, false, nil
	}

	free = total - len(busy)
	if free < 0 {
		free = 0
	}
	return free, free >= required, nil
}

// busyTables returns the ids of tables taken during [start, end) by
// PENDING or CONFIRMED reservations and blocked windows on the date.
// floorClosed reports a blocked window covering every table.
func (s *ReservationService) busyTables(ctx context.Context, storeID, date string, start, end time.Time, excludeID string) (map[string]bool, bool, error) {
	busy := make(map[string]bool)

	docs, err := s.store.Query(ctx, store.ColReservations, store.Filter{
		"store_id":         storeID,
		"reservation_date": date,
		"status":           store.In(string(models.ReservationPending), string(models.ReservationConfirmed)),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list overlapping reservations: %w", err)
	}
	for _, r := range s.decodeReservations(docs) {
		if r.ID == excludeID {
			continue
		}
		rStart, rEnd, err := r.Window()
		if err != nil {
			continue
		}
		if rStart.Before(end) && start.Before(rEnd) {
			for _, tableID := range r.AssignedTables {
				busy[tableID] = true
			}
		}
	}

	blockDocs, err := s.store.Query(ctx, store.ColBlockedSlots, store.Filter{
		"store_id": storeID,
		"date":     date,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	for _, doc := range blockDocs {
		var b models.BlockedSlot
		if err := store.FromDocument(doc, &b); err != nil {
			continue
		}
		bStart, err := models.ParseSlot(b.Date, b.StartTime)
		if err != nil {
			continue
		}
		bEnd, err := models.ParseSlot(b.Date, b.EndTime)
		if err != nil {
			continue
		}
		if !bEnd.After(bStart) {
			bEnd = bEnd.AddDate(0, 0, 1)
		}
		if bStart.Before(end) && start.Before(bEnd) {
			if len(b.TablesAffected) == 0 {
				return nil, true, nil
			}
			for _, tableID := range b.TablesAffected {
				busy[tableID] = true
			}
		}
	}
	return busy, false, nil
}

// verifyTablesFree checks every requested table against the overlap rule.
func (s *ReservationService) verifyTablesFree(ctx context.Context, storeID, date, slot string, durationMin int, tableIDs []string, excludeID string) error {
	start, err := models.ParseSlot(date, slot)
	if err != nil {
		return NewValidationError("reservation_time", fmt.Sprintf("invalid slot %q", slot))
	}
	end := start.Add(time.Duration(durationMin) * time.Minute)

	busy, floorClosed, err := s.busyTables(ctx, storeID, date, start, end, excludeID)
	if err != nil {
		return err
	}
	if floorClosed {
		return ErrTableUnavailable
	}

	registry, err := s.registryTables(ctx, storeID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(registry))
	for _, t := range registry {
		known[t.ID] = true
	}

	for _, tableID := range tableIDs {
		if len(registry) > 0 && !known[tableID] {
			return NewValidationError("assigned_tables", fmt.Sprintf("unknown table %q", tableID))
		}
		if busy[tableID] {
			return ErrTableUnavailable
		}
	}
	return nil
}

// findBestTables scores and packs candidate tables for an unassigned
// booking. Returns nil when no packing covers the party.
func (s *ReservationService) findBestTables(ctx context.Context, storeID, date, slot string, durationMin, partySize int, prefs []models.TablePreference) []string {
	registry, err := s.registryTables(ctx, storeID)
	if err != nil || len(registry) == 0 {
		return nil
	}
	start, err := models.ParseSlot(date, slot)
	if err != nil {
		return nil
	}
	end := start.Add(time.Duration(durationMin) * time.Minute)
	busy, floorClosed, err := s.busyTables(ctx, storeID, date, start, end, "")
	if err != nil || floorClosed {
		return nil
	}

	type scored struct {
		table *models.Table
		score float64
	}
	var candidates []scored
	for _, t := range registry {
		if busy[t.ID] || t.Status == models.TableBlocked {
			continue
		}
		score := 0.5
		for _, pref := range prefs {
			if t.HasFeature(pref) {
				score += 0.2
			}
		}
		switch {
		case t.Capacity == partySize:
			score += 0.3
		case t.Capacity == partySize+1:
			score += 0.1
		case t.Capacity < partySize:
			continue
		}
		candidates = append(candidates, scored{table: t, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].table.Capacity != candidates[j].table.Capacity {
			return candidates[i].table.Capacity > candidates[j].table.Capacity
		}
		return candidates[i].table.Number < candidates[j].table.Number
	})

	var picked []string
	capacity := 0
	for _, c := range candidates {
		picked = append(picked, c.table.ID)
		capacity += c.table.Capacity
		if capacity >= partySize {
			return picked
		}
	}
	return nil
}

// expandRecurrence creates child reservations at the cadence up to the
// end date. Children whose slot is unavailable are skipped.
func (s *ReservationService) expandRecurrence(ctx context.Context, actor Actor, parent *models.Reservation) {
	endDate, err := time.Parse(models.DateFormat, parent.RecurrenceEndDate)
	if err != nil {
		s.logger.Warn("Invalid recurrence end date", "reservation_id", parent.ID, "error", err)
		return
	}
	day, err := time.Parse(models.DateFormat, parent.ReservationDate)
	if err != nil {
		return
	}

	created := 0
	for created < maxRecurrenceChildren {
		switch parent.Recurrence {
		case models.RecurrenceDaily:
			day = day.AddDate(0, 0, 1)
		case models.RecurrenceWeekly:
			day = day.AddDate(0, 0, 7)
		case models.RecurrenceMonthly:
			day = addMonthClamped(day)
		default:
			return
		}
		if day.After(endDate) {
			break
		}
		date := day.Format(models.DateFormat)

		s.mu.Lock()
		_, available, err := s.checkSlot(ctx, parent.StoreID, date, parent.ReservationTime, parent.DurationMinutes, parent.PartySize, "")
		if err != nil || !available {
			s.mu.Unlock()
			s.logger.Warn("Skipping recurrence occurrence without availability",
				"parent_id", parent.ID, "date", date)
			continue
		}
		code, err := s.generateCode(ctx, parent.StoreID)
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("Failed to generate recurrence code", "parent_id", parent.ID, "error", err)
			return
		}

		child := *parent
		child.ReservationDate = date
		child.ConfirmationCode = code
		child.Recurrence = models.RecurrenceNone
		child.RecurrenceParentID = parent.ID
		child.RecurrenceEndDate = ""
		child.AssignedTables = s.findBestTables(ctx, parent.StoreID, date, parent.ReservationTime,
			parent.DurationMinutes, parent.PartySize, parent.TablePreferences)
		child.Init(uuid.NewString(), parent.StoreID, s.clock.Now().UTC())
		if parent.ConfirmedAt != nil {
			child.Status = models.ReservationConfirmed
			confirmedAt := *parent.ConfirmedAt
			child.ConfirmedAt = &confirmedAt
		}

		if err := putDoc(ctx, s.store, store.ColReservations, child.ID, &child); err != nil {
			s.mu.Unlock()
			s.logger.Error("Failed to persist recurrence child", "parent_id", parent.ID, "error", err)
			return
		}
		s.mu.Unlock()

		s.scheduleReminder(&child)
		s.publishEvent(TopicReservationCreated, &child)
		s.publishSync(actor, models.SyncCreate, &child)
		created++
	}
	if created > 0 {
		s.logger.Info("Expanded recurring reservation",
			"parent_id", parent.ID, "children", created, "cadence", parent.Recurrence)
	}
}

// checkAdvanceWindow enforces the booking notice bounds. A booking at
// exactly the minimum notice is accepted.
func (s *ReservationService) checkAdvanceWindow(start, now time.Time) error {
	lead := start.Sub(now)
	if lead < time.Duration(s.cfg.MinAdvanceHours)*time.Hour {
		return NewBusinessError("reservations need at least %d hour(s) notice", s.cfg.MinAdvanceHours)
	}
	if lead > time.Duration(s.cfg.MaxAdvanceDays)*24*time.Hour {
		return NewBusinessError("reservations open %d days ahead at most", s.cfg.MaxAdvanceDays)
	}
	return nil
}

// generateCode derives a 6-character uppercase alphanumeric confirmation
// code, unique per store. Callers hold s.mu.
func (s *ReservationService) generateCode(ctx context.Context, storeID string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		u := uuid.New()
		b := make([]byte, 6)
		for i := range b {
			b[i] = codeAlphabet[int(u[i])%len(codeAlphabet)]
		}
		code := string(b)

		docs, err := s.store.Query(ctx, store.ColReservations, store.Filter{
			"store_id":          storeID,
			"confirmation_code": code,
		})
		if err != nil {
			return "", fmt.Errorf("failed to check confirmation code: %w", err)
		}
		if len(docs) == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique confirmation code")
}

// scheduleReminder arms (or re-arms) the reminder timer when the send
// instant is still ahead.
func (s *ReservationService) scheduleReminder(r *models.Reservation) {
	if s.timers == nil || s.cfg.ReminderHours <= 0 {
		return
	}
	start, err := r.StartTime()
	if err != nil {
		return
	}
	sendAt := start.Add(-time.Duration(s.cfg.ReminderHours) * time.Hour)
	delay := sendAt.Sub(s.clock.Now().UTC())
	if delay <= 0 {
		return
	}
	storeID, id := r.StoreID, r.ID
	s.timers.Schedule(reminderTimerPrefix+id, delay, func() {
		s.sendReminder(storeID, id)
	})
}

func (s *ReservationService) cancelReminder(id string) {
	if s.timers != nil {
		s.timers.Cancel(reminderTimerPrefix + id)
	}
}

// sendReminder is the reminder timer callback.
func (s *ReservationService) sendReminder(storeID, id string) {
	ctx := context.Background()
	r, err := s.GetReservation(ctx, storeID, id)
	if err != nil {
		s.logger.Warn("Reminder fired for missing reservation", "reservation_id", id, "error", err)
		return
	}
	if r.ReminderSent || r.Status.Terminal() || r.Status == models.ReservationSeated {
		return
	}

	if s.notify != nil {
		s.notify.Deliver(models.NotifySMS, r.CustomerPhone, r.CustomerName,
			fmt.Sprintf("Reminder: your reservation %s for %d is on %s at %s. See you soon!",
				r.ConfirmationCode, r.PartySize, r.ReservationDate, r.ReservationTime))
	}

	r.ReminderSent = true
	r.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		s.logger.Error("Failed to persist reminder flag", "reservation_id", r.ID, "error", err)
		return
	}
	s.logger.Info("Reservation reminder sent", "reservation_id", r.ID)
}

// sendConfirmation sends the booking confirmation once.
func (s *ReservationService) sendConfirmation(ctx context.Context, r *models.Reservation) {
	if r.NotificationSent {
		return
	}
	if s.notify != nil {
		s.notify.Deliver(models.NotifySMS, r.CustomerPhone, r.CustomerName,
			fmt.Sprintf("Your reservation is confirmed! Code %s, party of %d, %s at %s.",
				r.ConfirmationCode, r.PartySize, r.ReservationDate, r.ReservationTime))
	}

	r.NotificationSent = true
	r.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColReservations, r.ID, r); err != nil {
		s.logger.Error("Failed to persist notification flag", "reservation_id", r.ID, "error", err)
	}
}

// recordCustomerNoShow bumps the per-phone no-show counter kept in the
// reservation history collection.
func (s *ReservationService) recordCustomerNoShow(ctx context.Context, r *models.Reservation) {
	id := r.StoreID + ":" + r.CustomerPhone
	record := map[string]any{
		"store_id":       r.StoreID,
		"customer_phone": r.CustomerPhone,
		"no_show_count":  1,
	}
	if doc, err := s.store.Get(ctx, store.ColReservationHistory, id); err == nil {
		if prev, ok := doc["no_show_count"].(float64); ok {
			record["no_show_count"] = int(prev) + 1
		}
	}
	record["last_no_show_at"] = s.clock.Now().UTC().Format(time.RFC3339Nano)
	if err := s.store.Upsert(ctx, store.ColReservationHistory, id, record); err != nil {
		s.logger.Warn("Failed to record customer no-show", "customer_phone", r.CustomerPhone, "error", err)
	}
}

// registryTables loads the store's table registry.
func (s *ReservationService) registryTables(ctx context.Context, storeID string) ([]*models.Table, error) {
	docs, err := s.store.Query(ctx, store.ColReservationTables, store.Filter{"store_id": storeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables := make([]*models.Table, 0, len(docs))
	for _, doc := range docs {
		var t models.Table
		if err := store.FromDocument(doc, &t); err != nil {
			continue
		}
		tables = append(tables, &t)
	}
	return tables, nil
}

// tableCount is the floor size: the registry count, or the configured
// fallback while the registry is empty.
func (s *ReservationService) tableCount(ctx context.Context, storeID string) (int, error) {
	tables, err := s.registryTables(ctx, storeID)
	if err != nil {
		return 0, err
	}
	if len(tables) == 0 {
		return s.cfg.FallbackTableCount, nil
	}
	return len(tables), nil
}

func (s *ReservationService) setTableStatus(ctx context.Context, storeID, tableID string, status models.TableStatus) {
	var t models.Table
	if err := getDoc(ctx, s.store, store.ColReservationTables, tableID, &t); err != nil {
		s.logger.Warn("Assigned table not in registry", "table_id", tableID, "error", err)
		return
	}
	if t.StoreID != storeID || t.Status == status {
		return
	}
	t.Status = status
	t.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColReservationTables, tableID, &t); err != nil {
		s.logger.Warn("Failed to update table status", "table_id", tableID, "error", err)
	}
}

func (s *ReservationService) decodeReservations(docs []store.Document) []*models.Reservation {
	list := make([]*models.Reservation, 0, len(docs))
	for _, doc := range docs {
		var r models.Reservation
		if err := store.FromDocument(doc, &r); err != nil {
			s.logger.Warn("Skipping undecodable reservation document", "error", err)
			continue
		}
		list = append(list, &r)
	}
	return list
}

func (s *ReservationService) publishEvent(topic string, r *models.Reservation) {
	if s.bus != nil {
		s.bus.Publish(topic, r)
	}
}

func (s *ReservationService) publishSync(actor Actor, msgType models.SyncMessageType, r *models.Reservation) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "reservation",
		EntityID: r.ID,
		Data:     syncData(r),
	})
}

func (s *ReservationService) auditReservation(actor Actor, action string, r *models.Reservation, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "reservation",
		EntityID:    r.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"status": string(r.Status)},
	})
}

// minutesOfDay parses HH:MM into minutes since midnight.
func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse(models.TimeFormat, hhmm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// addMonthClamped advances one month, clamping to the shorter month's
// last day (Jan 31 → Feb 28/29).
func addMonthClamped(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	if lastDay := firstOfNext.AddDate(0, 1, -1).Day(); d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday 00:00 UTC of t's week.
func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// topCounts returns the n highest-count keys, ties alphabetical.
func topCounts(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
