package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/notify"
	"github.com/posfloor/maitre/pkg/store"
	"github.com/posfloor/maitre/pkg/timers"
)

// noShowTimerPrefix keys the per-entry expiry timers in the registry.
const noShowTimerPrefix = "queue-noshow:"

// maxWaitSamples bounds the per-store rolling window of observed waits.
const maxWaitSamples = 1000

// waitSample is one observed wait, recorded when a party is seated.
type waitSample struct {
	Actual    float64
	Estimated float64
	SeatedAt  time.Time
}

// QueueService manages the walk-in waiting list: admission, ordering,
// notification, seating, and the wait-time estimator.
//
// Ordering mutations (admission, seating, cancellation, no-show expiry)
// serialize on one mutex so position_in_queue stays dense and starts at 1.
type QueueService struct {
	store  store.Store
	clock  clock.Clock
	cfg    *config.QueueConfig
	bus    *bus.Bus
	audit  AuditTrail
	sync   SyncPublisher
	timers *timers.Registry
	notify *notify.Pipeline
	logger *slog.Logger

	mu      sync.Mutex
	history map[string][]waitSample // store_id → recent waits, oldest first
}

// NewQueueService creates a new QueueService
func NewQueueService(st store.Store, clk clock.Clock, cfg *config.QueueConfig, evts *bus.Bus,
	trail AuditTrail, sync SyncPublisher, reg *timers.Registry, pipeline *notify.Pipeline) *QueueService {
	if cfg == nil {
		cfg = config.DefaultQueueConfig()
	}
	return &QueueService{
		store:   st,
		clock:   clk,
		cfg:     cfg,
		bus:     evts,
		audit:   trail,
		sync:    sync,
		timers:  reg,
		notify:  pipeline,
		logger:  slog.Default().With("component", "queue_service"),
		history: make(map[string][]waitSample),
	}
}

// AddToQueue admits a party to the waiting list. An active WAITING entry
// with the same phone is a duplicate and is rejected.
func (s *QueueService) AddToQueue(ctx context.Context, actor Actor, req models.AddQueueEntryRequest) (*models.QueueEntry, error) {
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
	if req.PartySize < 1 || req.PartySize > s.cfg.MaxPartySize {
		return nil, NewValidationError("party_size",
			fmt.Sprintf("must be between 1 and %d", s.cfg.MaxPartySize))
	}
	method := req.NotificationMethod
	if method == "" {
		method = models.NotifyNone
	}
	switch method {
	case models.NotifySMS, models.NotifyWhatsApp, models.NotifyAnnouncement, models.NotifyNone:
	default:
		return nil, NewValidationError("notification_method",
			fmt.Sprintf("unknown notification method %q", method))
	}

	s.mu.Lock()
	active, err := s.activeEntries(ctx, actor.StoreID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	for _, e := range active {
		if e.Status == models.QueueWaiting && e.CustomerPhone == phone {
			s.mu.Unlock()
			return nil, ErrQueueDuplicate
		}
	}

	now := s.clock.Now().UTC()
	estimate := s.estimateLocked(actor.StoreID, req.PartySize, len(active))

	entry := &models.QueueEntry{
		CustomerName:         strings.TrimSpace(req.CustomerName),
		CustomerPhone:        phone,
		PartySize:            req.PartySize,
		PartySizeCategory:    models.CategoryForPartySize(req.PartySize),
		Status:               models.QueueWaiting,
		PositionInQueue:      len(active) + 1,
		CheckInTime:          now,
		EstimatedWaitMinutes: estimate.EstimatedMinutes,
		TablePreferences:     req.TablePreferences,
		NotificationMethod:   method,
		Metadata:             req.Metadata,
	}
	entry.Init(uuid.NewString(), actor.StoreID, now)

	if err := putDoc(ctx, s.store, store.ColQueueEntries, entry.ID, entry); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.publishEvent(TopicQueueAdded, entry)
	s.auditEntry(actor, "QUEUE_ADD", entry, audit.SeverityInfo,
		fmt.Sprintf("Added %s (party of %d) to queue at position %d",
			entry.CustomerName, entry.PartySize, entry.PositionInQueue))
	s.publishSync(actor, models.SyncCreate, entry)

	s.logger.Info("Party admitted to queue",
		"entry_id", entry.ID, "position", entry.PositionInQueue, "party_size", entry.PartySize)
	return entry, nil
}

// GetEntry returns one waiting-list entry of the store.
func (s *QueueService) GetEntry(ctx context.Context, storeID, id string) (*models.QueueEntry, error) {
	var e models.QueueEntry
	if err := getDoc(ctx, s.store, store.ColQueueEntries, id, &e); err != nil {
		return nil, err
	}
	if e.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &e, nil
}

// ListQueue returns entries of the store. An empty status lists the
// active queue in position order; otherwise entries with that status,
// newest first.
func (s *QueueService) ListQueue(ctx context.Context, storeID string, status models.QueueStatus) ([]*models.QueueEntry, error) {
	if status == "" {
		return s.activeEntries(ctx, storeID)
	}
	docs, err := s.store.Query(ctx, store.ColQueueEntries, store.Filter{
		"store_id": storeID,
		"status":   string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list queue entries: %w", err)
	}
	entries := s.decodeEntries(docs)
	sort.Slice(entries, func(i, j int) bool { return entries[i].CheckInTime.After(entries[j].CheckInTime) })
	return entries, nil
}

// NotifyCustomer tells a waiting party their table is ready: sends the
// notification, moves the entry to NOTIFIED, and arms the no-show timer.
func (s *QueueService) NotifyCustomer(ctx context.Context, actor Actor, entryID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	entry, err := s.GetEntry(ctx, actor.StoreID, entryID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if entry.Status != models.QueueWaiting {
		s.mu.Unlock()
		return nil, NewBusinessError("cannot notify entry in status %s", entry.Status)
	}

	now := s.clock.Now().UTC()
	entry.Status = models.QueueNotified
	entry.NotificationTime = &now
	entry.Touch(now)
	if err := putDoc(ctx, s.store, store.ColQueueEntries, entry.ID, entry); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	graceMinutes := int(s.cfg.NoShowTimeout.Minutes())
	message := fmt.Sprintf("Hello %s, your table for %d is ready! Please check in with the host within %d minutes.",
		entry.CustomerName, entry.PartySize, graceMinutes)
	if s.notify != nil {
		s.notify.Dispatch(ctx, notify.Request{
			QueueEntryID: entry.ID,
			StoreID:      entry.StoreID,
			Method:       entry.NotificationMethod,
			Phone:        entry.CustomerPhone,
			CustomerName: entry.CustomerName,
			Message:      message,
		})
	}
	if s.timers != nil {
		id := entry.ID
		storeID := entry.StoreID
		s.timers.Schedule(noShowTimerPrefix+id, s.cfg.NoShowTimeout, func() {
			s.expireNoShow(storeID, id)
		})
	}

	s.publishEvent(TopicQueueNotified, entry)
	s.auditEntry(actor, "QUEUE_NOTIFY", entry, audit.SeverityInfo,
		fmt.Sprintf("Notified %s via %s", entry.CustomerName, entry.NotificationMethod))
	s.publishSync(actor, models.SyncUpdate, entry)
	return entry, nil
}

// SeatEntry seats a waiting or notified party, records the observed wait,
// and renumbers the remaining queue.
func (s *QueueService) SeatEntry(ctx context.Context, actor Actor, entryID, tableID string) (*models.QueueEntry, error) {
	s.cancelTimers(entryID)

	s.mu.Lock()
	entry, err := s.GetEntry(ctx, actor.StoreID, entryID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !entry.Status.Active() {
		s.mu.Unlock()
		return nil, NewBusinessError("cannot seat entry in status %s", entry.Status)
	}

	now := s.clock.Now().UTC()
	entry.Status = models.QueueSeated
	entry.SeatedTime = &now
	entry.AssignedTableID = tableID
	entry.PositionInQueue = 0
	entry.Touch(now)
	if err := putDoc(ctx, s.store, store.ColQueueEntries, entry.ID, entry); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	actual, _ := entry.ActualWaitMinutes()
	s.recordSampleLocked(entry.StoreID, waitSample{
		Actual:    actual,
		Estimated: entry.EstimatedWaitMinutes,
		SeatedAt:  now,
	})
	renumbered := s.renumberLocked(ctx, entry.StoreID)
	s.mu.Unlock()

	if tableID != "" {
		s.setTableStatus(ctx, actor.StoreID, tableID, models.TableOccupied)
	}

	s.publishEvent(TopicQueueSeated, entry)
	s.auditEntry(actor, "QUEUE_SEAT", entry, audit.SeverityInfo,
		fmt.Sprintf("Seated %s after %.0f min", entry.CustomerName, actual))
	s.publishSync(actor, models.SyncUpdate, entry)
	if renumbered {
		s.publishInvalidate(actor)
	}
	return entry, nil
}

// CancelEntry removes a party from the queue and renumbers the rest.
func (s *QueueService) CancelEntry(ctx context.Context, actor Actor, entryID string) (*models.QueueEntry, error) {
	s.cancelTimers(entryID)

	s.mu.Lock()
	entry, err := s.GetEntry(ctx, actor.StoreID, entryID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if entry.Status.Terminal() {
		s.mu.Unlock()
		return nil, NewBusinessError("cannot cancel entry in status %s", entry.Status)
	}

	now := s.clock.Now().UTC()
	entry.Status = models.QueueCancelled
	entry.CancelledTime = &now
	entry.PositionInQueue = 0
	entry.Touch(now)
	if err := putDoc(ctx, s.store, store.ColQueueEntries, entry.ID, entry); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	renumbered := s.renumberLocked(ctx, entry.StoreID)
	s.mu.Unlock()

	s.publishEvent(TopicQueueCancelled, entry)
	s.auditEntry(actor, "QUEUE_CANCEL", entry, audit.SeverityInfo,
		fmt.Sprintf("Cancelled queue entry for %s", entry.CustomerName))
	s.publishSync(actor, models.SyncUpdate, entry)
	if renumbered {
		s.publishInvalidate(actor)
	}
	return entry, nil
}

// EstimateWait estimates how long a party of the given size would wait
// if they joined the queue now.
func (s *QueueService) EstimateWait(ctx context.Context, storeID string, partySize int) (*models.WaitEstimate, error) {
	if partySize < 1 || partySize > s.cfg.MaxPartySize {
		return nil, NewValidationError("party_size",
			fmt.Sprintf("must be between 1 and %d", s.cfg.MaxPartySize))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	active, err := s.activeEntries(ctx, storeID)
	if err != nil {
		return nil, err
	}
	estimate := s.estimateLocked(storeID, partySize, len(active))
	return estimate, nil
}

// SuggestTables scores the available tables for a waiting party and
// returns the top five candidates.
func (s *QueueService) SuggestTables(ctx context.Context, storeID, entryID string) ([]models.TableSuggestion, error) {
	entry, err := s.GetEntry(ctx, storeID, entryID)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, store.ColReservationTables, store.Filter{
		"store_id": storeID,
		"status":   string(models.TableAvailable),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load available tables: %w", err)
	}

	suggestions := make([]models.TableSuggestion, 0, len(docs))
	for _, doc := range docs {
		var t models.Table
		if err := store.FromDocument(doc, &t); err != nil {
			continue
		}
		if t.Capacity < entry.PartySize {
			continue
		}

		score := 0.5
		reasons := []string{fmt.Sprintf("seats %d", t.Capacity)}
		if t.Capacity == entry.PartySize {
			score += 0.3
			reasons = append(reasons, "exact size match")
		}
		for _, pref := range entry.TablePreferences {
			if t.HasFeature(pref) {
				score += 0.1
				reasons = append(reasons, fmt.Sprintf("matches %s preference", pref))
			}
		}
		if score > 1.0 {
			score = 1.0
		}

		suggestions = append(suggestions, models.TableSuggestion{
			TableID:     t.ID,
			TableNumber: t.Number,
			Capacity:    t.Capacity,
			Score:       score,
			Reasons:     reasons,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].TableNumber < suggestions[j].TableNumber
	})
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions, nil
}

// Statistics aggregates the store's waiting-list state and history.
func (s *QueueService) Statistics(ctx context.Context, storeID string) (*models.QueueStatistics, error) {
	docs, err := s.store.Query(ctx, store.ColQueueEntries, store.Filter{"store_id": storeID})
	if err != nil {
		return nil, fmt.Errorf("failed to load queue entries: %w", err)
	}
	entries := s.decodeEntries(docs)

	stats := &models.QueueStatistics{
		PartySizeDistribution: make(map[models.PartySizeCategory]int),
	}
	var waits []float64
	var notifiedOutcomes, noShows int
	for _, e := range entries {
		if e.Status.Active() {
			stats.TotalInQueue++
			stats.PartySizeDistribution[e.PartySizeCategory]++
		}
		if w, ok := e.ActualWaitMinutes(); ok {
			waits = append(waits, w)
		}
		switch e.Status {
		case models.QueueNotified, models.QueueSeated:
			notifiedOutcomes++
		case models.QueueNoShow:
			notifiedOutcomes++
			noShows++
		}
	}

	if len(waits) > 0 {
		var sum, longest float64
		for _, w := range waits {
			sum += w
			if w > longest {
				longest = w
			}
		}
		stats.AverageWaitMinutes = sum / float64(len(waits))
		stats.LongestWaitMinutes = longest
	}
	if stats.TotalInQueue > 0 {
		clearMin := s.cfg.EstimatePerPartyMinutes * float64(stats.TotalInQueue)
		stats.EstimatedClearMinutes = math.Max(clearMin, s.cfg.EstimateFloorMinutes)
	}
	if notifiedOutcomes > 0 {
		stats.NoShowRate = float64(noShows) / float64(notifiedOutcomes)
	}

	s.mu.Lock()
	stats.EstimateAccuracy24h = s.accuracyLocked(storeID)
	s.mu.Unlock()
	return stats, nil
}

// expireNoShow is the no-show timer callback. The entry expires only if
// it is still NOTIFIED; any later transition wins over the timer.
func (s *QueueService) expireNoShow(storeID, entryID string) {
	ctx := context.Background()

	s.mu.Lock()
	entry, err := s.GetEntry(ctx, storeID, entryID)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("No-show timer fired for missing entry", "entry_id", entryID, "error", err)
		return
	}
	if entry.Status != models.QueueNotified {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now().UTC()
	entry.Status = models.QueueNoShow
	entry.PositionInQueue = 0
	entry.Touch(now)
	if err := putDoc(ctx, s.store, store.ColQueueEntries, entry.ID, entry); err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to persist no-show expiry", "entry_id", entry.ID, "error", err)
		return
	}
	renumbered := s.renumberLocked(ctx, entry.StoreID)
	s.mu.Unlock()

	if s.notify != nil {
		s.notify.Cancel(entry.ID)
	}

	actor := Actor{StoreID: storeID, UserID: "system", TerminalID: "server"}
	s.publishEvent(TopicQueueNoShow, entry)
	s.auditEntry(actor, "QUEUE_NO_SHOW", entry, audit.SeverityWarning,
		fmt.Sprintf("%s did not show up within %d minutes",
			entry.CustomerName, int(s.cfg.NoShowTimeout.Minutes())))
	s.publishSync(actor, models.SyncUpdate, entry)
	if renumbered {
		s.publishInvalidate(actor)
	}

	s.logger.Info("Queue entry expired to no-show", "entry_id", entry.ID)
}

// estimateLocked computes the wait estimate for a party joining behind
// queueLen parties. Callers hold s.mu.
func (s *QueueService) estimateLocked(storeID string, partySize, queueLen int) *models.WaitEstimate {
	factor := 1.0
	switch {
	case partySize > 6:
		factor = 1.5
	case partySize > 4:
		factor = 1.3
	}

	base := math.Max(s.cfg.EstimatePerPartyMinutes*float64(queueLen)*factor, s.cfg.EstimateFloorMinutes)
	factors := map[string]any{
		"queue_length":  queueLen,
		"size_factor":   factor,
		"base_estimate": base,
	}

	estimated := base
	confidence := 0.4
	if hist := s.recentWaitsLocked(storeID, s.cfg.HistoryWindow); len(hist) > 0 {
		var sum float64
		for _, w := range hist {
			sum += w
		}
		mean := sum / float64(len(hist))
		estimated = (base + mean) / 2
		confidence = 0.7
		factors["historical_mean"] = mean
		factors["history_samples"] = len(hist)
	}
	estimated = math.Max(estimated, s.cfg.EstimateFloorMinutes)

	return &models.WaitEstimate{
		PartySize:        partySize,
		EstimatedMinutes: estimated,
		ConfidenceLevel:  confidence,
		Factors:          factors,
	}
}

// recentWaitsLocked returns the last n observed waits, newest last.
func (s *QueueService) recentWaitsLocked(storeID string, n int) []float64 {
	samples := s.history[storeID]
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	waits := make([]float64, 0, len(samples))
	for _, sm := range samples {
		waits = append(waits, sm.Actual)
	}
	return waits
}

// accuracyLocked computes the 24h estimate accuracy over the most recent
// samples: mean(1 - |actual-estimated|/actual), clamped to [0, 1].
func (s *QueueService) accuracyLocked(storeID string) float64 {
	cutoff := s.clock.Now().UTC().Add(-24 * time.Hour)
	samples := s.history[storeID]
	if len(samples) > s.cfg.AccuracySamples {
		samples = samples[len(samples)-s.cfg.AccuracySamples:]
	}

	var sum float64
	var n int
	for _, sm := range samples {
		if sm.SeatedAt.Before(cutoff) || sm.Actual <= 0 {
			continue
		}
		acc := 1 - math.Abs(sm.Actual-sm.Estimated)/sm.Actual
		if acc < 0 {
			acc = 0
		}
		sum += acc
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (s *QueueService) recordSampleLocked(storeID string, sm waitSample) {
	samples := append(s.history[storeID], sm)
	if len(samples) > maxWaitSamples {
		samples = samples[len(samples)-maxWaitSamples:]
	}
	s.history[storeID] = samples
}

// activeEntries returns WAITING and NOTIFIED entries in position order.
func (s *QueueService) activeEntries(ctx context.Context, storeID string) ([]*models.QueueEntry, error) {
	docs, err := s.store.Query(ctx, store.ColQueueEntries, store.Filter{
		"store_id": storeID,
		"status":   store.In(string(models.QueueWaiting), string(models.QueueNotified)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active queue entries: %w", err)
	}
	entries := s.decodeEntries(docs)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PositionInQueue != entries[j].PositionInQueue {
			return entries[i].PositionInQueue < entries[j].PositionInQueue
		}
		return entries[i].CheckInTime.Before(entries[j].CheckInTime)
	})
	return entries, nil
}

// renumberLocked reassigns dense positions starting at 1 to the active
// queue. Callers hold s.mu. Reports whether any position changed.
func (s *QueueService) renumberLocked(ctx context.Context, storeID string) bool {
	active, err := s.activeEntries(ctx, storeID)
	if err != nil {
		s.logger.Error("Failed to renumber queue", "store_id", storeID, "error", err)
		return false
	}

	now := s.clock.Now().UTC()
	changed := false
	for i, e := range active {
		want := i + 1
		if e.PositionInQueue == want {
			continue
		}
		e.PositionInQueue = want
		e.Touch(now)
		if err := putDoc(ctx, s.store, store.ColQueueEntries, e.ID, e); err != nil {
			s.logger.Error("Failed to persist renumbered entry", "entry_id", e.ID, "error", err)
			continue
		}
		changed = true
	}
	return changed
}

func (s *QueueService) decodeEntries(docs []store.Document) []*models.QueueEntry {
	entries := make([]*models.QueueEntry, 0, len(docs))
	for _, doc := range docs {
		var e models.QueueEntry
		if err := store.FromDocument(doc, &e); err != nil {
			s.logger.Warn("Skipping undecodable queue document", "error", err)
			continue
		}
		entries = append(entries, &e)
	}
	return entries
}

// cancelTimers stops the no-show timer and any in-flight notification
// delivery for an entry leaving the NOTIFIED state.
func (s *QueueService) cancelTimers(entryID string) {
	if s.timers != nil {
		s.timers.Cancel(noShowTimerPrefix + entryID)
	}
	if s.notify != nil {
		s.notify.Cancel(entryID)
	}
}

// setTableStatus updates the table registry best-effort; seating must not
// fail because the registry write did.
func (s *QueueService) setTableStatus(ctx context.Context, storeID, tableID string, status models.TableStatus) {
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

func (s *QueueService) publishEvent(topic string, entry *models.QueueEntry) {
	if s.bus != nil {
		s.bus.Publish(topic, entry)
	}
}

func (s *QueueService) publishSync(actor Actor, msgType models.SyncMessageType, entry *models.QueueEntry) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "queue_entry",
		EntityID: entry.ID,
		Data:     syncData(entry),
	})
}

// publishInvalidate tells terminals to refetch the queue after a
// renumbering touched multiple entries.
func (s *QueueService) publishInvalidate(actor Actor) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:   models.SyncInvalidateCache,
		Entity: "queue_entry",
	})
}

func (s *QueueService) auditEntry(actor Actor, action string, entry *models.QueueEntry, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "queue_entry",
		EntityID:    entry.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"status": string(entry.Status), "position": entry.PositionInQueue},
	})
}
