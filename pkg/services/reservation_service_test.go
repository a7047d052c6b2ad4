package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
	"github.com/posfloor/maitre/pkg/timers"
)

// recordingAdmitter stands in for the queue when an arrived party has no
// assigned tables.
type recordingAdmitter struct {
	mu   sync.Mutex
	reqs []models.AddQueueEntryRequest
}

func (a *recordingAdmitter) AddToQueue(ctx context.Context, actor Actor, req models.AddQueueEntryRequest) (*models.QueueEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reqs = append(a.reqs, req)
	entry := &models.QueueEntry{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		Status:        models.QueueWaiting,
	}
	entry.Init("queued-1", actor.StoreID, time.Time{})
	return entry, nil
}

func (a *recordingAdmitter) admitted() []models.AddQueueEntryRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AddQueueEntryRequest(nil), a.reqs...)
}

type reservationFixture struct {
	svc   *ReservationService
	store store.Store
	clock *testclock.Clock
	cfg   *config.ReservationsConfig
	sync  *recordingSync
	audit *recordingAudit
	queue *recordingAdmitter
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	clk := testclock.NewClock(testStart)
	st := store.NewMemoryStore()
	reg := timers.NewRegistry(clk)
	t.Cleanup(reg.Stop)

	f := &reservationFixture{
		store: st,
		clock: clk,
		cfg:   config.DefaultReservationsConfig(),
		sync:  &recordingSync{},
		audit: &recordingAudit{},
		queue: &recordingAdmitter{},
	}
	f.svc = NewReservationService(st, clk, f.cfg, bus.New(), f.audit, f.sync,
		lock.NewManager(clk, 5*time.Minute), reg, nil, f.queue)
	return f
}

func bookingRequest(date, slot string, partySize int) models.CreateReservationRequest {
	return models.CreateReservationRequest{
		CustomerName:    "Marina Costa",
		CustomerPhone:   "11987654321",
		PartySize:       partySize,
		ReservationDate: date,
		ReservationTime: slot,
	}
}

func (f *reservationFixture) create(t *testing.T, req models.CreateReservationRequest) *models.Reservation {
	t.Helper()
	r, err := f.svc.CreateReservation(context.Background(), testActor(), req)
	require.NoError(t, err)
	return r
}

func TestCreateReservation(t *testing.T) {
	f := newReservationFixture(t)
	seedTable(t, f.store, "t1", 1, 2)
	seedTable(t, f.store, "t2", 2, 4)

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))

	assert.Equal(t, models.ReservationPending, r.Status)
	assert.Equal(t, "+5511987654321", r.CustomerPhone)
	assert.Equal(t, 120, r.DurationMinutes)
	assert.Equal(t, models.SourcePhone, r.Source)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), r.ConfirmationCode)
	// The exact-fit table wins the allocation.
	assert.Equal(t, []string{"t1"}, r.AssignedTables)

	assert.Len(t, f.audit.byAction("RESERVATION_CREATE"), 1)
	assert.Equal(t, 1, f.sync.countOfType(models.SyncCreate))

	got, err := f.svc.GetByCode(context.Background(), "store-1", r.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestCreateReservationValidation(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	t.Run("disabled store refuses bookings", func(t *testing.T) {
		f.cfg.Disabled = true
		defer func() { f.cfg.Disabled = false }()
		_, err := f.svc.CreateReservation(ctx, testActor(), bookingRequest("2026-08-24", "19:00", 2))
		require.ErrorIs(t, err, ErrReservationsDisabled)
	})

	t.Run("exactly the minimum notice is accepted", func(t *testing.T) {
		r := f.create(t, bookingRequest("2026-08-24", "13:00", 2))
		assert.Equal(t, models.ReservationPending, r.Status)
	})

	t.Run("one minute under the minimum notice is rejected", func(t *testing.T) {
		_, err := f.svc.CreateReservation(ctx, testActor(), bookingRequest("2026-08-24", "12:59", 2))
		require.Error(t, err)
		assert.True(t, IsBusinessError(err))
	})

	t.Run("too far ahead is rejected", func(t *testing.T) {
		_, err := f.svc.CreateReservation(ctx, testActor(), bookingRequest("2026-09-30", "19:00", 2))
		require.Error(t, err)
		assert.True(t, IsBusinessError(err))
	})

	t.Run("party size bounds", func(t *testing.T) {
		_, err := f.svc.CreateReservation(ctx, testActor(), bookingRequest("2026-08-24", "19:00", 0))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		_, err = f.svc.CreateReservation(ctx, testActor(), bookingRequest("2026-08-24", "19:00", 21))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("duration bounds", func(t *testing.T) {
		req := bookingRequest("2026-08-24", "19:00", 2)
		req.DurationMinutes = 10
		_, err := f.svc.CreateReservation(ctx, testActor(), req)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := f.svc.CreateReservation(ctx, testActor(), bookingRequest("24/08/2026", "19:00", 2))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestCreateReservationAutoConfirm(t *testing.T) {
	f := newReservationFixture(t)
	f.cfg.AutoConfirm = true

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))
	assert.Equal(t, models.ReservationConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedAt)
	assert.True(t, r.NotificationSent)
}

func TestSlotCapacity(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	seedTable(t, f.store, "t1", 1, 4)

	first := f.create(t, bookingRequest("2026-08-24", "19:00", 2))
	require.Equal(t, []string{"t1"}, first.AssignedTables)

	// The only table is taken for the overlapping window.
	second := bookingRequest("2026-08-24", "20:00", 2)
	second.CustomerPhone = "11922222222"
	_, err := f.svc.CreateReservation(ctx, testActor(), second)
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// Manually asking for the taken table fails the same way.
	taken := bookingRequest("2026-08-24", "20:00", 2)
	taken.AssignedTables = []string{"t1"}
	_, err = f.svc.CreateReservation(ctx, testActor(), taken)
	require.Error(t, err)

	// A non-overlapping slot on the same table is fine.
	later := bookingRequest("2026-08-24", "21:00", 2)
	later.CustomerPhone = "11933333333"
	r, err := f.svc.CreateReservation(ctx, testActor(), later)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, r.AssignedTables)
}

func TestCheckAvailability(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	t.Run("open day exposes the slot grid", func(t *testing.T) {
		day, err := f.svc.CheckAvailability(ctx, "store-1", "2026-08-25", 2)
		require.NoError(t, err)
		assert.False(t, day.FullyBooked)
		// 11:00 to 23:00 in 15-minute steps.
		require.Len(t, day.Slots, 48)
		assert.Equal(t, "11:00", day.Slots[0].Time)
		assert.True(t, day.Slots[0].Available)
		assert.Equal(t, 10, day.Slots[0].AvailableTables) // fallback floor size
	})

	t.Run("closed day", func(t *testing.T) {
		f.cfg.OperatingHours["monday"] = config.DayHours{Closed: true}
		defer func() {
			f.cfg.OperatingHours["monday"] = config.DayHours{Open: "11:00", Close: "23:00"}
		}()
		day, err := f.svc.CheckAvailability(ctx, "store-1", "2026-08-31", 2)
		require.NoError(t, err)
		assert.True(t, day.FullyBooked)
		assert.Equal(t, "Closed on this day", day.Restriction)
		assert.Empty(t, day.Slots)
	})

	t.Run("midnight close runs to end of day", func(t *testing.T) {
		day, err := f.svc.CheckAvailability(ctx, "store-1", "2026-08-28", 2) // Friday 11:00-00:00
		require.NoError(t, err)
		require.Len(t, day.Slots, 52)
		assert.Equal(t, "23:45", day.Slots[51].Time)
	})
}

func TestBlockedSlots(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	blocked, err := f.svc.BlockSlot(ctx, testActor(), models.BlockSlotRequest{
		Date:      "2026-08-25",
		StartTime: "19:00",
		EndTime:   "21:00",
		Reason:    "private event",
	})
	require.NoError(t, err)

	day, err := f.svc.CheckAvailability(ctx, "store-1", "2026-08-25", 2)
	require.NoError(t, err)
	bySlot := make(map[string]models.AvailabilitySlot, len(day.Slots))
	for _, slot := range day.Slots {
		bySlot[slot.Time] = slot
	}
	// A 2h default stay starting after 17:00 would overlap the block.
	assert.True(t, bySlot["17:00"].Available)
	assert.False(t, bySlot["17:15"].Available)
	assert.False(t, bySlot["20:45"].Available)
	assert.True(t, bySlot["21:00"].Available)

	// Booking into the block is refused.
	req := bookingRequest("2026-08-25", "19:30", 2)
	_, err = f.svc.CreateReservation(ctx, testActor(), req)
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// Unblocking restores the window.
	require.NoError(t, f.svc.UnblockSlot(ctx, testActor(), blocked.ID))
	_, err = f.svc.CreateReservation(ctx, testActor(), req)
	require.NoError(t, err)
}

func TestReservationLifecycle(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	seedTable(t, f.store, "t1", 1, 2)

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))

	confirmed, err := f.svc.Confirm(ctx, testActor(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.True(t, confirmed.NotificationSent)

	// Arrival with assigned tables seats the party directly.
	arrived, err := f.svc.MarkArrived(ctx, testActor(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationSeated, arrived.Status)
	require.NotNil(t, arrived.SeatedAt)
	assert.Empty(t, f.queue.admitted())

	var tbl models.Table
	require.NoError(t, getDoc(ctx, f.store, store.ColReservationTables, "t1", &tbl))
	assert.Equal(t, models.TableOccupied, tbl.Status)

	done, err := f.svc.Complete(ctx, testActor(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, done.Status)

	require.NoError(t, getDoc(ctx, f.store, store.ColReservationTables, "t1", &tbl))
	assert.Equal(t, models.TableAvailable, tbl.Status)

	// Terminal states accept no further transitions.
	_, err = f.svc.Cancel(ctx, testActor(), r.ID)
	require.Error(t, err)
	assert.True(t, IsBusinessError(err))
}

func TestMarkArrivedWithoutTablesJoinsQueue(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))
	require.Empty(t, r.AssignedTables)

	_, err := f.svc.Confirm(ctx, testActor(), r.ID)
	require.NoError(t, err)
	arrived, err := f.svc.MarkArrived(ctx, testActor(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationArrived, arrived.Status)

	admitted := f.queue.admitted()
	require.Len(t, admitted, 1)
	assert.Equal(t, "Marina Costa", admitted[0].CustomerName)
	assert.Equal(t, models.NotifyNone, admitted[0].NotificationMethod)
	assert.Equal(t, r.ID, admitted[0].Metadata["reservation_id"])
	assert.Equal(t, r.ConfirmationCode, admitted[0].Metadata["confirmation_code"])
}

func TestUpdateReservationVersionCheck(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))
	_, err := f.svc.Confirm(ctx, testActor(), r.ID) // bumps version to 2
	require.NoError(t, err)

	name := "Marina C."
	_, err = f.svc.UpdateReservation(ctx, testActor(), r.ID, models.UpdateReservationRequest{
		Version:      1,
		CustomerName: &name,
	})
	require.Error(t, err)
	var conflict *lock.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "reservation:"+r.ID, conflict.EntityKey)
	assert.Equal(t, 1, conflict.ClientVersion)
	assert.Equal(t, 2, conflict.CurrentVersion)

	updated, err := f.svc.UpdateReservation(ctx, testActor(), r.ID, models.UpdateReservationRequest{
		Version:      2,
		CustomerName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "Marina C.", updated.CustomerName)
	assert.Equal(t, 3, updated.Version)
}

func TestUpdateReservationMoveRechecksAvailability(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	seedTable(t, f.store, "t1", 1, 4)

	r := f.create(t, bookingRequest("2026-08-24", "19:00", 2))
	other := bookingRequest("2026-08-24", "15:00", 2)
	other.CustomerPhone = "11922222222"
	f.create(t, other)

	// Moving onto the other booking's window fails; the original slot
	// (excluded from its own overlap check) still accepts edits.
	slot := "15:30"
	_, err := f.svc.UpdateReservation(ctx, testActor(), r.ID, models.UpdateReservationRequest{
		Version:         r.Version,
		ReservationTime: &slot,
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	party := 4
	updated, err := f.svc.UpdateReservation(ctx, testActor(), r.ID, models.UpdateReservationRequest{
		Version:   r.Version,
		PartySize: &party,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.PartySize)
}

func TestRecurrenceExpansion(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	req := bookingRequest("2026-08-24", "19:00", 2)
	req.Recurrence = models.RecurrenceWeekly
	req.RecurrenceEndDate = "2026-09-08"
	parent := f.create(t, req)

	docs, err := f.store.Query(ctx, store.ColReservations, store.Filter{
		"recurrence_parent_id": parent.ID,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2) // Aug 31 and Sep 7

	dates := make(map[string]bool)
	for _, doc := range docs {
		var child models.Reservation
		require.NoError(t, store.FromDocument(doc, &child))
		dates[child.ReservationDate] = true
		assert.Equal(t, models.RecurrenceNone, child.Recurrence)
		assert.NotEqual(t, parent.ConfirmationCode, child.ConfirmationCode)
		assert.Equal(t, parent.ID, child.RecurrenceParentID)
	}
	assert.True(t, dates["2026-08-31"])
	assert.True(t, dates["2026-09-07"])
}

func TestProcessNoShows(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	r := f.create(t, bookingRequest("2026-08-24", "13:00", 2))
	_, err := f.svc.Confirm(ctx, testActor(), r.ID)
	require.NoError(t, err)

	// Not yet past the grace period.
	f.clock.Advance(80 * time.Minute) // 13:20
	expired, err := f.svc.ProcessNoShows(ctx, testActor(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	f.clock.Advance(11 * time.Minute) // 13:31, grace is 30 min
	expired, err = f.svc.ProcessNoShows(ctx, testActor(), "store-1")
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.GetReservation(ctx, "store-1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationNoShow, got.Status)

	// The customer's no-show counter is bumped.
	doc, err := f.store.Get(ctx, store.ColReservationHistory, "store-1:"+r.CustomerPhone)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["no_show_count"])
}

func TestReservationReminder(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	r := f.create(t, bookingRequest("2026-08-26", "19:00", 2))

	// The reminder goes out 24h before the booking.
	f.clock.Advance(31 * time.Hour)
	require.Eventually(t, func() bool {
		got, err := f.svc.GetReservation(ctx, "store-1", r.ID)
		return err == nil && got.ReminderSent
	}, 2*time.Second, 5*time.Millisecond)
}

func TestReservationStatistics(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	f.create(t, bookingRequest("2026-08-24", "19:00", 2))

	wed := bookingRequest("2026-08-26", "19:00", 4)
	wed.CustomerPhone = "11922222222"
	r2 := f.create(t, wed)
	_, err := f.svc.Confirm(ctx, testActor(), r2.ID)
	require.NoError(t, err)

	next := bookingRequest("2026-09-10", "12:00", 6)
	next.CustomerPhone = "11933333333"
	f.create(t, next)

	stats, err := f.svc.Statistics(ctx, "store-1")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TodayCount)
	assert.Equal(t, 2, stats.WeekCount)
	assert.Equal(t, 2, stats.MonthCount)
	assert.InDelta(t, 4.0, stats.AveragePartySize, 0.001)
	assert.InDelta(t, 1.0/3.0, stats.ConfirmationRate, 0.001)
	assert.Contains(t, stats.PeakHours, "19:00")
}
