package services

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

type commandFixture struct {
	svc   *CommandService
	store store.Store
	clock *testclock.Clock
	sync  *recordingSync
	audit *recordingAudit
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()

	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	clk := testclock.NewClock(testStart)
	sync := &recordingSync{}
	trail := &recordingAudit{}
	locks := lock.NewManager(clk, 5*time.Minute)

	return &commandFixture{
		svc:   NewCommandService(st, clk, bus.New(), trail, sync, locks),
		store: st,
		clock: clk,
		sync:  sync,
		audit: trail,
	}
}

func (f *commandFixture) registerCard(t *testing.T, number string) *models.CommandCard {
	t.Helper()
	card, err := f.svc.RegisterCard(context.Background(), testActor(), number)
	require.NoError(t, err)
	return card
}

func (f *commandFixture) openSession(t *testing.T, cardID string, req models.OpenSessionRequest) *models.CommandSession {
	t.Helper()
	session, err := f.svc.OpenSession(context.Background(), testActor(), cardID, req)
	require.NoError(t, err)
	return session
}

func TestRegisterCard(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")
	assert.Equal(t, models.CardAvailable, card.Status)
	assert.Equal(t, 1, card.Version)
	assert.Equal(t, "store-1", card.StoreID)

	_, err := f.svc.RegisterCard(ctx, testActor(), "C-001")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = f.svc.RegisterCard(ctx, testActor(), "  ")
	assert.True(t, IsValidationError(err))

	found, err := f.svc.GetCardByNumber(ctx, "store-1", "C-001")
	require.NoError(t, err)
	assert.Equal(t, card.ID, found.ID)

	_, err = f.svc.GetCardByNumber(ctx, "store-1", "C-999")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, f.audit.byAction("CARD_REGISTER"), 1)
}

func TestCardStatusTransitions(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")

	blocked, err := f.svc.BlockCard(ctx, testActor(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardBlocked, blocked.Status)

	entries := f.audit.byAction("CARD_STATUS")
	require.Len(t, entries, 1)
	assert.Equal(t, audit.SeverityWarning, entries[0].Severity)

	// Blocked cards cannot host a session.
	_, err = f.svc.OpenSession(ctx, testActor(), card.ID, models.OpenSessionRequest{})
	assert.True(t, IsBusinessError(err))

	unblocked, err := f.svc.UnblockCard(ctx, testActor(), card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardAvailable, unblocked.Status)

	// IN_USE is owned by the session lifecycle.
	_, err = f.svc.SetCardStatus(ctx, testActor(), card.ID, models.CardInUse)
	assert.True(t, IsValidationError(err))

	_, err = f.svc.SetCardStatus(ctx, testActor(), card.ID, models.CardStatus("SHINY"))
	assert.True(t, IsValidationError(err))

	// A card with an open session must be closed or transferred first.
	f.openSession(t, card.ID, models.OpenSessionRequest{})
	_, err = f.svc.SetCardStatus(ctx, testActor(), card.ID, models.CardLost)
	assert.True(t, IsBusinessError(err))
}

func TestOpenSessionClaimsCard(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")

	session := f.openSession(t, card.ID, models.OpenSessionRequest{
		CustomerName: "Marina Costa",
		CreditLimit:  200,
	})
	assert.Equal(t, models.SessionOpen, session.Status)
	assert.Equal(t, "ana", session.OpenedBy)
	assert.Equal(t, testStart, session.OpenedAt)
	assert.Equal(t, 200.0, session.CreditLimit)

	claimed, err := f.svc.GetCard(ctx, "store-1", card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardInUse, claimed.Status)
	assert.Equal(t, session.ID, claimed.CurrentSessionID)

	// One card, one session.
	_, err = f.svc.OpenSession(ctx, testActor(), card.ID, models.OpenSessionRequest{})
	require.Error(t, err)
	assert.True(t, IsBusinessError(err))

	_, err = f.svc.OpenSession(ctx, testActor(), "no-such-card", models.OpenSessionRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	other := f.registerCard(t, "C-002")
	_, err = f.svc.OpenSession(ctx, testActor(), other.ID, models.OpenSessionRequest{CreditLimit: -1})
	assert.True(t, IsValidationError(err))

	// RESERVED cards accept sessions too: they are held for a booking.
	reserved, err := f.svc.SetCardStatus(ctx, testActor(), other.ID, models.CardReserved)
	require.NoError(t, err)
	f.openSession(t, reserved.ID, models.OpenSessionRequest{})
}

func TestAddItemEnforcesCreditLimit(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")
	session := f.openSession(t, card.ID, models.OpenSessionRequest{CreditLimit: 100})

	for _, tc := range []struct {
		name  string
		req   models.AddItemRequest
		field string
	}{
		{"missing name", models.AddItemRequest{Quantity: 1, UnitPrice: 10}, "name"},
		{"zero quantity", models.AddItemRequest{Name: "Beer", Quantity: 0, UnitPrice: 10}, "quantity"},
		{"negative price", models.AddItemRequest{Name: "Beer", Quantity: 1, UnitPrice: -1}, "unit_price"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, testActor(), session.ID, tc.req)
			require.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tc.field)
		})
	}

	_, err := f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Picanha", Quantity: 2, UnitPrice: 30,
	})
	require.NoError(t, err)

	// 60 + 50 would breach the 100 limit; the total must stay untouched.
	_, err = f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Wine", Quantity: 1, UnitPrice: 50,
	})
	require.True(t, IsBusinessError(err))
	assert.Contains(t, err.Error(), "credit limit exceeded")

	current, err := f.svc.GetSession(ctx, "store-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, 60.0, current.TotalAmount)

	// Landing exactly on the limit is allowed.
	f.clock.Advance(time.Minute)
	_, err = f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Juice", Quantity: 4, UnitPrice: 10,
	})
	require.NoError(t, err)

	items, err := f.svc.ListItems(ctx, "store-1", session.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Picanha", items[0].Name)
	assert.Equal(t, "Juice", items[1].Name)

	current, err = f.svc.GetSession(ctx, "store-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, current.TotalAmount)
}

func TestAddItemWithoutLimit(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")
	session := f.openSession(t, card.ID, models.OpenSessionRequest{})

	_, err := f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Tasting menu", Quantity: 10, UnitPrice: 500,
	})
	require.NoError(t, err)

	current, err := f.svc.GetSession(ctx, "store-1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, current.TotalAmount)
}

func TestCloseSessionReleasesCard(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")
	session := f.openSession(t, card.ID, models.OpenSessionRequest{})
	_, err := f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Feijoada", Quantity: 2, UnitPrice: 45,
	})
	require.NoError(t, err)

	f.clock.Advance(90 * time.Minute)
	closed, err := f.svc.CloseSession(ctx, testActor(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, testStart.Add(90*time.Minute), *closed.ClosedAt)
	assert.Equal(t, 90.0, closed.TotalAmount)

	released, err := f.svc.GetCard(ctx, "store-1", card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardAvailable, released.Status)
	assert.Empty(t, released.CurrentSessionID)

	// Settlement is a critical audit event, but the card number only
	// appears in the description: NewValue would be redacted.
	payments := f.audit.byAction(audit.ActionPayment)
	require.Len(t, payments, 1)
	assert.Equal(t, audit.SeverityCritical, payments[0].Severity)
	assert.Contains(t, payments[0].Description, "C-001")
	assert.Contains(t, payments[0].Description, "90.00")

	_, err = f.svc.CloseSession(ctx, testActor(), session.ID)
	assert.True(t, IsBusinessError(err))

	_, err = f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Coffee", Quantity: 1, UnitPrice: 5,
	})
	assert.True(t, IsBusinessError(err))

	// The freed card can host the next customer straight away.
	f.openSession(t, card.ID, models.OpenSessionRequest{})
}

func TestTransferSession(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	source := f.registerCard(t, "C-001")
	target := f.registerCard(t, "C-002")
	session := f.openSession(t, source.ID, models.OpenSessionRequest{CustomerName: "Rui"})
	_, err := f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Moqueca", Quantity: 1, UnitPrice: 80,
	})
	require.NoError(t, err)

	_, err = f.svc.TransferSession(ctx, testActor(), session.ID, source.ID, "same card")
	assert.True(t, IsValidationError(err))

	moved, err := f.svc.TransferSession(ctx, testActor(), session.ID, target.ID, "card left in taxi")
	require.NoError(t, err)
	assert.Equal(t, target.ID, moved.CardID)
	assert.Equal(t, 80.0, moved.TotalAmount)

	claimed, err := f.svc.GetCard(ctx, "store-1", target.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardInUse, claimed.Status)
	assert.Equal(t, session.ID, claimed.CurrentSessionID)

	freed, err := f.svc.GetCard(ctx, "store-1", source.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CardAvailable, freed.Status)
	assert.Empty(t, freed.CurrentSessionID)

	// The old card can now be flagged lost.
	lost, err := f.svc.SetCardStatus(ctx, testActor(), source.ID, models.CardLost)
	require.NoError(t, err)
	assert.Equal(t, models.CardLost, lost.Status)

	transfers, err := f.store.Query(ctx, store.ColCommandTransfers, store.Filter{"session_id": session.ID})
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	var record models.SessionTransfer
	require.NoError(t, store.FromDocument(transfers[0], &record))
	assert.Equal(t, source.ID, record.FromCardID)
	assert.Equal(t, target.ID, record.ToCardID)
	assert.Equal(t, "card left in taxi", record.Reason)
	assert.Equal(t, "ana", record.TransferredBy)

	entries := f.audit.byAction("SESSION_TRANSFER")
	require.Len(t, entries, 1)
	assert.Equal(t, audit.SeverityWarning, entries[0].Severity)

	// A card already in use cannot receive a second session.
	third := f.registerCard(t, "C-003")
	other := f.openSession(t, third.ID, models.OpenSessionRequest{})
	_, err = f.svc.TransferSession(ctx, testActor(), other.ID, target.ID, "mix-up")
	assert.True(t, IsBusinessError(err))
}

func TestUpdateSessionVersionCheck(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	card := f.registerCard(t, "C-001")
	session := f.openSession(t, card.ID, models.OpenSessionRequest{CustomerName: "Rui"})
	require.Equal(t, 1, session.Version)

	name := "Rui Barbosa"
	updated, err := f.svc.UpdateSession(ctx, testActor(), session.ID, models.UpdateSessionRequest{
		Version:      1,
		CustomerName: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rui Barbosa", updated.CustomerName)
	assert.Equal(t, 2, updated.Version)

	// A terminal still holding version 1 must be told to refresh.
	stale := "Someone Else"
	_, err = f.svc.UpdateSession(ctx, testActor(), session.ID, models.UpdateSessionRequest{
		Version:      1,
		CustomerName: &stale,
	})
	var conflict *lock.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "command_session:"+session.ID, conflict.EntityKey)
	assert.Equal(t, 1, conflict.ClientVersion)
	assert.Equal(t, 2, conflict.CurrentVersion)

	_, err = f.svc.AddItem(ctx, testActor(), session.ID, models.AddItemRequest{
		Name: "Caipirinha", Quantity: 3, UnitPrice: 25,
	})
	require.NoError(t, err)

	// Lowering the limit below the 75 already charged is refused.
	low := 50.0
	_, err = f.svc.UpdateSession(ctx, testActor(), session.ID, models.UpdateSessionRequest{
		Version:     3,
		CreditLimit: &low,
	})
	assert.True(t, IsBusinessError(err))

	fine := 300.0
	updated, err = f.svc.UpdateSession(ctx, testActor(), session.ID, models.UpdateSessionRequest{
		Version:     3,
		CreditLimit: &fine,
	})
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.CreditLimit)

	_, err = f.svc.CloseSession(ctx, testActor(), session.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateSession(ctx, testActor(), session.ID, models.UpdateSessionRequest{Version: 4})
	assert.True(t, IsBusinessError(err))
}

func TestListCardsAndSessions(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	f.registerCard(t, "C-003")
	c1 := f.registerCard(t, "C-001")
	f.registerCard(t, "C-002")

	cards, err := f.svc.ListCards(ctx, "store-1", "")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "C-001", cards[0].CardNumber)
	assert.Equal(t, "C-003", cards[2].CardNumber)

	first := f.openSession(t, c1.ID, models.OpenSessionRequest{})
	f.clock.Advance(time.Hour)
	second := f.openSession(t, cards[1].ID, models.OpenSessionRequest{})

	available, err := f.svc.ListCards(ctx, "store-1", models.CardAvailable)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	sessions, err := f.svc.ListSessions(ctx, "store-1", "")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)

	_, err = f.svc.CloseSession(ctx, testActor(), first.ID)
	require.NoError(t, err)

	open, err := f.svc.ListSessions(ctx, "store-1", models.SessionOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}
