package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// CommandService manages comanda cards and their open tabs. A card binds
// to at most one OPEN session, and a session's total never exceeds its
// credit limit.
//
// Card claiming and the credit-limit check serialize on one mutex so two
// terminals cannot open the same card or race an item past the limit.
type CommandService struct {
	store  store.Store
	clock  clock.Clock
	bus    *bus.Bus
	audit  AuditTrail
	sync   SyncPublisher
	locks  *lock.Manager
	logger *slog.Logger

	mu sync.Mutex
}

// NewCommandService creates a new CommandService
func NewCommandService(st store.Store, clk clock.Clock, evts *bus.Bus, trail AuditTrail,
	sync SyncPublisher, locks *lock.Manager) *CommandService {
	return &CommandService{
		store:  st,
		clock:  clk,
		bus:    evts,
		audit:  trail,
		sync:   sync,
		locks:  locks,
		logger: slog.Default().With("component", "command_service"),
	}
}

// RegisterCard adds a physical card to the store's pool. Card numbers
// are unique per store.
func (s *CommandService) RegisterCard(ctx context.Context, actor Actor, cardNumber string) (*models.CommandCard, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	cardNumber = strings.TrimSpace(cardNumber)
	if cardNumber == "" {
		return nil, NewValidationError("card_number", "required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.findCardByNumber(ctx, actor.StoreID, cardNumber); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyExists
	}

	card := &models.CommandCard{
		CardNumber: cardNumber,
		Status:     models.CardAvailable,
	}
	card.Init(uuid.NewString(), actor.StoreID, s.clock.Now().UTC())

	if err := putDoc(ctx, s.store, store.ColCommandCards, card.ID, card); err != nil {
		return nil, err
	}

	s.auditCard(actor, "CARD_REGISTER", card, audit.SeverityInfo,
		fmt.Sprintf("Registered command card %s", card.CardNumber))
	s.publishCardSync(actor, models.SyncCreate, card)
	return card, nil
}

// GetCard returns one card of the store.
func (s *CommandService) GetCard(ctx context.Context, storeID, id string) (*models.CommandCard, error) {
	var card models.CommandCard
	if err := getDoc(ctx, s.store, store.ColCommandCards, id, &card); err != nil {
		return nil, err
	}
	if card.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &card, nil
}

// GetCardByNumber resolves a card through its printed number.
func (s *CommandService) GetCardByNumber(ctx context.Context, storeID, cardNumber string) (*models.CommandCard, error) {
	card, err := s.findCardByNumber(ctx, storeID, strings.TrimSpace(cardNumber))
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrNotFound
	}
	return card, nil
}

// ListCards returns the store's cards, optionally filtered by status,
// ordered by card number.
func (s *CommandService) ListCards(ctx context.Context, storeID string, status models.CardStatus) ([]*models.CommandCard, error) {
	filter := store.Filter{"store_id": storeID}
	if status != "" {
		filter["status"] = string(status)
	}
	docs, err := s.store.Query(ctx, store.ColCommandCards, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cards := make([]*models.CommandCard, 0, len(docs))
	for _, doc := range docs {
		var card models.CommandCard
		if err := store.FromDocument(doc, &card); err != nil {
			s.logger.Warn("Skipping undecodable card document", "error", err)
			continue
		}
		cards = append(cards, &card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].CardNumber < cards[j].CardNumber })
	return cards, nil
}

// SetCardStatus moves a card between administrative states. IN_USE is
// reserved for OpenSession, and a card with an open session must be
// closed or transferred before its status can change.
func (s *CommandService) SetCardStatus(ctx context.Context, actor Actor, id string, status models.CardStatus) (*models.CommandCard, error) {
	switch status {
	case models.CardAvailable, models.CardBlocked, models.CardLost,
		models.CardDamaged, models.CardReserved:
	case models.CardInUse:
		return nil, NewValidationError("status", "IN_USE is set by opening a session")
	default:
		return nil, NewValidationError("status", fmt.Sprintf("invalid card status %q", status))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.GetCard(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if card.Status == status {
		return card, nil
	}
	if card.Status == models.CardInUse {
		return nil, NewBusinessError("card %s has an open session; close or transfer it first", card.CardNumber)
	}

	old := card.Status
	card.Status = status
	card.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColCommandCards, card.ID, card); err != nil {
		return nil, err
	}

	severity := audit.SeverityInfo
	if status == models.CardLost || status == models.CardBlocked {
		severity = audit.SeverityWarning
	}
	s.auditCard(actor, "CARD_STATUS", card, severity,
		fmt.Sprintf("Card %s: %s -> %s", card.CardNumber, old, status))
	s.publishCardSync(actor, models.SyncUpdate, card)
	return card, nil
}

// BlockCard takes a card out of circulation.
func (s *CommandService) BlockCard(ctx context.Context, actor Actor, id string) (*models.CommandCard, error) {
	return s.SetCardStatus(ctx, actor, id, models.CardBlocked)
}

// UnblockCard returns a blocked card to the pool.
func (s *CommandService) UnblockCard(ctx context.Context, actor Actor, id string) (*models.CommandCard, error) {
	return s.SetCardStatus(ctx, actor, id, models.CardAvailable)
}

// OpenSession starts a tab on an available card and claims it.
func (s *CommandService) OpenSession(ctx context.Context, actor Actor, cardID string, req models.OpenSessionRequest) (*models.CommandSession, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if req.CreditLimit < 0 {
		return nil, NewValidationError("credit_limit", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.GetCard(ctx, actor.StoreID, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status != models.CardAvailable && card.Status != models.CardReserved {
		return nil, NewBusinessError("card %s is %s", card.CardNumber, card.Status)
	}

	now := s.clock.Now().UTC()
	session := &models.CommandSession{
		CardID:       card.ID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		TableID:      req.TableID,
		Status:       models.SessionOpen,
		CreditLimit:  req.CreditLimit,
		OpenedAt:     now,
		OpenedBy:     actor.UserID,
	}
	session.Init(uuid.NewString(), actor.StoreID, now)

	if err := putDoc(ctx, s.store, store.ColCommandSessions, session.ID, session); err != nil {
		return nil, err
	}

	card.Status = models.CardInUse
	card.CurrentSessionID = session.ID
	card.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCommandCards, card.ID, card); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicCommandSessionOpened, session)
	}
	s.auditSession(actor, "SESSION_OPEN", session, audit.SeverityInfo,
		fmt.Sprintf("Opened session on card %s", card.CardNumber))
	s.publishSessionSync(actor, models.SyncCreate, session)
	s.publishCardSync(actor, models.SyncUpdate, card)

	s.logger.Info("Command session opened",
		"session_id", session.ID, "card_number", card.CardNumber)
	return session, nil
}

// GetSession returns one session of the store.
func (s *CommandService) GetSession(ctx context.Context, storeID, id string) (*models.CommandSession, error) {
	var session models.CommandSession
	if err := getDoc(ctx, s.store, store.ColCommandSessions, id, &session); err != nil {
		return nil, err
	}
	if session.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &session, nil
}

// ListSessions returns the store's sessions, optionally filtered by
// status, newest first.
func (s *CommandService) ListSessions(ctx context.Context, storeID string, status models.SessionStatus) ([]*models.CommandSession, error) {
	filter := store.Filter{"store_id": storeID}
	if status != "" {
		filter["status"] = string(status)
	}
	docs, err := s.store.Query(ctx, store.ColCommandSessions, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*models.CommandSession, 0, len(docs))
	for _, doc := range docs {
		var session models.CommandSession
		if err := store.FromDocument(doc, &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].OpenedAt.After(sessions[j].OpenedAt) })
	return sessions, nil
}

// UpdateSession applies a version-checked partial update to an open
// session. Lowering the credit limit below the running total is refused.
func (s *CommandService) UpdateSession(ctx context.Context, actor Actor, id string, req models.UpdateSessionRequest) (*models.CommandSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.GetSession(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, NewBusinessError("session is %s", session.Status)
	}
	if s.locks != nil {
		if err := s.locks.ValidateVersion("command_session", session.ID, req.Version, session.Version, actor.UserID); err != nil {
			return nil, err
		}
	}

	if req.CustomerName != nil {
		session.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.TableID != nil {
		session.TableID = *req.TableID
	}
	if req.CreditLimit != nil {
		if *req.CreditLimit < 0 {
			return nil, NewValidationError("credit_limit", "must not be negative")
		}
		if *req.CreditLimit > 0 && *req.CreditLimit < session.TotalAmount {
			return nil, NewBusinessError("credit limit %.2f is below the running total %.2f",
				*req.CreditLimit, session.TotalAmount)
		}
		session.CreditLimit = *req.CreditLimit
	}

	session.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColCommandSessions, session.ID, session); err != nil {
		return nil, err
	}
	s.publishSessionSync(actor, models.SyncUpdate, session)
	return session, nil
}

// AddItem charges a line to an open session, enforcing the credit limit.
func (s *CommandService) AddItem(ctx context.Context, actor Actor, sessionID string, req models.AddItemRequest) (*models.CommandItem, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.Quantity < 1 {
		return nil, NewValidationError("quantity", "must be at least 1")
	}
	if req.UnitPrice < 0 {
		return nil, NewValidationError("unit_price", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.GetSession(ctx, actor.StoreID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, NewBusinessError("session is %s", session.Status)
	}

	now := s.clock.Now().UTC()
	item := &models.CommandItem{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		ProductID: req.ProductID,
		Name:      strings.TrimSpace(req.Name),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		AddedBy:   actor.UserID,
		AddedAt:   now,
		StoreID:   actor.StoreID,
	}

	newTotal := session.TotalAmount + item.Total()
	if session.CreditLimit > 0 && newTotal > session.CreditLimit {
		return nil, NewBusinessError("credit limit exceeded: %.2f + %.2f > %.2f",
			session.TotalAmount, item.Total(), session.CreditLimit)
	}

	if err := putDoc(ctx, s.store, store.ColCommandItems, item.ID, item); err != nil {
		return nil, err
	}
	session.TotalAmount = newTotal
	session.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCommandSessions, session.ID, session); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicCommandItemAdded, item)
	}
	s.publishSessionSync(actor, models.SyncUpdate, session)
	return item, nil
}

// ListItems returns a session's lines in the order they were added.
func (s *CommandService) ListItems(ctx context.Context, storeID, sessionID string) ([]*models.CommandItem, error) {
	if _, err := s.GetSession(ctx, storeID, sessionID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, store.ColCommandItems, store.Filter{
		"store_id":   storeID,
		"session_id": sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	items := make([]*models.CommandItem, 0, len(docs))
	for _, doc := range docs {
		var item models.CommandItem
		if err := store.FromDocument(doc, &item); err != nil {
			continue
		}
		items = append(items, &item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AddedAt.Before(items[j].AddedAt) })
	return items, nil
}

// CloseSession settles the tab and releases the card.
func (s *CommandService) CloseSession(ctx context.Context, actor Actor, sessionID string) (*models.CommandSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.GetSession(ctx, actor.StoreID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, NewBusinessError("session is %s", session.Status)
	}

	now := s.clock.Now().UTC()
	session.Status = models.SessionClosed
	session.ClosedAt = &now
	session.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCommandSessions, session.ID, session); err != nil {
		return nil, err
	}

	cardNumber := session.CardID
	if card, err := s.GetCard(ctx, actor.StoreID, session.CardID); err == nil {
		cardNumber = card.CardNumber
		card.Status = models.CardAvailable
		card.CurrentSessionID = ""
		card.Touch(now)
		if err := putDoc(ctx, s.store, store.ColCommandCards, card.ID, card); err != nil {
			s.logger.Error("Failed to release card after close", "card_id", card.ID, "error", err)
		} else {
			s.publishCardSync(actor, models.SyncUpdate, card)
		}
	} else {
		s.logger.Warn("Closing session whose card is missing", "session_id", session.ID, "card_id", session.CardID)
	}

	if s.bus != nil {
		s.bus.Publish(TopicCommandSessionClosed, session)
	}
	if s.audit != nil {
		s.audit.Log(audit.Entry{
			Action:      audit.ActionPayment,
			EntityType:  "command_session",
			EntityID:    session.ID,
			UserID:      actor.UserID,
			TerminalID:  actor.TerminalID,
			Severity:    audit.SeverityCritical,
			Description: fmt.Sprintf("Closed session on card %s, total %.2f", cardNumber, session.TotalAmount),
			NewValue: map[string]any{
				"total_amount": session.TotalAmount,
				"card_id":      session.CardID,
			},
		})
	}
	s.publishSessionSync(actor, models.SyncUpdate, session)

	s.logger.Info("Command session closed",
		"session_id", session.ID, "total_amount", session.TotalAmount)
	return session, nil
}

// TransferSession moves an open session to another available card, for
// example when the original card is lost mid-service. The source card is
// freed, the target claimed, and the move recorded.
func (s *CommandService) TransferSession(ctx context.Context, actor Actor, sessionID, toCardID, reason string) (*models.CommandSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.GetSession(ctx, actor.StoreID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, NewBusinessError("session is %s", session.Status)
	}
	if toCardID == session.CardID {
		return nil, NewValidationError("to_card_id", "session is already on this card")
	}

	target, err := s.GetCard(ctx, actor.StoreID, toCardID)
	if err != nil {
		return nil, err
	}
	if target.Status != models.CardAvailable && target.Status != models.CardReserved {
		return nil, NewBusinessError("card %s is %s", target.CardNumber, target.Status)
	}

	now := s.clock.Now().UTC()
	fromCardID := session.CardID

	target.Status = models.CardInUse
	target.CurrentSessionID = session.ID
	target.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCommandCards, target.ID, target); err != nil {
		return nil, err
	}

	session.CardID = target.ID
	session.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCommandSessions, session.ID, session); err != nil {
		return nil, err
	}

	// The source card keeps its administrative status when it was already
	// marked LOST or DAMAGED; otherwise it returns to the pool.
	if source, err := s.GetCard(ctx, actor.StoreID, fromCardID); err == nil {
		source.CurrentSessionID = ""
		if source.Status == models.CardInUse {
			source.Status = models.CardAvailable
		}
		source.Touch(now)
		if err := putDoc(ctx, s.store, store.ColCommandCards, source.ID, source); err != nil {
			s.logger.Error("Failed to release source card", "card_id", fromCardID, "error", err)
		} else {
			s.publishCardSync(actor, models.SyncUpdate, source)
		}
	}

	transfer := &models.SessionTransfer{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		FromCardID:    fromCardID,
		ToCardID:      target.ID,
		Reason:        reason,
		TransferredBy: actor.UserID,
		TransferredAt: now,
		StoreID:       actor.StoreID,
	}
	if err := putDoc(ctx, s.store, store.ColCommandTransfers, transfer.ID, transfer); err != nil {
		s.logger.Error("Failed to record session transfer", "session_id", session.ID, "error", err)
	}

	s.auditSession(actor, "SESSION_TRANSFER", session, audit.SeverityWarning,
		fmt.Sprintf("Transferred session to card %s: %s", target.CardNumber, reason))
	s.publishSessionSync(actor, models.SyncUpdate, session)
	s.publishCardSync(actor, models.SyncUpdate, target)
	return session, nil
}

func (s *CommandService) findCardByNumber(ctx context.Context, storeID, cardNumber string) (*models.CommandCard, error) {
	docs, err := s.store.Query(ctx, store.ColCommandCards, store.Filter{
		"store_id":    storeID,
		"card_number": cardNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up card number: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var card models.CommandCard
	if err := store.FromDocument(docs[0], &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *CommandService) publishCardSync(actor Actor, msgType models.SyncMessageType, card *models.CommandCard) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "command_card",
		EntityID: card.ID,
		Data:     syncData(card),
	})
}

func (s *CommandService) publishSessionSync(actor Actor, msgType models.SyncMessageType, session *models.CommandSession) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "command_session",
		EntityID: session.ID,
		Data:     syncData(session),
	})
}

func (s *CommandService) auditCard(actor Actor, action string, card *models.CommandCard, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "command_card",
		EntityID:    card.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"status": string(card.Status)},
	})
}

func (s *CommandService) auditSession(actor Actor, action string, session *models.CommandSession, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "command_session",
		EntityID:    session.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"status": string(session.Status), "total_amount": session.TotalAmount},
	})
}
