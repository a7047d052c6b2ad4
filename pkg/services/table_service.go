package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// TableService maintains the table registry that feeds queue suggestions
// and reservation allocation.
type TableService struct {
	store  store.Store
	clock  clock.Clock
	sync   SyncPublisher
	logger *slog.Logger
}

// NewTableService creates a new TableService
func NewTableService(st store.Store, clk clock.Clock, sync SyncPublisher) *TableService {
	return &TableService{
		store:  st,
		clock:  clk,
		sync:   sync,
		logger: slog.Default().With("component", "table_service"),
	}
}

// UpsertTable registers a table or updates an existing one with the same
// floor number.
func (s *TableService) UpsertTable(ctx context.Context, actor Actor, req models.UpsertTableRequest) (*models.Table, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if req.Number < 1 {
		return nil, NewValidationError("number", "must be at least 1")
	}
	if req.Capacity < 1 {
		return nil, NewValidationError("capacity", "must be at least 1")
	}
	status := req.Status
	if status == "" {
		status = models.TableAvailable
	}
	switch status {
	case models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableBlocked:
	default:
		return nil, NewValidationError("status", fmt.Sprintf("unknown table status %q", status))
	}

	now := s.clock.Now().UTC()
	table, err := s.findByNumber(ctx, actor.StoreID, req.Number)
	if err != nil {
		return nil, err
	}

	msgType := models.SyncUpdate
	if table == nil {
		table = &models.Table{}
		table.Init(uuid.NewString(), actor.StoreID, now)
		table.Number = req.Number
		msgType = models.SyncCreate
	} else {
		table.Touch(now)
	}
	table.Capacity = req.Capacity
	table.Features = req.Features
	table.Status = status

	if err := putDoc(ctx, s.store, store.ColReservationTables, table.ID, table); err != nil {
		return nil, err
	}

	s.publish(actor, msgType, table)
	return table, nil
}

// ListTables returns the store's tables ordered by floor number.
func (s *TableService) ListTables(ctx context.Context, storeID string) ([]*models.Table, error) {
	docs, err := s.store.Query(ctx, store.ColReservationTables, store.Filter{"store_id": storeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]*models.Table, 0, len(docs))
	for _, doc := range docs {
		var t models.Table
		if err := store.FromDocument(doc, &t); err != nil {
			s.logger.Warn("Skipping undecodable table document", "error", err)
			continue
		}
		tables = append(tables, &t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
	return tables, nil
}

// GetTable returns one table of the store.
func (s *TableService) GetTable(ctx context.Context, storeID, id string) (*models.Table, error) {
	var t models.Table
	if err := getDoc(ctx, s.store, store.ColReservationTables, id, &t); err != nil {
		return nil, err
	}
	if t.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &t, nil
}

// SetStatus moves a table to a new floor state.
func (s *TableService) SetStatus(ctx context.Context, actor Actor, id string, status models.TableStatus) (*models.Table, error) {
	switch status {
	case models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableBlocked:
	default:
		return nil, NewValidationError("status", fmt.Sprintf("unknown table status %q", status))
	}

	table, err := s.GetTable(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if table.Status == status {
		return table, nil
	}

	table.Status = status
	table.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColReservationTables, table.ID, table); err != nil {
		return nil, err
	}

	s.publish(actor, models.SyncUpdate, table)
	return table, nil
}

// AvailableTables returns the tables currently free for seating.
func (s *TableService) AvailableTables(ctx context.Context, storeID string) ([]*models.Table, error) {
	tables, err := s.ListTables(ctx, storeID)
	if err != nil {
		return nil, err
	}
	free := tables[:0]
	for _, t := range tables {
		if t.Status == models.TableAvailable {
			free = append(free, t)
		}
	}
	return free, nil
}

func (s *TableService) findByNumber(ctx context.Context, storeID string, number int) (*models.Table, error) {
	docs, err := s.store.Query(ctx, store.ColReservationTables, store.Filter{
		"store_id": storeID,
		"number":   number,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %d: %w", number, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var t models.Table
	if err := store.FromDocument(docs[0], &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TableService) publish(actor Actor, msgType models.SyncMessageType, table *models.Table) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "table",
		EntityID: table.ID,
		Data:     syncData(table),
	})
}
