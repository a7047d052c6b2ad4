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
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// RemoteOrderService mirrors delivery-platform orders into the POS.
// Ingestion is idempotent on (platform, external_id) per store so a
// platform webhook retrying a delivery never duplicates an order.
type RemoteOrderService struct {
	store  store.Store
	clock  clock.Clock
	bus    *bus.Bus
	audit  AuditTrail
	sync   SyncPublisher
	logger *slog.Logger

	mu sync.Mutex
}

// NewRemoteOrderService creates a new RemoteOrderService
func NewRemoteOrderService(st store.Store, clk clock.Clock, evts *bus.Bus, trail AuditTrail, sync SyncPublisher) *RemoteOrderService {
	return &RemoteOrderService{
		store:  st,
		clock:  clk,
		bus:    evts,
		audit:  trail,
		sync:   sync,
		logger: slog.Default().With("component", "remoteorder_service"),
	}
}

// Ingest stores an incoming platform order with its items. Replays of an
// already-seen (platform, external_id) return the stored order unchanged.
func (s *RemoteOrderService) Ingest(ctx context.Context, actor Actor, req models.IngestRemoteOrderRequest) (*models.RemoteOrder, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	switch req.Platform {
	case models.PlatformIfood, models.PlatformRappi, models.PlatformOther:
	default:
		return nil, NewValidationError("platform", fmt.Sprintf("invalid platform %q", req.Platform))
	}
	if strings.TrimSpace(req.ExternalID) == "" {
		return nil, NewValidationError("external_id", "required")
	}
	if len(req.Items) == 0 {
		return nil, NewValidationError("items", "required")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, NewValidationError("items", fmt.Sprintf("item %d: name required", i))
		}
		if item.Quantity < 1 {
			return nil, NewValidationError("items", fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if item.UnitPrice < 0 {
			return nil, NewValidationError("items", fmt.Sprintf("item %d: unit_price must not be negative", i))
		}
	}

	platformCfg := s.platformConfig(ctx, actor.StoreID, req.Platform)
	if platformCfg != nil && !platformCfg.Enabled {
		return nil, NewBusinessError("platform %s is disabled for this store", req.Platform)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.findByExternalID(ctx, actor.StoreID, req.Platform, req.ExternalID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Info("Duplicate remote order ignored",
			"platform", req.Platform, "external_id", req.ExternalID, "order_id", existing.ID)
		return existing, nil
	}

	now := s.clock.Now().UTC()
	order := &models.RemoteOrder{
		Platform:     req.Platform,
		ExternalID:   strings.TrimSpace(req.ExternalID),
		CustomerName: strings.TrimSpace(req.CustomerName),
		Status:       models.RemoteReceived,
		ReceivedAt:   now,
		Metadata:     req.Metadata,
	}
	order.Init(uuid.NewString(), actor.StoreID, now)
	if platformCfg != nil && platformCfg.AutoConfirm {
		order.Status = models.RemoteConfirmed
	}

	for _, in := range req.Items {
		item := &models.RemoteOrderItem{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			Name:       strings.TrimSpace(in.Name),
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			Notes:      in.Notes,
			ExternalID: in.ExternalID,
			StoreID:    actor.StoreID,
		}
		order.TotalAmount += float64(item.Quantity) * item.UnitPrice
		if err := putDoc(ctx, s.store, store.ColRemoteOrderItems, item.ID, item); err != nil {
			return nil, err
		}
	}

	if err := putDoc(ctx, s.store, store.ColRemoteOrders, order.ID, order); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicRemoteOrderReceived, order)
	}
	s.auditOrder(actor, "REMOTE_ORDER_INGEST", order, audit.SeverityInfo,
		fmt.Sprintf("Ingested %s order %s (%d items, total %.2f)",
			order.Platform, order.ExternalID, len(req.Items), order.TotalAmount))
	s.publishOrderSync(actor, models.SyncCreate, order)

	s.logger.Info("Remote order ingested",
		"order_id", order.ID, "platform", order.Platform, "status", order.Status)
	return order, nil
}

// GetOrder returns one order of the store.
func (s *RemoteOrderService) GetOrder(ctx context.Context, storeID, id string) (*models.RemoteOrder, error) {
	var order models.RemoteOrder
	if err := getDoc(ctx, s.store, store.ColRemoteOrders, id, &order); err != nil {
		return nil, err
	}
	if order.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &order, nil
}

// ListOrders returns the store's orders, optionally filtered by platform
// and status, newest first.
func (s *RemoteOrderService) ListOrders(ctx context.Context, storeID string, platform models.RemotePlatform, status models.RemoteOrderStatus) ([]*models.RemoteOrder, error) {
	filter := store.Filter{"store_id": storeID}
	if platform != "" {
		filter["platform"] = string(platform)
	}
	if status != "" {
		filter["status"] = string(status)
	}
	docs, err := s.store.Query(ctx, store.ColRemoteOrders, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote orders: %w", err)
	}
	orders := make([]*models.RemoteOrder, 0, len(docs))
	for _, doc := range docs {
		var order models.RemoteOrder
		if err := store.FromDocument(doc, &order); err != nil {
			s.logger.Warn("Skipping undecodable remote order document", "error", err)
			continue
		}
		orders = append(orders, &order)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ReceivedAt.After(orders[j].ReceivedAt) })
	return orders, nil
}

// ListItems returns an order's lines.
func (s *RemoteOrderService) ListItems(ctx context.Context, storeID, orderID string) ([]*models.RemoteOrderItem, error) {
	if _, err := s.GetOrder(ctx, storeID, orderID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, store.ColRemoteOrderItems, store.Filter{
		"store_id": storeID,
		"order_id": orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	items := make([]*models.RemoteOrderItem, 0, len(docs))
	for _, doc := range docs {
		var item models.RemoteOrderItem
		if err := store.FromDocument(doc, &item); err != nil {
			continue
		}
		items = append(items, &item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// UpdateStatus walks the order along its status chain.
func (s *RemoteOrderService) UpdateStatus(ctx context.Context, actor Actor, id string, next models.RemoteOrderStatus) (*models.RemoteOrder, error) {
	switch next {
	case models.RemoteConfirmed, models.RemotePreparing, models.RemoteReady,
		models.RemoteDispatched, models.RemoteDelivered, models.RemoteCancelled:
	default:
		return nil, NewValidationError("status", fmt.Sprintf("invalid status %q", next))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.GetOrder(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, NewBusinessError("cannot transition remote order from %s to %s", order.Status, next)
	}

	old := order.Status
	order.Status = next
	order.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColRemoteOrders, order.ID, order); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicRemoteOrderStatus, order)
	}
	severity := audit.SeverityInfo
	if next == models.RemoteCancelled {
		severity = audit.SeverityWarning
	}
	s.auditOrder(actor, "REMOTE_ORDER_STATUS", order, severity,
		fmt.Sprintf("%s order %s: %s -> %s", order.Platform, order.ExternalID, old, next))
	s.publishOrderSync(actor, models.SyncUpdate, order)
	return order, nil
}

// SetPlatformConfig stores the per-platform ingestion policy.
func (s *RemoteOrderService) SetPlatformConfig(ctx context.Context, actor Actor, platform models.RemotePlatform, enabled, autoConfirm bool) (*models.RemotePlatformConfig, error) {
	switch platform {
	case models.PlatformIfood, models.PlatformRappi, models.PlatformOther:
	default:
		return nil, NewValidationError("platform", fmt.Sprintf("invalid platform %q", platform))
	}

	now := s.clock.Now().UTC()
	id := actor.StoreID + ":" + string(platform)

	cfg := &models.RemotePlatformConfig{
		Platform:    platform,
		Enabled:     enabled,
		AutoConfirm: autoConfirm,
	}
	var existing models.RemotePlatformConfig
	if err := getDoc(ctx, s.store, store.ColRemotePlatformConfigs, id, &existing); err == nil {
		cfg.Entity = existing.Entity
		cfg.Touch(now)
	} else {
		cfg.Init(id, actor.StoreID, now)
	}

	if err := putDoc(ctx, s.store, store.ColRemotePlatformConfigs, id, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("Platform config updated",
		"platform", platform, "enabled", enabled, "auto_confirm", autoConfirm)
	return cfg, nil
}

// platformConfig loads the ingestion policy; nil means no policy stored
// (ingest enabled, no auto-confirm).
func (s *RemoteOrderService) platformConfig(ctx context.Context, storeID string, platform models.RemotePlatform) *models.RemotePlatformConfig {
	var cfg models.RemotePlatformConfig
	id := storeID + ":" + string(platform)
	if err := getDoc(ctx, s.store, store.ColRemotePlatformConfigs, id, &cfg); err != nil {
		return nil
	}
	return &cfg
}

func (s *RemoteOrderService) findByExternalID(ctx context.Context, storeID string, platform models.RemotePlatform, externalID string) (*models.RemoteOrder, error) {
	docs, err := s.store.Query(ctx, store.ColRemoteOrders, store.Filter{
		"store_id":    storeID,
		"platform":    string(platform),
		"external_id": strings.TrimSpace(externalID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up external id: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var order models.RemoteOrder
	if err := store.FromDocument(docs[0], &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *RemoteOrderService) publishOrderSync(actor Actor, msgType models.SyncMessageType, order *models.RemoteOrder) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "remote_order",
		EntityID: order.ID,
		Data:     syncData(order),
	})
}

func (s *RemoteOrderService) auditOrder(actor Actor, action string, order *models.RemoteOrder, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "remote_order",
		EntityID:    order.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"status": string(order.Status), "platform": string(order.Platform)},
	})
}
