// Package api exposes the coordination core over HTTP and WebSocket:
// REST resources for the queue, reservations, command cards, remote
// orders, coupons and the table registry, the editing-lease endpoints,
// the audit admin surface, and the /ws/sync hub endpoint.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/hub"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/services"
	"github.com/posfloor/maitre/pkg/store"
)

// Server is the HTTP/WS front of the coordination core. Handlers stay
// thin: bind, extract identity, call the service, map the error.
type Server struct {
	echo   *echo.Echo
	cfg    *config.ServerConfig
	logger *slog.Logger

	store              store.Store
	queueService       *services.QueueService
	reservationService *services.ReservationService
	tableService       *services.TableService
	commandService     *services.CommandService
	remoteOrderService *services.RemoteOrderService
	couponService      *services.CouponService

	locks    *lock.Manager
	auditLog *audit.Logger
	syncHub  *hub.Hub
	syncCfg  *config.SyncConfig

	httpServer *http.Server
}

// NewServer creates a new API server and registers all routes.
func NewServer(cfg *config.ServerConfig, st store.Store,
	queueSvc *services.QueueService, reservationSvc *services.ReservationService,
	tableSvc *services.TableService, commandSvc *services.CommandService,
	remoteOrderSvc *services.RemoteOrderService, couponSvc *services.CouponService) *Server {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}

	s := &Server{
		echo:               echo.New(),
		cfg:                cfg,
		logger:             slog.Default().With("component", "api"),
		store:              st,
		queueService:       queueSvc,
		reservationService: reservationSvc,
		tableService:       tableSvc,
		commandService:     commandSvc,
		remoteOrderService: remoteOrderSvc,
		couponService:      couponSvc,
	}

	s.echo.Use(securityHeaders())
	s.echo.Use(requestLogger(s.logger))
	s.routes()
	return s
}

// SetLockManager wires the editing-lease endpoints.
func (s *Server) SetLockManager(m *lock.Manager) { s.locks = m }

// SetAuditLog wires the audit admin surface.
func (s *Server) SetAuditLog(l *audit.Logger) { s.auditLog = l }

// SetSyncHub wires the /ws/sync endpoint.
func (s *Server) SetSyncHub(h *hub.Hub, cfg *config.SyncConfig) {
	s.syncHub = h
	s.syncCfg = cfg
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) routes() {
	e := s.echo

	// Waiting list.
	e.POST("/api/v1/queue", s.addQueueEntryHandler)
	e.GET("/api/v1/queue", s.listQueueHandler)
	e.GET("/api/v1/queue/estimate", s.queueEstimateHandler)
	e.GET("/api/v1/queue/stats", s.queueStatsHandler)
	e.GET("/api/v1/queue/:id", s.getQueueEntryHandler)
	e.POST("/api/v1/queue/:id/notify", s.notifyQueueEntryHandler)
	e.POST("/api/v1/queue/:id/seat", s.seatQueueEntryHandler)
	e.DELETE("/api/v1/queue/:id", s.cancelQueueEntryHandler)
	e.GET("/api/v1/queue/:id/table-suggestions", s.queueTableSuggestionsHandler)

	// Reservations.
	e.POST("/api/v1/reservations", s.createReservationHandler)
	e.GET("/api/v1/reservations", s.listReservationsHandler)
	e.GET("/api/v1/reservations/availability", s.availabilityHandler)
	e.GET("/api/v1/reservations/stats", s.reservationStatsHandler)
	e.POST("/api/v1/reservations/no-show-sweep", s.noShowSweepHandler)
	e.POST("/api/v1/reservations/blocked-slots", s.blockSlotHandler)
	e.DELETE("/api/v1/reservations/blocked-slots/:id", s.unblockSlotHandler)
	e.GET("/api/v1/reservations/code/:code", s.getReservationByCodeHandler)
	e.GET("/api/v1/reservations/:id", s.getReservationHandler)
	e.PUT("/api/v1/reservations/:id", s.updateReservationHandler)
	e.DELETE("/api/v1/reservations/:id", s.cancelReservationHandler)
	e.POST("/api/v1/reservations/:id/confirm", s.confirmReservationHandler)
	e.POST("/api/v1/reservations/:id/arrive", s.arriveReservationHandler)
	e.POST("/api/v1/reservations/:id/seat", s.seatReservationHandler)
	e.POST("/api/v1/reservations/:id/complete", s.completeReservationHandler)
	e.POST("/api/v1/reservations/:id/no-show", s.noShowReservationHandler)
	e.POST("/api/v1/reservations/:id/tables", s.assignTablesHandler)

	// Command cards and sessions.
	e.POST("/api/v1/command-cards", s.registerCardHandler)
	e.GET("/api/v1/command-cards", s.listCardsHandler)
	e.GET("/api/v1/command-cards/number/:number", s.getCardByNumberHandler)
	e.GET("/api/v1/command-cards/sessions", s.listCommandSessionsHandler)
	e.GET("/api/v1/command-cards/sessions/:id", s.getCommandSessionHandler)
	e.PUT("/api/v1/command-cards/sessions/:id", s.updateCommandSessionHandler)
	e.POST("/api/v1/command-cards/sessions/:id/items", s.addCommandItemHandler)
	e.GET("/api/v1/command-cards/sessions/:id/items", s.listCommandItemsHandler)
	e.POST("/api/v1/command-cards/sessions/:id/close", s.closeCommandSessionHandler)
	e.POST("/api/v1/command-cards/sessions/:id/transfer", s.transferCommandSessionHandler)
	e.GET("/api/v1/command-cards/:id", s.getCardHandler)
	e.POST("/api/v1/command-cards/:id/block", s.blockCardHandler)
	e.POST("/api/v1/command-cards/:id/unblock", s.unblockCardHandler)
	e.POST("/api/v1/command-cards/:id/status", s.setCardStatusHandler)
	e.POST("/api/v1/command-cards/:id/sessions", s.openCommandSessionHandler)

	// Remote orders.
	e.POST("/api/v1/remote-orders", s.ingestRemoteOrderHandler)
	e.GET("/api/v1/remote-orders", s.listRemoteOrdersHandler)
	e.PUT("/api/v1/remote-orders/platforms/:platform", s.setPlatformConfigHandler)
	e.GET("/api/v1/remote-orders/:id", s.getRemoteOrderHandler)
	e.GET("/api/v1/remote-orders/:id/items", s.listRemoteOrderItemsHandler)
	e.POST("/api/v1/remote-orders/:id/status", s.remoteOrderStatusHandler)

	// Coupons.
	e.POST("/api/v1/coupons", s.createCouponHandler)
	e.GET("/api/v1/coupons", s.listCouponsHandler)
	e.GET("/api/v1/coupons/validate", s.validateCouponHandler)
	e.POST("/api/v1/coupons/redeem", s.redeemCouponHandler)
	e.GET("/api/v1/coupons/:id", s.getCouponHandler)
	e.GET("/api/v1/coupons/:id/redemptions", s.listCouponRedemptionsHandler)
	e.DELETE("/api/v1/coupons/:id", s.deactivateCouponHandler)

	// Table registry.
	e.GET("/api/v1/tables", s.listTablesHandler)
	e.POST("/api/v1/tables", s.upsertTableHandler)
	e.GET("/api/v1/tables/available", s.availableTablesHandler)
	e.POST("/api/v1/tables/:id/status", s.tableStatusHandler)

	// Editing leases.
	e.POST("/api/v1/locks/acquire", s.acquireLockHandler)
	e.POST("/api/v1/locks/validate", s.validateVersionHandler)
	e.POST("/api/v1/locks/release", s.releaseLockHandler)
	e.GET("/api/v1/locks/info", s.lockInfoHandler)
	e.POST("/api/v1/locks/resolve", s.resolveConflictHandler)

	// Audit admin surface.
	e.GET("/api/v1/audit/search", s.auditSearchHandler)
	e.GET("/api/v1/audit/statistics", s.auditStatisticsHandler)

	// Sync hub.
	e.GET("/ws/sync", s.wsHandler)
	e.GET("/ws/sync/status", s.wsStatusHandler)

	e.GET("/health", s.healthHandler)
}

// Start runs the HTTP listener until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	}
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
		// WriteTimeout stays unset: /ws/sync connections are long-lived.
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
