// Package cleanup runs the background maintenance sweeps.
package cleanup

import (
	"context"
	"log/slog"

	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/services"
)

// Service periodically enforces housekeeping policies:
//   - Expires CONFIRMED reservations past the no-show grace period
//   - Removes audit day files past the retention window
//
// Sweeps are idempotent; a tick that finds nothing to do is free.
type Service struct {
	cfg          *config.MaintenanceConfig
	clock        clock.Clock
	reservations *services.ReservationService
	auditLog     *audit.Logger
	logger       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the maintenance sweeper. auditLog may be nil when
// auditing is disabled.
func NewService(cfg *config.MaintenanceConfig, clk clock.Clock, reservations *services.ReservationService, auditLog *audit.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultMaintenanceConfig()
	}
	return &Service{
		cfg:          cfg,
		clock:        clk,
		reservations: reservations,
		auditLog:     auditLog,
		logger:       slog.Default().With("component", "maintenance"),
	}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Maintenance sweeper started",
		"interval", s.cfg.Interval,
		"stores", s.cfg.StoreIDs)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.logger.Info("Maintenance sweeper stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.RunAll(ctx)

	timer := s.clock.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			s.RunAll(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunAll performs one sweep of every policy. Exported so a deployment
// that schedules sweeps externally can trigger one directly.
func (s *Service) RunAll(ctx context.Context) {
	s.sweepNoShows(ctx)
	s.sweepAuditLogs()
}

func (s *Service) sweepNoShows(ctx context.Context) {
	if s.reservations == nil {
		return
	}
	for _, storeID := range s.cfg.StoreIDs {
		actor := services.Actor{StoreID: storeID, UserID: "system", TerminalID: "maintenance"}
		count, err := s.reservations.ProcessNoShows(ctx, actor, storeID)
		if err != nil {
			s.logger.Error("No-show sweep failed", "store_id", storeID, "error", err)
			continue
		}
		if count > 0 {
			s.logger.Info("No-show sweep expired reservations",
				"store_id", storeID, "count", count)
		}
	}
}

func (s *Service) sweepAuditLogs() {
	if s.auditLog == nil {
		return
	}
	count, err := s.auditLog.CleanupOldLogs()
	if err != nil {
		s.logger.Error("Audit retention sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Audit retention removed day files", "count", count)
	}
}
