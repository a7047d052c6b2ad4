// Maitre coordination server — provides the HTTP API, the terminal sync
// hub, and the background maintenance sweeps for one restaurant cluster.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/api"
	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/cleanup"
	"github.com/posfloor/maitre/pkg/config"
	"github.com/posfloor/maitre/pkg/hub"
	"github.com/posfloor/maitre/pkg/lock"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/notify"
	"github.com/posfloor/maitre/pkg/services"
	"github.com/posfloor/maitre/pkg/store"
	"github.com/posfloor/maitre/pkg/timers"
	"github.com/posfloor/maitre/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// openStore builds the document store selected by the configuration.
// Postgres connection settings come from DB_* environment variables.
func openStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		return store.NewBoltStore(cfg.BoltPath)
	case config.BackendPostgres:
		pgCfg, err := store.LoadPostgresConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(ctx, pgCfg)
	default:
		slog.Warn("Using the in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}

// buildProviders assembles the notification providers that have
// credentials. Providers without credentials run in simulation mode;
// the announcer is omitted entirely when unconfigured.
func buildProviders(cfg *config.NotificationsConfig) map[models.NotificationMethod]notify.Provider {
	providers := map[models.NotificationMethod]notify.Provider{
		models.NotifySMS: notify.NewSMSProvider(notify.SMSConfig{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			FromNumber: cfg.SMS.FromNumber,
		}),
		models.NotifyWhatsApp: notify.NewWhatsAppProvider(notify.WhatsAppConfig{
			APIURL:   cfg.WhatsApp.APIURL,
			APIToken: cfg.WhatsApp.APIToken,
		}),
	}
	if a := notify.NewAnnouncer(cfg.Announce.Token, cfg.AnnouncementChannel); a != nil {
		providers[models.NotifyAnnouncement] = a
	}
	return providers
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting maitre",
		"version", version.Full(),
		"config_dir", *configDir)

	ctx := context.Background()
	clk := clock.WallClock

	// 1. Initialize configuration
	cfg, err := config.Initialize(*configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Open the document store
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("Failed to open document store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Error closing document store", "error", err)
		}
	}()
	slog.Info("Document store ready", "backend", cfg.Store.Backend)

	// 3. Start the audit pipeline
	auditLog, err := audit.NewLogger(audit.Config{
		LogDir:        cfg.Audit.LogDir,
		BufferSize:    cfg.Audit.BufferSize,
		FlushInterval: cfg.Audit.FlushInterval,
		MaxFileSizeMB: cfg.Audit.MaxFileSizeMB,
		RetentionDays: cfg.Audit.RetentionDays,
	}, clk)
	if err != nil {
		slog.Error("Failed to create audit logger", "error", err)
		os.Exit(1)
	}
	auditLog.Start(ctx)
	defer auditLog.Close()

	// 4. Core coordination infrastructure
	locks := lock.NewManager(clk, cfg.Locking.LeaseTimeout)
	events := bus.New()
	registry := timers.NewRegistry(clk)
	defer registry.Stop()
	syncHub := hub.NewHub(clk, auditLog, cfg.Sync.WriteTimeout)

	// 5. Notification pipeline
	pipeline := notify.NewPipeline(st, clk, notify.Config{
		RetryDelay: cfg.Notifications.RetryDelay,
		MaxRetries: cfg.Notifications.MaxRetries,
	}, buildProviders(cfg.Notifications))
	defer pipeline.Close()

	// 6. Domain services
	queueService := services.NewQueueService(st, clk, cfg.Queue, events, auditLog, syncHub, registry, pipeline)
	reservationService := services.NewReservationService(st, clk, cfg.Reservations, events, auditLog, syncHub,
		locks, registry, pipeline, queueService)
	tableService := services.NewTableService(st, clk, syncHub)
	commandService := services.NewCommandService(st, clk, events, auditLog, syncHub, locks)
	remoteOrderService := services.NewRemoteOrderService(st, clk, events, auditLog, syncHub)
	couponService := services.NewCouponService(st, clk, events, auditLog, syncHub)
	slog.Info("Services initialized")

	// 7. HTTP server
	httpServer := api.NewServer(cfg.Server, st,
		queueService, reservationService, tableService,
		commandService, remoteOrderService, couponService)
	httpServer.SetLockManager(locks)
	httpServer.SetAuditLog(auditLog)
	httpServer.SetSyncHub(syncHub, cfg.Sync)

	// 8. Maintenance sweeper
	sweeper := cleanup.NewService(cfg.Maintenance, clk, reservationService, auditLog)
	sweeper.Start(ctx)

	// 9. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		addr := getEnv("HTTP_ADDR", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Maitre started successfully",
		"store_backend", cfg.Store.Backend,
		"reservations_disabled", cfg.Reservations.Disabled)

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown: stop accepting requests first, then the
	// background loops; deferred closes flush audit and the store last.
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	sweeperDone := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(sweeperDone)
	}()
	select {
	case <-sweeperDone:
		slog.Info("Maintenance sweeper stopped gracefully")
	case <-time.After(5 * time.Second):
		slog.Warn("Maintenance sweeper shutdown timeout exceeded")
	}

	slog.Info("Shutdown complete")
}
