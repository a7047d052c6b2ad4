package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// Config controls the pipeline's retry schedule.
type Config struct {
	RetryDelay time.Duration
	MaxRetries int
}

// DefaultConfig returns the production retry schedule.
func DefaultConfig() Config {
	return Config{
		RetryDelay: 5 * time.Second,
		MaxRetries: 3,
	}
}

// Request describes one queue notification to deliver.
type Request struct {
	QueueEntryID string
	StoreID      string
	Method       models.NotificationMethod
	Phone        string
	CustomerName string
	Message      string
}

// Pipeline delivers customer notifications in the background, retrying
// on a constant schedule and tracking every attempt on a persisted
// notification record. Errors never propagate to callers; delivery
// state is readable from the record.
type Pipeline struct {
	store     store.Store
	clock     clock.Clock
	cfg       Config
	providers map[models.NotificationMethod]Provider
	logger    *slog.Logger

	// Delivery cancel registry: queue entry id → in-flight delivery.
	mu       sync.Mutex
	inFlight map[string]*delivery
	wg       sync.WaitGroup

	baseCtx context.Context
	stop    context.CancelFunc
}

// NewPipeline creates a notification pipeline over the given providers.
// Methods without a provider fall back to NONE.
func NewPipeline(st store.Store, clk clock.Clock, cfg Config, providers map[models.NotificationMethod]Provider) *Pipeline {
	def := DefaultConfig()
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Pipeline{
		store:     st,
		clock:     clk,
		cfg:       cfg,
		providers: providers,
		logger:    slog.Default().With("component", "notify-pipeline"),
		inFlight:  make(map[string]*delivery),
		baseCtx:   baseCtx,
		stop:      stop,
	}
}

type delivery struct {
	cancel context.CancelFunc
}

// Dispatch persists a PENDING notification record for the queue entry
// and delivers the message in the background. The returned record
// reflects the state at dispatch time; later attempts update the
// persisted copy.
func (p *Pipeline) Dispatch(ctx context.Context, req Request) *models.NotificationRecord {
	method := req.Method
	if method == "" {
		method = models.NotifyNone
	}

	rec := &models.NotificationRecord{
		ID:               uuid.NewString(),
		QueueEntryID:     req.QueueEntryID,
		NotificationType: method,
		Status:           models.NotificationPending,
		Message:          req.Message,
		CreatedAt:        p.clock.Now().UTC(),
		StoreID:          req.StoreID,
	}
	p.saveRecord(ctx, rec)

	msg := Message{
		Phone:        FormatPhone(req.Phone),
		CustomerName: req.CustomerName,
		Body:         req.Message,
	}

	deliveryCtx, cancel := context.WithCancel(p.baseCtx)
	d := &delivery{cancel: cancel}
	p.register(req.QueueEntryID, d)
	p.wg.Add(1)
	go p.deliver(deliveryCtx, d, rec, p.provider(method), msg)

	return rec
}

// Deliver sends a one-off message outside the queue flow (reservation
// confirmations, reminders). Same retry schedule, no persisted record.
func (p *Pipeline) Deliver(method models.NotificationMethod, phone, name, body string) {
	provider := p.provider(method)
	msg := Message{Phone: FormatPhone(phone), CustomerName: name, Body: body}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("One-off delivery panicked", "method", string(method), "panic", r)
			}
		}()

		operation := func() error { return provider.Send(p.baseCtx, msg) }
		if err := backoff.Retry(operation, p.retryPolicy(p.baseCtx)); err != nil {
			p.logger.Warn("One-off notification failed after retries",
				"method", string(method),
				"error", err)
		}
	}()
}

// Cancel aborts the in-flight delivery for a queue entry, if any.
// Called when the entry leaves NOTIFIED so retries do not outlive it.
func (p *Pipeline) Cancel(queueEntryID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.inFlight[queueEntryID]; ok {
		d.cancel()
		return true
	}
	return false
}

// InFlight returns the number of deliveries with a registered cancel.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

// Close cancels all in-flight deliveries and waits for them to unwind.
func (p *Pipeline) Close() {
	p.stop()
	p.wg.Wait()
}

func (p *Pipeline) deliver(ctx context.Context, d *delivery, rec *models.NotificationRecord, provider Provider, msg Message) {
	defer p.wg.Done()
	defer p.unregister(rec.QueueEntryID, d)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Notification delivery panicked",
				"notification_id", rec.ID,
				"panic", r)
		}
	}()

	failures := 0
	operation := func() error {
		err := provider.Send(ctx, msg)
		if err == nil {
			return nil
		}
		failures++
		if failures <= p.cfg.MaxRetries {
			rec.RetryCount = failures
			p.saveRecord(ctx, rec)
		}
		p.logger.Warn("Notification send failed",
			"notification_id", rec.ID,
			"queue_entry_id", rec.QueueEntryID,
			"method", string(rec.NotificationType),
			"retry_count", rec.RetryCount,
			"error", err)
		return err
	}

	err := backoff.Retry(operation, p.retryPolicy(ctx))
	if ctx.Err() != nil {
		p.logger.Info("Notification delivery cancelled",
			"notification_id", rec.ID,
			"queue_entry_id", rec.QueueEntryID)
		return
	}

	now := p.clock.Now().UTC()
	if err != nil {
		rec.Status = models.NotificationFailed
		rec.ErrorMessage = err.Error()
		p.logger.Error("Notification failed after retries",
			"notification_id", rec.ID,
			"queue_entry_id", rec.QueueEntryID,
			"retry_count", rec.RetryCount)
	} else {
		rec.Status = models.NotificationSent
		rec.SentAt = &now
	}
	p.saveRecord(ctx, rec)
}

func (p *Pipeline) retryPolicy(ctx context.Context) backoff.BackOffContext {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.RetryDelay), uint64(p.cfg.MaxRetries))
	return backoff.WithContext(policy, ctx)
}

func (p *Pipeline) provider(method models.NotificationMethod) Provider {
	if prov, ok := p.providers[method]; ok {
		return prov
	}
	if method != models.NotifyNone {
		p.logger.Warn("No provider for notification method, treating as NONE", "method", string(method))
	}
	return NoneProvider{}
}

func (p *Pipeline) register(queueEntryID string, d *delivery) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.inFlight[queueEntryID]; ok {
		prev.cancel()
	}
	p.inFlight[queueEntryID] = d
}

// unregister removes the delivery only if it still owns the slot; a
// replacement dispatched meanwhile keeps its own registration.
func (p *Pipeline) unregister(queueEntryID string, d *delivery) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[queueEntryID] == d {
		delete(p.inFlight, queueEntryID)
	}
}

func (p *Pipeline) saveRecord(ctx context.Context, rec *models.NotificationRecord) {
	doc, err := store.ToDocument(rec)
	if err != nil {
		p.logger.Error("Failed to encode notification record",
			"notification_id", rec.ID,
			"error", err)
		return
	}
	if err := p.store.Upsert(ctx, store.ColQueueNotifications, rec.ID, doc); err != nil {
		p.logger.Error("Failed to persist notification record",
			"notification_id", rec.ID,
			"error", err)
	}
}
