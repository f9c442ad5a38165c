package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/events"
	"github.com/campverse/api/internal/repositories"
)

const (
	defaultSweepInterval  = 5 * time.Minute
	defaultUnpaidTimeout  = 15 * time.Minute
	defaultSweepBatchSize = 100
	sweeperMeterName      = "github.com/campverse/api/internal/services/order_sweeper"
)

// OrderSweeperDeps bundles collaborators for the unpaid order sweeper.
type OrderSweeperDeps struct {
	Orders    repositories.OrderRepository
	Notifier  Notifier
	Events    events.Publisher
	Interval  time.Duration
	Timeout   time.Duration
	BatchSize int
	Meter     metric.Meter
	Clock     func() time.Time
	Logger    Logger
	// IDGenerator names emitted event envelopes.
	IDGenerator func() string
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned int
	Expired int
	Failed  int
}

// OrderSweeper periodically deletes unconfirmed cash-on-delivery orders older than the
// unpaid timeout and returns their stock.
type OrderSweeper struct {
	orders    repositories.OrderRepository
	notifier  Notifier
	events    eventEmitter
	interval  time.Duration
	timeout   time.Duration
	batchSize int
	clock     func() time.Time
	logger    Logger

	expiredCounter metric.Int64Counter
	failedCounter  metric.Int64Counter

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
	lastRun time.Time
	lastErr error
}

// NewOrderSweeper validates dependencies and applies defaults.
func NewOrderSweeper(deps OrderSweeperDeps) (*OrderSweeper, error) {
	if deps.Orders == nil {
		return nil, errors.New("order sweeper: order repository is required")
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultUnpaidTimeout
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatchSize
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(sweeperMeterName)
	}

	expired, err := meter.Int64Counter("orders.sweeper.expired",
		metric.WithDescription("Unpaid orders removed by the sweeper"),
		metric.WithUnit("{order}"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("orders.sweeper.failures",
		metric.WithDescription("Orders the sweeper failed to expire"),
		metric.WithUnit("{order}"))
	if err != nil {
		return nil, err
	}

	return &OrderSweeper{
		orders:         deps.Orders,
		notifier:       deps.Notifier,
		events:         eventEmitter{publisher: deps.Events, newID: newID, logger: logger},
		interval:       interval,
		timeout:        timeout,
		batchSize:      batch,
		clock:          func() time.Time { return clock().UTC() },
		logger:         logger,
		expiredCounter: expired,
		failedCounter:  failed,
	}, nil
}

// Start launches the sweep loop. Calling Start on a running sweeper is a no-op.
func (s *OrderSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = s.clock()

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					s.logger(ctx, "order.sweep.failed", map[string]any{"error": err})
				}
			}
		}
	}(s.done)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *OrderSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce performs a single sweep. A failure on one order is logged and counted without
// aborting the rest of the batch.
func (s *OrderSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	now := s.clock()
	cutoff := now.Add(-s.timeout)
	candidates, err := s.orders.ListExpired(ctx, cutoff, s.batchSize)
	s.recordRun(now, err)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(candidates)}
	for _, order := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		expired, err := s.orders.Expire(ctx, order.ID, cutoff)
		if err != nil {
			result.Failed++
			s.failedCounter.Add(ctx, 1)
			s.logger(ctx, "order.sweep.expire_failed", map[string]any{"orderId": order.ID, "error": err})
			continue
		}
		if !expired {
			continue
		}
		result.Expired++
		s.expiredCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(order.PaymentMethod))))
		s.afterExpire(ctx, order, now)
	}

	if result.Scanned > 0 {
		s.logger(ctx, "order.sweep.completed", map[string]any{
			"scanned": result.Scanned,
			"expired": result.Expired,
			"failed":  result.Failed,
			"cutoff":  cutoff,
		})
	}
	return result, nil
}

func (s *OrderSweeper) recordRun(at time.Time, err error) {
	s.mu.Lock()
	s.lastRun, s.lastErr = at, err
	s.mu.Unlock()
}

// HealthCheck reports the sweep loop as degraded when the last listing failed
// or when no sweep has completed for three intervals. A sweeper that was never
// started is reported as ok with a detail.
func (s *OrderSweeper) HealthCheck(now time.Time) domain.SystemHealthCheck {
	s.mu.Lock()
	started, lastRun, lastErr := s.started, s.lastRun, s.lastErr
	s.mu.Unlock()

	check := domain.SystemHealthCheck{Status: domain.HealthStatusOK, CheckedAt: now}
	last := lastRun
	if last.IsZero() {
		last = started
	}
	switch {
	case started.IsZero() && lastRun.IsZero():
		check.Detail = "not started"
	case lastErr != nil:
		check.Status = domain.HealthStatusDegraded
		check.Error = lastErr.Error()
	case now.Sub(last) > 3*s.interval:
		check.Status = domain.HealthStatusDegraded
		check.Detail = "no sweep since " + last.Format(time.RFC3339)
	default:
		check.Detail = "last sweep " + last.Format(time.RFC3339)
	}
	return check
}

func (s *OrderSweeper) afterExpire(ctx context.Context, order domain.Order, now time.Time) {
	s.events.emit(ctx, events.TypeOrderExpired, order.ID, order.UserID, now, newOrderEventPayload(order, order.Status, ""))
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, NotifyCommand{
		UserID:   order.UserID,
		Type:     domain.NotificationTypeOrderStatus,
		Template: templateOrderExpired,
		Args:     []any{order.OrderNumber},
		Locale:   order.Locale,
		OrderID:  order.ID,
		Data:     map[string]any{"orderNumber": order.OrderNumber, "expired": true},
	}); err != nil {
		s.logger(ctx, "order.sweep.notify_failed", map[string]any{"orderId": order.ID, "error": err})
	}
}
