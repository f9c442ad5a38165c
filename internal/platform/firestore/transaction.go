package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Stock reservations contend on hot product documents, so allow a few more
	// retries than the SDK default.
	defaultTxAttempts = 8
	defaultTxTimeout  = 15 * time.Second
	txMeterName       = "github.com/campverse/api/internal/platform/firestore"
)

// TxFunc is executed within a Firestore transaction. It may run more than once.
type TxFunc func(ctx context.Context, tx *firestore.Transaction) error

// TxOption customises transaction behaviour.
type TxOption func(*txConfig)

type txConfig struct {
	name     string
	attempts int
	timeout  time.Duration
	readOnly bool
}

// WithTxAttempts overrides the maximum number of attempts.
func WithTxAttempts(attempts int) TxOption {
	return func(cfg *txConfig) {
		if attempts > 0 {
			cfg.attempts = attempts
		}
	}
}

// WithTxTimeout caps the whole transaction, retries included.
func WithTxTimeout(timeout time.Duration) TxOption {
	return func(cfg *txConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithTxName labels the transaction in metrics.
func WithTxName(name string) TxOption {
	return func(cfg *txConfig) { cfg.name = name }
}

// WithReadOnly runs a read-only transaction, which never contends with writers.
func WithReadOnly() TxOption {
	return func(cfg *txConfig) { cfg.readOnly = true }
}

type txObserver struct {
	attempts metric.Int64Histogram
	failures metric.Int64Counter
}

func newTxObserver() txObserver {
	meter := otel.Meter(txMeterName)
	attempts, _ := meter.Int64Histogram("firestore.tx.attempts",
		metric.WithDescription("Attempts used per Firestore transaction"))
	failures, _ := meter.Int64Counter("firestore.tx.failures",
		metric.WithDescription("Firestore transactions that returned an error"))
	return txObserver{attempts: attempts, failures: failures}
}

func (o txObserver) record(ctx context.Context, name string, attempts int64, err error) {
	attrs := metric.WithAttributes(attribute.String("tx", name))
	if o.attempts != nil {
		o.attempts.Record(ctx, attempts, attrs)
	}
	if err != nil && o.failures != nil {
		o.failures.Add(ctx, 1, attrs)
	}
}

// RunTransaction executes fn within a transaction on client.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc, opts ...TxOption) error {
	return runTransaction(ctx, client, newTxObserver(), fn, opts...)
}

func runTransaction(ctx context.Context, client *firestore.Client, observer txObserver, fn TxFunc, opts ...TxOption) error {
	if client == nil {
		return WrapError("transaction", errors.New("firestore: client is nil"))
	}
	if fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction function is nil"))
	}

	cfg := txConfig{name: "default", attempts: defaultTxAttempts, timeout: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if deadline, ok := ctx.Deadline(); cfg.timeout > 0 && (!ok || time.Until(deadline) > cfg.timeout) {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	txOpts := []firestore.TransactionOption{firestore.MaxAttempts(cfg.attempts)}
	if cfg.readOnly {
		txOpts = append(txOpts, firestore.ReadOnly)
	}

	var attempts int64
	err := client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		attempts++
		return fn(ctx, tx)
	}, txOpts...)
	observer.record(ctx, cfg.name, attempts, err)

	return WrapError("transaction."+cfg.name, err)
}
