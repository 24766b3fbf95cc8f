// Package audit re-verifies the booking chain on a fixed interval and
// reports when it becomes compromised or is restored.
package audit

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jmerrifield20/hotelledger/internal/ledger"
	"github.com/jmerrifield20/hotelledger/internal/webhooks"
	"go.uber.org/zap"
)

// Config holds audit configuration.
type Config struct {
	Interval time.Duration
}

// Verifier is the part of *ledger.Ledger the auditor needs.
type Verifier interface {
	Verify() error
}

// WebhookDispatchFunc is an optional callback for integrity state changes.
type WebhookDispatchFunc func(ctx context.Context, eventType string, payload map[string]string)

// MetricsRecordFunc is an optional callback for recording audit results.
type MetricsRecordFunc func(valid bool)

// StatusFunc is an optional callback told the result of every check, e.g. to
// drive a health endpoint.
type StatusFunc func(valid bool)

// Auditor runs periodic integrity checks.
type Auditor struct {
	ledger    Verifier
	cfg       Config
	mu        sync.Mutex
	valid     bool
	onWebhook WebhookDispatchFunc
	onMetrics MetricsRecordFunc
	onStatus  StatusFunc
	logger    *zap.Logger
}

// New creates a new Auditor. The chain is assumed valid until the first check.
func New(l Verifier, cfg Config, logger *zap.Logger) *Auditor {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	return &Auditor{
		ledger: l,
		cfg:    cfg,
		valid:  true,
		logger: logger,
	}
}

// SetWebhookDispatch configures the webhook dispatch callback.
func (a *Auditor) SetWebhookDispatch(fn WebhookDispatchFunc) {
	a.onWebhook = fn
}

// SetMetricsRecord configures the metrics recording callback.
func (a *Auditor) SetMetricsRecord(fn MetricsRecordFunc) {
	a.onMetrics = fn
}

// SetStatusReport configures the status callback.
func (a *Auditor) SetStatusReport(fn StatusFunc) {
	a.onStatus = fn
}

// Run checks the chain every interval until ctx is cancelled.
func (a *Auditor) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = a.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check verifies the chain once and returns the verification error, if any.
// State changes are logged and dispatched; repeated failures are not.
func (a *Auditor) Check(ctx context.Context) error {
	err := a.ledger.Verify()
	ok := err == nil

	if a.onMetrics != nil {
		a.onMetrics(ok)
	}
	if a.onStatus != nil {
		a.onStatus(ok)
	}

	a.mu.Lock()
	wasValid := a.valid
	a.valid = ok
	a.mu.Unlock()

	switch {
	case wasValid && !ok:
		// Transition: valid → compromised
		payload := map[string]string{"error": err.Error()}
		var ie *ledger.IntegrityError
		if errors.As(err, &ie) {
			payload["index"] = strconv.Itoa(ie.Index)
		}
		a.logger.Warn("audit: ledger compromised", zap.Error(err))
		a.dispatch(ctx, webhooks.EventLedgerCompromised, payload)
	case !wasValid && ok:
		a.logger.Info("audit: ledger restored")
		a.dispatch(ctx, webhooks.EventLedgerRestored, map[string]string{})
	}
	return err
}

// Valid reports the result of the most recent check.
func (a *Auditor) Valid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.valid
}

func (a *Auditor) dispatch(ctx context.Context, eventType string, payload map[string]string) {
	if a.onWebhook != nil {
		a.onWebhook(ctx, eventType, payload)
	}
}
