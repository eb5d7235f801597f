package depositwatch

import (
	"context"
	"fmt"
	"math"

	"github.com/gabapcia/depositwatch/internal/confirmation"
	"github.com/gabapcia/depositwatch/internal/notifier"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/units"
	"github.com/gabapcia/depositwatch/internal/scanwindow"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Cycler runs scan cycles.
type Cycler interface {
	// RunCycle scans the window derived from the head and in.Checkpoint.
	RunCycle(ctx context.Context, in State) (State, error)

	// RunCycleFrom is RunCycle with the confirmed range starting at from,
	// even when from is deeper than the usual window.
	RunCycleFrom(ctx context.Context, in State, from int64) (State, error)
}

type watcher struct {
	chain    HeadSource
	source   TransferSource
	notifier Notifier

	currency string
	decimals uint8

	tracer  trace.Tracer
	metrics *metrics
}

var _ Cycler = (*watcher)(nil)

type config struct {
	currency string
	decimals uint8
}

// Option customizes a watcher built by New.
type Option func(*config)

// New returns a Cycler reporting transfers found by source. Amounts default to
// ETH with 18 decimals.
func New(chain HeadSource, source TransferSource, n Notifier, opts ...Option) (*watcher, error) {
	cfg := config{
		currency: "ETH",
		decimals: units.EtherDecimals,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &watcher{
		chain:    chain,
		source:   source,
		notifier: n,
		currency: cfg.currency,
		decimals: cfg.decimals,
		tracer:   otel.Tracer(instrumentationName),
		metrics:  m,
	}, nil
}

// WithCurrency sets the currency code sent with every notification.
func WithCurrency(currency string) Option {
	return func(c *config) {
		c.currency = currency
	}
}

// WithDecimals sets how many decimals separate the smallest unit from the
// display amount.
func WithDecimals(decimals uint8) Option {
	return func(c *config) {
		c.decimals = decimals
	}
}

// RunCycle scans the recent range, then the confirmed range, and returns the
// state for the next cycle.
//
// On error the returned state keeps the deliveries acknowledged before the
// failure but leaves the checkpoint untouched, so the next cycle rescans the
// same confirmed range.
func (w *watcher) RunCycle(ctx context.Context, in State) (State, error) {
	return w.cycle(ctx, in, func(head int64) scanwindow.Cursor {
		return scanwindow.Compute(head, in.Checkpoint)
	})
}

// RunCycleFrom runs one cycle whose confirmed range starts at from, clamped
// by scanwindow.ComputeFrom. The stored checkpoint is ignored.
func (w *watcher) RunCycleFrom(ctx context.Context, in State, from int64) (State, error) {
	ctx = logger.Derive(ctx, "from_block", from)
	return w.cycle(ctx, in, func(head int64) scanwindow.Cursor {
		return scanwindow.ComputeFrom(head, from)
	})
}

func (w *watcher) cycle(ctx context.Context, in State, window func(head int64) scanwindow.Cursor) (State, error) {
	ctx = logger.Derive(ctx, "cycle_id", newCycleID())
	ctx, span := w.tracer.Start(ctx, "depositwatch.cycle")
	defer span.End()

	w.metrics.cycles.Add(ctx, 1)

	out := State{
		Checkpoint: in.Checkpoint,
		Tracker:    in.Tracker.Clone(),
	}

	next, err := w.runCycle(ctx, window, out.Tracker)
	if err != nil {
		w.metrics.cycleFailures.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}

	out.Checkpoint = &next
	return out, nil
}

func (w *watcher) runCycle(ctx context.Context, window func(head int64) scanwindow.Cursor, tracker confirmation.Tracker) (int64, error) {
	head, err := w.chain.LatestHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("get latest height: %w", err)
	}

	cursor := window(head)
	w.metrics.head.Record(ctx, cursor.Head)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("chain.head", cursor.Head),
		attribute.String("range.recent", cursor.Recent.String()),
		attribute.String("range.confirmed", cursor.Confirmed.String()),
	)

	logger.Debug(ctx, "cycle started",
		"head", cursor.Head,
		"recent", cursor.Recent.String(),
		"confirmed", cursor.Confirmed.String(),
	)

	if _, err := w.scan(ctx, cursor.Head, cursor.Recent, confirmation.Unconfirmed, tracker); err != nil {
		return 0, err
	}

	rejectedFrom, err := w.scan(ctx, cursor.Head, cursor.Confirmed, confirmation.Confirmed, tracker)
	if err != nil {
		return 0, err
	}

	// An unacknowledged confirmed delivery holds the checkpoint at its block
	// so the next cycle scans it again. Compute still floors the range at
	// head-ConfirmDepth.
	next := min(cursor.Next(), rejectedFrom)
	if next < cursor.Next() {
		logger.Warn(ctx, "checkpoint held back by unacknowledged deliveries", "checkpoint", next)
	}

	if dropped := tracker.Prune(cursor.Head - scanwindow.ConfirmDepth); dropped > 0 {
		logger.Debug(ctx, "pruned delivery ledgers", "dropped", dropped)
	}

	notified, confirmed := tracker.Len()
	logger.Debug(ctx, "cycle completed",
		"checkpoint", next,
		"ledger.notified", notified,
		"ledger.confirmed", confirmed,
	)

	return next, nil
}

// scan delivers the eligible transfers of r. It returns the lowest block
// height whose delivery was not acknowledged, or math.MaxInt64 when there is
// none.
func (w *watcher) scan(ctx context.Context, head int64, r scanwindow.Range, p confirmation.Phase, tracker confirmation.Tracker) (int64, error) {
	rejectedFrom := int64(math.MaxInt64)
	if r.Empty() {
		return rejectedFrom, nil
	}

	ctx = logger.Derive(ctx, "phase", p.String())
	seen := func(txHash string) bool {
		return tracker.Seen(p, txHash)
	}

	for transfer, err := range w.source.Scan(ctx, r, seen) {
		if err != nil {
			return rejectedFrom, fmt.Errorf("scan %s range %s: %w", p, r, err)
		}

		confirmations := head - transfer.BlockHeight
		if !tracker.Eligible(p, transfer.TxHash, confirmations) {
			continue
		}
		w.metrics.recordCandidate(ctx, p)

		n := notifier.Notification{
			TxHash:             transfer.TxHash,
			Recipient:          transfer.Recipient,
			Currency:           w.currency,
			Amount:             units.Format(transfer.Amount, w.decimals),
			AmountSmallestUnit: transfer.Amount,
			Confirmations:      confirmations,
			Confirmed:          p == confirmation.Confirmed,
		}

		acknowledged := w.notifier.Send(ctx, n)
		w.metrics.recordDelivery(ctx, p, acknowledged)
		if !acknowledged {
			logger.Warn(ctx, "notification not acknowledged, will retry on a later cycle",
				"tx_hash", transfer.TxHash,
				"block", transfer.BlockHeight,
			)
			rejectedFrom = min(rejectedFrom, transfer.BlockHeight)
			continue
		}

		tracker.Record(p, transfer.TxHash, transfer.BlockHeight)
		logger.Info(ctx, "transfer notified",
			"tx_hash", transfer.TxHash,
			"to", transfer.Recipient,
			"amount", n.Amount,
			"confirmations", confirmations,
			"from_trace", transfer.FromTrace,
		)
	}

	return rejectedFrom, nil
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
