// Package depositwatch runs the scan cycles that turn transfers into watched
// wallets into webhook notifications.
//
// Every cycle reads the chain head, scans the recent range and then the
// confirmed range through a TransferSource, and delivers each eligible
// transfer once per confirmation phase. Deliveries are recorded only after the
// receiver acknowledged them, so rejected ones are retried on later cycles
// while their block stays inside the scanned window.
package depositwatch

import (
	"context"
	"iter"
	"math/big"

	"github.com/gabapcia/depositwatch/internal/notifier"
	"github.com/gabapcia/depositwatch/internal/scanwindow"
)

// Transfer is a candidate deposit found by a TransferSource.
type Transfer struct {
	TxHash      string   // transaction hash
	Recipient   string   // lower-case watched address credited
	Amount      *big.Int // amount in the currency's smallest unit
	BlockHeight int64    // block including the transaction

	// FromTrace is set when the transfer was reconstructed from an execution
	// trace instead of the transaction's own fields or a log.
	FromTrace bool
}

// SeenFunc reports whether a transaction was already delivered in the phase
// being scanned. Sources use it to skip expensive lookups.
type SeenFunc func(txHash string) bool

// TransferSource finds transfers into watched wallets.
//
// Scan yields transfers lazily in ascending block order, and in node order
// within a block. A non-nil error ends the sequence and aborts the cycle.
type TransferSource interface {
	Scan(ctx context.Context, r scanwindow.Range, seen SeenFunc) iter.Seq2[Transfer, error]
}

// HeadSource returns the current chain head.
type HeadSource interface {
	LatestHeight(ctx context.Context) (int64, error)
}

// Notifier delivers one notification and reports whether it was
// acknowledged.
type Notifier interface {
	Send(ctx context.Context, n notifier.Notification) bool
}
