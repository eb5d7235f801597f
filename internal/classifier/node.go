// Package classifier finds transfers into watched wallets, either in native
// value (transactions and execution traces) or in an ERC-20 token (Transfer
// event logs).
package classifier

import (
	"context"
	"math/big"

	"github.com/gabapcia/depositwatch/internal/calltrace"
)

type (
	// Transaction is the part of a node transaction the classifier reads.
	// To is empty for contract creations.
	Transaction struct {
		Hash  string   // transaction hash
		To    string   // recipient, as returned by the node
		Value *big.Int // wei sent with the call
		Input string   // 0x-prefixed call data
	}

	// Block is a block with its full transactions, in node order.
	Block struct {
		Height       int64
		Transactions []Transaction
	}

	// TransferLog is a decoded ERC-20 Transfer event.
	TransferLog struct {
		TxHash      string
		BlockHeight int64
		From        string
		To          string
		Value       *big.Int
	}
)

// Node is the blockchain node as seen by the sources.
type Node interface {
	LatestHeight(ctx context.Context) (int64, error)
	BlockWithTransactions(ctx context.Context, height int64) (Block, error)
	TraceTransaction(ctx context.Context, txHash string) (calltrace.Trace, error)
	BalanceAt(ctx context.Context, address string, height int64) (*big.Int, error)
	TransferLogs(ctx context.Context, contract string, from, to int64) ([]TransferLog, error)
}

// Wallets is the watched wallet set.
type Wallets interface {
	calltrace.Matcher
	IsWatched(address string) bool
	FindBySubstring(callData string) (string, bool)
}
