package classifier

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/gabapcia/depositwatch/internal/calltrace"
	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/scanwindow"
)

type nativeSource struct {
	node    Node
	wallets Wallets
}

var _ depositwatch.TransferSource = (*nativeSource)(nil)

// NewNativeSource returns a source of native currency deposits.
func NewNativeSource(node Node, wallets Wallets) *nativeSource {
	return &nativeSource{
		node:    node,
		wallets: wallets,
	}
}

// Scan fetches every block of r in order and classifies its transactions:
//   - a transaction sent to a watched wallet is a direct transfer;
//   - a zero value transaction whose call data mentions a watched wallet is
//     traced, and the last CALL of the trace is reported when it pays a
//     watched wallet whose balance at that block covers the amount.
//
// Transactions already seen are skipped before any lookup.
func (s *nativeSource) Scan(ctx context.Context, r scanwindow.Range, seen depositwatch.SeenFunc) iter.Seq2[depositwatch.Transfer, error] {
	return func(yield func(depositwatch.Transfer, error) bool) {
		for height := range r.Heights() {
			block, err := s.node.BlockWithTransactions(ctx, height)
			if err != nil {
				yield(depositwatch.Transfer{}, fmt.Errorf("get block %d: %w", height, err))
				return
			}

			logger.Debug(ctx, "scanning block", "block", height, "transactions", len(block.Transactions))

			for _, tx := range block.Transactions {
				if seen(tx.Hash) {
					continue
				}

				transfer, ok, err := s.classify(ctx, height, tx)
				if err != nil {
					yield(depositwatch.Transfer{}, err)
					return
				}

				if ok && !yield(transfer, nil) {
					return
				}
			}
		}
	}
}

func (s *nativeSource) classify(ctx context.Context, height int64, tx Transaction) (depositwatch.Transfer, bool, error) {
	if tx.To != "" && s.wallets.IsWatched(tx.To) {
		return depositwatch.Transfer{
			TxHash:      tx.Hash,
			Recipient:   strings.ToLower(tx.To),
			Amount:      tx.Value,
			BlockHeight: height,
		}, true, nil
	}

	if tx.Value != nil && tx.Value.Sign() != 0 {
		return depositwatch.Transfer{}, false, nil
	}

	if tx.Input == "" || tx.Input == "0x" {
		return depositwatch.Transfer{}, false, nil
	}

	if _, found := s.wallets.FindBySubstring(tx.Input); !found {
		return depositwatch.Transfer{}, false, nil
	}

	return s.classifyByTrace(ctx, height, tx)
}

func (s *nativeSource) classifyByTrace(ctx context.Context, height int64, tx Transaction) (depositwatch.Transfer, bool, error) {
	ctx = logger.Derive(ctx, "tx_hash", tx.Hash, "block", height)
	logger.Debug(ctx, "tracing transaction")

	trace, err := s.node.TraceTransaction(ctx, tx.Hash)
	if err != nil {
		return depositwatch.Transfer{}, false, fmt.Errorf("trace transaction %s: %w", tx.Hash, err)
	}

	decoded, ok, err := calltrace.Decode(trace, s.wallets)
	if err != nil {
		return depositwatch.Transfer{}, false, fmt.Errorf("decode trace of %s: %w", tx.Hash, err)
	}
	if !ok {
		return depositwatch.Transfer{}, false, nil
	}

	recipient := "0x" + decoded.Recipient

	balance, err := s.node.BalanceAt(ctx, recipient, height)
	if err != nil {
		return depositwatch.Transfer{}, false, fmt.Errorf("get balance of %s at %d: %w", recipient, height, err)
	}

	if balance.Cmp(decoded.Value) < 0 {
		logger.Error(ctx, "traced transfer exceeds recipient balance, discarding",
			"to", recipient,
			"amount", decoded.Value.String(),
			"balance", balance.String(),
		)
		return depositwatch.Transfer{}, false, nil
	}

	logger.Warn(ctx, "transfer found by trace", "to", recipient, "amount", decoded.Value.String())

	return depositwatch.Transfer{
		TxHash:      tx.Hash,
		Recipient:   recipient,
		Amount:      decoded.Value,
		BlockHeight: height,
		FromTrace:   true,
	}, true, nil
}
