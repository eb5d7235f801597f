package classifier

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/scanwindow"
)

type tokenSource struct {
	node     Node
	wallets  Wallets
	contract string
}

var _ depositwatch.TransferSource = (*tokenSource)(nil)

// NewTokenSource returns a source of deposits in the ERC-20 token at
// contract.
func NewTokenSource(node Node, wallets Wallets, contract string) *tokenSource {
	return &tokenSource{
		node:     node,
		wallets:  wallets,
		contract: strings.ToLower(contract),
	}
}

// Scan queries the Transfer events of the whole range at once and yields the
// ones paying a watched wallet, in the order the node returned them.
func (s *tokenSource) Scan(ctx context.Context, r scanwindow.Range, seen depositwatch.SeenFunc) iter.Seq2[depositwatch.Transfer, error] {
	return func(yield func(depositwatch.Transfer, error) bool) {
		logs, err := s.node.TransferLogs(ctx, s.contract, r.From, r.To)
		if err != nil {
			yield(depositwatch.Transfer{}, fmt.Errorf("get transfer logs %s: %w", r, err))
			return
		}

		logger.Debug(ctx, "scanning transfer logs", "range", r.String(), "logs", len(logs))

		for _, l := range logs {
			if seen(l.TxHash) || !s.wallets.IsWatched(l.To) {
				continue
			}

			transfer := depositwatch.Transfer{
				TxHash:      l.TxHash,
				Recipient:   strings.ToLower(l.To),
				Amount:      l.Value,
				BlockHeight: l.BlockHeight,
			}
			if !yield(transfer, nil) {
				return
			}
		}
	}
}
