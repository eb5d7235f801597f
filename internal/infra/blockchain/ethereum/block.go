package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gabapcia/depositwatch/internal/classifier"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type (
	// transactionResponse holds the transaction fields read from
	// eth_getBlockByNumber. To is null for contract creations.
	transactionResponse struct {
		Hash  string       `json:"hash"`
		From  string       `json:"from"`
		To    *string      `json:"to"`
		Value *hexutil.Big `json:"value"`
		Input string       `json:"input"`
	}

	blockResponse struct {
		Number       hexutil.Uint64        `json:"number"`
		Hash         string                `json:"hash"`
		Transactions []transactionResponse `json:"transactions"`
	}
)

func (t transactionResponse) toTransaction() classifier.Transaction {
	tx := classifier.Transaction{
		Hash:  t.Hash,
		Input: t.Input,
	}
	if t.To != nil {
		tx.To = *t.To
	}
	if t.Value != nil {
		tx.Value = t.Value.ToInt()
	}
	return tx
}

func (b blockResponse) toBlock() classifier.Block {
	transactions := make([]classifier.Transaction, len(b.Transactions))
	for i, t := range b.Transactions {
		transactions[i] = t.toTransaction()
	}

	return classifier.Block{
		Height:       int64(b.Number),
		Transactions: transactions,
	}
}

// BlockWithTransactions returns the block at height with full transaction
// objects (eth_getBlockByNumber).
func (c *client) BlockWithTransactions(ctx context.Context, height int64) (classifier.Block, error) {
	data, err := c.conn.Fetch(ctx, "eth_getBlockByNumber", quantity(height), true)
	if err != nil {
		return classifier.Block{}, err
	}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return classifier.Block{}, fmt.Errorf("%w: %d", ErrBlockNotFound, height)
	}

	var block blockResponse
	if err := json.Unmarshal(data, &block); err != nil {
		return classifier.Block{}, fmt.Errorf("decode eth_getBlockByNumber result: %w", err)
	}

	return block.toBlock(), nil
}
