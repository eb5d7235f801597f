// Package ethereum implements classifier.Node for Ethereum-compatible nodes
// on top of the JSON-RPC transport.
package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/gabapcia/depositwatch/internal/calltrace"
	"github.com/gabapcia/depositwatch/internal/classifier"
	"github.com/gabapcia/depositwatch/internal/pkg/transport/jsonrpc"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrBlockNotFound is returned when the node has no block at the requested
// height yet.
var ErrBlockNotFound = errors.New("block not found")

// client talks to a single node through conn.
type client struct {
	conn jsonrpc.Client
}

var _ classifier.Node = (*client)(nil)

// NewClient returns a node client using conn for every call.
func NewClient(conn jsonrpc.Client) *client {
	return &client{
		conn: conn,
	}
}

// call runs method and decodes its result into out.
func (c *client) call(ctx context.Context, out any, method string, params ...any) error {
	data, err := c.conn.Fetch(ctx, method, params...)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}

	return nil
}

// quantity encodes a block height the way the node expects it.
func quantity(height int64) string {
	return hexutil.EncodeUint64(uint64(height))
}

// LatestHeight returns the number of the most recent block (eth_blockNumber).
func (c *client) LatestHeight(ctx context.Context) (int64, error) {
	var number hexutil.Uint64
	if err := c.call(ctx, &number, "eth_blockNumber"); err != nil {
		return 0, err
	}

	return int64(number), nil
}

// BalanceAt returns the balance of address at the end of the block at height
// (eth_getBalance).
func (c *client) BalanceAt(ctx context.Context, address string, height int64) (*big.Int, error) {
	var balance hexutil.Big
	if err := c.call(ctx, &balance, "eth_getBalance", address, quantity(height)); err != nil {
		return nil, err
	}

	return balance.ToInt(), nil
}

// TraceTransaction returns the struct-log trace of txHash
// (debug_traceTransaction) with stacks but without memory or storage.
func (c *client) TraceTransaction(ctx context.Context, txHash string) (calltrace.Trace, error) {
	var trace calltrace.Trace
	if err := c.call(ctx, &trace, "debug_traceTransaction", txHash, calltrace.DefaultOptions); err != nil {
		return calltrace.Trace{}, err
	}

	return trace, nil
}
