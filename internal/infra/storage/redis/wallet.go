package redis

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/walletregistry"
)

// walletsKey is the set holding every watched address.
const walletsKey = keyPrefix + ":wallets"

var _ walletregistry.WalletStorage = (*client)(nil)

// RegisterWallet adds address to the watched set. Adding a watched address
// is a no-op.
func (c *client) RegisterWallet(ctx context.Context, address string) error {
	return c.conn.SAdd(ctx, walletsKey, address).Err()
}

// UnregisterWallet removes address from the watched set.
func (c *client) UnregisterWallet(ctx context.Context, address string) error {
	return c.conn.SRem(ctx, walletsKey, address).Err()
}

// ListWallets returns the watched set in no particular order.
func (c *client) ListWallets(ctx context.Context) ([]string, error) {
	return c.conn.SMembers(ctx, walletsKey).Result()
}
