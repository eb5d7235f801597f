package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

func addressFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "address",
		Usage:    usage,
		Required: true,
	}
}

// startWatchingWalletCommand adds a wallet to the Redis wallet set.
//
//	depositwatch watch --address 0xABC123...
func startWatchingWalletCommand(b Builder) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Register a wallet whose deposits are reported. Needs the redis wallet source.",
		Usage:       "Registers a wallet address for watching. Running watchers pick it up on restart.",
		Flags:       []cli.Flag{addressFlag("Wallet address to start watching")},
		Action: func(ctx context.Context, c *cli.Command) error {
			wr, err := b.WalletService(ctx)
			if err != nil {
				return err
			}

			return wr.StartWatching(ctx, c.String("address"))
		},
	}
}

// stopWatchingWalletCommand removes a wallet from the Redis wallet set.
//
//	depositwatch unwatch --address 0xABC123...
func stopWatchingWalletCommand(b Builder) *cli.Command {
	return &cli.Command{
		Name:        "unwatch",
		Description: "Unregister a wallet. Needs the redis wallet source.",
		Usage:       "Stops watching a wallet address.",
		Flags:       []cli.Flag{addressFlag("Wallet address to stop watching")},
		Action: func(ctx context.Context, c *cli.Command) error {
			wr, err := b.WalletService(ctx)
			if err != nil {
				return err
			}

			return wr.StopWatching(ctx, c.String("address"))
		},
	}
}
