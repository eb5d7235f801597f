package cli

import (
	"context"
	"os"

	"github.com/gabapcia/depositwatch/internal/depositwatch"
	"github.com/gabapcia/depositwatch/internal/walletregistry"

	"github.com/urfave/cli/v3"
)

// Builder creates the services behind each command. Commands call it only
// when they run, so a command never needs configuration or connections it
// does not use.
type Builder interface {
	Runner(ctx context.Context, opts ...depositwatch.RunnerOption) (depositwatch.Runner, error)
	Cycler(ctx context.Context) (depositwatch.Cycler, depositwatch.StateStore, error)
	WalletService(ctx context.Context) (walletregistry.Service, error)
}

func newApp(b Builder) *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Name:                  "depositwatch",
		Description:           "Watches an EVM chain for deposits into known wallets and notifies a signed webhook.",
		Usage:                 "depositwatch [command] [flags]",
		Commands: []*cli.Command{
			startCommand(b),
			scanCommand(b),
			signCommand(),
			startWatchingWalletCommand(b),
			stopWatchingWalletCommand(b),
		},
	}
}

// Run parses os.Args and executes the matching command.
func Run(ctx context.Context, b Builder) error {
	return newApp(b).Run(ctx, os.Args)
}
