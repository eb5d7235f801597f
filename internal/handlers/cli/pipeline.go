package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gabapcia/depositwatch/internal/depositwatch"

	"github.com/urfave/cli/v3"
)

// ErrNegativeFromBlock is returned when --from-block is below zero.
var ErrNegativeFromBlock = errors.New("from-block must not be negative")

func fromBlockFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:  "from-block",
		Usage: "Start the first confirmed range at this height, even below the usual scan depth",
	}
}

func fromBlock(c *cli.Command) (int64, bool, error) {
	if !c.IsSet("from-block") {
		return 0, false, nil
	}

	height := c.Int64("from-block")
	if height < 0 {
		return 0, false, ErrNegativeFromBlock
	}
	return height, true, nil
}

// startCommand runs cycles until SIGINT or SIGTERM.
//
//	depositwatch start
//	depositwatch start --from-block 19000000
func startCommand(b Builder) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Runs scan cycles until interrupted, notifying the webhook of every deposit found.",
		Usage:       "Starts watching. Terminates gracefully on Ctrl+C or termination signals.",
		Flags:       []cli.Flag{fromBlockFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			height, ok, err := fromBlock(c)
			if err != nil {
				return err
			}

			var opts []depositwatch.RunnerOption
			if ok {
				opts = append(opts, depositwatch.WithFromBlock(height))
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, err := b.Runner(ctx, opts...)
			if err != nil {
				return err
			}

			return runner.Run(ctx)
		},
	}
}

// scanCommand runs exactly one cycle and saves the resulting state.
//
//	depositwatch scan --from-block 19000000
func scanCommand(b Builder) *cli.Command {
	return &cli.Command{
		Name:        "scan",
		Description: "Runs a single scan cycle, saves the state and exits.",
		Usage:       "Scans once. Fails when the cycle fails.",
		Flags:       []cli.Flag{fromBlockFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			height, ok, err := fromBlock(c)
			if err != nil {
				return err
			}

			cycler, store, err := b.Cycler(ctx)
			if err != nil {
				return err
			}

			state, err := store.Load(ctx)
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}

			if ok {
				state, err = cycler.RunCycleFrom(ctx, state, height)
			} else {
				state, err = cycler.RunCycle(ctx, state)
			}
			if saveErr := store.Save(ctx, state); saveErr != nil {
				err = errors.Join(err, fmt.Errorf("save state: %w", saveErr))
			}
			if err != nil {
				return err
			}

			notified, confirmed := state.Tracker.Len()
			_, err = fmt.Fprintf(c.Root().Writer, "checkpoint=%d notified=%d confirmed=%d\n", *state.Checkpoint, notified, confirmed)
			return err
		},
	}
}
