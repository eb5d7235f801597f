package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabapcia/depositwatch/internal/notifier"

	"github.com/urfave/cli/v3"
)

var (
	ErrInvalidField = errors.New("field must be key=value")
	ErrNoFields     = errors.New("no fields to sign")
)

func parseFields(raw []string) (map[string]string, error) {
	fields := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, kv)
		}
		fields[k] = v
	}
	return fields, nil
}

// signCommand prints the canonical string and signature of a notification,
// for comparing against what a receiver computes.
//
//	depositwatch sign --secret s3cr3t amount=1.5 currency=ETH
func signCommand() *cli.Command {
	return &cli.Command{
		Name:        "sign",
		Description: "Prints the canonical string and HMAC of the given notification fields.",
		Usage:       "Signs key=value arguments the way notifications are signed.",
		ArgsUsage:   "key=value...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "API secret used as the HMAC key",
				Sources:  cli.EnvVars("DEPOSITWATCH_WEBHOOK_API_SECRET"),
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return ErrNoFields
			}

			fields, err := parseFields(c.Args().Slice())
			if err != nil {
				return err
			}

			canonical := notifier.Canonical(fields)
			_, err = fmt.Fprintf(c.Root().Writer, "%s\n%s: %s\n", canonical, notifier.SignatureHeader, notifier.Sign(c.String("secret"), canonical))
			return err
		},
	}
}
