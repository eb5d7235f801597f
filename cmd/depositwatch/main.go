package main

import (
	"context"
	"os"

	"github.com/gabapcia/depositwatch/internal/handlers/cli"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
)

func main() {
	ctx := context.Background()

	a := newApp()
	err := cli.Run(ctx, a)
	if err != nil {
		// No-op when the app already initialized the logger.
		_ = logger.Init("error")
		logger.Error(ctx, "depositwatch failed", "error", err)
	}

	a.close(ctx)

	if err != nil {
		os.Exit(1)
	}
}
