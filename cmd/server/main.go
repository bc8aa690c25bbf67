// Package main is the entrypoint for the AutoShow API server and its admin commands.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}
