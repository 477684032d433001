// Package main is the entry point for the tgform command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"tgform/config"
	"tgform/internal/cli"
	"tgform/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("TGFORM_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}

	// Logs go to stderr so stdout carries only the formatted payload
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	root := cli.NewRootCommand(cli.Dependencies{
		Config: cfg,
		Logger: logger,
		Input:  os.Stdin,
		Output: os.Stdout,
	})
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(cli.ExitCode(err))
	}
}
