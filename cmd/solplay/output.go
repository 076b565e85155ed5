package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/brojonat/solplay/client"
	"github.com/urfave/cli/v2"
)

// outputJSON writes v indented to the command's writer.
func outputJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printf writes human output to the command's writer.
func printf(c *cli.Context, format string, args ...interface{}) {
	fmt.Fprintf(c.App.Writer, format, args...)
}

// logf writes progress messages to the command's error writer.
func logf(c *cli.Context, format string, args ...interface{}) {
	fmt.Fprintf(c.App.ErrWriter, format, args...)
}

func newLogger(c *cli.Context) *slog.Logger {
	if !c.Bool("verbose") {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newClient builds an API client for the --server-url flag.
func newClient(c *cli.Context) (*client.Client, error) {
	serverURL := c.String("server-url")
	if serverURL == "" {
		return nil, fmt.Errorf("server-url is required (set SOLPLAY_SERVER_URL env var or use --server-url)")
	}
	return client.NewClient(serverURL, nil, newLogger(c)), nil
}

// requireArg returns the i-th positional argument or a usage error.
func requireArg(c *cli.Context, i int, name string) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf("%s is required", name)
	}
	return c.Args().Get(i), nil
}

// printAction renders a confirmed playground action.
func printAction(c *cli.Context, a *client.Action) error {
	if c.Bool("json") {
		return outputJSON(c, a)
	}
	printf(c, "✓ %s confirmed on %s\n", a.Kind, a.Network)
	if a.Address != "" {
		printf(c, "  Address:   %s\n", a.Address)
	}
	if a.Mint != "" && a.Mint != a.Address {
		printf(c, "  Mint:      %s\n", a.Mint)
	}
	if a.SOL != "" {
		printf(c, "  Amount:    %s SOL\n", a.SOL)
	}
	if a.Amount != 0 {
		printf(c, "  Amount:    %d\n", a.Amount)
	}
	printf(c, "  Signature: %s\n", a.Signature)
	printf(c, "  Explorer:  %s\n", a.ExplorerURL)
	return nil
}
