package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			if err := cl.Health(ctx); err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			printf(c, "✓ Server is healthy\n")
			printf(c, "  URL: %s\n", c.String("server-url"))
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show CLI and server version information",
		Action: func(c *cli.Context) error {
			info := map[string]string{
				"version": version,
				"commit":  commit,
				"built":   date,
			}

			serverVersion := "unreachable"
			if cl, err := newClient(c); err == nil {
				ctx, cancel := context.WithTimeout(c.Context, 5*time.Second)
				defer cancel()
				if v, err := cl.Version(ctx); err == nil {
					serverVersion = v.Version + " (" + v.Network + ")"
				}
			}
			info["server"] = serverVersion

			if c.Bool("json") {
				return outputJSON(c, info)
			}
			printf(c, "solplay CLI\n")
			printf(c, "  Version: %s\n", version)
			printf(c, "  Commit:  %s\n", commit)
			printf(c, "  Built:   %s\n", date)
			printf(c, "  Server:  %s\n", serverVersion)
			return nil
		},
	}
}
