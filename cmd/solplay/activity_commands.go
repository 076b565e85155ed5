package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solplay/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func activityCommands() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Activity log commands (through the server)",
		Subcommands: []*cli.Command{
			activityListCommand(),
			activityAwaitCommand(),
		},
	}
}

func activityListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List recorded playground actions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Only actions touching this address"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum rows", Value: 20},
			&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
		},
		Action: func(c *cli.Context) error {
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			activities, err := cl.ListActivities(c.Context, client.ListActivitiesOptions{
				Address: c.String("address"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, activities)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tADDRESS\tLAMPORTS\tSIGNATURE\tCREATED")
			for _, a := range activities {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					a.ID, a.Kind, a.Address, a.Lamports, a.Signature, a.CreatedAt.Format(time.RFC3339))
			}
			w.Flush()
			logf(c, "\nTotal: %d activities\n", len(activities))
			return nil
		},
	}
}

func activityAwaitCommand() *cli.Command {
	return &cli.Command{
		Name:  "await",
		Usage: "Block until a matching activity is streamed",
		Description: `Stream live activity from the server and exit on the first event that matches.

Filters combine: --kind narrows the stream, --address and --signature must match exactly,
and every --jq filter must evaluate truthy against the event.

Example:
  solplay activity await --kind airdrop --address 9xQe... --timeout 2m
  solplay activity await --jq '.lamports >= 1000000000'`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Activity kind (airdrop, transfer, send_workflow, ...)"},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Match this address"},
			&cli.StringFlag{Name: "signature", Usage: "Match this signature"},
			&cli.StringSliceFlag{Name: "jq", Usage: "jq filter that must be truthy (repeatable)"},
			&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "How long to wait", Value: 5 * time.Minute},
		},
		Action: func(c *cli.Context) error {
			filters := c.StringSlice("jq")
			compiled := make([]*gojq.Code, len(filters))
			for i, filter := range filters {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				compiled[i], err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			cl, err := newClient(c)
			if err != nil {
				return err
			}
			matcher := activityMatcher(c.String("address"), c.String("signature"), compiled)

			if !c.Bool("json") {
				logf(c, "Waiting for activity")
				if kind := c.String("kind"); kind != "" {
					logf(c, " of kind %s", kind)
				}
				logf(c, "... (timeout %v)\n", c.Duration("timeout"))
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			a, err := cl.Await(ctx, c.String("kind"), matcher)
			if err != nil {
				return fmt.Errorf("no matching activity: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, a)
			}
			printf(c, "✓ %s %s %d lamports\n", a.Kind, a.Address, a.Lamports)
			if a.ExplorerURL != "" {
				printf(c, "  %s\n", a.ExplorerURL)
			}
			return nil
		},
	}
}

// activityMatcher builds the predicate used by activity await.
func activityMatcher(address, signature string, filters []*gojq.Code) func(*client.Activity) bool {
	return func(a *client.Activity) bool {
		if address != "" && a.Address != address {
			return false
		}
		if signature != "" && a.Signature != signature {
			return false
		}
		if len(filters) == 0 {
			return true
		}

		raw, err := json.Marshal(a)
		if err != nil {
			return false
		}
		var input interface{}
		if err := json.Unmarshal(raw, &input); err != nil {
			return false
		}
		for _, code := range filters {
			v, ok := code.Run(input).Next()
			if !ok {
				return false
			}
			if _, isErr := v.(error); isErr {
				return false
			}
			if !isTruthy(v) {
				return false
			}
		}
		return true
	}
}

// isTruthy follows jq semantics: only false and null are falsy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
