package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solplay/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func dbActivitiesCommand() *cli.Command {
	return &cli.Command{
		Name:    "activities",
		Usage:   "List activity log rows straight from the database",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "Only rows for this address"},
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "Only rows of this kind"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: db.DefaultListLimit, Usage: "Maximum rows"},
			&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
			&cli.BoolFlag{Name: "count", Usage: "Print only the number of matching rows"},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if c.Bool("count") {
				n, err := store.CountActivities(c.Context, c.String("address"))
				if err != nil {
					return fmt.Errorf("failed to count activities: %w", err)
				}
				if c.Bool("json") {
					return outputJSON(c, map[string]int64{"count": n})
				}
				printf(c, "%d\n", n)
				return nil
			}

			activities, err := store.ListActivities(c.Context, db.ListActivitiesParams{
				Address: c.String("address"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}

			if kind := c.String("kind"); kind != "" {
				filtered := make([]*db.Activity, 0, len(activities))
				for _, a := range activities {
					if a.Kind == kind {
						filtered = append(filtered, a)
					}
				}
				activities = filtered
			}

			if c.Bool("json") {
				return outputJSON(c, activities)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tNETWORK\tADDRESS\tLAMPORTS\tSIGNATURE\tCREATED")
			for _, a := range activities {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
					a.ID,
					a.Kind,
					a.Network,
					a.Address,
					a.Lamports,
					a.Signature,
					a.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			logf(c, "\nTotal: %d activities\n", len(activities))
			return nil
		},
	}
}

func dbMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the activity log schema",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.Migrate(c.Context); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			printf(c, "✓ Schema applied\n")
			return nil
		},
	}
}

// getStore connects to --database-url. The returned closer releases the pool.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool, nil), pool.Close, nil
}
