package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/solplay/service/nats"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

// subscribeCommand streams activity events straight from JetStream.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to playground activity events",
		ArgsUsage: "[kind]",
		Description: `Subscribe to activity events published to NATS JetStream.

Events are published to the subject playground.{kind}. Without a kind every activity is streamed.

Example:
  solplay nats subscribe airdrop --json`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "solplay-cli",
			},
			&cli.BoolFlag{
				Name:  "replay",
				Usage: "Deliver retained events before new ones",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return fmt.Errorf("at most one kind may be given")
			}
			subject := natspkg.SubjectForKind(c.Args().First())

			js, closer, err := connectNATS(c)
			if err != nil {
				return err
			}
			defer closer()

			cfg := jetstream.ConsumerConfig{
				FilterSubject: subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
				DeliverPolicy: jetstream.DeliverNewPolicy,
			}
			if c.Bool("replay") {
				cfg.DeliverPolicy = jetstream.DeliverAllPolicy
			}
			if c.Bool("durable") {
				cfg.Durable = c.String("consumer-name")
				cfg.Name = c.String("consumer-name")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, cfg)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			if !c.Bool("json") {
				logf(c, "📡 Subscribing to: %s\n", subject)
				if cfg.Durable != "" {
					logf(c, "   Consumer: %s (durable)\n", cfg.Durable)
				}
				logf(c, "\nWaiting for activity... (Ctrl-C to exit)\n\n")
			}

			msgs := make(chan jetstream.Msg, 16)
			cc, err := cons.Consume(func(msg jetstream.Msg) {
				msgs <- msg
			})
			if err != nil {
				return fmt.Errorf("failed to consume: %w", err)
			}
			defer cc.Stop()

			count := 0
			for {
				select {
				case msg := <-msgs:
					var event natspkg.ActivityEvent
					if err := json.Unmarshal(msg.Data(), &event); err != nil {
						logf(c, "Error parsing event: %v\n", err)
						_ = msg.Ack()
						continue
					}
					count++
					printEvent(c, count, &event)
					_ = msg.Ack()

				case <-ctx.Done():
					if !c.Bool("json") {
						logf(c, "\n✅ Received %d events\n", count)
					}
					return nil
				}
			}
		},
	}
}

func printEvent(c *cli.Context, n int, event *natspkg.ActivityEvent) {
	if c.Bool("json") {
		data, _ := json.Marshal(event)
		printf(c, "%s\n", data)
		return
	}
	printf(c, "─────────────────────────────────────────────────────\n")
	printf(c, "Activity #%d (%s)\n", n, event.Kind)
	printf(c, "─────────────────────────────────────────────────────\n")
	printf(c, "Network:      %s\n", event.Network)
	printf(c, "Address:      %s\n", event.Address)
	printf(c, "Lamports:     %d\n", event.Lamports)
	if event.Signature != "" {
		printf(c, "Signature:    %s\n", event.Signature)
	}
	if event.ExplorerURL != "" {
		printf(c, "Explorer:     %s\n", event.ExplorerURL)
	}
	printf(c, "Published:    %s\n\n", event.PublishedAt.Format(time.RFC3339))
}

// inspectStreamCommand shows information about the activity stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the " + natspkg.StreamName + " JetStream stream",
		Action: func(c *cli.Context) error {
			js, closer, err := connectNATS(c)
			if err != nil {
				return err
			}
			defer closer()

			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()

			stream, err := js.Stream(ctx, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}
			info, err := stream.Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c, info)
			}
			printf(c, "Stream: %s\n", info.Config.Name)
			printf(c, "─────────────────────────────────────────────────────\n")
			printf(c, "Subjects:     %v\n", info.Config.Subjects)
			printf(c, "Messages:     %d\n", info.State.Msgs)
			printf(c, "Bytes:        %d\n", info.State.Bytes)
			printf(c, "First Seq:    %d\n", info.State.FirstSeq)
			printf(c, "Last Seq:     %d\n", info.State.LastSeq)
			printf(c, "Consumers:    %d\n", info.State.Consumers)
			printf(c, "Max Age:      %s\n", info.Config.MaxAge)
			printf(c, "Storage:      %s\n", info.Config.Storage)
			return nil
		},
	}
}

// connectNATS dials --nats-url. The returned closer drains the connection.
func connectNATS(c *cli.Context) (jetstream.JetStream, func(), error) {
	natsURL := c.String("nats-url")
	if natsURL == "" {
		return nil, nil, fmt.Errorf("nats-url is required (set NATS_URL env var or use --nats-url)")
	}
	nc, js, err := natspkg.Connect(natsURL, "solplay-cli")
	if err != nil {
		return nil, nil, err
	}
	return js, func() { _ = nc.Drain() }, nil
}
