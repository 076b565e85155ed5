package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/solplay/client"
	"github.com/urfave/cli/v2"
)

func sendCommands() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Run the send workflow: airdrop to a fresh sender, then transfer to RECIPIENT",
		ArgsUsage: "RECIPIENT",
		Description: `Start a durable send workflow on the server's Temporal worker.

By default the worker generates a sender for the run, funds it by airdrop, and transfers
--sol to the recipient. With --no-airdrop the worker's payer keypair sends instead.

Examples:
  solplay send 9xQe... --sol 0.05
  solplay send 9xQe... --wait=false
  solplay send status send-sol-1234`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sol", Usage: "Amount to transfer in SOL (server default is 0.1)"},
			&cli.StringFlag{Name: "airdrop-sol", Usage: "Airdrop size in SOL (server default is 1)"},
			&cli.BoolFlag{Name: "no-airdrop", Usage: "Send from the worker's payer without an airdrop"},
			&cli.BoolFlag{Name: "wait", Usage: "Wait for the workflow to finish", Value: true},
			&cli.DurationFlag{Name: "poll-interval", Usage: "Status polling interval", Value: 2 * time.Second},
			&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "How long to wait", Value: 5 * time.Minute},
		},
		Subcommands: []*cli.Command{
			sendStatusCommand(),
		},
		Action: func(c *cli.Context) error {
			recipient, err := requireArg(c, 0, "recipient")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			run, err := cl.StartSend(ctx, client.SendRequest{
				Recipient:  recipient,
				SOL:        c.String("sol"),
				AirdropSOL: c.String("airdrop-sol"),
				NoAirdrop:  c.Bool("no-airdrop"),
			})
			if err != nil {
				return fmt.Errorf("failed to start send workflow: %w", err)
			}

			if !c.Bool("wait") {
				if c.Bool("json") {
					return outputJSON(c, run)
				}
				printf(c, "Started %s (%d lamports to %s)\n", run.WorkflowID, run.Lamports, run.Recipient)
				return nil
			}

			if !c.Bool("json") {
				logf(c, "Started %s, waiting for it to finish...\n", run.WorkflowID)
			}
			status, err := cl.WaitSend(ctx, run.WorkflowID, c.Duration("poll-interval"))
			if err != nil {
				return err
			}
			return printWorkflowStatus(c, status)
		},
	}
}

func sendStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the state of a send workflow",
		ArgsUsage: "WORKFLOW_ID",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, 0, "workflow id")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			status, err := cl.SendStatus(c.Context, id)
			if err != nil {
				return fmt.Errorf("failed to get workflow status: %w", err)
			}
			return printWorkflowStatus(c, status)
		},
	}
}

func printWorkflowStatus(c *cli.Context, s *client.WorkflowStatus) error {
	if c.Bool("json") {
		if err := outputJSON(c, s); err != nil {
			return err
		}
	} else {
		printf(c, "Workflow: %s\n", s.WorkflowID)
		printf(c, "Status:   %s\n", s.Status)
		printf(c, "Started:  %s\n", s.StartedAt.Format(time.RFC3339))
		if s.ClosedAt != nil {
			printf(c, "Closed:   %s\n", s.ClosedAt.Format(time.RFC3339))
		}
		if r := s.Result; r != nil {
			printf(c, "Sender:   %s", r.Sender)
			if r.SenderGenerated {
				printf(c, " (generated)")
			}
			printf(c, "\n")
			printf(c, "Recipient: %s\n", r.Recipient)
			printf(c, "Lamports: %d\n", r.Lamports)
			if r.AirdropSignature != "" {
				printf(c, "Airdrop:  %s\n", r.AirdropSignature)
			}
			if r.TransferSignature != "" {
				printf(c, "Transfer: %s\n", r.TransferSignature)
			}
			if r.ExplorerURL != "" {
				printf(c, "Explorer: %s\n", r.ExplorerURL)
			}
		}
		if s.Error != "" {
			printf(c, "Error:    %s\n", s.Error)
		}
	}

	if s.Status != "completed" && s.Done() {
		return cli.Exit(fmt.Sprintf("workflow %s %s", s.WorkflowID, s.Status), 1)
	}
	return nil
}
