package main

import (
	"context"
	"fmt"

	"github.com/brojonat/solplay/client"
	"github.com/urfave/cli/v2"
)

func mintCommands() *cli.Command {
	return &cli.Command{
		Name:  "mint",
		Usage: "SPL token commands using the server's payer as authority",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new mint",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "decimals",
						Usage: "Number of decimal places",
						Value: 9,
					},
					timeoutFlag(),
				},
				Action: func(c *cli.Context) error {
					decimals := c.Uint("decimals")
					if decimals > 255 {
						return fmt.Errorf("decimals must be between 0 and 255")
					}
					return runAction(c, func(ctx context.Context, cl *client.Client) (*client.Action, error) {
						return cl.CreateMint(ctx, uint8(decimals))
					})
				},
			},
			{
				Name:      "token-account",
				Usage:     "Create the payer's associated token account for a mint",
				ArgsUsage: "MINT",
				Flags:     []cli.Flag{timeoutFlag()},
				Action: func(c *cli.Context) error {
					mint, err := requireArg(c, 0, "mint")
					if err != nil {
						return err
					}
					return runAction(c, func(ctx context.Context, cl *client.Client) (*client.Action, error) {
						return cl.CreateTokenAccount(ctx, mint)
					})
				},
			},
			{
				Name:      "mint-to",
				Usage:     "Mint tokens into the payer's token account",
				ArgsUsage: "MINT",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "amount",
						Usage:    "Amount in base units",
						Required: true,
					},
					timeoutFlag(),
				},
				Action: func(c *cli.Context) error {
					mint, err := requireArg(c, 0, "mint")
					if err != nil {
						return err
					}
					amount := c.Uint64("amount")
					if amount == 0 {
						return fmt.Errorf("amount must be positive")
					}
					return runAction(c, func(ctx context.Context, cl *client.Client) (*client.Action, error) {
						return cl.MintTo(ctx, mint, amount)
					})
				},
			},
		},
	}
}

// runAction calls the server with the command's timeout and prints the result.
func runAction(c *cli.Context, call func(context.Context, *client.Client) (*client.Action, error)) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	a, err := call(ctx, cl)
	if err != nil {
		return fmt.Errorf("%s failed: %w", c.Command.Name, err)
	}
	return printAction(c, a)
}
