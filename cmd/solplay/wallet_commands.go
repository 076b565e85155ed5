package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Balance, airdrop and transfer commands (through the server)",
		Subcommands: []*cli.Command{
			walletBalanceCommand(),
			walletAccountCommand(),
			walletAirdropCommand(),
			walletTransferCommand(),
			walletTokenBalanceCommand(),
			walletFundRequestCommand(),
		},
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Usage:   "Request timeout",
		Value:   2 * time.Minute,
	}
}

func walletBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the SOL balance of an address",
		ArgsUsage: "ADDRESS",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, 0, "address")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			bal, err := cl.Balance(ctx, address)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, bal)
			}
			printf(c, "%s SOL (%d lamports) on %s\n", bal.SOL, bal.Lamports, bal.Network)
			return nil
		},
	}
}

func walletAccountCommand() *cli.Command {
	return &cli.Command{
		Name:      "account",
		Usage:     "Show an account, decoding SPL mint data when present",
		ArgsUsage: "ADDRESS",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, 0, "address")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			acct, err := cl.Account(ctx, address)
			if err != nil {
				return fmt.Errorf("failed to get account: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, acct)
			}

			printf(c, "Address:    %s\n", acct.Address)
			printf(c, "Owner:      %s\n", acct.Owner)
			printf(c, "Balance:    %s SOL\n", acct.SOL)
			printf(c, "Executable: %t\n", acct.Executable)
			printf(c, "Data:       %d bytes\n", len(acct.DataHex)/2)
			if acct.Mint != nil {
				printf(c, "Mint:\n")
				printf(c, "  Supply:          %s\n", acct.Mint.Supply)
				printf(c, "  Decimals:        %d\n", acct.Mint.Decimals)
				printf(c, "  Initialized:     %t\n", acct.Mint.IsInitialized)
				printf(c, "  Mint authority:  %s\n", optional(acct.Mint.MintAuthority))
				printf(c, "  Freeze authority: %s\n", optional(acct.Mint.FreezeAuthority))
			}
			if acct.MintDecodeError != "" {
				printf(c, "Mint decode error: %s\n", acct.MintDecodeError)
			}
			return nil
		},
	}
}

func walletAirdropCommand() *cli.Command {
	return &cli.Command{
		Name:      "airdrop",
		Usage:     "Request a faucet airdrop and wait for confirmation",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sol",
				Usage: "Amount in SOL (server default is 1)",
			},
			timeoutFlag(),
		},
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, 0, "address")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			if !c.Bool("json") {
				logf(c, "Requesting airdrop for %s...\n", address)
			}
			a, err := cl.Airdrop(ctx, address, c.String("sol"))
			if err != nil {
				return fmt.Errorf("airdrop failed: %w", err)
			}
			return printAction(c, a)
		},
	}
}

func walletTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Send SOL from the server's payer keypair",
		ArgsUsage: "RECIPIENT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sol",
				Usage: "Amount in SOL (server default is 0.1)",
			},
			timeoutFlag(),
		},
		Action: func(c *cli.Context) error {
			to, err := requireArg(c, 0, "recipient")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			a, err := cl.Transfer(ctx, to, c.String("sol"))
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}
			return printAction(c, a)
		},
	}
}

func walletTokenBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "token-balance",
		Usage:     "Show an SPL token account balance",
		ArgsUsage: "TOKEN_ACCOUNT|WALLET",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mint",
				Aliases: []string{"m"},
				Usage:   "Treat the address as a wallet and use its associated token account for this mint",
			},
			timeoutFlag(),
		},
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, 0, "address")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			bal, err := cl.TokenBalance(ctx, address, c.String("mint"))
			if err != nil {
				return fmt.Errorf("failed to get token balance: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, bal)
			}
			printf(c, "%s (raw %s, %d decimals) in %s\n", bal.UIAmount, bal.Amount, bal.Decimals, bal.Address)
			return nil
		},
	}
}

func walletFundRequestCommand() *cli.Command {
	return &cli.Command{
		Name:      "fund-request",
		Usage:     "Create a Solana Pay link for funding an address",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sol", Usage: "Requested amount in SOL"},
			&cli.StringFlag{Name: "mint", Usage: "Request an SPL token instead of SOL"},
			&cli.StringFlag{Name: "memo", Usage: "Memo to attach"},
			timeoutFlag(),
		},
		Action: func(c *cli.Context) error {
			address, err := requireArg(c, 0, "address")
			if err != nil {
				return err
			}
			cl, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			fr, err := cl.FundRequest(ctx, address, c.String("sol"), c.String("mint"), c.String("memo"))
			if err != nil {
				return fmt.Errorf("failed to create fund request: %w", err)
			}
			if c.Bool("json") {
				return outputJSON(c, fr)
			}
			printf(c, "%s\n", fr.PaymentURL)
			logf(c, "Reference: %s\n", fr.Reference)
			return nil
		},
	}
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return "(none)"
	}
	return *s
}
