package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/brojonat/solplay/service/txcodec"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// maxStdinBytes bounds a blob read from stdin.
const maxStdinBytes = 1 << 20

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Classify and summarise a transaction blob (runs locally)",
		ArgsUsage: "[BLOB|-]",
		Description: `Decode a serialized Solana transaction without contacting any server.

The blob is read from the first argument, or from stdin when the argument is "-" or missing.
On failure the command prints "<kind>: <message>" and exits with status 1.

Examples:
  solplay decode AQAB...
  solana-cli-output | solplay decode -
  solplay decode --jq '.instructions[].programId' AQAB...`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Usage:   "Blob text encoding: base64 or base58",
				Value:   "base64",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the summary; each result is printed on its own line",
			},
		},
		Action: func(c *cli.Context) error {
			enc, err := txcodec.EncodingByName(c.String("encoding"))
			if err != nil {
				return err
			}

			blob, err := readBlob(c)
			if err != nil {
				return err
			}

			var code *gojq.Code
			if filter := c.String("jq"); filter != "" {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				code, err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			outcome := txcodec.NewDecoder(txcodec.WithEncoding(enc)).Decode(blob)
			if !outcome.OK() {
				if c.Bool("json") {
					outputJSON(c, map[string]interface{}{
						"ok":    false,
						"kind":  outcome.Kind,
						"error": outcome.Message,
					})
				}
				return cli.Exit(fmt.Sprintf("%s: %s", outcome.Kind, outcome.Message), 1)
			}

			if code != nil {
				return runJQ(c, code, outcome.Summary)
			}

			if c.Bool("json") {
				return outputJSON(c, map[string]interface{}{
					"ok":       true,
					"strategy": outcome.Strategy,
					"summary":  outcome.Summary,
				})
			}

			data, err := outcome.Summary.JSON()
			if err != nil {
				return fmt.Errorf("failed to render summary: %w", err)
			}
			logf(c, "decoded as %s (%s)\n", outcome.Summary.Version, outcome.Strategy)
			printf(c, "%s\n", data)
			return nil
		},
	}
}

// readBlob returns the blob argument, or stdin for "-" or no argument.
func readBlob(c *cli.Context) (string, error) {
	if arg := c.Args().First(); arg != "" && arg != "-" {
		return arg, nil
	}
	in := c.App.Reader
	if in == nil {
		in = os.Stdin
	}
	data, err := io.ReadAll(io.LimitReader(in, maxStdinBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > maxStdinBytes {
		return "", fmt.Errorf("input too large: maximum size is %d bytes", maxStdinBytes)
	}
	return strings.TrimSpace(string(data)), nil
}

// runJQ evaluates code against the summary and prints every result as JSON.
func runJQ(c *cli.Context, code *gojq.Code, summary *txcodec.Summary) error {
	// gojq needs plain maps and slices, so round-trip through JSON.
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	iter := code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		printf(c, "%s\n", out)
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "Build an unsigned transfer transaction (runs locally)",
		Description: `Serialize a single System transfer as an unsigned transaction.

Without --draft the fixed placeholder transfer is encoded. A draft file is JSON with any of
from, to, lamports, recentBlockhash and feePayer; missing fields keep the placeholder values.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "draft",
				Aliases: []string{"d"},
				Usage:   "Path to a JSON draft (\"-\" for stdin)",
			},
			&cli.StringFlag{
				Name:    "encoding",
				Aliases: []string{"e"},
				Usage:   "Output encoding: base64 or base58",
				Value:   "base64",
			},
		},
		Action: func(c *cli.Context) error {
			enc, err := txcodec.EncodingByName(c.String("encoding"))
			if err != nil {
				return err
			}

			draft := txcodec.DefaultDraft()
			if path := c.String("draft"); path != "" {
				var data []byte
				if path == "-" {
					data, err = io.ReadAll(io.LimitReader(c.App.Reader, maxStdinBytes))
				} else {
					data, err = os.ReadFile(path)
				}
				if err != nil {
					return fmt.Errorf("failed to read draft: %w", err)
				}
				draft, err = txcodec.DraftFromJSON(data)
				if err != nil {
					return err
				}
			}

			encoded, err := txcodec.NewEncoder(enc).Encode(draft)
			if err != nil {
				return fmt.Errorf("encode failed: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c, map[string]string{
					"encoded":  encoded,
					"encoding": enc.Name(),
				})
			}
			printf(c, "%s\n", encoded)
			return nil
		},
	}
}
