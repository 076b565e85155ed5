package solana

import (
	"fmt"
	"strings"
)

// Network names a Solana cluster.
type Network string

const (
	Devnet   Network = "devnet"
	Testnet  Network = "testnet"
	Mainnet  Network = "mainnet"
	Localnet Network = "localnet"
)

// Playground action kinds, used as metric labels and activity log kinds.
const (
	ActionAirdrop            = "airdrop"
	ActionTransfer           = "transfer"
	ActionCreateMint         = "create_mint"
	ActionCreateTokenAccount = "create_token_account"
	ActionMintTo             = "mint_to"
	ActionSendWorkflow       = "send_workflow"
)

// ParseNetwork validates a cluster name.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case Devnet, Testnet, Mainnet, Localnet:
		return n, nil
	case "mainnet-beta":
		return Mainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}

// HasFaucet reports whether the cluster serves airdrops.
func (n Network) HasFaucet() bool {
	return n != Mainnet
}

// ExplorerTxURL links a signature on the public explorer.
func (n Network) ExplorerTxURL(signature string) string {
	cluster := string(n)
	switch n {
	case Mainnet:
		cluster = "mainnet-beta"
	case Localnet:
		cluster = "custom"
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", signature, cluster)
}

// AccountInfo is the display form of an on-chain account.
type AccountInfo struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Lamports   uint64 `json:"lamports"`
	SOL        string `json:"sol"`
	Executable bool   `json:"executable"`
	DataHex    string `json:"dataHex"`
	// Mint is set when the data has the SPL mint layout.
	Mint            *MintInfo `json:"mint,omitempty"`
	MintDecodeError string    `json:"mintDecodeError,omitempty"`
}

// MintInfo is a decoded SPL token mint.
type MintInfo struct {
	MintAuthority   *string `json:"mintAuthority"`
	Supply          string  `json:"supply"`
	Decimals        uint8   `json:"decimals"`
	IsInitialized   bool    `json:"isInitialized"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

// MintResult is returned by CreateMint.
type MintResult struct {
	Mint      string `json:"mint"`
	Signature string `json:"signature"`
}

// TokenAccountResult is returned by CreateTokenAccount.
type TokenAccountResult struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// TokenBalance is the balance of an SPL token account.
type TokenBalance struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"uiAmount"`
}
