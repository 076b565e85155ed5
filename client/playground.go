package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Balance is an address's SOL balance.
type Balance struct {
	Address  string `json:"address"`
	Network  string `json:"network"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

// Account is an on-chain account with its mint layout decoded when present.
type Account struct {
	Address         string `json:"address"`
	Owner           string `json:"owner"`
	Lamports        uint64 `json:"lamports"`
	SOL             string `json:"sol"`
	Executable      bool   `json:"executable"`
	DataHex         string `json:"dataHex"`
	Mint            *Mint  `json:"mint,omitempty"`
	MintDecodeError string `json:"mintDecodeError,omitempty"`
}

// Mint is a decoded SPL token mint.
type Mint struct {
	MintAuthority   *string `json:"mintAuthority"`
	Supply          string  `json:"supply"`
	Decimals        uint8   `json:"decimals"`
	IsInitialized   bool    `json:"isInitialized"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

// Action is the result of a confirmed playground action.
type Action struct {
	Kind        string `json:"kind"`
	Network     string `json:"network"`
	Address     string `json:"address"`
	Signature   string `json:"signature"`
	Lamports    uint64 `json:"lamports,omitempty"`
	SOL         string `json:"sol,omitempty"`
	ExplorerURL string `json:"explorer_url"`
	Mint        string `json:"mint,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
}

// TokenBalance is the balance of an SPL token account.
type TokenBalance struct {
	Address  string `json:"address"`
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
	UIAmount string `json:"uiAmount"`
}

// FundRequest is a Solana Pay transfer request.
type FundRequest struct {
	ID         string `json:"id"`
	Recipient  string `json:"recipient"`
	Network    string `json:"network"`
	SOL        string `json:"sol,omitempty"`
	TokenMint  string `json:"token_mint,omitempty"`
	Reference  string `json:"reference"`
	Memo       string `json:"memo,omitempty"`
	PaymentURL string `json:"payment_url"`
	QRCodeData string `json:"qr_code_data,omitempty"`
}

// Balance returns the SOL balance of address.
func (c *Client) Balance(ctx context.Context, address string) (*Balance, error) {
	var b Balance
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(address)+"/balance", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Account fetches an account.
func (c *Client) Account(ctx context.Context, address string) (*Account, error) {
	var a Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(address), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Airdrop requests sol (empty for the server default) from the faucet and
// returns once it is confirmed.
func (c *Client) Airdrop(ctx context.Context, address, sol string) (*Action, error) {
	var a Action
	err := c.do(ctx, http.MethodPost, "/api/v1/airdrop", map[string]string{
		"address": address,
		"sol":     sol,
	}, &a)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("airdrop confirmed", "address", address, "signature", a.Signature)
	return &a, nil
}

// Transfer sends sol from the server's payer keypair to to.
func (c *Client) Transfer(ctx context.Context, to, sol string) (*Action, error) {
	var a Action
	err := c.do(ctx, http.MethodPost, "/api/v1/transfers", map[string]string{
		"to":  to,
		"sol": sol,
	}, &a)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("transfer confirmed", "to", to, "signature", a.Signature)
	return &a, nil
}

// CreateMint creates an SPL mint with the server's payer as authority.
func (c *Client) CreateMint(ctx context.Context, decimals uint8) (*Action, error) {
	var a Action
	err := c.do(ctx, http.MethodPost, "/api/v1/mints", map[string]int{"decimals": int(decimals)}, &a, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateTokenAccount creates the payer's associated token account for mint.
func (c *Client) CreateTokenAccount(ctx context.Context, mint string) (*Action, error) {
	var a Action
	path := fmt.Sprintf("/api/v1/mints/%s/token-accounts", url.PathEscape(mint))
	if err := c.do(ctx, http.MethodPost, path, nil, &a, http.StatusCreated); err != nil {
		return nil, err
	}
	return &a, nil
}

// MintTo mints amount base units into the payer's token account.
func (c *Client) MintTo(ctx context.Context, mint string, amount uint64) (*Action, error) {
	var a Action
	path := fmt.Sprintf("/api/v1/mints/%s/mint-to", url.PathEscape(mint))
	if err := c.do(ctx, http.MethodPost, path, map[string]uint64{"amount": amount}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// TokenBalance returns a token account balance. With a mint, address is a
// wallet and its associated token account is queried.
func (c *Client) TokenBalance(ctx context.Context, address, mint string) (*TokenBalance, error) {
	path := "/api/v1/token-accounts/" + url.PathEscape(address) + "/balance"
	if mint != "" {
		path += "?mint=" + url.QueryEscape(mint)
	}
	var b TokenBalance
	if err := c.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// FundRequest builds a Solana Pay request for funding address.
func (c *Client) FundRequest(ctx context.Context, address, sol, mint, memo string) (*FundRequest, error) {
	q := url.Values{}
	if sol != "" {
		q.Set("sol", sol)
	}
	if mint != "" {
		q.Set("mint", mint)
	}
	if memo != "" {
		q.Set("memo", memo)
	}
	path := "/api/v1/accounts/" + url.PathEscape(address) + "/fund-request"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var fr FundRequest
	if err := c.do(ctx, http.MethodGet, path, nil, &fr); err != nil {
		return nil, err
	}
	return &fr, nil
}
