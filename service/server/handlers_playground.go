package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/brojonat/solplay/service/journal"
	"github.com/brojonat/solplay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// defaultTransferLamports is the transfer size used when none is given (0.1 SOL).
const defaultTransferLamports = solanago.LAMPORTS_PER_SOL / 10

// actionResponse is the JSON response for a confirmed playground action.
type actionResponse struct {
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

func newActionResponse(network solana.Network, kind, address, signature string) actionResponse {
	return actionResponse{
		Kind:        kind,
		Network:     string(network),
		Address:     address,
		Signature:   signature,
		ExplorerURL: network.ExplorerTxURL(signature),
	}
}

// record writes a confirmed action to the journal. The action already
// happened on chain, so a failure is logged and not returned to the caller.
func record(ctx context.Context, recorder Recorder, logger *slog.Logger, e journal.Entry) {
	if _, err := recorder.Record(ctx, e); err != nil {
		logger.WarnContext(ctx, "failed to record activity",
			"kind", e.Kind,
			"signature", e.Signature,
			"error", err,
		)
	}
}

// requirePlayground answers 503 when no chain client is configured.
func requirePlayground(w http.ResponseWriter, p Playground) bool {
	if p == nil {
		writeError(w, "solana client is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// requirePayer answers 503 when no payer keypair is configured.
func requirePayer(w http.ResponseWriter, p Playground, payer solanago.PrivateKey) bool {
	if !requirePlayground(w, p) {
		return false
	}
	if len(payer) == 0 {
		writeError(w, "payer keypair is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleGetAccount returns a handler that fetches an account and decodes mint data.
// GET /api/v1/accounts/{address}
func handleGetAccount(p Playground, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePlayground(w, p) {
			return
		}
		address, err := parseAddress("address", r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		account, err := p.GetAccount(r.Context(), address)
		if err != nil {
			writeChainError(w, logger, "get account", err)
			return
		}

		writeJSON(w, account, http.StatusOK)
	})
}

// handleGetBalance returns a handler that reports an address's SOL balance.
// GET /api/v1/accounts/{address}/balance
func handleGetBalance(p Playground, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePlayground(w, p) {
			return
		}
		address, err := parseAddress("address", r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		lamports, err := p.GetBalance(r.Context(), address)
		if err != nil {
			writeChainError(w, logger, "get balance", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":  address.String(),
			"network":  p.Network(),
			"lamports": lamports,
			"sol":      solana.FormatSOL(lamports),
		}, http.StatusOK)
	})
}

// handleAirdrop returns a handler that requests and confirms a faucet airdrop.
// POST /api/v1/airdrop {"address": "...", "sol": "1"}
func handleAirdrop(p Playground, recorder Recorder, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePlayground(w, p) {
			return
		}
		var req struct {
			Address string `json:"address"`
			SOL     string `json:"sol"`
		}
		if msg, ok := decodeBody(w, r, maxRequestBodySize, &req); !ok {
			writeError(w, msg, http.StatusBadRequest)
			return
		}

		address, err := parseAddress("address", req.Address)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		lamports, err := parseSOL(req.SOL, solana.DefaultAirdropLamports)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		sig, err := p.RequestAirdrop(r.Context(), address, lamports)
		if err != nil {
			writeChainError(w, logger, "airdrop", err)
			return
		}
		if err := p.ConfirmSignature(r.Context(), sig); err != nil {
			writeChainError(w, logger, "airdrop confirmation", err)
			return
		}

		record(r.Context(), recorder, logger, journal.Entry{
			Kind:      solana.ActionAirdrop,
			Network:   p.Network(),
			Address:   address.String(),
			Signature: sig.String(),
			Lamports:  lamports,
		})

		resp := newActionResponse(p.Network(), solana.ActionAirdrop, address.String(), sig.String())
		resp.Lamports = lamports
		resp.SOL = solana.FormatSOL(lamports)
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleTransfer returns a handler that sends SOL from the payer keypair.
// POST /api/v1/transfers {"to": "...", "sol": "0.1"}
func handleTransfer(p Playground, payer solanago.PrivateKey, recorder Recorder, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePayer(w, p, payer) {
			return
		}
		var req struct {
			To  string `json:"to"`
			SOL string `json:"sol"`
		}
		if msg, ok := decodeBody(w, r, maxRequestBodySize, &req); !ok {
			writeError(w, msg, http.StatusBadRequest)
			return
		}

		to, err := parseAddress("to", req.To)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		lamports, err := parseSOL(req.SOL, defaultTransferLamports)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		sig, err := p.TransferSOL(r.Context(), payer, to, lamports)
		if err != nil {
			writeChainError(w, logger, "transfer", err)
			return
		}

		record(r.Context(), recorder, logger, journal.Entry{
			Kind:      solana.ActionTransfer,
			Network:   p.Network(),
			Address:   to.String(),
			Signature: sig.String(),
			Lamports:  lamports,
			Detail:    map[string]any{"from": payer.PublicKey().String()},
		})

		resp := newActionResponse(p.Network(), solana.ActionTransfer, to.String(), sig.String())
		resp.Lamports = lamports
		resp.SOL = solana.FormatSOL(lamports)
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleCreateMint returns a handler that creates an SPL mint owned by the payer.
// POST /api/v1/mints {"decimals": 9}
func handleCreateMint(p Playground, payer solanago.PrivateKey, recorder Recorder, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePayer(w, p, payer) {
			return
		}
		var req struct {
			Decimals *int `json:"decimals"`
		}
		if msg, ok := decodeBody(w, r, maxRequestBodySize, &req); !ok {
			writeError(w, msg, http.StatusBadRequest)
			return
		}
		decimals := 9
		if req.Decimals != nil {
			decimals = *req.Decimals
		}
		if decimals < 0 || decimals > 255 {
			writeError(w, "decimals must be between 0 and 255", http.StatusBadRequest)
			return
		}

		result, err := p.CreateMint(r.Context(), payer, uint8(decimals))
		if err != nil {
			writeChainError(w, logger, "create mint", err)
			return
		}

		record(r.Context(), recorder, logger, journal.Entry{
			Kind:      solana.ActionCreateMint,
			Network:   p.Network(),
			Address:   result.Mint,
			Signature: result.Signature,
			Detail: map[string]any{
				"decimals":       decimals,
				"mint_authority": payer.PublicKey().String(),
			},
		})

		resp := newActionResponse(p.Network(), solana.ActionCreateMint, result.Mint, result.Signature)
		resp.Mint = result.Mint
		writeJSON(w, resp, http.StatusCreated)
	})
}

// handleCreateTokenAccount returns a handler that creates the payer's
// associated token account for a mint.
// POST /api/v1/mints/{mint}/token-accounts
func handleCreateTokenAccount(p Playground, payer solanago.PrivateKey, recorder Recorder, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePayer(w, p, payer) {
			return
		}
		mint, err := parseAddress("mint", r.PathValue("mint"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := p.CreateTokenAccount(r.Context(), payer, mint)
		if err != nil {
			writeChainError(w, logger, "create token account", err)
			return
		}

		record(r.Context(), recorder, logger, journal.Entry{
			Kind:      solana.ActionCreateTokenAccount,
			Network:   p.Network(),
			Address:   result.Address,
			Signature: result.Signature,
			Detail:    map[string]any{"mint": mint.String(), "owner": payer.PublicKey().String()},
		})

		resp := newActionResponse(p.Network(), solana.ActionCreateTokenAccount, result.Address, result.Signature)
		resp.Mint = mint.String()
		writeJSON(w, resp, http.StatusCreated)
	})
}

// handleMintTo returns a handler that mints tokens into the payer's token account.
// POST /api/v1/mints/{mint}/mint-to {"amount": 1000}
func handleMintTo(p Playground, payer solanago.PrivateKey, recorder Recorder, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePayer(w, p, payer) {
			return
		}
		mint, err := parseAddress("mint", r.PathValue("mint"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			Amount uint64 `json:"amount"`
		}
		if msg, ok := decodeBody(w, r, maxRequestBodySize, &req); !ok {
			writeError(w, msg, http.StatusBadRequest)
			return
		}
		if req.Amount == 0 {
			writeError(w, "amount must be positive", http.StatusBadRequest)
			return
		}

		ata, err := computeAssociatedTokenAddress(payer.PublicKey().String(), mint.String())
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		sig, err := p.MintTo(r.Context(), payer, mint, req.Amount)
		if err != nil {
			writeChainError(w, logger, "mint to", err)
			return
		}

		record(r.Context(), recorder, logger, journal.Entry{
			Kind:      solana.ActionMintTo,
			Network:   p.Network(),
			Address:   ata,
			Signature: sig.String(),
			Detail:    map[string]any{"mint": mint.String(), "amount": req.Amount},
		})

		resp := newActionResponse(p.Network(), solana.ActionMintTo, ata, sig.String())
		resp.Mint = mint.String()
		resp.Amount = req.Amount
		writeJSON(w, resp, http.StatusOK)
	})
}

// handleGetTokenBalance returns a handler that reports an SPL token account balance.
// GET /api/v1/token-accounts/{address}/balance
// With ?mint=MINT the address is treated as a wallet and its associated token account is used.
func handleGetTokenBalance(p Playground, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requirePlayground(w, p) {
			return
		}
		address := r.PathValue("address")
		if err := validateAddress(address); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if mint := r.URL.Query().Get("mint"); mint != "" {
			if err := validateAddress(mint); err != nil {
				writeError(w, "invalid mint: "+err.Error(), http.StatusBadRequest)
				return
			}
			ata, err := computeAssociatedTokenAddress(address, mint)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			address = ata
		}
		account, err := parseAddress("address", address)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		balance, err := p.GetTokenBalance(r.Context(), account)
		if err != nil {
			writeChainError(w, logger, "get token balance", err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"address":  account.String(),
			"amount":   balance.Amount,
			"decimals": balance.Decimals,
			"uiAmount": balance.UIAmount,
		}, http.StatusOK)
	})
}
