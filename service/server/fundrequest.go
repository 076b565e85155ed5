package server

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/solplay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const maxMemoLength = 200

// FundRequest is a Solana Pay transfer request for funding an address.
type FundRequest struct {
	ID         string    `json:"id"`
	Recipient  string    `json:"recipient"`
	Network    string    `json:"network"`
	Lamports   uint64    `json:"lamports,omitempty"`
	SOL        string    `json:"sol,omitempty"`
	TokenMint  string    `json:"token_mint,omitempty"`
	Reference  string    `json:"reference"`
	Memo       string    `json:"memo,omitempty"`
	PaymentURL string    `json:"payment_url"`
	QRCodeData string    `json:"qr_code_data,omitempty"` // base64 PNG
	CreatedAt  time.Time `json:"created_at"`
}

// newFundRequest builds a transfer request for recipient. lamports may be
// zero to let the wallet ask for the amount.
func newFundRequest(network solana.Network, recipient string, lamports uint64, tokenMint, memo string) FundRequest {
	id := uuid.New()
	reference := referenceKey(id)

	req := FundRequest{
		ID:        id.String(),
		Recipient: recipient,
		Network:   string(network),
		Lamports:  lamports,
		TokenMint: tokenMint,
		Reference: reference.String(),
		Memo:      memo,
		CreatedAt: time.Now().UTC(),
	}
	if lamports > 0 {
		req.SOL = solana.FormatSOL(lamports)
	}
	req.PaymentURL = buildSolanaPayURL(recipient, req.SOL, tokenMint, req.Reference, memo)
	return req
}

// referenceKey derives the Solana Pay reference account from a request ID,
// so a payment can be located on chain by the ID alone.
func referenceKey(id uuid.UUID) solanago.PublicKey {
	sum := sha256.Sum256(id[:])
	return solanago.PublicKeyFromBytes(sum[:])
}

// buildSolanaPayURL creates a Solana Pay transfer request URL.
// Format: solana:{recipient}?amount={sol}&spl-token={mint}&reference={ref}&memo={memo}&label={label}
func buildSolanaPayURL(recipient, sol, tokenMint, reference, memo string) string {
	params := url.Values{}
	if sol != "" {
		params.Set("amount", sol)
	}
	if tokenMint != "" {
		params.Set("spl-token", tokenMint)
	}
	params.Set("reference", reference)
	if memo != "" {
		params.Set("memo", memo)
	}
	params.Set("label", "solplay")

	return fmt.Sprintf("solana:%s?%s", recipient, params.Encode())
}

// generateQRCode creates a QR code image from a payment URL and returns it as base64-encoded PNG.
func generateQRCode(data string) (string, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code as PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}

// handleFundRequest returns a handler that builds a Solana Pay request for an address.
// GET /api/v1/accounts/{address}/fund-request?sol=0.5&mint=MINT&memo=hello
func handleFundRequest(p Playground, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recipient, err := parseAddress("address", r.PathValue("address"))
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		query := r.URL.Query()

		var lamports uint64
		if sol := query.Get("sol"); sol != "" {
			lamports, err = parseSOL(sol, 0)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		tokenMint := query.Get("mint")
		if tokenMint != "" {
			if _, err := parseAddress("mint", tokenMint); err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		memo := query.Get("memo")
		if len(memo) > maxMemoLength {
			writeError(w, fmt.Sprintf("memo too long: maximum length is %d characters", maxMemoLength), http.StatusBadRequest)
			return
		}

		network := solana.Devnet
		if p != nil {
			network = p.Network()
		}

		req := newFundRequest(network, recipient.String(), lamports, tokenMint, memo)
		qr, err := generateQRCode(req.PaymentURL)
		if err != nil {
			// QR code is optional
			logger.Warn("failed to generate QR code", "error", err)
		}
		req.QRCodeData = qr

		logger.Debug("fund request created", "id", req.ID, "recipient", req.Recipient)
		writeJSON(w, req, http.StatusOK)
	})
}
