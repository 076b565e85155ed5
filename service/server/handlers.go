package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brojonat/solplay/service/db"
	"github.com/brojonat/solplay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	maxRequestBodySize    = 1 << 20 // 1MB
	defaultMaxDecodeBytes = 64 << 10
	maxAddressLength      = 100 // Solana addresses are 44 chars, give buffer
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// decodeBody reads a JSON request body bounded by limit. An empty body leaves
// dst untouched. The returned message is safe to send to the client.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return "", true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "http: request body too large") {
		return fmt.Sprintf("request body too large: maximum size is %d bytes", limit), false
	}
	return "invalid request body: must be valid JSON", false
}

// writeChainError maps playground errors onto HTTP statuses.
func writeChainError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, solana.ErrAirdropUnavailable):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, solana.ErrAccountNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, solana.ErrConfirmTimeout):
		writeError(w, err.Error(), http.StatusGatewayTimeout)
	case errors.Is(err, solana.ErrTransactionFailed):
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		logger.Error("playground action failed", "action", action, "error", err)
		writeError(w, fmt.Sprintf("%s failed: %v", action, err), http.StatusBadGateway)
	}
}

// validateAddress validates a wallet address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// parseAddress validates and decodes a base58 public key. field names the
// value in error messages.
func parseAddress(field, address string) (solanago.PublicKey, error) {
	if err := validateAddress(address); err != nil {
		return solanago.PublicKey{}, errorf("invalid %s: %v", field, err)
	}
	pk, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return solanago.PublicKey{}, errorf("invalid %s: %v", field, err)
	}
	return pk, nil
}

// parseSOL converts an optional SOL amount to lamports.
func parseSOL(sol string, fallback uint64) (uint64, error) {
	if strings.TrimSpace(sol) == "" {
		return fallback, nil
	}
	lamports, err := solana.SOLToLamports(sol)
	if err != nil {
		return 0, errorf("invalid sol amount: %v", err)
	}
	if lamports == 0 {
		return 0, errorf("sol amount must be positive")
	}
	return lamports, nil
}

// parseIntParam reads a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errorf("invalid %s parameter: must be an integer", name)
	}
	if v < 0 {
		return 0, errorf("%s cannot be negative", name)
	}
	return v, nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

// computeAssociatedTokenAddress computes the ATA for a wallet address and token mint.
// Returns the ATA address as a string, or an error if the computation fails.
func computeAssociatedTokenAddress(walletAddress string, tokenMint string) (string, error) {
	wallet, err := solanago.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return "", fmt.Errorf("invalid wallet address: %w", err)
	}

	mint, err := solanago.PublicKeyFromBase58(tokenMint)
	if err != nil {
		return "", fmt.Errorf("invalid token mint: %w", err)
	}

	ata, _, err := solanago.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return "", fmt.Errorf("failed to compute ATA: %w", err)
	}

	return ata.String(), nil
}

// handleListActivities returns a handler that lists the activity log.
// GET /api/v1/activities?address=ADDRESS&limit=N&offset=N
func handleListActivities(lister ActivityLister, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lister == nil {
			writeError(w, "activity log is not configured", http.StatusServiceUnavailable)
			return
		}

		address := r.URL.Query().Get("address")
		if address != "" {
			if err := validateAddress(address); err != nil {
				logger.Debug("invalid address", "address", address, "error", err)
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		limit, err := parseIntParam(r, "limit", db.DefaultListLimit)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if limit > db.MaxListLimit {
			writeError(w, fmt.Sprintf("limit cannot exceed %d", db.MaxListLimit), http.StatusBadRequest)
			return
		}
		offset, err := parseIntParam(r, "offset", 0)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		activities, err := lister.ListActivities(r.Context(), db.ListActivitiesParams{
			Address: address,
			Limit:   limit,
			Offset:  offset,
		})
		if err != nil {
			logger.Error("failed to list activities", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if activities == nil {
			activities = []*db.Activity{}
		}

		logger.Debug("activities listed", "address", address, "count", len(activities))

		writeJSON(w, map[string]interface{}{
			"activities": activities,
			"count":      len(activities),
			"limit":      limit,
			"offset":     offset,
		}, http.StatusOK)
	})
}
