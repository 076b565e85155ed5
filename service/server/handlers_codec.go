package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brojonat/solplay/service/metrics"
	"github.com/brojonat/solplay/service/txcodec"
)

type decodeRequest struct {
	Blob     string `json:"blob"`
	Encoding string `json:"encoding"`
}

type decodeResponse struct {
	OK       bool                `json:"ok"`
	Strategy string              `json:"strategy,omitempty"`
	Summary  *txcodec.Summary    `json:"summary,omitempty"`
	Kind     txcodec.FailureKind `json:"kind,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleDecode returns a handler that classifies and summarises a transaction blob.
// POST /api/v1/decode
// A failed decode is a normal result and answers 422 with the failure kind.
func handleDecode(decoders map[string]*txcodec.Decoder, limit int64, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req decodeRequest
		if msg, ok := decodeBody(w, r, limit, &req); !ok {
			logger.Debug("failed to decode request body", "error", msg)
			writeError(w, msg, http.StatusBadRequest)
			return
		}

		name := strings.ToLower(strings.TrimSpace(req.Encoding))
		if name == "" {
			name = txcodec.Base64.Name()
		}
		decoder, ok := decoders[name]
		if !ok {
			writeError(w, "invalid encoding: must be 'base64' or 'base58'", http.StatusBadRequest)
			return
		}

		outcome := decoder.Decode(req.Blob)
		if !outcome.OK() {
			logger.Debug("decode failed", "kind", outcome.Kind, "message", outcome.Message)
			writeJSON(w, decodeResponse{
				OK:    false,
				Kind:  outcome.Kind,
				Error: outcome.Message,
			}, http.StatusUnprocessableEntity)
			return
		}

		writeJSON(w, decodeResponse{
			OK:       true,
			Strategy: outcome.Strategy,
			Summary:  outcome.Summary,
		}, http.StatusOK)
	})
}

// handleEncode returns a handler that builds an unsigned transfer.
// GET /api/v1/encode?encoding=base64 encodes the placeholder draft.
// POST /api/v1/encode encodes the draft in the body; missing fields keep placeholder values.
func handleEncode(m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := txcodec.Base64
		if name := r.URL.Query().Get("encoding"); name != "" {
			e, err := txcodec.EncodingByName(name)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			enc = e
		}

		draft := txcodec.DefaultDraft()
		if r.Method == http.MethodPost {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
			if err != nil {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			if len(strings.TrimSpace(string(body))) > 0 {
				draft, err = txcodec.DraftFromJSON(body)
				if err != nil {
					writeError(w, err.Error(), http.StatusBadRequest)
					return
				}
			}
		}

		encoded, err := txcodec.NewEncoder(enc).Encode(draft)
		m.RecordEncode(err)
		if err != nil {
			logger.Debug("encode failed", "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, map[string]string{
			"encoded":  encoded,
			"encoding": enc.Name(),
		}, http.StatusOK)
	})
}
