package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/brojonat/solplay/service/solana"
	"github.com/brojonat/solplay/service/temporal"
)

// startSendRequest is the body of POST /api/v1/send-workflows.
type startSendRequest struct {
	Recipient  string `json:"recipient"`
	SOL        string `json:"sol"`
	AirdropSOL string `json:"airdrop_sol"`
	// NoAirdrop skips funding; the worker must then have a payer configured.
	NoAirdrop bool `json:"no_airdrop"`
}

// handleStartSendWorkflow returns a handler that starts a send workflow.
// POST /api/v1/send-workflows
// The workflow runs asynchronously; poll GET /api/v1/send-workflows/{id} for its result.
func handleStartSendWorkflow(workflows temporal.SendWorkflows, network solana.Network, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if workflows == nil {
			writeError(w, "workflow client is not configured", http.StatusServiceUnavailable)
			return
		}
		var req startSendRequest
		if msg, ok := decodeBody(w, r, maxRequestBodySize, &req); !ok {
			writeError(w, msg, http.StatusBadRequest)
			return
		}

		recipient, err := parseAddress("recipient", req.Recipient)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		lamports, err := parseSOL(req.SOL, defaultTransferLamports)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		var airdrop uint64
		if !req.NoAirdrop {
			if !network.HasFaucet() {
				writeError(w, solana.ErrAirdropUnavailable.Error()+": set no_airdrop", http.StatusBadRequest)
				return
			}
			airdrop, err = parseSOL(req.AirdropSOL, solana.DefaultAirdropLamports)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		input := temporal.SendSOLInput{
			Recipient:       recipient.String(),
			Lamports:        lamports,
			AirdropLamports: airdrop,
			Network:         string(network),
		}
		if err := input.Validate(); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		run, err := workflows.StartSendSOL(r.Context(), input)
		if err != nil {
			logger.Error("failed to start send workflow", "recipient", input.Recipient, "error", err)
			writeError(w, "failed to start workflow", http.StatusInternalServerError)
			return
		}

		logger.Info("send workflow started",
			"workflow_id", run.WorkflowID,
			"recipient", input.Recipient,
			"lamports", lamports,
		)

		writeJSON(w, map[string]interface{}{
			"workflow_id": run.WorkflowID,
			"run_id":      run.RunID,
			"recipient":   input.Recipient,
			"lamports":    lamports,
			"network":     input.Network,
			"status":      "running",
		}, http.StatusAccepted)
	})
}

// handleGetSendWorkflow returns a handler that reports a send workflow's status.
// GET /api/v1/send-workflows/{workflow_id}
func handleGetSendWorkflow(workflows temporal.SendWorkflows, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if workflows == nil {
			writeError(w, "workflow client is not configured", http.StatusServiceUnavailable)
			return
		}
		id := r.PathValue("workflow_id")
		if id == "" || len(id) > 200 {
			writeError(w, "invalid workflow id", http.StatusBadRequest)
			return
		}

		status, err := workflows.DescribeSendSOL(r.Context(), id)
		if errors.Is(err, temporal.ErrWorkflowNotFound) {
			writeError(w, "workflow not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to describe send workflow", "workflow_id", id, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, status, http.StatusOK)
	})
}
