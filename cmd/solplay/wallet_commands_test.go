package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const testAddress = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

func writeTestJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestWalletBalanceCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/"+testAddress+"/balance", r.URL.Path)
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"address":  testAddress,
			"network":  "devnet",
			"lamports": 1500000000,
			"sol":      "1.5",
		})
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "wallet", "balance", testAddress)
	require.NoError(t, err)
	assert.Equal(t, "1.5 SOL (1500000000 lamports) on devnet\n", out)
}

func TestWalletBalanceCommand_MissingAddress(t *testing.T) {
	_, _, err := runApp(t, nil, "wallet", "balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestWalletBalanceCommand_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
	}))
	defer server.Close()

	_, _, err := runApp(t, nil, "--server-url", server.URL, "wallet", "balance", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
}

func TestWalletAirdropCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/airdrop", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testAddress, body["address"])
		assert.Equal(t, "2", body["sol"])

		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"kind":         "airdrop",
			"network":      "devnet",
			"address":      testAddress,
			"signature":    "sig123",
			"lamports":     2000000000,
			"sol":          "2",
			"explorer_url": "https://explorer.solana.com/tx/sig123?cluster=devnet",
		})
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "wallet", "airdrop", "--sol", "2", testAddress)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ airdrop confirmed on devnet")
	assert.Contains(t, out, "Signature: sig123")
	assert.Contains(t, out, "cluster=devnet")
}

func TestWalletTransferCommand_JSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"kind":      "transfer",
			"network":   "devnet",
			"address":   testAddress,
			"signature": "sig456",
			"lamports":  100000000,
		})
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "--json", "wallet", "transfer", testAddress)
	require.NoError(t, err)

	var action map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &action))
	assert.Equal(t, "transfer", action["kind"])
	assert.Equal(t, "sig456", action["signature"])
}

func TestSendCommand_NoWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/send-workflows", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, testAddress, body["recipient"])
		assert.Equal(t, true, body["no_airdrop"])

		writeTestJSON(w, http.StatusAccepted, map[string]interface{}{
			"workflow_id": "send-abc",
			"run_id":      "run-1",
			"recipient":   testAddress,
			"lamports":    100000000,
			"network":     "devnet",
			"status":      "running",
		})
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "send", "--no-airdrop", "--wait=false", testAddress)
	require.NoError(t, err)
	assert.Equal(t, "Started send-abc (100000000 lamports to "+testAddress+")\n", out)
}

func TestSendCommand_WaitsForCompletion(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			writeTestJSON(w, http.StatusAccepted, map[string]interface{}{
				"workflow_id": "send-abc",
				"status":      "running",
			})
		case strings.HasSuffix(r.URL.Path, "/send-abc"):
			status := "running"
			if polls.Add(1) > 1 {
				status = "completed"
			}
			writeTestJSON(w, http.StatusOK, map[string]interface{}{
				"workflow_id": "send-abc",
				"status":      status,
				"started_at":  time.Now().UTC(),
				"result": map[string]interface{}{
					"sender":             "sender111",
					"sender_generated":   true,
					"recipient":          testAddress,
					"lamports":           100000000,
					"transfer_signature": "sig789",
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "send", "--poll-interval", "10ms", testAddress)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "sender111 (generated)")
	assert.Contains(t, out, "Transfer: sig789")
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestSendStatusCommand_FailedWorkflowExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/send-workflows/send-xyz", r.URL.Path)
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"workflow_id": "send-xyz",
			"status":      "failed",
			"error":       "airdrop unavailable",
		})
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "send", "status", "send-xyz")
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, out, "Error:    airdrop unavailable")
}

func TestActivityListCommand(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/activities", r.URL.Path)
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"activities": []map[string]interface{}{
				{"id": 7, "kind": "airdrop", "address": testAddress, "lamports": 1000, "signature": "sigA", "created_at": created},
			},
			"count": 1,
		})
	}))
	defer server.Close()

	out, stderr, err := runApp(t, nil, "--server-url", server.URL, "activity", "list", "--address", testAddress, "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "sigA")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.Contains(t, stderr, "Total: 1 activities")
}

func TestActivityAwaitCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stream/activities/airdrop", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("event: connected\ndata: {\"subject\":\"playground.airdrop\"}\n\n"))
		_, _ = w.Write([]byte("event: activity\ndata: {\"kind\":\"airdrop\",\"address\":\"other\",\"lamports\":1}\n\n"))
		_, _ = w.Write([]byte("event: activity\ndata: {\"kind\":\"airdrop\",\"address\":\"" + testAddress + "\",\"lamports\":2000000000}\n\n"))
		w.(http.Flusher).Flush()
	}))
	defer server.Close()

	out, _, err := runApp(t, nil, "--server-url", server.URL, "activity", "await",
		"--kind", "airdrop", "--address", testAddress, "--jq", ".lamports > 1000", "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ airdrop "+testAddress+" 2000000000 lamports")
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, isTruthy(0))
	assert.True(t, isTruthy(""))
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
}
