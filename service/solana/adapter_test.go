package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcStub answers JSON-RPC calls by method name, echoing the request id.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected RPC method %s", req.Method)
			result = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
}

func TestRealRPCClient(t *testing.T) {
	address := solana.NewWallet().PublicKey()

	t.Run("balance unwraps the context envelope", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"getBalance": `{"context":{"slot":10},"value":1500000000}`,
		})
		defer srv.Close()

		lamports, err := NewRPCClient(srv.URL).GetBalance(context.Background(), address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1500000000), lamports)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"getAccountInfo": `{"context":{"slot":10},"value":null}`,
		})
		defer srv.Close()

		_, err := NewRPCClient(srv.URL).GetAccountInfo(context.Background(), address)
		assert.ErrorIs(t, err, rpc.ErrNotFound)
	})

	t.Run("empty blockhash is an error", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"getLatestBlockhash": `{"context":{"slot":10},"value":null}`,
		})
		defer srv.Close()

		_, err := NewRPCClient(srv.URL).GetLatestBlockhash(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty blockhash response")
	})

	t.Run("rent exemption", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"getMinimumBalanceForRentExemption": `1461600`,
		})
		defer srv.Close()

		lamports, err := NewRPCClient(srv.URL).GetMinimumBalanceForRentExemption(context.Background(), token.MINT_SIZE)
		require.NoError(t, err)
		assert.Equal(t, uint64(1461600), lamports)
	})
}

func TestSelectRandomEndpoint(t *testing.T) {
	t.Run("single endpoint is always chosen", func(t *testing.T) {
		selected, err := SelectRandomEndpoint([]string{"https://api.devnet.solana.com"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.devnet.solana.com", selected)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := SelectRandomEndpoint(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no RPC endpoints configured")
	})

	t.Run("spreads across endpoints", func(t *testing.T) {
		endpoints := []string{"https://a.example", "https://b.example", "https://c.example"}
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			selected, err := SelectRandomEndpoint(endpoints)
			require.NoError(t, err)
			require.Contains(t, endpoints, selected)
			seen[selected] = true
		}
		assert.GreaterOrEqual(t, len(seen), 2)
	})
}
