package server_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/brojonat/solplay/client"
	"github.com/brojonat/solplay/service/config"
	"github.com/brojonat/solplay/service/db"
	"github.com/brojonat/solplay/service/journal"
	natspkg "github.com/brojonat/solplay/service/nats"
	"github.com/brojonat/solplay/service/server"
	"github.com/brojonat/solplay/service/solana"
	"github.com/brojonat/solplay/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServerIntegration drives the HTTP API through the Go client against a
// real activity log database.
func TestServerIntegration(t *testing.T) {
	db.SkipIfNoTestDB(t)

	store := db.NewTestStore(t)
	defer store.Close()
	store.Cleanup(t)

	publisher := natspkg.NewMockPublisher()
	recorder := journal.New(store.Store, publisher, slog.Default())
	workflows := temporal.NewMockSendWorkflows()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := server.New(":0", &config.Config{SolanaNetwork: "devnet"}, server.Deps{
		Recorder:   recorder,
		Activities: store.Store,
		Workflows:  workflows,
	}, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := client.NewClient(ts.URL, nil, nil)

	t.Run("health and version", func(t *testing.T) {
		require.NoError(t, c.Health(ctx))
		v, err := c.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, "devnet", v.Network)
	})

	t.Run("encode then decode round trip", func(t *testing.T) {
		to := solanago.NewWallet().PublicKey().String()
		blob, err := c.Encode(ctx, &client.Draft{To: to, Lamports: 5000}, "base58")
		require.NoError(t, err)

		res, err := c.Decode(ctx, blob, "base58")
		require.NoError(t, err)
		require.True(t, res.OK, res.Error)
		assert.Contains(t, string(res.Summary), to)
	})

	t.Run("decode failure", func(t *testing.T) {
		res, err := c.Decode(ctx, "AAAA", "base64")
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.NotEmpty(t, res.Kind)
	})

	t.Run("chain routes need a solana client", func(t *testing.T) {
		_, err := c.Balance(ctx, solanago.NewWallet().PublicKey().String())
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 503, apiErr.StatusCode)
	})

	t.Run("activities recorded by the journal are listed", func(t *testing.T) {
		address := solanago.NewWallet().PublicKey().String()
		_, err := recorder.Record(ctx, journal.Entry{
			Kind:      solana.ActionAirdrop,
			Network:   solana.Devnet,
			Address:   address,
			Signature: solanago.Signature{9}.String(),
			Lamports:  solanago.LAMPORTS_PER_SOL,
		})
		require.NoError(t, err)

		activities, err := c.ListActivities(ctx, client.ListActivitiesOptions{Address: address})
		require.NoError(t, err)
		require.Len(t, activities, 1)
		assert.Equal(t, solana.ActionAirdrop, activities[0].Kind)
		assert.Equal(t, int64(solanago.LAMPORTS_PER_SOL), activities[0].Lamports)

		assert.Equal(t, 1, publisher.GetPublishedEventCount())
	})

	t.Run("send workflow lifecycle", func(t *testing.T) {
		recipient := solanago.NewWallet().PublicKey().String()
		run, err := c.StartSend(ctx, client.SendRequest{Recipient: recipient, SOL: "0.2"})
		require.NoError(t, err)

		workflows.Complete(run.WorkflowID, &temporal.SendSOLResult{
			Recipient: recipient,
			Status:    temporal.StatusCompleted,
		})

		status, err := c.WaitSend(ctx, run.WorkflowID, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, temporal.StatusCompleted, status.Status)
		assert.Equal(t, recipient, status.Result.Recipient)
	})
}
