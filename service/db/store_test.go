package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordActivity(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	t.Run("records airdrop with detail", func(t *testing.T) {
		a, err := store.RecordActivity(ctx, RecordActivityParams{
			Kind:      "airdrop",
			Network:   "devnet",
			Address:   "DRpbCBMxVnDK7maPM5tGv6MvB3v1sRMC86PZ8okm21hy",
			Signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			Lamports:  1_000_000_000,
			Detail:    map[string]any{"explorer": "https://explorer.solana.com/tx/x?cluster=devnet"},
		})
		require.NoError(t, err)
		require.NotNil(t, a)

		assert.NotZero(t, a.ID)
		assert.Equal(t, "airdrop", a.Kind)
		assert.Equal(t, "devnet", a.Network)
		assert.Equal(t, int64(1_000_000_000), a.Lamports)
		assert.Equal(t, "https://explorer.solana.com/tx/x?cluster=devnet", a.Detail["explorer"])
		assert.WithinDuration(t, time.Now(), a.CreatedAt, 5*time.Second)
	})

	t.Run("nil detail stored as empty object", func(t *testing.T) {
		a, err := store.RecordActivity(ctx, RecordActivityParams{
			Kind:    "create_mint",
			Network: "devnet",
			Address: "mint-authority",
		})
		require.NoError(t, err)
		assert.NotNil(t, a.Detail)
		assert.Empty(t, a.Detail)
		assert.Empty(t, a.Signature)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		_, err := store.RecordActivity(ctx, RecordActivityParams{Kind: "transfer"})
		require.ErrorIs(t, err, ErrInvalidActivity)
		assert.Contains(t, err.Error(), "network")
		assert.Contains(t, err.Error(), "address")
	})

	t.Run("negative lamports rejected", func(t *testing.T) {
		_, err := store.RecordActivity(ctx, RecordActivityParams{
			Kind: "transfer", Network: "devnet", Address: "a", Lamports: -1,
		})
		require.ErrorIs(t, err, ErrInvalidActivity)
	})
}

func TestListActivities(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()
	defer store.Cleanup(t)

	ctx := context.Background()

	for i, addr := range []string{"alice", "bob", "alice", "alice"} {
		_, err := store.RecordActivity(ctx, RecordActivityParams{
			Kind:     "transfer",
			Network:  "devnet",
			Address:  addr,
			Lamports: int64(i + 1),
		})
		require.NoError(t, err)
	}

	t.Run("all addresses newest first", func(t *testing.T) {
		got, err := store.ListActivities(ctx, ListActivitiesParams{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, int64(4), got[0].Lamports)
		assert.Equal(t, int64(1), got[3].Lamports)
	})

	t.Run("filter by address", func(t *testing.T) {
		got, err := store.ListActivities(ctx, ListActivitiesParams{Address: "alice"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, a := range got {
			assert.Equal(t, "alice", a.Address)
		}

		n, err := store.CountActivities(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := store.ListActivities(ctx, ListActivitiesParams{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, int64(3), page[0].Lamports)
		assert.Equal(t, int64(2), page[1].Lamports)
	})

	t.Run("ordered by creation time before id", func(t *testing.T) {
		store.MustExec(t, `INSERT INTO activities (kind, network, address, created_at)
			VALUES ('airdrop', 'devnet', 'dave', now() - interval '1 hour')`)

		got, err := store.ListActivities(ctx, ListActivitiesParams{})
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, "dave", got[4].Address)
	})

	t.Run("unknown address is empty", func(t *testing.T) {
		got, err := store.ListActivities(ctx, ListActivitiesParams{Address: "carol"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	SkipIfNoTestDB(t)

	store := NewTestStore(t)
	defer store.Close()

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Migrate(context.Background()))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"defaults", 0, 0, DefaultListLimit, 0},
		{"negative", -5, -1, DefaultListLimit, 0},
		{"capped", MaxListLimit + 1, 10, MaxListLimit, 10},
		{"passthrough", 20, 40, 20, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, o := normalizePage(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, l)
			assert.Equal(t, tt.wantOffset, o)
		})
	}
}

func TestValidateActivity(t *testing.T) {
	assert.NoError(t, validateActivity(RecordActivityParams{Kind: "airdrop", Network: "devnet", Address: "x"}))
	assert.ErrorIs(t, validateActivity(RecordActivityParams{}), ErrInvalidActivity)
}
