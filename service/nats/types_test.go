package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brojonat/solplay/service/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectForKind(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"airdrop", "playground.airdrop"},
		{"create_mint", "playground.create_mint"},
		{"", "playground.*"},
		{"bad.kind", "playground.bad_kind"},
		{"wild*>", "playground.wild__"},
		{"with space", "playground.with_space"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.want, SubjectForKind(tt.kind))
		})
	}
}

func TestFromActivity(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &db.Activity{
		ID:        7,
		Kind:      "transfer",
		Network:   "devnet",
		Address:   "recipient",
		Signature: "sig",
		Lamports:  100_000_000,
		Detail:    map[string]any{"from": "payer"},
		CreatedAt: created,
	}

	event := FromActivity(a, "https://explorer.solana.com/tx/sig?cluster=devnet")

	assert.Equal(t, int64(7), event.ID)
	assert.Equal(t, "transfer", event.Kind)
	assert.Equal(t, "playground.transfer", event.Subject())
	assert.Equal(t, created, event.CreatedAt)
	assert.WithinDuration(t, time.Now(), event.PublishedAt, 5*time.Second)
	assert.Equal(t, "payer", event.Detail["from"])

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"explorer_url":"https://explorer.solana.com/tx/sig?cluster=devnet"`)
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockPublisher()

	require.NoError(t, m.PublishActivity(ctx, &ActivityEvent{Kind: "airdrop"}))
	require.NoError(t, m.PublishActivity(ctx, &ActivityEvent{Kind: "transfer"}))
	assert.Equal(t, 2, m.GetPublishedEventCount())
	assert.Len(t, m.GetPublishedEventsForKind("airdrop"), 1)

	m.SetPublishError(errors.New("nats down"))
	assert.Error(t, m.PublishActivity(ctx, &ActivityEvent{Kind: "airdrop"}))
	assert.Equal(t, 2, m.GetPublishedEventCount())

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())

	m.Reset()
	assert.Zero(t, m.GetPublishedEventCount())
	assert.False(t, m.IsClosed())
}
