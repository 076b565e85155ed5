// Package journal records playground actions: it persists them to the
// activity log and announces them on NATS.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brojonat/solplay/service/db"
	natspkg "github.com/brojonat/solplay/service/nats"
	"github.com/brojonat/solplay/service/solana"
)

// Store is the subset of db.Store the journal writes to.
type Store interface {
	RecordActivity(context.Context, db.RecordActivityParams) (*db.Activity, error)
}

// Entry is one action to record.
type Entry struct {
	Kind      string
	Network   solana.Network
	Address   string
	Signature string
	Lamports  uint64
	Detail    map[string]any
}

// Journal writes entries to the store and then publishes them.
// Either collaborator may be nil; a nil store disables persistence and a nil
// publisher disables events.
type Journal struct {
	store     Store
	publisher natspkg.Publisher
	logger    *slog.Logger
}

// New creates a Journal.
func New(store Store, publisher natspkg.Publisher, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Record persists the entry and publishes it. A persistence failure is
// returned; a publish failure is only logged.
func (j *Journal) Record(ctx context.Context, e Entry) (*db.Activity, error) {
	if e.Lamports > math.MaxInt64 {
		return nil, fmt.Errorf("lamports %d out of range", e.Lamports)
	}
	params := db.RecordActivityParams{
		Kind:      e.Kind,
		Network:   string(e.Network),
		Address:   e.Address,
		Signature: e.Signature,
		Lamports:  int64(e.Lamports),
		Detail:    e.Detail,
	}

	activity := &db.Activity{
		Kind:      params.Kind,
		Network:   params.Network,
		Address:   params.Address,
		Signature: params.Signature,
		Lamports:  params.Lamports,
		Detail:    params.Detail,
		CreatedAt: time.Now().UTC(),
	}

	if j.store != nil {
		stored, err := j.store.RecordActivity(ctx, params)
		if err != nil {
			j.logger.ErrorContext(ctx, "failed to record activity",
				"kind", e.Kind,
				"signature", e.Signature,
				"error", err,
			)
			return nil, fmt.Errorf("failed to record activity: %w", err)
		}
		activity = stored
	}

	if j.publisher != nil {
		explorer := ""
		if e.Signature != "" {
			explorer = e.Network.ExplorerTxURL(e.Signature)
		}
		event := natspkg.FromActivity(activity, explorer)
		if err := j.publisher.PublishActivity(ctx, event); err != nil {
			j.logger.ErrorContext(ctx, "failed to publish activity to NATS",
				"kind", e.Kind,
				"signature", e.Signature,
				"error", err,
			)
		} else {
			j.logger.DebugContext(ctx, "published activity to NATS",
				"kind", e.Kind,
				"subject", event.Subject(),
			)
		}
	}

	return activity, nil
}
