package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/solplay/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const (
	activitiesTable = "activities"

	// DefaultListLimit is used when a caller asks for zero rows.
	DefaultListLimit = 50
	// MaxListLimit caps a single page of activities.
	MaxListLimit = 500
)

// ErrInvalidActivity is returned when an activity is missing required fields.
var ErrInvalidActivity = errors.New("invalid activity")

// Store provides database operations for the playground activity log.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// Metrics may be nil.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// Activity is one playground action that reached the chain: an airdrop,
// a transfer, a mint creation and so on.
type Activity struct {
	ID        int64          `json:"id" db:"id"`
	Kind      string         `json:"kind" db:"kind"`
	Network   string         `json:"network" db:"network"`
	Address   string         `json:"address" db:"address"`
	Signature string         `json:"signature" db:"signature"`
	Lamports  int64          `json:"lamports" db:"lamports"`
	Detail    map[string]any `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// RecordActivityParams contains the parameters for recording an activity.
type RecordActivityParams struct {
	Kind      string
	Network   string
	Address   string
	Signature string
	Lamports  int64
	Detail    map[string]any
}

// ListActivitiesParams selects a page of activities, newest first.
// An empty Address lists every address.
type ListActivitiesParams struct {
	Address string
	Limit   int
	Offset  int
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) (err error) {
	defer metrics.Timer(time.Now(), func(d float64) {
		s.metrics.RecordDBQuery("migrate", activitiesTable, d, err)
	})()

	if _, err = s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordActivity inserts a new activity and returns it with its generated
// id and timestamp.
func (s *Store) RecordActivity(ctx context.Context, params RecordActivityParams) (a *Activity, err error) {
	defer metrics.Timer(time.Now(), func(d float64) {
		s.metrics.RecordDBQuery("insert", activitiesTable, d, err)
	})()

	if err = validateActivity(params); err != nil {
		return nil, err
	}

	detail := params.Detail
	if detail == nil {
		detail = map[string]any{}
	}

	const query = `
		INSERT INTO activities (kind, network, address, signature, lamports, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, kind, network, address, signature, lamports, detail, created_at`

	rows, err := s.pool.Query(ctx, query,
		params.Kind, params.Network, params.Address, params.Signature, params.Lamports, detail)
	if err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	a, err = pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Activity])
	if err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}
	return a, nil
}

// ListActivities returns activities newest first, optionally filtered by
// address.
func (s *Store) ListActivities(ctx context.Context, params ListActivitiesParams) (out []*Activity, err error) {
	defer metrics.Timer(time.Now(), func(d float64) {
		s.metrics.RecordDBQuery("list", activitiesTable, d, err)
	})()

	limit, offset := normalizePage(params.Limit, params.Offset)

	const query = `
		SELECT id, kind, network, address, signature, lamports, detail, created_at
		FROM activities
		WHERE ($1 = '' OR address = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, params.Address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Activity])
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return out, nil
}

// CountActivities returns the number of activities, optionally filtered by
// address.
func (s *Store) CountActivities(ctx context.Context, address string) (n int64, err error) {
	defer metrics.Timer(time.Now(), func(d float64) {
		s.metrics.RecordDBQuery("count", activitiesTable, d, err)
	})()

	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM activities WHERE ($1 = '' OR address = $1)`, address,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

func validateActivity(p RecordActivityParams) error {
	var missing []string
	if p.Kind == "" {
		missing = append(missing, "kind")
	}
	if p.Network == "" {
		missing = append(missing, "network")
	}
	if p.Address == "" {
		missing = append(missing, "address")
	}
	if p.Lamports < 0 {
		return fmt.Errorf("%w: negative lamports %d", ErrInvalidActivity, p.Lamports)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrInvalidActivity, missing)
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
