// internal/adapter/storage/snapshot_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trendwise/internal/domain/trend"
)

// ErrNotFound is returned when a snapshot id does not exist
var ErrNotFound = errors.New("snapshot not found")

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS trend_snapshots (
		id            UUID PRIMARY KEY,
		taken_at      TIMESTAMPTZ NOT NULL,
		geo           TEXT NOT NULL,
		period        TEXT NOT NULL,
		processing_ms BIGINT NOT NULL,
		summary       JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS trend_snapshots_taken_at_idx ON trend_snapshots (taken_at DESC);
`

// Snapshot is a stored summary of one aggregation run
type Snapshot struct {
	ID           string        `json:"id"`
	TakenAt      time.Time     `json:"takenAt"`
	Geo          string        `json:"geo"`
	Period       trend.Period  `json:"period"`
	ProcessingMs int64         `json:"processingMs"`
	Summary      trend.Summary `json:"summary"`
}

// NewSnapshot wraps a summary, reusing its id when it is a valid UUID
func NewSnapshot(s trend.Summary) Snapshot {
	id := s.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	takenAt := s.Timestamp
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}
	return Snapshot{
		ID:           id,
		TakenAt:      takenAt,
		Geo:          s.Geo,
		Period:       s.Period,
		ProcessingMs: s.ProcessingTimeMs,
		Summary:      s,
	}
}

// SnapshotStore persists aggregation summaries in Postgres
type SnapshotStore struct {
	db *pgxpool.Pool
}

// NewSnapshotStore creates a new snapshot store
func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{
		db: db,
	}
}

// Migrate creates the snapshot table when missing
func (s *SnapshotStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("error creating trend_snapshots: %w", err)
	}
	return nil
}

// Save upserts a snapshot
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	query := `
		INSERT INTO trend_snapshots (id, taken_at, geo, period, processing_ms, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET
			taken_at = $2,
			geo = $3,
			period = $4,
			processing_ms = $5,
			summary = $6
	`

	summaryJSON, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("error marshaling summary: %w", err)
	}

	_, err = s.db.Exec(ctx, query,
		snap.ID,
		snap.TakenAt,
		snap.Geo,
		string(snap.Period),
		snap.ProcessingMs,
		summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// SaveSummary stores a summary as a new snapshot
func (s *SnapshotStore) SaveSummary(ctx context.Context, summary trend.Summary) error {
	return s.Save(ctx, NewSnapshot(summary))
}

// Get retrieves a snapshot by id
func (s *SnapshotStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	query := `
		SELECT id, taken_at, geo, period, processing_ms, summary
		FROM trend_snapshots
		WHERE id = $1
	`

	snap, err := scanSnapshot(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying snapshot: %w", err)
	}
	return snap, nil
}

// Recent returns the newest snapshots first
func (s *SnapshotStore) Recent(ctx context.Context, limit int) ([]Snapshot, error) {
	query := `
		SELECT id, taken_at, geo, period, processing_ms, summary
		FROM trend_snapshots
		ORDER BY taken_at DESC
		LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("error querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var period string
	var summaryJSON []byte

	if err := row.Scan(&snap.ID, &snap.TakenAt, &snap.Geo, &period, &snap.ProcessingMs, &summaryJSON); err != nil {
		return nil, err
	}
	snap.Period = trend.Period(period)
	if err := json.Unmarshal(summaryJSON, &snap.Summary); err != nil {
		return nil, fmt.Errorf("error unmarshaling summary: %w", err)
	}
	return &snap, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	return min(limit, maxRecentLimit)
}
