package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// List bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// timeLayout is fixed width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Errors returned by the repository.
var (
	ErrMissingEntityID  = errors.New("history: entity id is required")
	ErrInvalidRetention = errors.New("history: retention must be positive")
)

// Entry is one recorded value of a derived sensor.
type Entry struct {
	ID         int64          `json:"id"`
	EntityID   string         `json:"entity_id"`
	Value      string         `json:"value"`
	Attributes map[string]any `json:"attributes,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Repository stores and reads state history.
type Repository interface {
	// Record inserts one entry. A zero RecordedAt is set to now.
	Record(ctx context.Context, e *Entry) error

	// List returns up to limit entries for entityID, newest first.
	List(ctx context.Context, entityID string, limit int) ([]Entry, error)

	// Prune deletes entries recorded before now minus olderThan and returns
	// how many were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteRepository is the state_history table.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository wraps db, which must have the state_history migration applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts e and fills in its ID.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.EntityID == "" {
		return ErrMissingEntityID
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = r.now()
	}
	e.RecordedAt = e.RecordedAt.UTC()

	var attrs any
	if len(e.Attributes) > 0 {
		b, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("marshalling attributes: %w", err)
		}
		attrs = string(b)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO state_history (entity_id, value, attributes, recorded_at) VALUES (?, ?, ?, ?)",
		e.EntityID, e.Value, attrs, e.RecordedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	if id, idErr := res.LastInsertId(); idErr == nil {
		e.ID = id
	}
	return nil
}

// List returns recent entries for entityID, newest first. limit is clamped
// to [1, MaxLimit]; zero or less means DefaultLimit.
func (r *SQLiteRepository) List(ctx context.Context, entityID string, limit int) ([]Entry, error) {
	if entityID == "" {
		return nil, ErrMissingEntityID
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_id, value, attributes, recorded_at
		 FROM state_history
		 WHERE entity_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			attrs      sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.EntityID, &e.Value, &attrs, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), &e.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshalling attributes: %w", err)
			}
		}
		e.RecordedAt, err = time.Parse(timeLayout, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := r.now().UTC().Add(-olderThan).Format(timeLayout)
	res, err := r.db.ExecContext(ctx, "DELETE FROM state_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
