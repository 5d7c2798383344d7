package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/specloom/loom/internal/ir"
)

// ErrNotFound is returned when no snapshot matches the requested id or
// name.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one saved document revision.
type Snapshot struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	Document  *ir.Document `json:"document,omitempty"`
}

// Save stores a document under a name and returns the generated snapshot
// id. Saving the same name again creates a new revision, it never
// overwrites.
func (s *Store) Save(ctx context.Context, name string, doc *ir.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot document: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, document, created_at) VALUES (?, ?, ?, ?)`,
		id, name, string(data), createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	return id, nil
}

// Get loads one snapshot, document included.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at FROM snapshots WHERE id = ?`, id)
	return scanSnapshot(row)
}

// Latest loads the most recent snapshot saved under a name.
func (s *Store) Latest(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, created_at FROM snapshots
		 WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, name)
	return scanSnapshot(row)
}

// List returns snapshot metadata, newest first, without documents.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	return out, nil
}

// Delete removes one snapshot by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting snapshot %q: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var snap Snapshot
	var document, createdAt string
	err := row.Scan(&snap.ID, &snap.Name, &document, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot timestamp: %w", err)
	}
	snap.Document, err = ir.Decode([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot document: %w", err)
	}
	return &snap, nil
}
