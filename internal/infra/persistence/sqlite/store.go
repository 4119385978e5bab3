// Package sqlite persists model documents in a single SQLite table using the
// pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"genomecore/pkg/domain"
)

var _ domain.ModelStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS models (
	name TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	size INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	payload BLOB NOT NULL
)`

// Store is a SQLite-backed domain.ModelStore.
type Store struct {
	db          *sql.DB
	path        string
	now         func() time.Time
	newRevision func() string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "genomecore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create models table: %w", err)
	}
	return &Store{
		db:          db,
		path:        path,
		now:         func() time.Time { return time.Now().UTC() },
		newRevision: uuid.NewString,
	}, nil
}

// Save upserts the document under name with a fresh revision.
func (s *Store) Save(ctx context.Context, name string, payload []byte) (domain.ModelInfo, error) {
	if name == "" {
		return domain.ModelInfo{}, domain.Contract("Save", domain.ErrInvalidArgument, "model name required")
	}
	info := domain.ModelInfo{Name: name, Revision: s.newRevision(), Size: int64(len(payload)), UpdatedAt: s.now()}
	if payload == nil {
		payload = []byte{}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO models(name,revision,size,updated_at,payload) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET revision=excluded.revision, size=excluded.size, updated_at=excluded.updated_at, payload=excluded.payload`,
		info.Name, info.Revision, info.Size, info.UpdatedAt.UnixNano(), payload); err != nil {
		return domain.ModelInfo{}, fmt.Errorf("upsert %s: %w", name, err)
	}
	return info, nil
}

// Load reads the stored document.
func (s *Store) Load(ctx context.Context, name string) ([]byte, domain.ModelInfo, error) {
	info := domain.ModelInfo{Name: name}
	var updated int64
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT revision, size, updated_at, payload FROM models WHERE name = ?`, name).
		Scan(&info.Revision, &info.Size, &updated, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ModelInfo{}, domain.Contract("Load", domain.ErrNotFound, "model %s", name)
	}
	if err != nil {
		return nil, domain.ModelInfo{}, fmt.Errorf("select %s: %w", name, err)
	}
	info.UpdatedAt = time.Unix(0, updated).UTC()
	return payload, info, nil
}

// List returns every stored model in name order.
func (s *Store) List(ctx context.Context) ([]domain.ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, revision, size, updated_at FROM models ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select models: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.ModelInfo
	for rows.Next() {
		var info domain.ModelInfo
		var updated int64
		if err := rows.Scan(&info.Name, &info.Revision, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		info.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a model, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
