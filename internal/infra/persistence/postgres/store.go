// Package postgres persists model documents in Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"genomecore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ModelStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/genomecore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a Postgres-backed domain.ModelStore.
type Store struct {
	db          *sql.DB
	now         func() time.Time
	newRevision func() string
}

// NewStore opens a Postgres-backed store using dsn (falls back to
// defaultDSN) and ensures the models table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureModelsTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{
		db:          db,
		now:         func() time.Time { return time.Now().UTC() },
		newRevision: uuid.NewString,
	}, nil
}

func ensureModelsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS models (
		name TEXT PRIMARY KEY,
		revision TEXT NOT NULL,
		size BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		payload BYTEA NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure models table: %w", err)
	}
	return nil
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ModelInfo{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO models(name,revision,size,updated_at,payload) VALUES($1,$2,$3,$4,$5) ON CONFLICT(name) DO UPDATE SET revision=EXCLUDED.revision, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at, payload=EXCLUDED.payload`,
		info.Name, info.Revision, info.Size, info.UpdatedAt.UnixNano(), payload); err != nil {
		return domain.ModelInfo{}, fmt.Errorf("upsert %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ModelInfo{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return info, nil
}

// Load reads the stored document.
func (s *Store) Load(ctx context.Context, name string) ([]byte, domain.ModelInfo, error) {
	info := domain.ModelInfo{Name: name}
	var updated int64
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT revision, size, updated_at, payload FROM models WHERE name = $1`, name).
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
			return nil, fmt.Errorf("scan models: %w", err)
		}
		info.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return out, nil
}

// Delete removes a model, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE name = $1`, name)
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
