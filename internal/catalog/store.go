package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a part or marker does not exist.
var ErrNotFound = errors.New("not found")

// Store persists parts and their manual markers.
type Store interface {
	Get(ctx context.Context, id string) (*Repuesto, error)
	List(ctx context.Context, maquina string) ([]*Repuesto, error)
	Put(ctx context.Context, r *Repuesto) error
	Delete(ctx context.Context, id string) error
	AddVinculo(ctx context.Context, id string, v VinculoManual) (int, error)
	UpdateVinculo(ctx context.Context, id string, index int, v VinculoManual) error
	DeleteVinculo(ctx context.Context, id string, index int) error
}

const schema = `
CREATE TABLE IF NOT EXISTS repuestos (
	id         TEXT PRIMARY KEY,
	maquina    TEXT NOT NULL DEFAULT '',
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_repuestos_maquina ON repuestos(maquina);
`

// SQLiteStore keeps each part as a JSON document keyed by id.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger

	// serializes read-modify-write of a document
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the catalog database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("catalog store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Repuesto, error) {
	return s.get(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, q querier, id string) (*Repuesto, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM repuestos WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repuesto %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query repuesto %s: %w", id, err)
	}
	var r Repuesto
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("decode repuesto %s: %w", id, err)
	}
	return &r, nil
}

// List returns the parts of a machine, or every part when maquina is empty.
func (s *SQLiteStore) List(ctx context.Context, maquina string) ([]*Repuesto, error) {
	query := `SELECT doc FROM repuestos ORDER BY id`
	var args []any
	if maquina != "" {
		query = `SELECT doc FROM repuestos WHERE maquina = ? ORDER BY id`
		args = append(args, maquina)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repuestos: %w", err)
	}
	defer rows.Close()

	var out []*Repuesto
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan repuesto: %w", err)
		}
		var r Repuesto
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			s.logger.Warn("skipping undecodable repuesto", zap.Error(err))
			continue
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Put inserts or replaces a part after validating it.
func (s *SQLiteStore) Put(ctx context.Context, r *Repuesto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, s.db, r)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) put(ctx context.Context, e execer, r *Repuesto) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid repuesto: %w", err)
	}
	r.UpdatedAt = time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode repuesto %s: %w", r.ID, err)
	}
	_, err = e.ExecContext(ctx,
		`INSERT INTO repuestos (id, maquina, doc, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET maquina = excluded.maquina, doc = excluded.doc, updated_at = excluded.updated_at`,
		r.ID, r.Maquina, string(doc), r.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write repuesto %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repuestos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repuesto %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("repuesto %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddVinculo appends a marker and returns its index.
func (s *SQLiteStore) AddVinculo(ctx context.Context, id string, v VinculoManual) (int, error) {
	idx := -1
	err := s.mutate(ctx, id, func(r *Repuesto) error {
		if err := v.Validate(); err != nil {
			return err
		}
		r.Vinculos = append(r.Vinculos, v)
		idx = len(r.Vinculos) - 1
		return nil
	})
	return idx, err
}

// UpdateVinculo replaces the marker at index.
func (s *SQLiteStore) UpdateVinculo(ctx context.Context, id string, index int, v VinculoManual) error {
	return s.mutate(ctx, id, func(r *Repuesto) error {
		if index < 0 || index >= len(r.Vinculos) {
			return fmt.Errorf("vinculo %d of %s: %w", index, id, ErrNotFound)
		}
		if err := v.Validate(); err != nil {
			return err
		}
		r.Vinculos[index] = v
		return nil
	})
}

// DeleteVinculo removes the marker at index.
func (s *SQLiteStore) DeleteVinculo(ctx context.Context, id string, index int) error {
	return s.mutate(ctx, id, func(r *Repuesto) error {
		if index < 0 || index >= len(r.Vinculos) {
			return fmt.Errorf("vinculo %d of %s: %w", index, id, ErrNotFound)
		}
		r.Vinculos = append(r.Vinculos[:index], r.Vinculos[index+1:]...)
		return nil
	})
}

func (s *SQLiteStore) mutate(ctx context.Context, id string, fn func(*Repuesto) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := s.get(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := fn(r); err != nil {
		return err
	}
	if err := s.put(ctx, tx, r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
