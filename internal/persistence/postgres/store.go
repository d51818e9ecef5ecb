// Package postgres implements persistence.Store over a single jsonb-backed
// documents table, keyed by (kind, id) with an integer version column for
// optimistic concurrency. See db/migrations for the schema.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/persistence"
)

// Store is a PostgreSQL-backed persistence.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store backed by pool. A nil pool is accepted so callers
// can wire the type before a connection is established; every method then
// fails with errs.CodeNetwork.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pgx pool, e.g. for ObservePoolMetrics.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

const selectDocumentSQL = `SELECT version, data, created_at, updated_at FROM documents WHERE kind = $1 AND id = $2`

func (s *Store) Get(ctx context.Context, key persistence.Key) (persistence.Document, error) {
	if err := key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	if s.pool == nil {
		return persistence.Document{}, errs.New("postgres.Get", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	doc := persistence.Document{Key: key}
	row := s.pool.QueryRow(ctx, selectDocumentSQL, string(key.Kind), key.ID)
	if err := row.Scan(&doc.Version, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Document{}, errs.New("postgres.Get", errs.CodeNotFound, errs.WithField("kind", string(key.Kind)), errs.WithField("id", key.ID))
		}
		return persistence.Document{}, errs.New("postgres.Get", errs.CodeBadResponse, errs.WithCause(err))
	}
	return doc, nil
}

const upsertDocumentSQL = `
INSERT INTO documents (kind, id, version, data, created_at, updated_at)
VALUES ($1, $2, 1, $3, now(), now())
ON CONFLICT (kind, id) DO UPDATE
SET version = documents.version + 1, data = EXCLUDED.data, updated_at = now()
RETURNING version, created_at, updated_at`

func (s *Store) Put(ctx context.Context, doc persistence.Document) (persistence.Document, error) {
	if err := doc.Key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	if s.pool == nil {
		return persistence.Document{}, errs.New("postgres.Put", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	row := s.pool.QueryRow(ctx, upsertDocumentSQL, string(doc.Key.Kind), doc.Key.ID, doc.Data)
	if err := row.Scan(&doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return persistence.Document{}, errs.New("postgres.Put", errs.CodeBadResponse, errs.WithCause(err))
	}
	return doc, nil
}

const casDocumentSQL = `
UPDATE documents
SET version = version + 1, data = $3, updated_at = now()
WHERE kind = $1 AND id = $2 AND version = $4
RETURNING version, created_at, updated_at`

func (s *Store) CompareAndSwap(ctx context.Context, prevVersion int64, doc persistence.Document) (persistence.Document, error) {
	if err := doc.Key.Validate(); err != nil {
		return persistence.Document{}, err
	}
	if s.pool == nil {
		return persistence.Document{}, errs.New("postgres.CompareAndSwap", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	row := s.pool.QueryRow(ctx, casDocumentSQL, string(doc.Key.Kind), doc.Key.ID, doc.Data, prevVersion)
	if err := row.Scan(&doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Document{}, errs.New("postgres.CompareAndSwap", errs.CodeConflict, errs.WithMessage("version mismatch or document missing"))
		}
		return persistence.Document{}, errs.New("postgres.CompareAndSwap", errs.CodeBadResponse, errs.WithCause(err))
	}
	return doc, nil
}

const deleteDocumentSQL = `DELETE FROM documents WHERE kind = $1 AND id = $2`

func (s *Store) Delete(ctx context.Context, key persistence.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if s.pool == nil {
		return errs.New("postgres.Delete", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	if _, err := s.pool.Exec(ctx, deleteDocumentSQL, string(key.Kind), key.ID); err != nil {
		return errs.New("postgres.Delete", errs.CodeBadResponse, errs.WithCause(err))
	}
	return nil
}

const listDocumentsSQL = `SELECT id, version, data, created_at, updated_at FROM documents WHERE kind = $1 ORDER BY id`

func (s *Store) List(ctx context.Context, kind persistence.Kind) ([]persistence.Document, error) {
	if s.pool == nil {
		return nil, errs.New("postgres.List", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	rows, err := s.pool.Query(ctx, listDocumentsSQL, string(kind))
	if err != nil {
		return nil, errs.New("postgres.List", errs.CodeBadResponse, errs.WithCause(err))
	}
	defer rows.Close()

	var out []persistence.Document
	for rows.Next() {
		doc := persistence.Document{Key: persistence.Key{Kind: kind}}
		if err := rows.Scan(&doc.Key.ID, &doc.Version, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, errs.New("postgres.List", errs.CodeBadResponse, errs.WithCause(err))
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New("postgres.List", errs.CodeBadResponse, errs.WithCause(err))
	}
	return out, nil
}

// marshalDocument is a small helper callers use to build Document.Data from
// a Go value with the engine's json library, rather than encoding/json.
func marshalDocument(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("persistence/postgres: marshal: %w", err)
	}
	return b, nil
}

var poolMetricsOnce sync.Once

// ObservePoolMetrics registers async gauges reporting pgxpool's connection
// accounting (acquired/idle/max). Safe to call once per process; subsequent
// calls are no-ops.
func ObservePoolMetrics(pool *pgxpool.Pool) error {
	if pool == nil {
		return nil
	}
	var regErr error
	poolMetricsOnce.Do(func() {
		meter := otel.Meter("persistence.postgres")
		acquired, err := meter.Int64ObservableGauge("marketmaker_db_pool_acquired_conns",
			metric.WithDescription("Connections currently leased from the pool"))
		if err != nil {
			regErr = err
			return
		}
		idle, err := meter.Int64ObservableGauge("marketmaker_db_pool_idle_conns",
			metric.WithDescription("Connections currently idle in the pool"))
		if err != nil {
			regErr = err
			return
		}
		maxConns, err := meter.Int64ObservableGauge("marketmaker_db_pool_max_conns",
			metric.WithDescription("Configured maximum pool size"))
		if err != nil {
			regErr = err
			return
		}
		_, regErr = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			stat := pool.Stat()
			o.ObserveInt64(acquired, int64(stat.AcquiredConns()))
			o.ObserveInt64(idle, int64(stat.IdleConns()))
			o.ObserveInt64(maxConns, int64(stat.MaxConns()))
			return nil
		}, acquired, idle, maxConns)
	})
	return regErr
}

// Ping verifies connectivity within timeout, for callers that want to fail
// fast during startup rather than on the first document operation.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	if s.pool == nil {
		return errs.New("postgres.Ping", errs.CodeNetwork, errs.WithMessage("nil pool"))
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(pingCtx)
}
