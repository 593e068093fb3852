// Package audit persists lookup records in PostgreSQL.
//
// The store is optional: without a database URL the service logs audit
// records through core.LogRecorder instead.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/nthmin/internal/config"
	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 50

// MaxRecentLimit caps how many records Recent returns.
const MaxRecentLimit = 500

const schemaSQL = `
CREATE TABLE IF NOT EXISTS lookup_audit (
	id          UUID PRIMARY KEY,
	file_link   TEXT NOT NULL,
	n           TEXT NOT NULL,
	value       BIGINT,
	error_kind  TEXT,
	error_code  TEXT,
	duration_ms BIGINT NOT NULL,
	ip_address  TEXT,
	user_agent  TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS lookup_audit_created_at_idx ON lookup_audit (created_at DESC);
`

const insertSQL = `
INSERT INTO lookup_audit
	(id, file_link, n, value, error_kind, error_code, duration_ms, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const recentSQL = `
SELECT id, file_link, n, value, error_kind, error_code, duration_ms, ip_address, user_agent, created_at
FROM lookup_audit
ORDER BY created_at DESC
LIMIT $1`

const pruneSQL = `DELETE FROM lookup_audit WHERE created_at < $1`

// dbtx is the subset of *pgxpool.Pool used by Store.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is a core.AuditRecorder backed by a lookup_audit table.
type Store struct {
	db   dbtx
	pool *pgxpool.Pool
}

var _ core.AuditRecorder = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Close releases the pool, if the store owns one.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record implements core.AuditRecorder.
func (s *Store) Record(ctx context.Context, rec core.QueryRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("audit record id %q: %w", rec.ID, err)
	}

	value := pgtype.Int8{}
	if rec.Value != nil {
		value = pgtype.Int8{Int64: *rec.Value, Valid: true}
	}

	_, err = s.db.Exec(ctx, insertSQL,
		pgtype.UUID{Bytes: id, Valid: true},
		rec.Link,
		rec.N,
		value,
		toPgText(rec.ErrorKind),
		toPgText(rec.ErrorCode),
		rec.Duration.Milliseconds(),
		toPgText(rec.IPAddress),
		toPgText(rec.UserAgent),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns the latest records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.QueryRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	rows, err := s.db.Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []core.QueryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit records: %w", err)
	}
	return records, nil
}

// Prune deletes records created before cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, pruneSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecord(rows pgx.Rows) (core.QueryRecord, error) {
	var rec core.QueryRecord
	var id pgtype.UUID
	var value pgtype.Int8
	var errorKind, errorCode, ip, agent pgtype.Text
	var durationMS int64
	err := rows.Scan(&id, &rec.Link, &rec.N, &value, &errorKind, &errorCode,
		&durationMS, &ip, &agent, &rec.CreatedAt)
	if err != nil {
		return core.QueryRecord{}, fmt.Errorf("scan audit record: %w", err)
	}
	if !id.Valid {
		return core.QueryRecord{}, errors.New("scan audit record: null id")
	}

	rec.ID = uuid.UUID(id.Bytes).String()
	if value.Valid {
		v := value.Int64
		rec.Value = &v
	}
	rec.ErrorKind = errorKind.String
	rec.ErrorCode = errorCode.String
	rec.IPAddress = ip.String
	rec.UserAgent = agent.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// toPgText converts an optional string, storing NULL for empty values.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
