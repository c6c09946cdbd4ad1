// Package pgstore keeps session values in PostgreSQL, one row per user.
//
// Atomic updates lock the user's row with SELECT ... FOR UPDATE inside a
// transaction. A user without a row is inserted with ON CONFLICT DO NOTHING;
// losing that race to a concurrent insert retries the whole transaction.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yndnr/onelogin/internal/core/service"
)

// DefaultTable is the table holding session values.
const DefaultTable = "user_session_tokens"

const maxTxRetries = 8

var (
	// ErrInvalidTable is returned for table names that are not plain
	// (optionally schema-qualified) identifiers.
	ErrInvalidTable = errors.New("pgstore: invalid table name")

	// ErrTooManyConflicts is returned by Update when every retry lost an
	// insert race.
	ErrTooManyConflicts = errors.New("pgstore: too many insert conflicts")

	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Config configures the PostgreSQL connection.
type Config struct {
	// DSN is a postgres:// URL or key=value connection string.
	DSN string
	// Table defaults to DefaultTable.
	Table string
	// MaxConns bounds the pool size. Zero keeps the pgxpool default.
	MaxConns int32
	// ConnectTimeout bounds the initial connection check. Default: 3s.
	ConnectTimeout time.Duration
}

// Store is a service.AtomicSessionStore backed by PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string

	selectSQL       string
	selectUpdateSQL string
	upsertSQL       string
	insertSQL       string
	updateSQL       string
	deleteSQL       string
}

var _ service.AtomicSessionStore = (*Store)(nil)

// Connect opens a pool, verifies connectivity and creates the table if it
// does not exist.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pgstore: dsn is required")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: open pool: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}

	s, err := New(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, table string) (*Store, error) {
	ident, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:            pool,
		table:           ident,
		selectSQL:       `SELECT value FROM ` + ident + ` WHERE user_id = $1`,
		selectUpdateSQL: `SELECT value FROM ` + ident + ` WHERE user_id = $1 FOR UPDATE`,
		upsertSQL: `INSERT INTO ` + ident + ` (user_id, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		insertSQL: `INSERT INTO ` + ident + ` (user_id, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO NOTHING`,
		updateSQL: `UPDATE ` + ident + ` SET value = $2, updated_at = now() WHERE user_id = $1`,
		deleteSQL: `DELETE FROM ` + ident + ` WHERE user_id = $1`,
	}, nil
}

func quoteTable(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return pgx.Identifier(strings.Split(table, ".")).Sanitize(), nil
}

// EnsureSchema creates the session table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table+` (
			user_id    TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}
	return nil
}

// Get implements service.SessionStore.
func (s *Store) Get(ctx context.Context, userID string) ([]byte, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, s.selectSQL, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put implements service.SessionStore.
func (s *Store) Put(ctx context.Context, userID string, raw []byte) error {
	_, err := s.pool.Exec(ctx, s.upsertSQL, userID, raw)
	return err
}

// Delete implements service.SessionStore.
func (s *Store) Delete(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, s.deleteSQL, userID)
	return err
}

var errInsertRace = errors.New("insert race")

// Update implements service.AtomicSessionStore.
func (s *Store) Update(ctx context.Context, userID string, fn service.UpdateFunc) error {
	for i := 0; i < maxTxRetries; i++ {
		err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			var raw []byte
			found := true
			err := tx.QueryRow(ctx, s.selectUpdateSQL, userID).Scan(&raw)
			if errors.Is(err, pgx.ErrNoRows) {
				found = false
			} else if err != nil {
				return err
			}

			next, err := fn(raw, found)
			if err != nil {
				return err
			}

			switch {
			case next == nil && !found:
				return nil
			case next == nil:
				_, err = tx.Exec(ctx, s.deleteSQL, userID)
				return err
			case found:
				_, err = tx.Exec(ctx, s.updateSQL, userID, next)
				return err
			default:
				tag, err := tx.Exec(ctx, s.insertSQL, userID, next)
				if err != nil {
					return err
				}
				if tag.RowsAffected() == 0 {
					return errInsertRace
				}
				return nil
			}
		})
		if !errors.Is(err, errInsertRace) {
			return err
		}
	}
	return ErrTooManyConflicts
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
