// Package postgres provides PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/narvanalabs/boardroom/internal/store"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	users       *UserStore
	workspaces  *WorkspaceStore
	boards      *BoardStore
	members     *MemberStore
	invitations *InvitationStore
	lists       *ListStore
	cards       *CardStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectAttempts bounds the startup ping retries.
	ConnectAttempts uint
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
		ConnectAttempts: 5,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}

	// The database container often comes up after the API in local setups.
	err = retry.Do(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not reachable yet", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := newStore(db, logger)
	logger.Info("connected to PostgreSQL database")
	return s, nil
}

// newStore wires the sub-stores around an open connection.
func newStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:          db,
		logger:      logger,
		users:       &UserStore{db: db, logger: logger},
		workspaces:  &WorkspaceStore{db: db, logger: logger},
		boards:      &BoardStore{db: db, logger: logger},
		members:     &MemberStore{db: db, logger: logger},
		invitations: &InvitationStore{db: db, logger: logger},
		lists:       &ListStore{db: db, logger: logger},
		cards:       &CardStore{db: db, logger: logger},
	}
}

// Users returns the UserStore.
func (s *PostgresStore) Users() store.UserStore {
	return s.users
}

// Workspaces returns the WorkspaceStore.
func (s *PostgresStore) Workspaces() store.WorkspaceStore {
	return s.workspaces
}

// Boards returns the BoardStore.
func (s *PostgresStore) Boards() store.BoardStore {
	return s.boards
}

// Members returns the MemberStore.
func (s *PostgresStore) Members() store.MemberStore {
	return s.members
}

// Invitations returns the InvitationStore.
func (s *PostgresStore) Invitations() store.InvitationStore {
	return s.invitations
}

// Lists returns the ListStore.
func (s *PostgresStore) Lists() store.ListStore {
	return s.lists
}

// Cards returns the CardStore.
func (s *PostgresStore) Cards() store.CardStore {
	return s.cards
}

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}

	txStore := &txStore{
		tx:     tx,
		logger: s.logger,
	}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}

	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// DB returns the underlying database connection.
// Migrations and tests use it directly.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger

	users       *UserStore
	workspaces  *WorkspaceStore
	boards      *BoardStore
	members     *MemberStore
	invitations *InvitationStore
	lists       *ListStore
	cards       *CardStore
}

func (s *txStore) Users() store.UserStore {
	if s.users == nil {
		s.users = &UserStore{tx: s.tx, logger: s.logger}
	}
	return s.users
}

func (s *txStore) Workspaces() store.WorkspaceStore {
	if s.workspaces == nil {
		s.workspaces = &WorkspaceStore{tx: s.tx, logger: s.logger}
	}
	return s.workspaces
}

func (s *txStore) Boards() store.BoardStore {
	if s.boards == nil {
		s.boards = &BoardStore{tx: s.tx, logger: s.logger}
	}
	return s.boards
}

func (s *txStore) Members() store.MemberStore {
	if s.members == nil {
		s.members = &MemberStore{tx: s.tx, logger: s.logger}
	}
	return s.members
}

func (s *txStore) Invitations() store.InvitationStore {
	if s.invitations == nil {
		s.invitations = &InvitationStore{tx: s.tx, logger: s.logger}
	}
	return s.invitations
}

func (s *txStore) Lists() store.ListStore {
	if s.lists == nil {
		s.lists = &ListStore{tx: s.tx, logger: s.logger}
	}
	return s.lists
}

func (s *txStore) Cards() store.CardStore {
	if s.cards == nil {
		s.cards = &CardStore{tx: s.tx, logger: s.logger}
	}
	return s.cards
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txStore) Close() error {
	// No-op for transaction store
	return nil
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn picks the transaction when one is bound, the pool otherwise.
func conn(db *sql.DB, tx *sql.Tx) queryable {
	if tx != nil {
		return tx
	}
	return db
}
