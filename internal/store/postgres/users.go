package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *UserStore) conn() queryable {
	return conn(s.db, s.tx)
}

const userColumns = `id, username, COALESCE(email, ''), created_at`

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *store.UserRecord) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, search_key, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`

	_, err := s.conn().ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.SearchText(),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return unavailable("inserting user", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u models.User
	err := s.conn().QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying user", err)
	}
	return &u, nil
}

// GetMany retrieves the users whose IDs are in ids.
func (s *UserStore) GetMany(ctx context.Context, ids []string) ([]*models.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*models.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[]) ORDER BY username`
	return s.queryUsers(ctx, query, pq.Array(valid))
}

// GetByLogin retrieves a user record by username or email.
func (s *UserStore) GetByLogin(ctx context.Context, login string) (*store.UserRecord, error) {
	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, created_at
		FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		LIMIT 1`

	var rec store.UserRecord
	err := s.conn().QueryRowContext(ctx, query, strings.TrimSpace(login)).Scan(
		&rec.ID, &rec.Username, &rec.Email, &rec.PasswordHash, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("querying user by login", err)
	}
	return &rec, nil
}

// Search returns users whose username or email contains query, ignoring
// case and accents. It matches against the search_key column written at
// insert time.
func (s *UserStore) Search(ctx context.Context, query, excludeID string, limit int) ([]*models.User, error) {
	pattern := "%" + escapeLike(models.SearchKey(query)) + "%"

	sqlQuery := `
		SELECT ` + userColumns + `
		FROM users
		WHERE search_key LIKE $1 ESCAPE '\'
		  AND ($2 = '' OR id::text <> $2)
		ORDER BY username
		LIMIT $3`

	return s.queryUsers(ctx, sqlQuery, pattern, excludeID, limit)
}

func (s *UserStore) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying users", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, unavailable("scanning user row", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating user rows", err)
	}
	return users, nil
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// backfillSearchKeys fills search_key for rows created before the column
// existed.
func backfillSearchKeys(ctx context.Context, db *sql.DB) (int, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE search_key = ''`)
	if err != nil {
		return 0, unavailable("querying users without search key", err)
	}
	var pending []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			rows.Close()
			return 0, unavailable("scanning user row", err)
		}
		pending = append(pending, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, unavailable("iterating user rows", err)
	}

	for _, u := range pending {
		if _, err := db.ExecContext(ctx, `UPDATE users SET search_key = $2 WHERE id = $1`, u.ID, u.SearchText()); err != nil {
			return 0, unavailable("updating search key", err)
		}
	}
	return len(pending), nil
}
