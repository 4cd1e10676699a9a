// Package directory resolves human-entered search text to user identities.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// DefaultLimit caps the number of search results.
const DefaultLimit = 10

// Directory looks up users by partial username or email.
type Directory struct {
	users  store.UserStore
	limit  int
	logger *slog.Logger
}

// New creates a Directory. A non-positive limit selects DefaultLimit.
func New(users store.UserStore, limit int, logger *slog.Logger) *Directory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		users:  users,
		limit:  limit,
		logger: logger.With("component", "directory"),
	}
}

// Search returns up to the configured limit of users whose username or
// email contains query, ignoring case and accents, excluding excludeUserID.
// A blank query yields an empty result. On store failure the result is
// empty and the error is returned alongside it.
func (d *Directory) Search(ctx context.Context, query, excludeUserID string) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.User{}, nil
	}

	users, err := d.users.Search(ctx, query, excludeUserID, d.limit)
	if err != nil {
		d.logger.Warn("user search failed", "error", err)
		return []*models.User{}, fmt.Errorf("searching users: %w", err)
	}
	if len(users) > d.limit {
		users = users[:d.limit]
	}
	return users, nil
}

// IsSelfMatch reports whether query is a non-empty substring of the current
// user's username or email, ignoring case and accents. A missing email
// degrades to matching on username only.
func (d *Directory) IsSelfMatch(current *models.User, query string) bool {
	return IsSelfMatch(current, query)
}

// IsSelfMatch is the stateless form of Directory.IsSelfMatch.
func IsSelfMatch(current *models.User, query string) bool {
	if current == nil {
		return false
	}
	needle := normalize(strings.TrimSpace(query))
	if needle == "" {
		return false
	}
	if strings.Contains(normalize(current.Username), needle) {
		return true
	}
	return current.Email != "" && strings.Contains(normalize(current.Email), needle)
}

// GetUser retrieves a user by ID.
func (d *Directory) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := d.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return user, nil
}

// ResolveUsers returns the known users among ids keyed by ID. Unknown IDs
// are absent from the map.
func (d *Directory) ResolveUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	resolved := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	users, err := d.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving users: %w", err)
	}
	for _, u := range users {
		resolved[u.ID] = u
	}
	return resolved, nil
}

func normalize(s string) string {
	return models.SearchKey(s)
}
