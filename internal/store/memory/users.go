package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// UserStore implements store.UserStore in memory.
type UserStore struct {
	s *Store
}

// Create inserts a new user; username and email are unique ignoring case.
func (u *UserStore) Create(ctx context.Context, user *store.UserRecord) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.data.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return store.ErrDuplicateKey
		}
		if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return store.ErrDuplicateKey
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	rec := *user
	u.s.data.users[user.ID] = &rec
	return nil
}

// Get retrieves a user by ID.
func (u *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	rec, ok := u.s.data.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := rec.User
	return &user, nil
}

// GetMany retrieves the users whose IDs are in ids, ordered by username.
func (u *UserStore) GetMany(ctx context.Context, ids []string) ([]*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	users := []*models.User{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if rec, ok := u.s.data.users[id]; ok {
			user := rec.User
			users = append(users, &user)
		}
	}
	sortUsers(users)
	return users, nil
}

// GetByLogin retrieves a user record by username or email.
func (u *UserStore) GetByLogin(ctx context.Context, login string) (*store.UserRecord, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	login = strings.TrimSpace(login)
	for _, rec := range u.s.data.users {
		if strings.EqualFold(rec.Username, login) || (rec.Email != "" && strings.EqualFold(rec.Email, login)) {
			out := *rec
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// Search returns users whose username or email contains query, ignoring
// case and accents.
func (u *UserStore) Search(ctx context.Context, query, excludeID string, limit int) ([]*models.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	needle := models.SearchKey(query)
	users := []*models.User{}
	for _, rec := range u.s.data.users {
		if rec.ID == excludeID {
			continue
		}
		if strings.Contains(rec.SearchText(), needle) {
			user := rec.User
			users = append(users, &user)
		}
	}
	sortUsers(users)
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func sortUsers(users []*models.User) {
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
}
