// Package memory provides an in-process implementation of store.Store.
// It enforces the same constraints as the PostgreSQL schema: unique
// usernames and emails, one pending invitation per pair and versioned
// member lists.
package memory

import (
	"context"
	"sync"

	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// Store implements store.Store in memory.
type Store struct {
	mu   rwLocker
	data *dataset
}

type rwLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}

// heldLock is used by the transaction view: WithTx already holds the
// store's write lock for the whole callback.
type heldLock struct{}

func (heldLock) Lock()    {}
func (heldLock) Unlock()  {}
func (heldLock) RLock()   {}
func (heldLock) RUnlock() {}

type dataset struct {
	users       map[string]*store.UserRecord
	workspaces  map[string]*models.Workspace
	boards      map[string]*models.Board
	invitations map[string]*models.Invitation
	lists       map[string]*models.List
	cards       map[string]*models.Card
	// order records insertion sequence to break CreatedAt ties.
	order map[string]int64
	seq   int64
}

func newDataset() *dataset {
	return &dataset{
		users:       make(map[string]*store.UserRecord),
		workspaces:  make(map[string]*models.Workspace),
		boards:      make(map[string]*models.Board),
		invitations: make(map[string]*models.Invitation),
		lists:       make(map[string]*models.List),
		cards:       make(map[string]*models.Card),
		order:       make(map[string]int64),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.workspaces {
		c.workspaces[k] = cloneWorkspace(v)
	}
	for k, v := range d.boards {
		c.boards[k] = cloneBoard(v)
	}
	for k, v := range d.invitations {
		c.invitations[k] = cloneInvitation(v)
	}
	for k, v := range d.lists {
		l := *v
		c.lists[k] = &l
	}
	for k, v := range d.cards {
		c.cards[k] = cloneCard(v)
	}
	for k, v := range d.order {
		c.order[k] = v
	}
	c.seq = d.seq
	return c
}

// New creates an empty store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newDataset()}
}

// Users returns the UserStore.
func (s *Store) Users() store.UserStore { return &UserStore{s: s} }

// Workspaces returns the WorkspaceStore.
func (s *Store) Workspaces() store.WorkspaceStore { return &WorkspaceStore{s: s} }

// Boards returns the BoardStore.
func (s *Store) Boards() store.BoardStore { return &BoardStore{s: s} }

// Members returns the MemberStore.
func (s *Store) Members() store.MemberStore { return &MemberStore{s: s} }

// Invitations returns the InvitationStore.
func (s *Store) Invitations() store.InvitationStore { return &InvitationStore{s: s} }

// Lists returns the ListStore.
func (s *Store) Lists() store.ListStore { return &ListStore{s: s} }

// Cards returns the CardStore.
func (s *Store) Cards() store.CardStore { return &CardStore{s: s} }

// WithTx runs fn with rollback semantics: if fn fails every write it made
// is undone. The store's write lock is held until fn returns, so other
// readers and writers wait for the transaction instead of interleaving
// with it.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txStore{Store: &Store{mu: heldLock{}, data: s.data}}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// next returns the next insertion sequence number. Callers hold mu.
func (s *Store) next() int64 {
	s.data.seq++
	return s.data.seq
}

// txStore is the view handed to WithTx callbacks; nested transactions
// join the outer one.
type txStore struct {
	*Store
}

func (t *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(t)
}

func cloneMembers(in []models.MemberEntry) []models.MemberEntry {
	out := make([]models.MemberEntry, len(in))
	copy(out, in)
	return out
}

func cloneWorkspace(w *models.Workspace) *models.Workspace {
	c := *w
	c.Members = cloneMembers(w.Members)
	return &c
}

func cloneBoard(b *models.Board) *models.Board {
	c := *b
	c.Members = cloneMembers(b.Members)
	return &c
}

func cloneInvitation(inv *models.Invitation) *models.Invitation {
	c := *inv
	if inv.ResolvedAt != nil {
		t := *inv.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func cloneCard(card *models.Card) *models.Card {
	c := *card
	if card.DueAt != nil {
		t := *card.DueAt
		c.DueAt = &t
	}
	return &c
}

func hasMember(c *models.Container, userID string) bool {
	if c.OwnerUserID == userID {
		return true
	}
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
