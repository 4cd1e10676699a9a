package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
)

// ListStore implements store.ListStore in memory.
type ListStore struct {
	s *Store
}

// Create creates a new list.
func (l *ListStore) Create(ctx context.Context, list *models.List) error {
	if err := list.Validate(); err != nil {
		return fmt.Errorf("validating list: %w", err)
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if _, ok := l.s.data.boards[list.BoardID]; !ok {
		return fmt.Errorf("board: %w", store.ErrNotFound)
	}
	if list.ID == "" {
		list.ID = uuid.New().String()
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}
	c := *list
	l.s.data.lists[list.ID] = &c
	l.s.data.order[list.ID] = l.s.next()
	return nil
}

// Get retrieves a list by ID.
func (l *ListStore) Get(ctx context.Context, id string) (*models.List, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	list, ok := l.s.data.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *list
	return &c, nil
}

// ListByBoard retrieves the lists of a board in position order.
func (l *ListStore) ListByBoard(ctx context.Context, boardID string) ([]*models.List, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	out := []*models.List{}
	for _, list := range l.s.data.lists {
		if list.BoardID == boardID {
			c := *list
			out = append(out, &c)
		}
	}
	order := l.s.data.order
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return order[out[i].ID] < order[out[j].ID]
	})
	return out, nil
}

// Update updates title and position.
func (l *ListStore) Update(ctx context.Context, list *models.List) error {
	if err := list.Validate(); err != nil {
		return fmt.Errorf("validating list: %w", err)
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	existing, ok := l.s.data.lists[list.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Title = list.Title
	existing.Position = list.Position
	return nil
}

// Delete deletes a list and its cards.
func (l *ListStore) Delete(ctx context.Context, id string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if _, ok := l.s.data.lists[id]; !ok {
		return store.ErrNotFound
	}
	for cardID, c := range l.s.data.cards {
		if c.ListID == id {
			delete(l.s.data.cards, cardID)
			delete(l.s.data.order, cardID)
		}
	}
	delete(l.s.data.lists, id)
	delete(l.s.data.order, id)
	return nil
}

// CardStore implements store.CardStore in memory.
type CardStore struct {
	s *Store
}

// Create creates a new card.
func (c *CardStore) Create(ctx context.Context, card *models.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validating card: %w", err)
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.data.lists[card.ListID]; !ok {
		return fmt.Errorf("list or board: %w", store.ErrNotFound)
	}
	if _, ok := c.s.data.boards[card.BoardID]; !ok {
		return fmt.Errorf("list or board: %w", store.ErrNotFound)
	}
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	card.UpdatedAt = card.CreatedAt
	c.s.data.cards[card.ID] = cloneCard(card)
	c.s.data.order[card.ID] = c.s.next()
	return nil
}

// Get retrieves a card by ID.
func (c *CardStore) Get(ctx context.Context, id string) (*models.Card, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	card, ok := c.s.data.cards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneCard(card), nil
}

// ListByList retrieves the cards of a list in position order.
func (c *CardStore) ListByList(ctx context.Context, listID string) ([]*models.Card, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	out := []*models.Card{}
	for _, card := range c.s.data.cards {
		if card.ListID == listID {
			out = append(out, cloneCard(card))
		}
	}
	order := c.s.data.order
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return order[out[i].ID] < order[out[j].ID]
	})
	return out, nil
}

// Update updates the mutable card fields, including a move to another list.
func (c *CardStore) Update(ctx context.Context, card *models.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validating card: %w", err)
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	existing, ok := c.s.data.cards[card.ID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := c.s.data.lists[card.ListID]; !ok {
		return fmt.Errorf("list: %w", store.ErrNotFound)
	}
	updated := cloneCard(card)
	updated.BoardID = existing.BoardID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	card.UpdatedAt = updated.UpdatedAt
	c.s.data.cards[card.ID] = updated
	return nil
}

// Delete deletes a card.
func (c *CardStore) Delete(ctx context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.data.cards[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.s.data.cards, id)
	delete(c.s.data.order, id)
	return nil
}
