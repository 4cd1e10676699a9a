package models

import (
	"errors"
	"strings"
	"time"
)

// List is an ordered column of cards on a board.
type List struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"board_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is a single task on a list.
type Card struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	BoardID     string     `json:"board_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var (
	ErrListTitleRequired = errors.New("list title is required")
	ErrCardTitleRequired = errors.New("card title is required")
)

// Validate validates the list fields.
func (l *List) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return fieldError("title", ErrListTitleRequired)
	}
	return nil
}

// Validate validates the card fields.
func (c *Card) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fieldError("title", ErrCardTitleRequired)
	}
	return nil
}
