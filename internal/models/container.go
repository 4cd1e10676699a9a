// Package models provides data structures for the Boardroom service.
package models

import (
	"errors"
	"strings"
	"time"
)

// ContainerType identifies the kind of entity that owns a membership list.
type ContainerType string

const (
	ContainerBoard     ContainerType = "board"
	ContainerWorkspace ContainerType = "workspace"
)

// Valid reports whether t is a known container type.
func (t ContainerType) Valid() bool {
	return t == ContainerBoard || t == ContainerWorkspace
}

// Role represents a user's role within a container.
// The owner is implicit and never stored in a member list.
type Role string

const (
	RoleOwner  Role = "owner"  // Implicit, derived from Container.OwnerUserID
	RoleAdmin  Role = "admin"  // Can invite and remove members on boards
	RoleMember Role = "member" // Standard access
	RoleNone   Role = ""       // No access
)

// Assignable reports whether r may be stored in a member list or an invitation.
func (r Role) Assignable() bool {
	return r == RoleAdmin || r == RoleMember
}

// ParseRole converts user input into an assignable role, defaulting to member.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(RoleMember):
		return RoleMember, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return RoleNone, ErrInvalidRole
	}
}

// MemberEntry is one entry of a container's denormalized member list.
type MemberEntry struct {
	UserID  string    `json:"user_id"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

// ContainerRef addresses a container without loading it.
type ContainerRef struct {
	Type ContainerType `json:"type"`
	ID   string        `json:"id"`
}

// Container holds the membership-relevant part of a board or workspace.
type Container struct {
	Type        ContainerType `json:"type"`
	ID          string        `json:"id"`
	OwnerUserID string        `json:"owner_user_id"`
	Members     []MemberEntry `json:"members"`
	// WorkspaceID is only meaningful for boards; empty means "no workspace".
	WorkspaceID string `json:"workspace_id,omitempty"`
	// Version is bumped on every member list write for optimistic locking.
	Version int64 `json:"version"`
}

// Ref returns the reference for this container.
func (c *Container) Ref() ContainerRef {
	return ContainerRef{Type: c.Type, ID: c.ID}
}

// Workspace groups boards and carries its own member list.
type Workspace struct {
	Container
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Board is a kanban board, optionally scoped to a workspace.
type Board struct {
	Container
	Title      string    `json:"title"`
	Background string    `json:"background,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validation errors for containers.
var (
	ErrWorkspaceNameRequired = errors.New("workspace name is required")
	ErrWorkspaceNameTooLong  = errors.New("workspace name must be 100 characters or less")
	ErrBoardTitleRequired    = errors.New("board title is required")
	ErrBoardTitleTooLong     = errors.New("board title must be 100 characters or less")
)

// Validate validates the workspace fields.
func (w *Workspace) Validate() error {
	name := strings.TrimSpace(w.Name)
	if name == "" {
		return fieldError("name", ErrWorkspaceNameRequired)
	}
	if len(name) > 100 {
		return fieldError("name", ErrWorkspaceNameTooLong)
	}
	return nil
}

// Validate validates the board fields.
func (b *Board) Validate() error {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		return fieldError("title", ErrBoardTitleRequired)
	}
	if len(title) > 100 {
		return fieldError("title", ErrBoardTitleTooLong)
	}
	return nil
}
