package models

import (
	"time"
)

// InvitationStatus represents the status of an invitation.
type InvitationStatus string

const (
	// InvitationStatusPending indicates the invitation awaits a response.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted indicates the invitee joined the container.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusDeclined indicates the invitee refused.
	InvitationStatusDeclined InvitationStatus = "declined"
	// InvitationStatusCancelled indicates the inviter withdrew it, or a cascade did.
	InvitationStatusCancelled InvitationStatus = "cancelled"
	// InvitationStatusRemoved indicates the member was later removed or left.
	InvitationStatusRemoved InvitationStatus = "removed"
)

// TerminalStatuses lists every status an invitation can leave pending for.
var TerminalStatuses = []InvitationStatus{
	InvitationStatusAccepted,
	InvitationStatusDeclined,
	InvitationStatusCancelled,
	InvitationStatusRemoved,
}

// Valid reports whether s is part of the declared status vocabulary.
func (s InvitationStatus) Valid() bool {
	return s == InvitationStatusPending || s.Terminal()
}

// Terminal reports whether s ends the pending lifecycle.
func (s InvitationStatus) Terminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

// Reissuable reports whether a new pending invitation may supersede a record in status s.
func (s InvitationStatus) Reissuable() bool {
	return s == InvitationStatusDeclined || s == InvitationStatusCancelled || s == InvitationStatusRemoved
}

// Invitation is one entry of the invitation ledger.
type Invitation struct {
	ID              string           `json:"id"`
	ContainerType   ContainerType    `json:"container_type"`
	ContainerID     string           `json:"container_id"`
	InvitedUserID   string           `json:"invited_user_id"`
	InvitedByUserID string           `json:"invited_by_user_id"`
	Role            Role             `json:"role"`
	Status          InvitationStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
}

// Container returns the reference of the container the invitation targets.
func (i *Invitation) Container() ContainerRef {
	return ContainerRef{Type: i.ContainerType, ID: i.ContainerID}
}

// IsPending returns true if the invitation can still be acted upon.
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationStatusPending
}
