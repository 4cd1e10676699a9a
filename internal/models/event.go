package models

import "time"

// EventType names a membership or invitation change.
type EventType string

const (
	EventInvitationCreated   EventType = "invitation.created"
	EventInvitationAccepted  EventType = "invitation.accepted"
	EventInvitationDeclined  EventType = "invitation.declined"
	EventInvitationCancelled EventType = "invitation.cancelled"
	EventMemberRemoved       EventType = "member.removed"
	EventMemberLeft          EventType = "member.left"
)

// Event is delivered to the user it concerns over the event stream.
type Event struct {
	Type          EventType     `json:"type"`
	UserID        string        `json:"user_id"`
	ActorUserID   string        `json:"actor_user_id,omitempty"`
	ContainerType ContainerType `json:"container_type"`
	ContainerID   string        `json:"container_id"`
	InvitationID  string        `json:"invitation_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}
