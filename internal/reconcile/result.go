package reconcile

import (
	"github.com/narvanalabs/boardroom/internal/models"
)

// Outcome is the per-candidate result of an invite request.
type Outcome string

const (
	OutcomeCreated            Outcome = "created"
	OutcomeAlreadyMember      Outcome = Outcome(models.KindAlreadyMember)
	OutcomeAlreadyPending     Outcome = Outcome(models.KindAlreadyPending)
	OutcomeNotWorkspaceMember Outcome = Outcome(models.KindNotWorkspaceMember)
	OutcomeNotFound           Outcome = Outcome(models.KindNotFound)
	OutcomeError              Outcome = "error"
)

// InviteRequest asks to invite candidates to a container.
type InviteRequest struct {
	ContainerType    models.ContainerType `json:"container_type"`
	ContainerID      string               `json:"container_id"`
	RequesterUserID  string               `json:"requester_user_id"`
	CandidateUserIDs []string             `json:"candidate_user_ids"`
	Role             models.Role          `json:"role"`
}

// Ref returns the targeted container.
func (r InviteRequest) Ref() models.ContainerRef {
	return models.ContainerRef{Type: r.ContainerType, ID: r.ContainerID}
}

// CandidateResult is the outcome for one candidate.
type CandidateResult struct {
	UserID     string             `json:"user_id"`
	Username   string             `json:"username,omitempty"`
	Outcome    Outcome            `json:"outcome"`
	Reason     string             `json:"reason,omitempty"`
	Invitation *models.Invitation `json:"invitation,omitempty"`
}

// InviteResult enumerates one outcome per distinct candidate, in request order.
type InviteResult struct {
	ContainerType models.ContainerType `json:"container_type"`
	ContainerID   string               `json:"container_id"`
	Results       []CandidateResult    `json:"results"`
}

// Created returns the invitations the request created.
func (r *InviteResult) Created() []*models.Invitation {
	var out []*models.Invitation
	for _, c := range r.Results {
		if c.Outcome == OutcomeCreated && c.Invitation != nil {
			out = append(out, c.Invitation)
		}
	}
	return out
}

// Outcome returns the outcome recorded for userID.
func (r *InviteResult) Outcome(userID string) (Outcome, bool) {
	for _, c := range r.Results {
		if c.UserID == userID {
			return c.Outcome, true
		}
	}
	return "", false
}

// Warning reports a non-fatal failure while ending a membership.
type Warning struct {
	ContainerType models.ContainerType `json:"container_type"`
	ContainerID   string               `json:"container_id"`
	Kind          models.ErrorKind     `json:"kind"`
	Message       string               `json:"message"`
}

// RemoveResult describes a completed removal or leave.
type RemoveResult struct {
	ContainerType models.ContainerType `json:"container_type"`
	ContainerID   string               `json:"container_id"`
	UserID        string               `json:"user_id"`
	// Removed is false when the user held no member entry.
	Removed bool `json:"removed"`
	// Boards lists the workspace boards the cascade detached the user from.
	Boards   []string  `json:"boards,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}
