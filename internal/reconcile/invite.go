package reconcile

import (
	"context"
	"errors"

	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// InviteUsers invites each candidate to the container and reports one
// outcome per distinct candidate.
//
// The requester must own the container or, for boards, be a board admin.
// Candidates of a board that belongs to a workspace must already have
// access to that workspace. Rejections are reported per candidate; only
// authorization, lookup and store failures fail the whole call.
func (s *Service) InviteUsers(ctx context.Context, req InviteRequest) (result *InviteResult, err error) {
	ref := req.Ref()
	ctx, span := s.startSpan(ctx, "InviteUsers", append(containerAttrs(ref),
		attribute.Int("candidates", len(req.CandidateUserIDs)))...)
	defer func() { finishSpan(span, err) }()

	if !req.Role.Assignable() {
		return nil, models.ErrInvalidRole
	}

	c, err := s.loadContainer(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !membership.CanManage(c, req.RequesterUserID) {
		return nil, models.ErrUnauthorized
	}

	var workspace *models.Container
	if c.Type == models.ContainerBoard && c.WorkspaceID != "" {
		workspace, err = s.members.Get(ctx, models.ContainerRef{Type: models.ContainerWorkspace, ID: c.WorkspaceID})
		if err != nil {
			return nil, err
		}
	}

	candidates := dedupe(req.CandidateUserIDs)
	users, err := s.directory.ResolveUsers(ctx, candidates)
	if err != nil {
		return nil, err
	}
	pending, err := s.ledger.FindPending(ctx, c.ID, candidates)
	if err != nil {
		return nil, err
	}
	hasPending := make(map[string]bool, len(pending))
	for _, inv := range pending {
		hasPending[inv.InvitedUserID] = true
	}

	result = &InviteResult{ContainerType: c.Type, ContainerID: c.ID}
	for _, userID := range candidates {
		cr := CandidateResult{UserID: userID}
		user, known := users[userID]
		if known {
			cr.Username = user.Username
		}

		switch {
		case !known:
			cr.Outcome, cr.Reason = OutcomeNotFound, "no such user"
		case workspace != nil && !membership.IsMember(workspace, userID):
			cr.Outcome, cr.Reason = OutcomeNotWorkspaceMember, models.ErrNotWorkspaceMember.Error()
		case membership.IsMember(c, userID):
			cr.Outcome, cr.Reason = OutcomeAlreadyMember, models.ErrAlreadyMember.Error()
		case hasPending[userID]:
			cr.Outcome, cr.Reason = OutcomeAlreadyPending, models.ErrAlreadyPending.Error()
		default:
			inv, err := s.ledger.Create(ctx, c.Type, c.ID, userID, req.RequesterUserID, req.Role)
			switch {
			case err == nil:
				cr.Outcome, cr.Invitation = OutcomeCreated, inv
				s.publish(models.EventInvitationCreated, userID, req.RequesterUserID, ref, inv.ID)
			case errors.Is(err, models.ErrAlreadyPending):
				// Another request created it since FindPending.
				cr.Outcome, cr.Reason = OutcomeAlreadyPending, err.Error()
			case models.Retryable(err):
				return nil, err
			default:
				cr.Outcome, cr.Reason = OutcomeError, err.Error()
				s.logger.Warn("creating invitation failed",
					"container_id", c.ID,
					"user_id", userID,
					"error", err,
				)
			}
		}
		result.Results = append(result.Results, cr)
	}

	s.logger.Info("processed invitations",
		"container_type", c.Type,
		"container_id", c.ID,
		"requester_id", req.RequesterUserID,
		"candidates", len(candidates),
		"created", len(result.Created()),
	)
	return result, nil
}

// dedupe drops blank and repeated IDs, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
