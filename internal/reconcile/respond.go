package reconcile

import (
	"context"

	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/narvanalabs/boardroom/internal/store"
	"go.opentelemetry.io/otel/attribute"
)

// AcceptInvitation makes the invited user a member of the container. The
// ledger transition and the member list write commit together.
func (s *Service) AcceptInvitation(ctx context.Context, invitationID, actingUserID string) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "AcceptInvitation", attribute.String("invitation.id", invitationID))
	defer func() { finishSpan(span, err) }()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		ledger := s.ledger.With(tx)

		current, err := ledger.Get(ctx, invitationID)
		if err != nil {
			return err
		}
		if current.InvitedUserID != actingUserID {
			return models.ErrForbidden
		}
		if !current.IsPending() {
			return models.ErrAlreadyResolved
		}

		accepted, err := ledger.Transition(ctx, invitationID, models.InvitationStatusAccepted)
		if err != nil {
			return err
		}
		if _, err := s.members.With(tx).Add(ctx, accepted.Container(), actingUserID, accepted.Role); err != nil {
			return err
		}
		inv = accepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.EventInvitationAccepted, inv.InvitedByUserID, actingUserID, inv.Container(), inv.ID)
	s.logger.Info("invitation accepted",
		"invitation_id", inv.ID,
		"container_id", inv.ContainerID,
		"user_id", actingUserID,
	)
	return inv, nil
}

// DeclineInvitation lets the invited user refuse a pending invitation.
func (s *Service) DeclineInvitation(ctx context.Context, invitationID, actingUserID string) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "DeclineInvitation", attribute.String("invitation.id", invitationID))
	defer func() { finishSpan(span, err) }()

	current, err := s.ledger.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if current.InvitedUserID != actingUserID {
		return nil, models.ErrForbidden
	}

	inv, err = s.ledger.Transition(ctx, invitationID, models.InvitationStatusDeclined)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventInvitationDeclined, inv.InvitedByUserID, actingUserID, inv.Container(), inv.ID)
	return inv, nil
}

// CancelInvitation withdraws a pending invitation. The inviter and anyone
// who may manage the container's members can cancel.
func (s *Service) CancelInvitation(ctx context.Context, invitationID, requesterUserID string) (inv *models.Invitation, err error) {
	ctx, span := s.startSpan(ctx, "CancelInvitation", attribute.String("invitation.id", invitationID))
	defer func() { finishSpan(span, err) }()

	current, err := s.ledger.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if current.InvitedByUserID != requesterUserID {
		c, err := s.loadContainer(ctx, current.Container())
		if err != nil {
			return nil, err
		}
		if !membership.CanManage(c, requesterUserID) {
			return nil, models.ErrUnauthorized
		}
	}

	inv, err = s.ledger.Transition(ctx, invitationID, models.InvitationStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventInvitationCancelled, inv.InvitedUserID, requesterUserID, inv.Container(), inv.ID)
	return inv, nil
}
