package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/narvanalabs/boardroom/internal/membership"
	"github.com/narvanalabs/boardroom/internal/models"
	"github.com/sourcegraph/conc/pool"
)

// RemoveMember removes targetUserID from the container. Workspaces require
// the owner; boards accept the owner or a board admin. The owner cannot be
// removed. Removing a workspace member also detaches them from every board
// of the workspace; failures on individual boards are reported as warnings.
func (s *Service) RemoveMember(ctx context.Context, ref models.ContainerRef, requesterUserID, targetUserID string) (result *RemoveResult, err error) {
	ctx, span := s.startSpan(ctx, "RemoveMember", containerAttrs(ref)...)
	defer func() { finishSpan(span, err) }()

	c, err := s.loadContainer(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !membership.CanManage(c, requesterUserID) {
		return nil, models.ErrUnauthorized
	}
	if targetUserID == c.OwnerUserID {
		return nil, fmt.Errorf("cannot remove the owner of %s: %w", describe(ref), models.ErrForbidden)
	}

	result, err = s.detach(ctx, c, targetUserID)
	if err != nil {
		return nil, err
	}
	if !result.Removed && len(result.Boards) == 0 {
		return result, nil
	}
	s.publish(models.EventMemberRemoved, targetUserID, requesterUserID, ref, "")
	s.logger.Info("member removed",
		"container_type", ref.Type,
		"container_id", ref.ID,
		"user_id", targetUserID,
		"requester_id", requesterUserID,
		"boards", len(result.Boards),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// LeaveContainer removes actingUserID from the container at their own
// request. The acting user must be a non-owner member. Leaving a workspace
// cascades to its boards like RemoveMember.
func (s *Service) LeaveContainer(ctx context.Context, ref models.ContainerRef, actingUserID string) (result *RemoveResult, err error) {
	ctx, span := s.startSpan(ctx, "LeaveContainer", containerAttrs(ref)...)
	defer func() { finishSpan(span, err) }()

	c, err := s.loadContainer(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch membership.RoleOf(c, actingUserID) {
	case models.RoleOwner:
		return nil, fmt.Errorf("the owner cannot leave %s: %w", describe(ref), models.ErrForbidden)
	case models.RoleNone:
		return nil, fmt.Errorf("not a member of %s: %w", describe(ref), models.ErrForbidden)
	}

	result, err = s.detach(ctx, c, actingUserID)
	if err != nil {
		return nil, err
	}
	s.publish(models.EventMemberLeft, c.OwnerUserID, actingUserID, ref, "")
	s.logger.Info("member left",
		"container_type", ref.Type,
		"container_id", ref.ID,
		"user_id", actingUserID,
		"boards", len(result.Boards),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// detach ends userID's membership of c: member list first, then ledger
// bookkeeping, then the board cascade for workspaces. Only a failure of
// the member list write or of listing the workspace boards fails the call.
func (s *Service) detach(ctx context.Context, c *models.Container, userID string) (*RemoveResult, error) {
	ref := c.Ref()

	var boards []*models.Board
	if c.Type == models.ContainerWorkspace {
		var err error
		boards, err = s.store.Boards().ListByWorkspace(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("listing boards of %s: %w", describe(ref), err)
		}
	}

	_, removed, err := s.members.Remove(ctx, ref, userID)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{
		ContainerType: c.Type,
		ContainerID:   c.ID,
		UserID:        userID,
		Removed:       removed,
	}
	if w := s.retire(ctx, ref, userID); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}

	if len(boards) > 0 {
		detached, warnings := s.cascade(ctx, boards, userID)
		result.Boards = detached
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result, nil
}

// retire closes the ledger records of the pair. Failures do not undo the
// membership change; they come back as a warning.
func (s *Service) retire(ctx context.Context, ref models.ContainerRef, userID string) *Warning {
	err := s.bookkeep(ctx, func() error {
		_, err := s.ledger.Retire(ctx, ref.ID, userID)
		return err
	})
	if err == nil {
		return nil
	}
	s.logger.Warn("invitation bookkeeping failed",
		"container_type", ref.Type,
		"container_id", ref.ID,
		"user_id", userID,
		"error", err,
	)
	return &Warning{
		ContainerType: ref.Type,
		ContainerID:   ref.ID,
		Kind:          models.KindOf(err),
		Message:       fmt.Sprintf("membership ended but invitation records were not updated: %v", err),
	}
}

// cascade detaches userID from every board independently. A failure on one
// board never stops the others.
func (s *Service) cascade(ctx context.Context, boards []*models.Board, userID string) ([]string, []Warning) {
	var (
		mu       sync.Mutex
		detached []string
		warnings []Warning
	)
	warn := func(w Warning) {
		mu.Lock()
		warnings = append(warnings, w)
		mu.Unlock()
	}

	p := pool.New().WithMaxGoroutines(s.cfg.CascadeConcurrency)
	for _, board := range boards {
		p.Go(func() {
			ref := board.Ref()

			if board.OwnerUserID == userID {
				warn(Warning{
					ContainerType: ref.Type,
					ContainerID:   ref.ID,
					Kind:          models.KindForbidden,
					Message:       "user owns this board and keeps it",
				})
				return
			}

			_, removed, err := s.members.Remove(ctx, ref, userID)
			if err != nil {
				s.logger.Warn("cascade removal failed",
					"board_id", ref.ID,
					"user_id", userID,
					"error", err,
				)
				warn(Warning{
					ContainerType: ref.Type,
					ContainerID:   ref.ID,
					Kind:          models.KindOf(err),
					Message:       fmt.Sprintf("could not remove user from board: %v", err),
				})
			} else if removed {
				mu.Lock()
				detached = append(detached, ref.ID)
				mu.Unlock()
				s.publish(models.EventMemberRemoved, userID, "", ref, "")
			}

			// Pending board invitations are cancelled even if the member
			// list write failed.
			if w := s.retire(ctx, ref, userID); w != nil {
				warn(*w)
			}
		})
	}
	p.Wait()

	sort.Strings(detached)
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].ContainerID < warnings[j].ContainerID })
	return detached, warnings
}
