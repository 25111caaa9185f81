package services

import (
	"context"
	"errors"
	"fmt"

	"townhall/internal/domain"
)

type conflictResolver struct {
	sessionRepo domain.RsvpSessionRepository
	rsvpRepo    domain.RsvpRepository
}

// NewConflictResolver returns the resolver used at every email-bearing RSVP step.
func NewConflictResolver(sessionRepo domain.RsvpSessionRepository, rsvpRepo domain.RsvpRepository) domain.ConflictResolver {
	return &conflictResolver{sessionRepo: sessionRepo, rsvpRepo: rsvpRepo}
}

// Resolve deletes other pending sessions whose contact is email, then rejects the
// step when another session still holds a seat for email. Callers run it inside
// the transaction that performs the write it guards. A session paid after it was
// read survives the delete and surfaces below as already_rsvped.
func (c *conflictResolver) Resolve(ctx context.Context, eventID, sessionID int64, email string) error {
	others, err := c.sessionRepo.FindOthersByEmail(ctx, eventID, email, sessionID)
	if err != nil {
		return fmt.Errorf("find sessions by email: %w", err)
	}
	for _, other := range others {
		if other.Status != domain.RsvpPending {
			continue
		}
		if _, err := c.sessionRepo.DeletePending(ctx, other.ID); err != nil {
			return fmt.Errorf("supersede session %d: %w", other.ID, err)
		}
	}

	held, err := c.rsvpRepo.FindHeldByEmail(ctx, eventID, email, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find rsvp by email: %w", err)
	}
	if held.Status == domain.RsvpPaid {
		return &domain.ConflictError{Code: domain.CodeAlreadyRsvped, Email: email}
	}
	return &domain.ConflictError{Code: domain.CodeCurrentlyRsvping, Email: email}
}
