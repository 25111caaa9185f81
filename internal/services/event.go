package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"townhall/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	spotRepo       domain.SpotRepository
	rsvpRepo       domain.RsvpRepository
	contextTimeout time.Duration
}

// NewEventService creates the public event page service.
func NewEventService(eventRepo domain.EventRepository, spotRepo domain.SpotRepository, rsvpRepo domain.RsvpRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		spotRepo:       spotRepo,
		rsvpRepo:       rsvpRepo,
		contextTimeout: timeout,
	}
}

// GetBySlug returns the event with availability as an anonymous visitor sees it.
func (s *eventService) GetBySlug(ctx context.Context, slug string) (*domain.EventView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	spots, err := s.spotRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	if spots == nil {
		spots = []*domain.Spot{}
	}

	reservations, err := s.rsvpRepo.ListByEventID(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}

	return &domain.EventView{
		Event: event,
		Spots: spots,
		Stats: ComputeStats(event, spots, reservations, 0),
	}, nil
}
