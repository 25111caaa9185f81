package services

import (
	"sort"

	"townhall/internal/domain"
)

// Labels used in spot statistics.
const (
	StatMedian = "Median"
	StatMax    = "Max"
)

// ComputeStats derives availability for an event as seen by viewingSessionID.
// Reservations held by the viewing session are not counted, so a returning
// visitor sees their own seats as available. Pass 0 for an anonymous viewer.
func ComputeStats(event *domain.Event, spots []*domain.Spot, reservations []*domain.Rsvp, viewingSessionID int64) *domain.EventStats {
	reservedBySpot := make(map[int64]int)
	contributionsBySpot := make(map[int64][]int64)
	reserved := 0
	for _, r := range reservations {
		if r.SessionID == viewingSessionID {
			continue
		}
		if r.Status != domain.RsvpPending && r.Status != domain.RsvpPaid {
			continue
		}
		reserved++
		reservedBySpot[r.SpotID]++
		contributionsBySpot[r.SpotID] = append(contributionsBySpot[r.SpotID], r.Contribution)
	}

	stats := &domain.EventStats{
		RemainingCapacity: max(event.Capacity-reserved, 0),
		RemainingSpots:    make(map[int64]int, len(spots)),
		SpotStats:         make(map[int64][]domain.SpotStat),
	}
	for _, s := range spots {
		left := min(s.QtyTotal-reservedBySpot[s.ID], s.QtyPerPerson)
		stats.RemainingSpots[s.ID] = max(left, 0)
		if s.Kind == domain.SpotVariable {
			if st := variableSpotStats(s, contributionsBySpot[s.ID]); len(st) > 0 {
				stats.SpotStats[s.ID] = st
			}
		}
	}
	return stats
}

func variableSpotStats(s *domain.Spot, contributions []int64) []domain.SpotStat {
	if len(contributions) == 0 {
		if s.SuggestedContribution == nil {
			return nil
		}
		return []domain.SpotStat{{Label: StatMedian, Amount: *s.SuggestedContribution}}
	}
	sorted := append([]int64(nil), contributions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	out := []domain.SpotStat{{Label: StatMedian, Amount: median}}
	if top := sorted[n-1]; top > median {
		out = append(out, domain.SpotStat{Label: StatMax, Amount: top})
	}
	return out
}
