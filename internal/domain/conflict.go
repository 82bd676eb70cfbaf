package domain

import (
	"github.com/google/uuid"
)

// Conflict is a derived, never-persisted signal that one artist holds
// overlapping commitments on one date. Venues lists every venue name involved,
// in first-seen order.
type Conflict struct {
	Date     Date      `json:"date"`
	ArtistID uuid.UUID `json:"artistId"`
	Venues   []string  `json:"venues"`
}

// DetectConflicts inspects one calendar date's assignments across all venues
// and returns one Conflict per double-booked artist. An artist is in conflict
// when they hold assignments at two or more distinct venues that date, or two
// assignments at the same venue whose wall-clock ranges overlap after 24:00
// normalization. Special-event placeholders never conflict. venueNames maps
// venue id to display name; unknown venues fall back to the id string.
//
// All assignments passed in must share the same local calendar date: ranges
// on different dates are adjacent by definition, never overlapping.
func DetectConflicts(date Date, assignments []Assignment, venueNames map[uuid.UUID]string) []Conflict {
	byArtist := make(map[uuid.UUID][]Assignment)
	order := make([]uuid.UUID, 0)
	for _, a := range assignments {
		if a.Date != date || a.ArtistID == nil {
			continue
		}
		id := *a.ArtistID
		if _, ok := byArtist[id]; !ok {
			order = append(order, id)
		}
		byArtist[id] = append(byArtist[id], a)
	}

	var out []Conflict
	for _, artistID := range order {
		if c, ok := conflictFor(date, artistID, byArtist[artistID], venueNames); ok {
			out = append(out, c)
		}
	}
	return out
}

// DetectConflictForArtist is the single-artist variant. It shares conflictFor
// with DetectConflicts so the batched and single-date read paths cannot drift.
func DetectConflictForArtist(date Date, artistID uuid.UUID, assignments []Assignment, venueNames map[uuid.UUID]string) (Conflict, bool) {
	own := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Date != date || a.ArtistID == nil || *a.ArtistID != artistID {
			continue
		}
		own = append(own, a)
	}
	return conflictFor(date, artistID, own, venueNames)
}

func conflictFor(date Date, artistID uuid.UUID, assignments []Assignment, venueNames map[uuid.UUID]string) (Conflict, bool) {
	if len(assignments) < 2 {
		return Conflict{}, false
	}

	distinctVenues := make(map[uuid.UUID]struct{}, len(assignments))
	for _, a := range assignments {
		distinctVenues[a.VenueID] = struct{}{}
	}

	conflicted := len(distinctVenues) >= 2
	if !conflicted {
		for i := 0; i < len(assignments) && !conflicted; i++ {
			for j := i + 1; j < len(assignments); j++ {
				if RangesOverlap(
					assignments[i].StartTime, assignments[i].EndTime,
					assignments[j].StartTime, assignments[j].EndTime,
				) {
					conflicted = true
					break
				}
			}
		}
	}
	if !conflicted {
		return Conflict{}, false
	}

	seen := make(map[string]struct{}, len(assignments))
	venues := make([]string, 0, len(distinctVenues))
	for _, a := range assignments {
		name, ok := venueNames[a.VenueID]
		if !ok {
			name = a.VenueID.String()
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		venues = append(venues, name)
	}

	return Conflict{Date: date, ArtistID: artistID, Venues: venues}, true
}
