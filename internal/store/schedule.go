package store

import (
	"context"

	"github.com/google/uuid"

	"stagetime/backend/internal/domain"
)

// AssignmentUpdate carries the mutable assignment fields; nil pointers leave
// the stored value untouched.
type AssignmentUpdate struct {
	ArtistID  *uuid.UUID
	Date      *domain.Date
	StartTime *domain.Clock
	EndTime   *domain.Clock
	Slot      *string
	Status    *domain.AssignmentStatus
	Notes     *string
}

// ScheduleRepository owns the venue-side aggregates: assignments, venues, and
// the artist read model. Assignment writes serialize per venue so the
// (venue, date, slot) uniqueness key holds under concurrency; a losing writer
// gets ErrConflict, never a silent overwrite.
type ScheduleRepository interface {
	CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, upd AssignmentUpdate) (domain.Assignment, error)
	DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	GetAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	ListAssignments(ctx context.Context, venueIDs []uuid.UUID, from, to domain.Date) ([]domain.Assignment, error)
	ListAssignmentsForArtist(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.Assignment, error)

	CreateVenue(ctx context.Context, v domain.Venue) (domain.Venue, error)
	GetVenue(ctx context.Context, venueID uuid.UUID) (domain.Venue, error)
	ListVenues(ctx context.Context, venueIDs []uuid.UUID) ([]domain.Venue, error)

	UpsertArtist(ctx context.Context, a domain.Artist) (domain.Artist, error)
	ListArtists(ctx context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error)
}
