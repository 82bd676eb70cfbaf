package store

import (
	"context"

	"github.com/google/uuid"

	"stagetime/backend/internal/domain"
)

// BulkFailure reports one date a bulk write skipped, with the reason it was
// rejected. Bulk operations never abort the whole batch over one bad date.
type BulkFailure struct {
	Date   domain.Date `json:"date"`
	Reason string      `json:"reason"`
}

// BulkResult is the mixed success/failure outcome of a bulk upsert or a
// template application.
type BulkResult struct {
	Updated []domain.AvailabilitySlot `json:"updated"`
	Failed  []BulkFailure             `json:"failed"`
}

// AvailabilityRepository owns the artist-side aggregates: availability slots,
// recurring patterns, and slot templates. Every write runs inside a
// transaction serialized per artist calendar, so the no-overlap invariant
// cannot be violated by concurrent writers.
type AvailabilityRepository interface {
	GetSlots(ctx context.Context, artistID uuid.UUID, from, to domain.Date) ([]domain.AvailabilitySlot, error)
	GetSlot(ctx context.Context, slotID uuid.UUID) (domain.AvailabilitySlot, error)
	UpsertSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)
	BulkUpsert(ctx context.Context, artistID uuid.UUID, slots []domain.AvailabilitySlot) (BulkResult, error)
	MoveSlot(ctx context.Context, slotID uuid.UUID, newDate domain.Date) (domain.AvailabilitySlot, error)
	SetSlotStatus(ctx context.Context, artistID uuid.UUID, date domain.Date, from, to domain.SlotStatus) error

	CreatePattern(ctx context.Context, p domain.RecurringPattern) (domain.RecurringPattern, error)
	ListPatterns(ctx context.Context, artistID uuid.UUID) ([]domain.RecurringPattern, error)
	GetPattern(ctx context.Context, patternID uuid.UUID) (domain.RecurringPattern, error)
	DeactivatePattern(ctx context.Context, artistID, patternID uuid.UUID) error

	CreateTemplate(ctx context.Context, t domain.TimeSlotTemplate) (domain.TimeSlotTemplate, error)
	ListTemplates(ctx context.Context, artistID uuid.UUID) ([]domain.TimeSlotTemplate, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID) (domain.TimeSlotTemplate, error)
	DeleteTemplate(ctx context.Context, artistID, templateID uuid.UUID) error
}

// AvailabilityTx is the transactional sub-API used inside a locked artist
// calendar transaction.
type AvailabilityTx interface {
	ListSlotsOnDate(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.AvailabilitySlot, error)
	InsertSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)
}
