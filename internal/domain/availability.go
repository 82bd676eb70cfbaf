package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "AVAILABLE"
	SlotStatusTentative   SlotStatus = "TENTATIVE"
	SlotStatusUnavailable SlotStatus = "UNAVAILABLE"
	SlotStatusBooked      SlotStatus = "BOOKED"
	SlotStatusTravelTime  SlotStatus = "TRAVEL_TIME"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusAvailable, SlotStatusTentative, SlotStatusUnavailable,
		SlotStatusBooked, SlotStatusTravelTime:
		return true
	}
	return false
}

// AvailabilitySlot is a dated, timed block of one artist's availability.
// Slots created from a recurring pattern keep a back-reference in
// RecurringPatternID; virtual (unpersisted) expansions of a pattern carry the
// same reference with Virtual set.
type AvailabilitySlot struct {
	bun.BaseModel `bun:"table:availability_slots"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	ArtistID           uuid.UUID  `bun:"artist_id,notnull,type:uuid" json:"artistId"`
	Date               Date       `bun:"date,notnull" json:"date"`
	StartTime          Clock      `bun:"start_time,notnull" json:"startTime"`
	EndTime            Clock      `bun:"end_time,notnull" json:"endTime"`
	Status             SlotStatus `bun:"status,notnull" json:"status"`
	PriceMultiplier    float64    `bun:"price_multiplier,notnull" json:"priceMultiplier"`
	BufferBefore       int        `bun:"buffer_before,notnull" json:"bufferBefore"`
	BufferAfter        int        `bun:"buffer_after,notnull" json:"bufferAfter"`
	Notes              string     `bun:"notes" json:"notes,omitempty"`
	Requirements       string     `bun:"requirements" json:"requirements,omitempty"`
	RecurringPatternID *uuid.UUID `bun:"recurring_pattern_id,type:uuid" json:"recurringPatternId,omitempty"`
	Virtual            bool       `bun:"-" json:"virtual,omitempty"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
}

func (s *AvailabilitySlot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Overlaps reports whether two slots of the same artist occupy intersecting
// wall-clock ranges on the same date.
func (s *AvailabilitySlot) Overlaps(other *AvailabilitySlot) bool {
	if s.Date != other.Date {
		return false
	}
	return RangesOverlap(s.StartTime, s.EndTime, other.StartTime, other.EndTime)
}

// TimeSlotTemplate is a reusable bundle of slot attributes an artist applies
// imperatively to a chosen set of dates. Distinct from recurring patterns,
// which are date-rule driven.
type TimeSlotTemplate struct {
	bun.BaseModel `bun:"table:slot_templates"`

	ID              uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ArtistID        uuid.UUID `bun:"artist_id,notnull,type:uuid" json:"artistId"`
	Name            string    `bun:"name,notnull" json:"name"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"durationMinutes"`
	StartTime       Clock     `bun:"start_time,notnull" json:"startTime"`
	PriceMultiplier float64   `bun:"price_multiplier,notnull" json:"priceMultiplier"`
	BufferBefore    int       `bun:"buffer_before,notnull" json:"bufferBefore"`
	BufferAfter     int       `bun:"buffer_after,notnull" json:"bufferAfter"`
	IsDefault       bool      `bun:"is_default,notnull" json:"isDefault"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (t *TimeSlotTemplate) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if t.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			t.ID = id
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		t.UpdatedAt = now
	}
	return nil
}

// Slot builds the concrete availability slot this template produces on a
// target date.
func (t *TimeSlotTemplate) Slot(artistID uuid.UUID, date Date) (AvailabilitySlot, error) {
	end, err := t.StartTime.AddMinutes(t.DurationMinutes)
	if err != nil {
		return AvailabilitySlot{}, err
	}
	return AvailabilitySlot{
		ArtistID:        artistID,
		Date:            date,
		StartTime:       t.StartTime,
		EndTime:         end,
		Status:          SlotStatusAvailable,
		PriceMultiplier: t.PriceMultiplier,
		BufferBefore:    t.BufferBefore,
		BufferAfter:     t.BufferAfter,
	}, nil
}
