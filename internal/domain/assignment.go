package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MainSlot is the implicit slot name of a venue with no named slots. Assignment
// rows store a NULL slot for it; the uniqueness key and calendar cells use this
// canonical name instead.
const MainSlot = "main"

type SlotHours struct {
	StartTime Clock `json:"startTime"`
	EndTime   Clock `json:"endTime"`
}

// Venue is a bookable venue with default operating hours and optionally a set
// of named slots per night (e.g. "Early", "Late"). A venue with zero named
// slots is treated as a single implicit main slot.
type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID        uuid.UUID            `bun:"id,pk,type:uuid" json:"id"`
	Name      string               `bun:"name,notnull" json:"name"`
	StartTime Clock                `bun:"start_time,notnull" json:"startTime"`
	EndTime   Clock                `bun:"end_time,notnull" json:"endTime"`
	Slots     []string             `bun:"slots,array" json:"slots"`
	SlotHours map[string]SlotHours `bun:"slot_hours,type:jsonb" json:"slotHours,omitempty"`
	CreatedAt time.Time            `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time            `bun:"updated_at,notnull" json:"updatedAt"`
}

func (v *Venue) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if v.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			v.ID = id
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		v.UpdatedAt = now
	}
	return nil
}

// SlotNames returns the venue's named slots, or the implicit main slot for a
// venue without any.
func (v *Venue) SlotNames() []string {
	if len(v.Slots) == 0 {
		return []string{MainSlot}
	}
	return v.Slots
}

// HoursFor returns the operating window of one named slot, falling back to
// the venue's overall window when no slot-specific hours are defined.
func (v *Venue) HoursFor(slot string) SlotHours {
	if h, ok := v.SlotHours[slot]; ok {
		return h
	}
	return SlotHours{StartTime: v.StartTime, EndTime: v.EndTime}
}

// Artist is owned by the external identity service; this row is a synced read
// model so calendar responses can embed display data without a remote call.
type Artist struct {
	bun.BaseModel `bun:"table:artists"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Category  string    `bun:"category" json:"category,omitempty"`
	ImageURL  string    `bun:"image_url" json:"imageUrl,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

func (a *Artist) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

type AssignmentStatus string

const (
	AssignmentStatusConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentStatusPending   AssignmentStatus = "PENDING"
	AssignmentStatusCancelled AssignmentStatus = "CANCELLED"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusConfirmed, AssignmentStatusPending, AssignmentStatusCancelled:
		return true
	}
	return false
}

// Assignment books one artist into one venue/date/slot. At most one assignment
// may exist per (venue, date, slot) key. An assignment with SpecialEvent set
// and a nil artist is a closure or special night: it occupies the slot but
// never participates in artist conflicts. Deleting an assignment never touches
// the artist's own availability slots; the two aggregates are deliberately
// loosely coupled.
type Assignment struct {
	bun.BaseModel `bun:"table:assignments"`

	ID           uuid.UUID        `bun:"id,pk,type:uuid" json:"id"`
	VenueID      uuid.UUID        `bun:"venue_id,notnull,type:uuid" json:"venueId"`
	ArtistID     *uuid.UUID       `bun:"artist_id,type:uuid" json:"artistId,omitempty"`
	Date         Date             `bun:"date,notnull" json:"date"`
	StartTime    Clock            `bun:"start_time,notnull" json:"startTime"`
	EndTime      Clock            `bun:"end_time,notnull" json:"endTime"`
	Slot         *string          `bun:"slot" json:"slot,omitempty"`
	Status       AssignmentStatus `bun:"status,notnull" json:"status"`
	Notes        string           `bun:"notes" json:"notes,omitempty"`
	SpecialEvent string           `bun:"special_event" json:"specialEvent,omitempty"`
	Rating       *int             `bun:"rating" json:"rating,omitempty"`
	CreatedAt    time.Time        `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt    time.Time        `bun:"updated_at,notnull" json:"updatedAt"`
}

func (a *Assignment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// SlotName returns the canonical slot key, mapping a NULL slot to the
// implicit main slot.
func (a *Assignment) SlotName() string {
	if a.Slot == nil || *a.Slot == "" {
		return MainSlot
	}
	return *a.Slot
}

// IsSpecialEvent reports whether this assignment is an artist-less placeholder
// occupying the slot.
func (a *Assignment) IsSpecialEvent() bool {
	return a.ArtistID == nil && a.SpecialEvent != ""
}
