package domain

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"github.com/uptrace/bun"
)

type PatternFrequency string

const (
	PatternFrequencyWeekly PatternFrequency = "weekly"
)

// RecurringPattern is a recurrence rule that lazily generates availability
// slots for matching dates inside its validity window. Nothing is persisted
// at creation time: virtual slots are synthesized per query, and a concrete
// row appears only when a user edits one specific date's instance.
type RecurringPattern struct {
	bun.BaseModel `bun:"table:recurring_patterns"`

	ID              uuid.UUID        `bun:"id,pk,type:uuid" json:"id"`
	ArtistID        uuid.UUID        `bun:"artist_id,notnull,type:uuid" json:"artistId"`
	Frequency       PatternFrequency `bun:"frequency,notnull" json:"frequency"`
	DayOfWeek       int              `bun:"day_of_week,notnull" json:"dayOfWeek"`
	StartTime       Clock            `bun:"start_time,notnull" json:"startTime"`
	EndTime         Clock            `bun:"end_time,notnull" json:"endTime"`
	PriceMultiplier float64          `bun:"price_multiplier,notnull" json:"priceMultiplier"`
	ValidFrom       *Date            `bun:"valid_from" json:"validFrom,omitempty"`
	ValidUntil      *Date            `bun:"valid_until" json:"validUntil,omitempty"`
	IsActive        bool             `bun:"is_active,notnull" json:"isActive"`
	CreatedAt       time.Time        `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time        `bun:"updated_at,notnull" json:"updatedAt"`
}

func (p *RecurringPattern) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if p.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			p.ID = id
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		p.UpdatedAt = now
	}
	return nil
}

// rruleWeekdays is indexed by time.Weekday (Sunday = 0).
var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// ExpandPattern synthesizes the pattern's virtual slots for every date in
// [rangeStart, rangeEnd] that matches its day-of-week and falls inside
// [ValidFrom, ValidUntil]. The result is pure computation bounded by the
// queried range; nothing is persisted.
func ExpandPattern(p RecurringPattern, rangeStart, rangeEnd Date) ([]AvailabilitySlot, error) {
	if p.Frequency != PatternFrequencyWeekly {
		return nil, errors.New("unsupported pattern frequency")
	}
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return nil, errors.New("invalid day_of_week")
	}
	if !ClockRangeValid(p.StartTime, p.EndTime) {
		return nil, errors.New("invalid time range")
	}
	if !p.IsActive {
		return nil, nil
	}

	start := rangeStart
	if p.ValidFrom != nil && start.Before(*p.ValidFrom) {
		start = *p.ValidFrom
	}
	end := rangeEnd
	if p.ValidUntil != nil && p.ValidUntil.Before(end) {
		end = *p.ValidUntil
	}
	if end.Before(start) {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  1,
		Byweekday: []rrule.Weekday{rruleWeekdays[p.DayOfWeek]},
		Dtstart:   start.Time(),
		Until:     end.Time(),
	})
	if err != nil {
		return nil, err
	}

	matches := rule.Between(start.Time(), end.Time(), true)
	out := make([]AvailabilitySlot, 0, len(matches))
	patternID := p.ID
	for _, m := range matches {
		out = append(out, AvailabilitySlot{
			ArtistID:           p.ArtistID,
			Date:               DateOf(m),
			StartTime:          p.StartTime,
			EndTime:            p.EndTime,
			Status:             SlotStatusAvailable,
			PriceMultiplier:    p.PriceMultiplier,
			RecurringPatternID: &patternID,
			Virtual:            true,
		})
	}
	return out, nil
}

// MergeSlots combines persisted slots with virtual pattern expansions using
// the concrete-wins tie-break: a virtual instance is suppressed whenever a
// concrete slot already exists for the same artist and date, including the
// materialized row that replaced it.
func MergeSlots(concrete, virtual []AvailabilitySlot) []AvailabilitySlot {
	type key struct {
		artist uuid.UUID
		date   Date
	}
	occupied := make(map[key]struct{}, len(concrete))
	for _, s := range concrete {
		occupied[key{s.ArtistID, s.Date}] = struct{}{}
	}

	out := make([]AvailabilitySlot, 0, len(concrete)+len(virtual))
	out = append(out, concrete...)
	for _, v := range virtual {
		if _, ok := occupied[key{v.ArtistID, v.Date}]; ok {
			continue
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}
