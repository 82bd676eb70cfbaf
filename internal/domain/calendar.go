package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ViewMode string

const (
	ViewModeMonth ViewMode = "month"
	ViewModeWeek  ViewMode = "week"
	ViewModeDay   ViewMode = "day"
)

func (v ViewMode) Valid() bool {
	switch v {
	case ViewModeMonth, ViewModeWeek, ViewModeDay:
		return true
	}
	return false
}

// CalendarColumn is one (venue, slot) pair. Multi-slot venues expand into one
// column per named slot labeled "{venue} {slot}"; a venue without named slots
// produces a single column labeled by the venue name alone.
type CalendarColumn struct {
	VenueID   uuid.UUID `json:"venueId"`
	VenueName string    `json:"venueName"`
	Slot      string    `json:"slot"`
	Label     string    `json:"label"`
	Hours     SlotHours `json:"hours"`
}

type CalendarCell struct {
	Assignment *Assignment `json:"assignment,omitempty"`
	Conflicted bool        `json:"conflicted,omitempty"`
	Bookable   bool        `json:"bookable"`
}

type CalendarRow struct {
	Date       Date               `json:"date"`
	Past       bool               `json:"past"`
	Conflicted bool               `json:"conflicted,omitempty"`
	Cells      []CalendarCell     `json:"cells"`
	Available  []AvailabilitySlot `json:"available,omitempty"`
}

type CalendarView struct {
	Columns   []CalendarColumn `json:"columns"`
	Rows      []CalendarRow    `json:"rows"`
	Conflicts []Conflict       `json:"conflicts"`
	Artists   []Artist         `json:"artists"`
}

// CalendarInput carries everything the builder composes: the venues to show,
// the already-loaded assignments and merged availability for the range, and
// "today" for the past-date policy (injected so tests control the clock).
//
// Conflict detection may need a wider assignment set than the grid shows: an
// artist double-booked at a venue outside the requested filter still has a
// conflict. ConflictAssignments supplies that wider set; nil means
// Assignments. VenueNames labels venues that appear only in the wider set.
type CalendarInput struct {
	Venues              []Venue
	Assignments         []Assignment
	ConflictAssignments []Assignment
	VenueNames          map[uuid.UUID]string
	Artists             []Artist
	Availability        []AvailabilitySlot
	ViewMode            ViewMode
	Year                int
	Month               time.Month
	Anchor              Date // reference date for week and day views
	Today               Date
}

// ViewDates resolves the row dates for a view request: the full month for
// month view, the Monday-first week containing the anchor for week view, the
// anchor alone for day view.
func ViewDates(mode ViewMode, year int, month time.Month, anchor Date) ([]Date, error) {
	switch mode {
	case ViewModeMonth, "":
		return MonthDates(year, month), nil
	case ViewModeWeek:
		return WeekDates(anchor), nil
	case ViewModeDay:
		return []Date{anchor}, nil
	}
	return nil, errors.New("unsupported view mode")
}

// BuildCalendarView composes columns, rows, assignments, availability and
// conflicts into a renderable grid keyed by local calendar date. Dates before
// Today render read-only: their empty cells are not bookable but stay visible
// for historical reference.
func BuildCalendarView(in CalendarInput) (CalendarView, error) {
	dates, err := ViewDates(in.ViewMode, in.Year, in.Month, in.Anchor)
	if err != nil {
		return CalendarView{}, err
	}

	columns := make([]CalendarColumn, 0, len(in.Venues))
	venueNames := make(map[uuid.UUID]string, len(in.Venues)+len(in.VenueNames))
	for id, name := range in.VenueNames {
		venueNames[id] = name
	}
	for _, v := range in.Venues {
		venueNames[v.ID] = v.Name
		for _, slot := range v.SlotNames() {
			label := v.Name
			if len(v.Slots) > 0 {
				label = v.Name + " " + slot
			}
			columns = append(columns, CalendarColumn{
				VenueID:   v.ID,
				VenueName: v.Name,
				Slot:      slot,
				Label:     label,
				Hours:     v.HoursFor(slot),
			})
		}
	}

	type cellKey struct {
		date  Date
		venue uuid.UUID
		slot  string
	}
	assignmentAt := make(map[cellKey]*Assignment, len(in.Assignments))
	for i := range in.Assignments {
		a := in.Assignments[i]
		assignmentAt[cellKey{a.Date, a.VenueID, a.SlotName()}] = &in.Assignments[i]
	}

	conflictScope := in.ConflictAssignments
	if conflictScope == nil {
		conflictScope = in.Assignments
	}
	byDate := make(map[Date][]Assignment, len(dates))
	for _, a := range conflictScope {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	availableAt := make(map[Date][]AvailabilitySlot)
	for _, s := range in.Availability {
		availableAt[s.Date] = append(availableAt[s.Date], s)
	}

	var allConflicts []Conflict
	rows := make([]CalendarRow, 0, len(dates))
	for _, d := range dates {
		conflicts := DetectConflicts(d, byDate[d], venueNames)
		allConflicts = append(allConflicts, conflicts...)

		conflictedVenues := make(map[string]struct{})
		for _, c := range conflicts {
			for _, name := range c.Venues {
				conflictedVenues[name] = struct{}{}
			}
		}

		past := d.Before(in.Today)
		cells := make([]CalendarCell, 0, len(columns))
		for _, col := range columns {
			a := assignmentAt[cellKey{d, col.VenueID, col.Slot}]
			_, conflicted := conflictedVenues[col.VenueName]
			cells = append(cells, CalendarCell{
				Assignment: a,
				Conflicted: a != nil && conflicted,
				Bookable:   a == nil && !past,
			})
		}

		rows = append(rows, CalendarRow{
			Date:       d,
			Past:       past,
			Conflicted: len(conflicts) > 0,
			Cells:      cells,
			Available:  availableAt[d],
		})
	}

	return CalendarView{Columns: columns, Rows: rows, Conflicts: allConflicts, Artists: in.Artists}, nil
}
