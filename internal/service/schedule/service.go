package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stagetime/backend/internal/cache"
	"stagetime/backend/internal/domain"
	"stagetime/backend/internal/store"
)

type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// AvailabilityReader supplies an artist's merged availability (concrete rows
// plus virtual pattern expansions) for overlay on the venue calendar.
type AvailabilityReader interface {
	GetCalendar(ctx context.Context, artistID uuid.UUID, from, to string) ([]domain.AvailabilitySlot, error)
}

// SlotStatusWriter flips availability slot statuses when bookings are made or
// torn down. Both writes are best effort: an assignment is valid even when the
// artist never published matching availability.
type SlotStatusWriter interface {
	SetSlotStatus(ctx context.Context, artistID uuid.UUID, date domain.Date, from, to domain.SlotStatus) error
}

// ViewCache caches rendered calendar views keyed by version stamps.
type ViewCache interface {
	Invalidate(ctx context.Context, scope string) error
	Versions(ctx context.Context, scopes []string) ([]int64, error)
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

type Service struct {
	repo  store.ScheduleRepository
	avail AvailabilityReader
	slots SlotStatusWriter
	views ViewCache
	log   *slog.Logger
	now   func() time.Time
}

func NewService(repo store.ScheduleRepository, avail AvailabilityReader, slots SlotStatusWriter, views ViewCache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:  repo,
		avail: avail,
		slots: slots,
		views: views,
		log:   log,
		now:   time.Now,
	}
}

type CreateAssignmentInput struct {
	VenueID      uuid.UUID
	ArtistID     *uuid.UUID
	Date         string
	StartTime    string
	EndTime      string
	Slot         string
	Status       string
	Notes        string
	SpecialEvent string
}

// AssignmentResult pairs a written assignment with the cross-venue conflict
// advisories it produced. Advisories never block the write.
type AssignmentResult struct {
	Assignment domain.Assignment `json:"assignment"`
	Conflicts  []domain.Conflict `json:"conflicts,omitempty"`
}

func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (AssignmentResult, error) {
	if in.VenueID == uuid.Nil {
		return AssignmentResult{}, validationError("venueId", "venue_id is required")
	}
	if in.ArtistID == nil && strings.TrimSpace(in.SpecialEvent) == "" {
		return AssignmentResult{}, validationError("artistId", "either artist_id or special_event is required")
	}

	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return AssignmentResult{}, validationError("date", err.Error())
	}
	if date.Before(domain.DateOf(s.now())) {
		return AssignmentResult{}, validationError("date", "cannot book a past date")
	}

	venue, err := s.repo.GetVenue(ctx, in.VenueID)
	if err != nil {
		return AssignmentResult{}, err
	}

	slotName, err := resolveSlot(venue, in.Slot)
	if err != nil {
		return AssignmentResult{}, err
	}
	start, end, err := resolveTimes(venue, slotName, in.StartTime, in.EndTime)
	if err != nil {
		return AssignmentResult{}, err
	}

	status := domain.AssignmentStatus(in.Status)
	if status == "" {
		status = domain.AssignmentStatusConfirmed
	}
	if !status.Valid() {
		return AssignmentResult{}, validationError("status", "unknown assignment status")
	}

	a := domain.Assignment{
		VenueID:      in.VenueID,
		ArtistID:     in.ArtistID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Status:       status,
		Notes:        in.Notes,
		SpecialEvent: strings.TrimSpace(in.SpecialEvent),
	}
	if slotName != domain.MainSlot {
		a.Slot = &slotName
	}

	created, err := s.repo.CreateAssignment(ctx, a)
	if err != nil {
		return AssignmentResult{}, err
	}

	conflicts := s.advisoryConflicts(ctx, created)
	s.bookAvailability(ctx, created)
	s.invalidateVenue(ctx, created.VenueID)
	s.invalidateArtist(ctx, created.ArtistID)

	return AssignmentResult{Assignment: created, Conflicts: conflicts}, nil
}

type UpdateAssignmentInput struct {
	ArtistID  *uuid.UUID
	Date      *string
	StartTime *string
	EndTime   *string
	Slot      *string
	Status    *string
	Notes     *string
}

// UpdateAssignment reschedules or edits one assignment. Moving it to an
// occupied (venue, date, slot) key fails with a conflict and leaves the
// original untouched; cross-venue double bookings come back as advisories.
func (s *Service) UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, in UpdateAssignmentInput) (AssignmentResult, error) {
	prev, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return AssignmentResult{}, err
	}
	venue, err := s.repo.GetVenue(ctx, prev.VenueID)
	if err != nil {
		return AssignmentResult{}, err
	}

	upd := store.AssignmentUpdate{ArtistID: in.ArtistID, Notes: in.Notes}

	if in.Date != nil {
		date, err := domain.ParseDate(*in.Date)
		if err != nil {
			return AssignmentResult{}, validationError("date", err.Error())
		}
		if date.Before(domain.DateOf(s.now())) {
			return AssignmentResult{}, validationError("date", "cannot reschedule onto a past date")
		}
		upd.Date = &date
	}
	if in.Slot != nil {
		slotName, err := resolveSlot(venue, *in.Slot)
		if err != nil {
			return AssignmentResult{}, err
		}
		stored := ""
		if slotName != domain.MainSlot {
			stored = slotName
		}
		upd.Slot = &stored
	}
	if in.StartTime != nil || in.EndTime != nil {
		start := prev.StartTime
		end := prev.EndTime
		if in.StartTime != nil {
			start = domain.Clock(*in.StartTime)
		}
		if in.EndTime != nil {
			end = domain.ToStorageTime(domain.Clock(*in.EndTime), true)
		}
		if !domain.ClockRangeValid(start, end) {
			return AssignmentResult{}, validationError("startTime", "end time must be after start time")
		}
		upd.StartTime = &start
		upd.EndTime = &end
	}
	if in.Status != nil {
		status := domain.AssignmentStatus(*in.Status)
		if !status.Valid() {
			return AssignmentResult{}, validationError("status", "unknown assignment status")
		}
		upd.Status = &status
	}

	updated, err := s.repo.UpdateAssignment(ctx, assignmentID, upd)
	if err != nil {
		return AssignmentResult{}, err
	}

	conflicts := s.advisoryConflicts(ctx, updated)
	if assignmentMoved(prev, updated) {
		s.releaseAvailability(ctx, prev)
		s.bookAvailability(ctx, updated)
	}
	s.invalidateVenue(ctx, updated.VenueID)
	s.invalidateArtist(ctx, prev.ArtistID)
	s.invalidateArtist(ctx, updated.ArtistID)

	return AssignmentResult{Assignment: updated, Conflicts: conflicts}, nil
}

// DeleteAssignment removes a booking and releases the artist's matching
// availability back to AVAILABLE. The artist's own slots are otherwise
// untouched; unbooking never deletes availability.
func (s *Service) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	deleted, err := s.repo.DeleteAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}

	s.releaseAvailability(ctx, deleted)
	s.invalidateVenue(ctx, deleted.VenueID)
	s.invalidateArtist(ctx, deleted.ArtistID)

	return deleted, nil
}

func (s *Service) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	return s.repo.GetAssignment(ctx, assignmentID)
}

func (s *Service) ListAssignments(ctx context.Context, venueIDs []uuid.UUID, fromRaw, toRaw string) ([]domain.Assignment, error) {
	from, err := domain.ParseDate(fromRaw)
	if err != nil {
		return nil, validationError("from", err.Error())
	}
	to, err := domain.ParseDate(toRaw)
	if err != nil {
		return nil, validationError("to", err.Error())
	}
	if to.Before(from) {
		return nil, validationError("to", "to must not precede from")
	}
	return s.repo.ListAssignments(ctx, venueIDs, from, to)
}

type BuildCalendarInput struct {
	ViewMode string
	Year     int
	Month    time.Month
	Anchor   string
	VenueIDs []uuid.UUID
	ArtistID *uuid.UUID
}

// BuildCalendar renders the cross-venue calendar grid, optionally overlaying
// one artist's merged availability. Conflict detection always spans every
// venue: a venue filter narrows the grid, never the double-booking check, so
// the read path reports the same conflicts the write path does. Views are
// cached under version-stamped keys; any assignment or availability write
// bumps the relevant stamp, so a cached entry is correct for as long as it is
// reachable.
func (s *Service) BuildCalendar(ctx context.Context, in BuildCalendarInput) (domain.CalendarView, error) {
	mode := domain.ViewMode(in.ViewMode)
	if mode == "" {
		mode = domain.ViewModeMonth
	}
	if !mode.Valid() {
		return domain.CalendarView{}, validationError("view", "unsupported view mode")
	}

	var anchor domain.Date
	if mode != domain.ViewModeMonth {
		a, err := domain.ParseDate(in.Anchor)
		if err != nil {
			return domain.CalendarView{}, validationError("anchor", err.Error())
		}
		anchor = a
	} else if in.Year < 1 || in.Month < time.January || in.Month > time.December {
		return domain.CalendarView{}, validationError("month", "invalid year or month")
	}

	dates, err := domain.ViewDates(mode, in.Year, in.Month, anchor)
	if err != nil {
		return domain.CalendarView{}, validationError("view", err.Error())
	}
	from, to := dates[0], dates[len(dates)-1]

	venues, err := s.repo.ListVenues(ctx, in.VenueIDs)
	if err != nil {
		return domain.CalendarView{}, err
	}

	key, cached := s.viewCacheKey(ctx, mode, windowLabel(mode, in, anchor), venues, in.ArtistID)
	if cached {
		var view domain.CalendarView
		hit, err := s.views.Get(ctx, key, &view)
		if err != nil {
			s.log.WarnContext(ctx, "calendar cache read failed", "key", key, "error", err)
		} else if hit {
			return view, nil
		}
	}

	venueIDs := make([]uuid.UUID, 0, len(venues))
	for _, v := range venues {
		venueIDs = append(venueIDs, v.ID)
	}
	assignments, err := s.repo.ListAssignments(ctx, venueIDs, from, to)
	if err != nil {
		return domain.CalendarView{}, err
	}

	conflictScope := assignments
	var extraVenueNames map[uuid.UUID]string
	if len(in.VenueIDs) > 0 {
		conflictScope, err = s.repo.ListAssignments(ctx, nil, from, to)
		if err != nil {
			return domain.CalendarView{}, err
		}
		allVenues, err := s.repo.ListVenues(ctx, nil)
		if err != nil {
			return domain.CalendarView{}, err
		}
		extraVenueNames = make(map[uuid.UUID]string, len(allVenues))
		for _, v := range allVenues {
			extraVenueNames[v.ID] = v.Name
		}
	}

	artists, err := s.assignedArtists(ctx, assignments)
	if err != nil {
		return domain.CalendarView{}, err
	}

	var availability []domain.AvailabilitySlot
	if in.ArtistID != nil && s.avail != nil {
		availability, err = s.avail.GetCalendar(ctx, *in.ArtistID, from.String(), to.String())
		if err != nil {
			return domain.CalendarView{}, err
		}
	}

	view, err := domain.BuildCalendarView(domain.CalendarInput{
		Venues:              venues,
		Assignments:         assignments,
		ConflictAssignments: conflictScope,
		VenueNames:          extraVenueNames,
		Artists:             artists,
		Availability:        availability,
		ViewMode:            mode,
		Year:                in.Year,
		Month:               in.Month,
		Anchor:              anchor,
		Today:               domain.DateOf(s.now()),
	})
	if err != nil {
		return domain.CalendarView{}, err
	}

	if cached {
		if err := s.views.Set(ctx, key, view); err != nil {
			s.log.WarnContext(ctx, "calendar cache write failed", "key", key, "error", err)
		}
	}
	return view, nil
}

// assignedArtists loads the read-model rows for every artist the displayed
// assignments reference, in first-seen order. Calendar responses embed them so
// clients render names without a second round trip.
func (s *Service) assignedArtists(ctx context.Context, assignments []domain.Assignment) ([]domain.Artist, error) {
	ids := make([]uuid.UUID, 0, len(assignments))
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	for _, a := range assignments {
		if a.ArtistID == nil {
			continue
		}
		if _, ok := seen[*a.ArtistID]; ok {
			continue
		}
		seen[*a.ArtistID] = struct{}{}
		ids = append(ids, *a.ArtistID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.ListArtists(ctx, ids)
}

type CreateVenueInput struct {
	Name      string
	StartTime string
	EndTime   string
	Slots     []string
	SlotHours map[string]domain.SlotHours
}

func (s *Service) CreateVenue(ctx context.Context, in CreateVenueInput) (domain.Venue, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Venue{}, validationError("name", "name is required")
	}
	start := domain.Clock(in.StartTime)
	end := domain.ToStorageTime(domain.Clock(in.EndTime), true)
	if !domain.ClockRangeValid(start, end) {
		return domain.Venue{}, validationError("startTime", "end time must be after start time")
	}

	seen := make(map[string]struct{}, len(in.Slots))
	for _, slot := range in.Slots {
		if strings.TrimSpace(slot) == "" {
			return domain.Venue{}, validationError("slots", "slot names must not be blank")
		}
		if _, dup := seen[slot]; dup {
			return domain.Venue{}, validationError("slots", "duplicate slot name "+slot)
		}
		seen[slot] = struct{}{}
	}
	for slot, hours := range in.SlotHours {
		if _, ok := seen[slot]; !ok {
			return domain.Venue{}, validationError("slotHours", "hours given for unknown slot "+slot)
		}
		h := hours
		h.EndTime = domain.ToStorageTime(h.EndTime, true)
		if !domain.ClockRangeValid(h.StartTime, h.EndTime) {
			return domain.Venue{}, validationError("slotHours", "invalid hours for slot "+slot)
		}
		in.SlotHours[slot] = h
	}

	return s.repo.CreateVenue(ctx, domain.Venue{
		Name:      name,
		StartTime: start,
		EndTime:   end,
		Slots:     in.Slots,
		SlotHours: in.SlotHours,
	})
}

func (s *Service) GetVenue(ctx context.Context, venueID uuid.UUID) (domain.Venue, error) {
	return s.repo.GetVenue(ctx, venueID)
}

func (s *Service) ListVenues(ctx context.Context) ([]domain.Venue, error) {
	return s.repo.ListVenues(ctx, nil)
}

type UpsertArtistInput struct {
	ID       uuid.UUID
	Name     string
	Category string
	ImageURL string
}

func (s *Service) UpsertArtist(ctx context.Context, in UpsertArtistInput) (domain.Artist, error) {
	if in.ID == uuid.Nil {
		return domain.Artist{}, validationError("id", "id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Artist{}, validationError("name", "name is required")
	}
	return s.repo.UpsertArtist(ctx, domain.Artist{
		ID:       in.ID,
		Name:     name,
		Category: in.Category,
		ImageURL: in.ImageURL,
	})
}

func (s *Service) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	return s.repo.ListArtists(ctx, nil)
}

// resolveSlot maps the requested slot name onto the venue's slot set. A venue
// with named slots requires an explicit choice; a venue without them accepts
// only the implicit main slot.
func resolveSlot(venue domain.Venue, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if len(venue.Slots) == 0 {
		if requested != "" && requested != domain.MainSlot {
			return "", validationError("slot", "venue has no named slots")
		}
		return domain.MainSlot, nil
	}
	if requested == "" {
		return "", validationError("slot", "venue requires a slot choice")
	}
	for _, slot := range venue.Slots {
		if slot == requested {
			return requested, nil
		}
	}
	return "", validationError("slot", "unknown slot "+requested)
}

// resolveTimes fills missing times from the venue's hours for the slot and
// normalizes a 00:00 end to the 24:00 sentinel.
func resolveTimes(venue domain.Venue, slotName, startRaw, endRaw string) (domain.Clock, domain.Clock, error) {
	hours := venue.HoursFor(slotName)
	start := hours.StartTime
	end := hours.EndTime
	if startRaw != "" {
		start = domain.Clock(startRaw)
	}
	if endRaw != "" {
		end = domain.ToStorageTime(domain.Clock(endRaw), true)
	}
	if !domain.ClockRangeValid(start, end) {
		return "", "", validationError("startTime", "end time must be after start time")
	}
	return start, end, nil
}

func assignmentMoved(prev, next domain.Assignment) bool {
	prevArtist := uuid.Nil
	if prev.ArtistID != nil {
		prevArtist = *prev.ArtistID
	}
	nextArtist := uuid.Nil
	if next.ArtistID != nil {
		nextArtist = *next.ArtistID
	}
	return prev.Date != next.Date || prevArtist != nextArtist
}

// advisoryConflicts recomputes the artist's conflicts on the assignment's
// date after a write. Failures downgrade to a log line; advisories are
// informational and must never fail the write they accompany.
func (s *Service) advisoryConflicts(ctx context.Context, a domain.Assignment) []domain.Conflict {
	if a.ArtistID == nil {
		return nil
	}
	assignments, err := s.repo.ListAssignmentsForArtist(ctx, *a.ArtistID, a.Date)
	if err != nil {
		s.log.WarnContext(ctx, "conflict advisory lookup failed",
			"artist_id", *a.ArtistID, "date", a.Date, "error", err)
		return nil
	}
	if len(assignments) < 2 {
		return nil
	}

	venueIDs := make([]uuid.UUID, 0, len(assignments))
	seen := make(map[uuid.UUID]struct{}, len(assignments))
	for _, x := range assignments {
		if _, ok := seen[x.VenueID]; ok {
			continue
		}
		seen[x.VenueID] = struct{}{}
		venueIDs = append(venueIDs, x.VenueID)
	}
	venues, err := s.repo.ListVenues(ctx, venueIDs)
	if err != nil {
		s.log.WarnContext(ctx, "conflict advisory venue lookup failed", "error", err)
		venues = nil
	}
	names := make(map[uuid.UUID]string, len(venues))
	for _, v := range venues {
		names[v.ID] = v.Name
	}

	if c, ok := domain.DetectConflictForArtist(a.Date, *a.ArtistID, assignments, names); ok {
		return []domain.Conflict{c}
	}
	return nil
}

// bookAvailability flips one AVAILABLE slot on the assignment's date to
// BOOKED. Best effort: many artists are booked without ever publishing
// availability, so a missing slot is normal.
func (s *Service) bookAvailability(ctx context.Context, a domain.Assignment) {
	s.flipAvailability(ctx, a, domain.SlotStatusAvailable, domain.SlotStatusBooked)
}

func (s *Service) releaseAvailability(ctx context.Context, a domain.Assignment) {
	s.flipAvailability(ctx, a, domain.SlotStatusBooked, domain.SlotStatusAvailable)
}

func (s *Service) flipAvailability(ctx context.Context, a domain.Assignment, from, to domain.SlotStatus) {
	if s.slots == nil || a.ArtistID == nil {
		return
	}
	err := s.slots.SetSlotStatus(ctx, *a.ArtistID, a.Date, from, to)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.WarnContext(ctx, "availability status flip failed",
			"artist_id", *a.ArtistID, "date", a.Date,
			"from", from, "to", to, "error", err)
	}
}

func (s *Service) viewCacheKey(ctx context.Context, mode domain.ViewMode, window string, venues []domain.Venue, artistID *uuid.UUID) (string, bool) {
	if s.views == nil {
		return "", false
	}
	scopes := make([]string, 0, len(venues)+1)
	for _, v := range venues {
		scopes = append(scopes, cache.VenueScope(v.ID))
	}
	if artistID != nil {
		scopes = append(scopes, cache.ArtistScope(*artistID))
	}
	versions, err := s.views.Versions(ctx, scopes)
	if err != nil {
		s.log.WarnContext(ctx, "calendar cache version fetch failed", "error", err)
		return "", false
	}
	return cache.ViewKey(string(mode), window, scopes, versions), true
}

func windowLabel(mode domain.ViewMode, in BuildCalendarInput, anchor domain.Date) string {
	if mode == domain.ViewModeMonth {
		return fmt.Sprintf("%04d-%02d", in.Year, in.Month)
	}
	return anchor.String()
}

func (s *Service) invalidateVenue(ctx context.Context, venueID uuid.UUID) {
	if s.views == nil {
		return
	}
	if err := s.views.Invalidate(ctx, cache.VenueScope(venueID)); err != nil {
		s.log.WarnContext(ctx, "calendar cache invalidation failed",
			"scope", cache.VenueScope(venueID), "error", err)
	}
}

func (s *Service) invalidateArtist(ctx context.Context, artistID *uuid.UUID) {
	if s.views == nil || artistID == nil {
		return
	}
	if err := s.views.Invalidate(ctx, cache.ArtistScope(*artistID)); err != nil {
		s.log.WarnContext(ctx, "calendar cache invalidation failed",
			"scope", cache.ArtistScope(*artistID), "error", err)
	}
}
