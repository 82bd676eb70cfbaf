package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"stagetime/backend/internal/domain"
	"stagetime/backend/internal/store"
)

type fakeRepo struct {
	createAssignment         func(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	updateAssignment         func(ctx context.Context, assignmentID uuid.UUID, upd store.AssignmentUpdate) (domain.Assignment, error)
	deleteAssignment         func(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	getAssignment            func(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error)
	listAssignments          func(ctx context.Context, venueIDs []uuid.UUID, from, to domain.Date) ([]domain.Assignment, error)
	listAssignmentsForArtist func(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.Assignment, error)
	createVenue              func(ctx context.Context, v domain.Venue) (domain.Venue, error)
	getVenue                 func(ctx context.Context, venueID uuid.UUID) (domain.Venue, error)
	listVenues               func(ctx context.Context, venueIDs []uuid.UUID) ([]domain.Venue, error)
	upsertArtist             func(ctx context.Context, a domain.Artist) (domain.Artist, error)
	listArtists              func(ctx context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error)
}

func (f *fakeRepo) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	if f.createAssignment == nil {
		panic("CreateAssignment not configured")
	}
	return f.createAssignment(ctx, a)
}

func (f *fakeRepo) UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, upd store.AssignmentUpdate) (domain.Assignment, error) {
	if f.updateAssignment == nil {
		panic("UpdateAssignment not configured")
	}
	return f.updateAssignment(ctx, assignmentID, upd)
}

func (f *fakeRepo) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	if f.deleteAssignment == nil {
		panic("DeleteAssignment not configured")
	}
	return f.deleteAssignment(ctx, assignmentID)
}

func (f *fakeRepo) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	if f.getAssignment == nil {
		panic("GetAssignment not configured")
	}
	return f.getAssignment(ctx, assignmentID)
}

func (f *fakeRepo) ListAssignments(ctx context.Context, venueIDs []uuid.UUID, from, to domain.Date) ([]domain.Assignment, error) {
	if f.listAssignments == nil {
		panic("ListAssignments not configured")
	}
	return f.listAssignments(ctx, venueIDs, from, to)
}

func (f *fakeRepo) ListAssignmentsForArtist(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.Assignment, error) {
	if f.listAssignmentsForArtist == nil {
		panic("ListAssignmentsForArtist not configured")
	}
	return f.listAssignmentsForArtist(ctx, artistID, date)
}

func (f *fakeRepo) CreateVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	if f.createVenue == nil {
		panic("CreateVenue not configured")
	}
	return f.createVenue(ctx, v)
}

func (f *fakeRepo) GetVenue(ctx context.Context, venueID uuid.UUID) (domain.Venue, error) {
	if f.getVenue == nil {
		panic("GetVenue not configured")
	}
	return f.getVenue(ctx, venueID)
}

func (f *fakeRepo) ListVenues(ctx context.Context, venueIDs []uuid.UUID) ([]domain.Venue, error) {
	if f.listVenues == nil {
		panic("ListVenues not configured")
	}
	return f.listVenues(ctx, venueIDs)
}

func (f *fakeRepo) UpsertArtist(ctx context.Context, a domain.Artist) (domain.Artist, error) {
	if f.upsertArtist == nil {
		panic("UpsertArtist not configured")
	}
	return f.upsertArtist(ctx, a)
}

func (f *fakeRepo) ListArtists(ctx context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error) {
	if f.listArtists == nil {
		panic("ListArtists not configured")
	}
	return f.listArtists(ctx, artistIDs)
}

type statusFlip struct {
	artistID uuid.UUID
	date     domain.Date
	from, to domain.SlotStatus
}

type fakeSlotWriter struct {
	flips []statusFlip
	err   error
}

func (f *fakeSlotWriter) SetSlotStatus(_ context.Context, artistID uuid.UUID, date domain.Date, from, to domain.SlotStatus) error {
	f.flips = append(f.flips, statusFlip{artistID, date, from, to})
	return f.err
}

type fakeViewCache struct {
	invalidated []string
	store       map[string][]byte
	getFn       func(key string, dest any) (bool, error)
	setKeys     []string
}

func (f *fakeViewCache) Invalidate(_ context.Context, scope string) error {
	f.invalidated = append(f.invalidated, scope)
	return nil
}

func (f *fakeViewCache) Versions(_ context.Context, scopes []string) ([]int64, error) {
	return make([]int64, len(scopes)), nil
}

func (f *fakeViewCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if f.getFn == nil {
		return false, nil
	}
	return f.getFn(key, dest)
}

func (f *fakeViewCache) Set(_ context.Context, key string, _ any) error {
	f.setKeys = append(f.setKeys, key)
	return nil
}

var (
	testVenueID  = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	testArtistID = uuid.MustParse("00000000-0000-0000-0000-000000000011")
)

func ldkVenue() domain.Venue {
	return domain.Venue{
		ID:        testVenueID,
		Name:      "LDK",
		StartTime: "18:00",
		EndTime:   "24:00",
		Slots:     []string{"Early", "Late"},
		SlotHours: map[string]domain.SlotHours{
			"Early": {StartTime: "18:00", EndTime: "21:00"},
			"Late":  {StartTime: "21:00", EndTime: "24:00"},
		},
	}
}

func fixedClock(s *Service) {
	s.now = func() time.Time {
		return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	}
}

func TestCreateAssignment_DefaultsTimesFromSlotHours(t *testing.T) {
	var got domain.Assignment
	slots := &fakeSlotWriter{}
	svc := NewService(&fakeRepo{
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return ldkVenue(), nil
		},
		createAssignment: func(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
			a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000201")
			got = a
			return a, nil
		},
		listAssignmentsForArtist: func(_ context.Context, _ uuid.UUID, _ domain.Date) ([]domain.Assignment, error) {
			return []domain.Assignment{got}, nil
		},
		listVenues: func(_ context.Context, _ []uuid.UUID) ([]domain.Venue, error) {
			return []domain.Venue{ldkVenue()}, nil
		},
	}, nil, slots, nil, nil)
	fixedClock(svc)

	artist := testArtistID
	res, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID:  testVenueID,
		ArtistID: &artist,
		Date:     "2025-03-08",
		Slot:     "Late",
	})
	if err != nil {
		t.Fatalf("CreateAssignment error: %v", err)
	}
	if got.StartTime != "21:00" || got.EndTime != "24:00" {
		t.Fatalf("times = %s-%s, want Late slot hours 21:00-24:00", got.StartTime, got.EndTime)
	}
	if got.Slot == nil || *got.Slot != "Late" {
		t.Fatalf("slot = %v, want Late", got.Slot)
	}
	if got.Status != domain.AssignmentStatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED default", got.Status)
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("single assignment must not conflict: %+v", res.Conflicts)
	}
	if len(slots.flips) != 1 || slots.flips[0].to != domain.SlotStatusBooked {
		t.Fatalf("flips = %+v, want one AVAILABLE->BOOKED", slots.flips)
	}
}

func TestCreateAssignment_SlotValidation(t *testing.T) {
	svc := NewService(&fakeRepo{
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return ldkVenue(), nil
		},
	}, nil, nil, nil, nil)
	fixedClock(svc)

	artist := testArtistID
	for _, slot := range []string{"", "Midnight"} {
		_, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
			VenueID:  testVenueID,
			ArtistID: &artist,
			Date:     "2025-03-08",
			Slot:     slot,
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "slot" {
			t.Fatalf("slot %q: error = %v, want slot validation error", slot, err)
		}
	}
}

func TestCreateAssignment_PastDateRejected(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, nil, nil, nil)
	fixedClock(svc)

	artist := testArtistID
	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID:  testVenueID,
		ArtistID: &artist,
		Date:     "2025-02-28",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "date" {
		t.Fatalf("error = %v, want date validation error", err)
	}
}

func TestCreateAssignment_SpecialEventWithoutArtist(t *testing.T) {
	venue := domain.Venue{ID: testVenueID, Name: "Mollys", StartTime: "19:00", EndTime: "23:00"}
	var got domain.Assignment
	svc := NewService(&fakeRepo{
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return venue, nil
		},
		createAssignment: func(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
			got = a
			return a, nil
		},
	}, nil, &fakeSlotWriter{}, nil, nil)
	fixedClock(svc)

	res, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID:      testVenueID,
		Date:         "2025-03-08",
		SpecialEvent: "Private party",
	})
	if err != nil {
		t.Fatalf("CreateAssignment error: %v", err)
	}
	if !got.IsSpecialEvent() {
		t.Fatalf("assignment should be a special event: %+v", got)
	}
	if got.Slot != nil {
		t.Fatalf("single-slot venue must store NULL slot")
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("special events never produce conflicts")
	}

	_, err = svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID: testVenueID,
		Date:    "2025-03-08",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "artistId" {
		t.Fatalf("error = %v, want artistId validation error", err)
	}
}

func TestCreateAssignment_DoubleBookingReturnsAdvisory(t *testing.T) {
	otherVenue := uuid.MustParse("00000000-0000-0000-0000-0000000000c2")
	artist := testArtistID
	existing := domain.Assignment{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000202"),
		VenueID:   otherVenue,
		ArtistID:  &artist,
		Date:      "2025-03-08",
		StartTime: "19:00",
		EndTime:   "23:00",
		Status:    domain.AssignmentStatusConfirmed,
	}

	var created domain.Assignment
	svc := NewService(&fakeRepo{
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return ldkVenue(), nil
		},
		createAssignment: func(_ context.Context, a domain.Assignment) (domain.Assignment, error) {
			a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000201")
			created = a
			return a, nil
		},
		listAssignmentsForArtist: func(_ context.Context, _ uuid.UUID, _ domain.Date) ([]domain.Assignment, error) {
			return []domain.Assignment{existing, created}, nil
		},
		listVenues: func(_ context.Context, _ []uuid.UUID) ([]domain.Venue, error) {
			return []domain.Venue{
				{ID: otherVenue, Name: "Mollys"},
				ldkVenue(),
			}, nil
		},
	}, nil, &fakeSlotWriter{}, nil, nil)
	fixedClock(svc)

	res, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID:  testVenueID,
		ArtistID: &artist,
		Date:     "2025-03-08",
		Slot:     "Late",
	})
	if err != nil {
		t.Fatalf("advisory conflicts must not block the write: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(res.Conflicts))
	}
	if got := res.Conflicts[0].Venues; len(got) != 2 {
		t.Fatalf("conflict venues = %v, want both venues", got)
	}
}

func TestCreateAssignment_UniqueKeyConflictPassesThrough(t *testing.T) {
	svc := NewService(&fakeRepo{
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return ldkVenue(), nil
		},
		createAssignment: func(_ context.Context, _ domain.Assignment) (domain.Assignment, error) {
			return domain.Assignment{}, store.ErrConflict
		},
	}, nil, nil, nil, nil)
	fixedClock(svc)

	artist := testArtistID
	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentInput{
		VenueID:  testVenueID,
		ArtistID: &artist,
		Date:     "2025-03-08",
		Slot:     "Early",
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateAssignment_RescheduleFlipsAvailability(t *testing.T) {
	artist := testArtistID
	early := "Early"
	prev := domain.Assignment{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000201"),
		VenueID:   testVenueID,
		ArtistID:  &artist,
		Date:      "2025-03-08",
		StartTime: "18:00",
		EndTime:   "21:00",
		Slot:      &early,
		Status:    domain.AssignmentStatusConfirmed,
	}

	slots := &fakeSlotWriter{}
	svc := NewService(&fakeRepo{
		getAssignment: func(_ context.Context, _ uuid.UUID) (domain.Assignment, error) {
			return prev, nil
		},
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return ldkVenue(), nil
		},
		updateAssignment: func(_ context.Context, _ uuid.UUID, upd store.AssignmentUpdate) (domain.Assignment, error) {
			next := prev
			next.Date = *upd.Date
			return next, nil
		},
		listAssignmentsForArtist: func(_ context.Context, _ uuid.UUID, _ domain.Date) ([]domain.Assignment, error) {
			return nil, nil
		},
	}, nil, slots, nil, nil)
	fixedClock(svc)

	newDate := "2025-03-15"
	res, err := svc.UpdateAssignment(context.Background(), prev.ID, UpdateAssignmentInput{Date: &newDate})
	if err != nil {
		t.Fatalf("UpdateAssignment error: %v", err)
	}
	if res.Assignment.Date != "2025-03-15" {
		t.Fatalf("date = %s, want 2025-03-15", res.Assignment.Date)
	}
	if len(slots.flips) != 2 {
		t.Fatalf("flips = %+v, want release then book", slots.flips)
	}
	if slots.flips[0].date != "2025-03-08" || slots.flips[0].to != domain.SlotStatusAvailable {
		t.Fatalf("first flip = %+v, want old date BOOKED->AVAILABLE", slots.flips[0])
	}
	if slots.flips[1].date != "2025-03-15" || slots.flips[1].to != domain.SlotStatusBooked {
		t.Fatalf("second flip = %+v, want new date AVAILABLE->BOOKED", slots.flips[1])
	}
}

func TestUpdateAssignment_TimeOnlyEditDoesNotFlip(t *testing.T) {
	artist := testArtistID
	prev := domain.Assignment{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000201"),
		VenueID:   testVenueID,
		ArtistID:  &artist,
		Date:      "2025-03-08",
		StartTime: "18:00",
		EndTime:   "21:00",
		Status:    domain.AssignmentStatusConfirmed,
	}

	slots := &fakeSlotWriter{}
	svc := NewService(&fakeRepo{
		getAssignment: func(_ context.Context, _ uuid.UUID) (domain.Assignment, error) {
			return prev, nil
		},
		getVenue: func(_ context.Context, _ uuid.UUID) (domain.Venue, error) {
			return domain.Venue{ID: testVenueID, Name: "Mollys", StartTime: "18:00", EndTime: "24:00"}, nil
		},
		updateAssignment: func(_ context.Context, _ uuid.UUID, upd store.AssignmentUpdate) (domain.Assignment, error) {
			next := prev
			next.StartTime = *upd.StartTime
			next.EndTime = *upd.EndTime
			return next, nil
		},
		listAssignmentsForArtist: func(_ context.Context, _ uuid.UUID, _ domain.Date) ([]domain.Assignment, error) {
			return nil, nil
		},
	}, nil, slots, nil, nil)
	fixedClock(svc)

	start := "19:00"
	end := "00:00"
	res, err := svc.UpdateAssignment(context.Background(), prev.ID, UpdateAssignmentInput{
		StartTime: &start,
		EndTime:   &end,
	})
	if err != nil {
		t.Fatalf("UpdateAssignment error: %v", err)
	}
	if res.Assignment.EndTime != domain.EndOfDay {
		t.Fatalf("end = %s, want midnight normalized to 24:00", res.Assignment.EndTime)
	}
	if len(slots.flips) != 0 {
		t.Fatalf("same-date edit must not flip availability: %+v", slots.flips)
	}
}

func TestDeleteAssignment_ReleasesAvailability(t *testing.T) {
	artist := testArtistID
	deleted := domain.Assignment{
		ID:       uuid.MustParse("00000000-0000-0000-0000-000000000201"),
		VenueID:  testVenueID,
		ArtistID: &artist,
		Date:     "2025-03-08",
	}

	slots := &fakeSlotWriter{err: store.ErrNotFound}
	views := &fakeViewCache{}
	svc := NewService(&fakeRepo{
		deleteAssignment: func(_ context.Context, _ uuid.UUID) (domain.Assignment, error) {
			return deleted, nil
		},
	}, nil, slots, views, nil)
	fixedClock(svc)

	out, err := svc.DeleteAssignment(context.Background(), deleted.ID)
	if err != nil {
		t.Fatalf("a missing availability slot must not fail the delete: %v", err)
	}
	if out.ID != deleted.ID {
		t.Fatalf("deleted = %+v", out)
	}
	if len(slots.flips) != 1 || slots.flips[0].from != domain.SlotStatusBooked {
		t.Fatalf("flips = %+v, want BOOKED->AVAILABLE", slots.flips)
	}
	if len(views.invalidated) != 2 {
		t.Fatalf("invalidated = %v, want venue and artist scopes", views.invalidated)
	}
}

type fakeAvailability struct {
	slots []domain.AvailabilitySlot
}

func (f *fakeAvailability) GetCalendar(_ context.Context, _ uuid.UUID, _, _ string) ([]domain.AvailabilitySlot, error) {
	return f.slots, nil
}

func TestBuildCalendar_OverlaysArtistAvailability(t *testing.T) {
	avail := &fakeAvailability{
		slots: []domain.AvailabilitySlot{
			{ArtistID: testArtistID, Date: "2025-03-05", StartTime: "18:00", EndTime: "23:00", Status: domain.SlotStatusAvailable},
		},
	}
	svc := NewService(&fakeRepo{
		listVenues: func(_ context.Context, _ []uuid.UUID) ([]domain.Venue, error) {
			return []domain.Venue{{ID: testVenueID, Name: "Mollys", StartTime: "19:00", EndTime: "23:00"}}, nil
		},
		listAssignments: func(_ context.Context, _ []uuid.UUID, from, to domain.Date) ([]domain.Assignment, error) {
			if from != "2025-03-01" || to != "2025-03-31" {
				t.Fatalf("window = %s..%s, want full March", from, to)
			}
			return nil, nil
		},
	}, avail, nil, nil, nil)
	fixedClock(svc)

	artist := testArtistID
	view, err := svc.BuildCalendar(context.Background(), BuildCalendarInput{
		ViewMode: "month",
		Year:     2025,
		Month:    time.March,
		ArtistID: &artist,
	})
	if err != nil {
		t.Fatalf("BuildCalendar error: %v", err)
	}
	if len(view.Rows) != 31 {
		t.Fatalf("rows = %d, want 31", len(view.Rows))
	}
	if len(view.Rows[4].Available) != 1 {
		t.Fatalf("March 5 availability overlay missing")
	}
}

func TestBuildCalendar_CacheHitSkipsBuild(t *testing.T) {
	views := &fakeViewCache{
		getFn: func(_ string, dest any) (bool, error) {
			view := dest.(*domain.CalendarView)
			view.Conflicts = []domain.Conflict{{Date: "2025-03-08", ArtistID: testArtistID}}
			return true, nil
		},
	}
	svc := NewService(&fakeRepo{
		listVenues: func(_ context.Context, _ []uuid.UUID) ([]domain.Venue, error) {
			return []domain.Venue{{ID: testVenueID, Name: "Mollys", StartTime: "19:00", EndTime: "23:00"}}, nil
		},
		listAssignments: func(_ context.Context, _ []uuid.UUID, _, _ domain.Date) ([]domain.Assignment, error) {
			t.Fatalf("cache hit must not touch the store")
			return nil, nil
		},
	}, nil, nil, views, nil)
	fixedClock(svc)

	view, err := svc.BuildCalendar(context.Background(), BuildCalendarInput{
		ViewMode: "month",
		Year:     2025,
		Month:    time.March,
	})
	if err != nil {
		t.Fatalf("BuildCalendar error: %v", err)
	}
	if len(view.Conflicts) != 1 {
		t.Fatalf("cached view not returned")
	}
	if len(views.setKeys) != 0 {
		t.Fatalf("cache hit must not rewrite the entry")
	}
}

func TestBuildCalendar_VenueFilterKeepsCrossVenueConflicts(t *testing.T) {
	venueA := testVenueID
	venueB := uuid.MustParse("00000000-0000-0000-0000-0000000000c2")
	artist := testArtistID
	mollys := domain.Venue{ID: venueA, Name: "Mollys", StartTime: "19:00", EndTime: "24:00"}
	ldk := domain.Venue{ID: venueB, Name: "LDK", StartTime: "18:00", EndTime: "24:00"}
	atMollys := domain.Assignment{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000201"),
		VenueID:   venueA,
		ArtistID:  &artist,
		Date:      "2025-03-08",
		StartTime: "20:00",
		EndTime:   "24:00",
		Status:    domain.AssignmentStatusConfirmed,
	}
	atLDK := domain.Assignment{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000202"),
		VenueID:   venueB,
		ArtistID:  &artist,
		Date:      "2025-03-08",
		StartTime: "22:00",
		EndTime:   "24:00",
		Status:    domain.AssignmentStatusConfirmed,
	}

	svc := NewService(&fakeRepo{
		listVenues: func(_ context.Context, venueIDs []uuid.UUID) ([]domain.Venue, error) {
			if len(venueIDs) == 1 && venueIDs[0] == venueA {
				return []domain.Venue{mollys}, nil
			}
			return []domain.Venue{mollys, ldk}, nil
		},
		listAssignments: func(_ context.Context, venueIDs []uuid.UUID, _, _ domain.Date) ([]domain.Assignment, error) {
			if len(venueIDs) == 1 && venueIDs[0] == venueA {
				return []domain.Assignment{atMollys}, nil
			}
			return []domain.Assignment{atMollys, atLDK}, nil
		},
		listArtists: func(_ context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error) {
			return []domain.Artist{{ID: artist, Name: "DJ Nomi"}}, nil
		},
	}, nil, nil, nil, nil)
	fixedClock(svc)

	view, err := svc.BuildCalendar(context.Background(), BuildCalendarInput{
		ViewMode: "month",
		Year:     2025,
		Month:    time.March,
		VenueIDs: []uuid.UUID{venueA},
	})
	if err != nil {
		t.Fatalf("BuildCalendar error: %v", err)
	}
	if len(view.Columns) != 1 || view.Columns[0].VenueID != venueA {
		t.Fatalf("columns = %+v, want the filtered venue only", view.Columns)
	}
	if len(view.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want the cross-venue double booking", view.Conflicts)
	}
	if got := view.Conflicts[0].Venues; len(got) != 2 {
		t.Fatalf("conflict venues = %v, want both venue names", got)
	}
	row := view.Rows[7]
	if row.Date != "2025-03-08" || !row.Conflicted {
		t.Fatalf("row = %+v, want March 8 flagged", row)
	}
	if !row.Cells[0].Conflicted {
		t.Fatalf("filtered venue's cell must carry the conflict flag")
	}
}

func TestBuildCalendar_EmbedsAssignedArtists(t *testing.T) {
	artist := testArtistID
	assignments := []domain.Assignment{
		{
			ID:        uuid.MustParse("00000000-0000-0000-0000-000000000201"),
			VenueID:   testVenueID,
			ArtistID:  &artist,
			Date:      "2025-03-08",
			StartTime: "19:00",
			EndTime:   "23:00",
			Status:    domain.AssignmentStatusConfirmed,
		},
		{
			ID:           uuid.MustParse("00000000-0000-0000-0000-000000000202"),
			VenueID:      testVenueID,
			Date:         "2025-03-09",
			StartTime:    "19:00",
			EndTime:      "23:00",
			Status:       domain.AssignmentStatusConfirmed,
			SpecialEvent: "Private party",
		},
	}

	var requested []uuid.UUID
	svc := NewService(&fakeRepo{
		listVenues: func(_ context.Context, _ []uuid.UUID) ([]domain.Venue, error) {
			return []domain.Venue{{ID: testVenueID, Name: "Mollys", StartTime: "19:00", EndTime: "23:00"}}, nil
		},
		listAssignments: func(_ context.Context, _ []uuid.UUID, _, _ domain.Date) ([]domain.Assignment, error) {
			return assignments, nil
		},
		listArtists: func(_ context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error) {
			requested = artistIDs
			return []domain.Artist{{ID: artist, Name: "DJ Nomi", Category: "techno"}}, nil
		},
	}, nil, nil, nil, nil)
	fixedClock(svc)

	view, err := svc.BuildCalendar(context.Background(), BuildCalendarInput{
		ViewMode: "month",
		Year:     2025,
		Month:    time.March,
	})
	if err != nil {
		t.Fatalf("BuildCalendar error: %v", err)
	}
	if len(requested) != 1 || requested[0] != artist {
		t.Fatalf("requested artist IDs = %v, special events must not be looked up", requested)
	}
	if len(view.Artists) != 1 || view.Artists[0].Name != "DJ Nomi" {
		t.Fatalf("artists = %+v, want the assigned artist's read model", view.Artists)
	}
}

func TestBuildCalendar_WeekModeNeedsAnchor(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil, nil, nil, nil)
	fixedClock(svc)

	_, err := svc.BuildCalendar(context.Background(), BuildCalendarInput{ViewMode: "week"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "anchor" {
		t.Fatalf("error = %v, want anchor validation error", err)
	}

	_, err = svc.BuildCalendar(context.Background(), BuildCalendarInput{ViewMode: "fortnight"})
	if !errors.As(err, &vErr) || vErr.Field != "view" {
		t.Fatalf("error = %v, want view validation error", err)
	}
}

func TestCreateVenue_Validation(t *testing.T) {
	svc := NewService(&fakeRepo{
		createVenue: func(_ context.Context, v domain.Venue) (domain.Venue, error) {
			return v, nil
		},
	}, nil, nil, nil, nil)
	fixedClock(svc)

	_, err := svc.CreateVenue(context.Background(), CreateVenueInput{
		Name:      "LDK",
		StartTime: "18:00",
		EndTime:   "00:00",
		Slots:     []string{"Early", "Early"},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "slots" {
		t.Fatalf("error = %v, want slots validation error", err)
	}

	_, err = svc.CreateVenue(context.Background(), CreateVenueInput{
		Name:      "LDK",
		StartTime: "18:00",
		EndTime:   "00:00",
		Slots:     []string{"Early"},
		SlotHours: map[string]domain.SlotHours{
			"Late": {StartTime: "21:00", EndTime: "24:00"},
		},
	})
	if !errors.As(err, &vErr) || vErr.Field != "slotHours" {
		t.Fatalf("error = %v, want slotHours validation error", err)
	}

	v, err := svc.CreateVenue(context.Background(), CreateVenueInput{
		Name:      "LDK",
		StartTime: "18:00",
		EndTime:   "00:00",
	})
	if err != nil {
		t.Fatalf("CreateVenue error: %v", err)
	}
	if v.EndTime != domain.EndOfDay {
		t.Fatalf("end = %s, want 24:00", v.EndTime)
	}
}
