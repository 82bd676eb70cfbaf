package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

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

// CacheInvalidator bumps the version stamp of one calendar scope. Invalidation
// failures are logged, never surfaced: a stale cached view ages out via TTL.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, scope string) error
}

type Service struct {
	repo  store.AvailabilityRepository
	cache CacheInvalidator
	log   *slog.Logger
}

func NewService(repo store.AvailabilityRepository, inv CacheInvalidator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: inv, log: log}
}

// SlotInput is the caller-facing shape of one availability slot. End times of
// 00:00 mean local midnight and are stored as the 24:00 sentinel.
type SlotInput struct {
	SlotID             uuid.UUID
	StartTime          string
	EndTime            string
	Status             string
	PriceMultiplier    float64
	BufferBefore       int
	BufferAfter        int
	Notes              string
	Requirements       string
	RecurringPatternID *uuid.UUID
}

type UpsertSlotInput struct {
	ArtistID uuid.UUID
	Date     string
	Slot     SlotInput
}

func (s *Service) UpsertSlot(ctx context.Context, in UpsertSlotInput) (domain.AvailabilitySlot, error) {
	if in.ArtistID == uuid.Nil {
		return domain.AvailabilitySlot{}, validationError("artistId", "artist_id is required")
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.AvailabilitySlot{}, validationError("date", err.Error())
	}
	slot, err := normalizeSlot(in.ArtistID, date, in.Slot)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}

	out, err := s.repo.UpsertSlot(ctx, slot)
	if errors.Is(err, store.ErrOverlap) {
		return domain.AvailabilitySlot{}, validationError("startTime", "time range overlaps an existing slot")
	}
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	s.invalidate(ctx, in.ArtistID)
	return out, nil
}

// BulkUpsert applies one slot body to many dates. Each date succeeds or fails
// on its own; a malformed or overlapping date never aborts the rest.
func (s *Service) BulkUpsert(ctx context.Context, artistID uuid.UUID, dates []string, in SlotInput) (store.BulkResult, error) {
	if artistID == uuid.Nil {
		return store.BulkResult{}, validationError("artistId", "artist_id is required")
	}
	if len(dates) == 0 {
		return store.BulkResult{}, validationError("dates", "at least one date is required")
	}

	var res store.BulkResult
	slots := make([]domain.AvailabilitySlot, 0, len(dates))
	for _, raw := range dates {
		date, err := domain.ParseDate(raw)
		if err != nil {
			res.Failed = append(res.Failed, store.BulkFailure{Date: domain.Date(raw), Reason: "invalid date"})
			continue
		}
		slot, err := normalizeSlot(artistID, date, in)
		if err != nil {
			res.Failed = append(res.Failed, store.BulkFailure{Date: date, Reason: err.Error()})
			continue
		}
		slots = append(slots, slot)
	}

	stored, err := s.repo.BulkUpsert(ctx, artistID, slots)
	if err != nil {
		return store.BulkResult{}, err
	}
	res.Updated = stored.Updated
	res.Failed = append(res.Failed, stored.Failed...)
	if len(res.Updated) > 0 {
		s.invalidate(ctx, artistID)
	}
	return res, nil
}

// MoveSlot relocates one concrete slot to another date, keeping its times and
// attributes. On any failure the slot stays on its original date.
func (s *Service) MoveSlot(ctx context.Context, artistID, slotID uuid.UUID, newDate string) (domain.AvailabilitySlot, error) {
	if artistID == uuid.Nil {
		return domain.AvailabilitySlot{}, validationError("artistId", "artist_id is required")
	}
	date, err := domain.ParseDate(newDate)
	if err != nil {
		return domain.AvailabilitySlot{}, validationError("newDate", err.Error())
	}

	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	if slot.ArtistID != artistID {
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}

	out, err := s.repo.MoveSlot(ctx, slotID, date)
	if errors.Is(err, store.ErrOverlap) {
		return domain.AvailabilitySlot{}, validationError("newDate", "time range overlaps an existing slot on the target date")
	}
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	s.invalidate(ctx, artistID)
	return out, nil
}

// GetCalendar returns the artist's merged availability for a date range:
// concrete rows plus virtual pattern expansions, concrete winning per date.
func (s *Service) GetCalendar(ctx context.Context, artistID uuid.UUID, fromRaw, toRaw string) ([]domain.AvailabilitySlot, error) {
	if artistID == uuid.Nil {
		return nil, validationError("artistId", "artist_id is required")
	}
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

	concrete, err := s.repo.GetSlots(ctx, artistID, from, to)
	if err != nil {
		return nil, err
	}
	patterns, err := s.repo.ListPatterns(ctx, artistID)
	if err != nil {
		return nil, err
	}

	var virtual []domain.AvailabilitySlot
	for _, p := range patterns {
		expanded, err := domain.ExpandPattern(p, from, to)
		if err != nil {
			return nil, fmt.Errorf("expand pattern %s: %w", p.ID, err)
		}
		virtual = append(virtual, expanded...)
	}

	return domain.MergeSlots(concrete, virtual), nil
}

type CreatePatternInput struct {
	ArtistID        uuid.UUID
	Frequency       string
	DayOfWeek       int
	StartTime       string
	EndTime         string
	PriceMultiplier float64
	ValidFrom       string
	ValidUntil      string
}

func (s *Service) CreatePattern(ctx context.Context, in CreatePatternInput) (domain.RecurringPattern, error) {
	if in.ArtistID == uuid.Nil {
		return domain.RecurringPattern{}, validationError("artistId", "artist_id is required")
	}
	freq := domain.PatternFrequency(in.Frequency)
	if freq == "" {
		freq = domain.PatternFrequencyWeekly
	}
	if freq != domain.PatternFrequencyWeekly {
		return domain.RecurringPattern{}, validationError("frequency", "only weekly patterns are supported")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return domain.RecurringPattern{}, validationError("dayOfWeek", "day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	start := domain.Clock(in.StartTime)
	end := domain.ToStorageTime(domain.Clock(in.EndTime), true)
	if !domain.ClockRangeValid(start, end) {
		return domain.RecurringPattern{}, validationError("startTime", "end time must be after start time")
	}
	multiplier := in.PriceMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	if multiplier < 0 {
		return domain.RecurringPattern{}, validationError("priceMultiplier", "price_multiplier must not be negative")
	}

	p := domain.RecurringPattern{
		ArtistID:        in.ArtistID,
		Frequency:       freq,
		DayOfWeek:       in.DayOfWeek,
		StartTime:       start,
		EndTime:         end,
		PriceMultiplier: multiplier,
		IsActive:        true,
	}
	if in.ValidFrom != "" {
		d, err := domain.ParseDate(in.ValidFrom)
		if err != nil {
			return domain.RecurringPattern{}, validationError("validFrom", err.Error())
		}
		p.ValidFrom = &d
	}
	if in.ValidUntil != "" {
		d, err := domain.ParseDate(in.ValidUntil)
		if err != nil {
			return domain.RecurringPattern{}, validationError("validUntil", err.Error())
		}
		if p.ValidFrom != nil && d.Before(*p.ValidFrom) {
			return domain.RecurringPattern{}, validationError("validUntil", "valid_until must not precede valid_from")
		}
		p.ValidUntil = &d
	}

	out, err := s.repo.CreatePattern(ctx, p)
	if err != nil {
		return domain.RecurringPattern{}, err
	}
	s.invalidate(ctx, in.ArtistID)
	return out, nil
}

func (s *Service) ListPatterns(ctx context.Context, artistID uuid.UUID) ([]domain.RecurringPattern, error) {
	if artistID == uuid.Nil {
		return nil, validationError("artistId", "artist_id is required")
	}
	return s.repo.ListPatterns(ctx, artistID)
}

// DeactivatePattern retires a pattern. Future virtual instances disappear;
// already materialized rows keep their back-reference and stay untouched.
func (s *Service) DeactivatePattern(ctx context.Context, artistID, patternID uuid.UUID) error {
	if artistID == uuid.Nil {
		return validationError("artistId", "artist_id is required")
	}
	if err := s.repo.DeactivatePattern(ctx, artistID, patternID); err != nil {
		return err
	}
	s.invalidate(ctx, artistID)
	return nil
}

// Materialize persists the concrete row for one virtual pattern instance so
// that a single date can diverge from its pattern.
func (s *Service) Materialize(ctx context.Context, artistID, patternID uuid.UUID, dateRaw string) (domain.AvailabilitySlot, error) {
	if artistID == uuid.Nil {
		return domain.AvailabilitySlot{}, validationError("artistId", "artist_id is required")
	}
	date, err := domain.ParseDate(dateRaw)
	if err != nil {
		return domain.AvailabilitySlot{}, validationError("date", err.Error())
	}

	p, err := s.repo.GetPattern(ctx, patternID)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	if p.ArtistID != artistID {
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}

	instances, err := domain.ExpandPattern(p, date, date)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	if len(instances) == 0 {
		return domain.AvailabilitySlot{}, validationError("date", "pattern does not generate an instance on this date")
	}

	slot := instances[0]
	slot.Virtual = false
	out, err := s.repo.UpsertSlot(ctx, slot)
	if errors.Is(err, store.ErrOverlap) {
		return domain.AvailabilitySlot{}, validationError("date", "a conflicting slot already exists on this date")
	}
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	s.invalidate(ctx, artistID)
	return out, nil
}

type CreateTemplateInput struct {
	ArtistID        uuid.UUID
	Name            string
	DurationMinutes int
	StartTime       string
	PriceMultiplier float64
	BufferBefore    int
	BufferAfter     int
	IsDefault       bool
}

func (s *Service) CreateTemplate(ctx context.Context, in CreateTemplateInput) (domain.TimeSlotTemplate, error) {
	if in.ArtistID == uuid.Nil {
		return domain.TimeSlotTemplate{}, validationError("artistId", "artist_id is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.TimeSlotTemplate{}, validationError("name", "name is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.TimeSlotTemplate{}, validationError("durationMinutes", "duration_minutes must be positive")
	}
	start := domain.Clock(in.StartTime)
	if _, err := start.Minutes(); err != nil || start == domain.EndOfDay {
		return domain.TimeSlotTemplate{}, validationError("startTime", "invalid start time")
	}
	multiplier := in.PriceMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	if multiplier < 0 {
		return domain.TimeSlotTemplate{}, validationError("priceMultiplier", "price_multiplier must not be negative")
	}
	if in.BufferBefore < 0 || in.BufferAfter < 0 {
		return domain.TimeSlotTemplate{}, validationError("bufferBefore", "buffers must not be negative")
	}

	return s.repo.CreateTemplate(ctx, domain.TimeSlotTemplate{
		ArtistID:        in.ArtistID,
		Name:            name,
		DurationMinutes: in.DurationMinutes,
		StartTime:       start,
		PriceMultiplier: multiplier,
		BufferBefore:    in.BufferBefore,
		BufferAfter:     in.BufferAfter,
		IsDefault:       in.IsDefault,
	})
}

func (s *Service) ListTemplates(ctx context.Context, artistID uuid.UUID) ([]domain.TimeSlotTemplate, error) {
	if artistID == uuid.Nil {
		return nil, validationError("artistId", "artist_id is required")
	}
	return s.repo.ListTemplates(ctx, artistID)
}

func (s *Service) DeleteTemplate(ctx context.Context, artistID, templateID uuid.UUID) error {
	if artistID == uuid.Nil {
		return validationError("artistId", "artist_id is required")
	}
	return s.repo.DeleteTemplate(ctx, artistID, templateID)
}

// ApplyTemplate stamps a template's slot onto each of the given dates. Dates
// whose calendar already holds an overlapping slot are reported, not fatal.
func (s *Service) ApplyTemplate(ctx context.Context, artistID, templateID uuid.UUID, dates []string) (store.BulkResult, error) {
	if artistID == uuid.Nil {
		return store.BulkResult{}, validationError("artistId", "artist_id is required")
	}
	if len(dates) == 0 {
		return store.BulkResult{}, validationError("dates", "at least one date is required")
	}

	t, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return store.BulkResult{}, err
	}
	if t.ArtistID != artistID {
		return store.BulkResult{}, store.ErrNotFound
	}

	var res store.BulkResult
	slots := make([]domain.AvailabilitySlot, 0, len(dates))
	for _, raw := range dates {
		date, err := domain.ParseDate(raw)
		if err != nil {
			res.Failed = append(res.Failed, store.BulkFailure{Date: domain.Date(raw), Reason: "invalid date"})
			continue
		}
		slot, err := t.Slot(artistID, date)
		if err != nil {
			res.Failed = append(res.Failed, store.BulkFailure{Date: date, Reason: err.Error()})
			continue
		}
		slots = append(slots, slot)
	}

	stored, err := s.repo.BulkUpsert(ctx, artistID, slots)
	if err != nil {
		return store.BulkResult{}, err
	}
	res.Updated = stored.Updated
	res.Failed = append(res.Failed, stored.Failed...)
	if len(res.Updated) > 0 {
		s.invalidate(ctx, artistID)
	}
	return res, nil
}

func normalizeSlot(artistID uuid.UUID, date domain.Date, in SlotInput) (domain.AvailabilitySlot, error) {
	start := domain.Clock(in.StartTime)
	end := domain.ToStorageTime(domain.Clock(in.EndTime), true)
	if !domain.ClockRangeValid(start, end) {
		return domain.AvailabilitySlot{}, validationError("startTime", "end time must be after start time")
	}

	status := domain.SlotStatus(in.Status)
	if status == "" {
		status = domain.SlotStatusAvailable
	}
	if !status.Valid() {
		return domain.AvailabilitySlot{}, validationError("status", "unknown slot status")
	}

	multiplier := in.PriceMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}
	if multiplier < 0 {
		return domain.AvailabilitySlot{}, validationError("priceMultiplier", "price_multiplier must not be negative")
	}
	if in.BufferBefore < 0 || in.BufferAfter < 0 {
		return domain.AvailabilitySlot{}, validationError("bufferBefore", "buffers must not be negative")
	}

	return domain.AvailabilitySlot{
		ID:                 in.SlotID,
		ArtistID:           artistID,
		Date:               date,
		StartTime:          start,
		EndTime:            end,
		Status:             status,
		PriceMultiplier:    multiplier,
		BufferBefore:       in.BufferBefore,
		BufferAfter:        in.BufferAfter,
		Notes:              in.Notes,
		Requirements:       in.Requirements,
		RecurringPatternID: in.RecurringPatternID,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, artistID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cache.ArtistScope(artistID)); err != nil {
		s.log.WarnContext(ctx, "calendar cache invalidation failed",
			"scope", cache.ArtistScope(artistID), "error", err)
	}
}
