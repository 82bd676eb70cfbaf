package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"stagetime/backend/internal/domain"
	"stagetime/backend/internal/store"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

type availabilityTx struct {
	tx bun.Tx
}

func (r *AvailabilityRepo) GetSlots(ctx context.Context, artistID uuid.UUID, from, to domain.Date) ([]domain.AvailabilitySlot, error) {
	var rows []domain.AvailabilitySlot
	err := r.db.NewSelect().
		Model(&rows).
		Where("artist_id = ?", artistID).
		Where("date >= ?", from).
		Where("date <= ?", to).
		OrderExpr("date ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) GetSlot(ctx context.Context, slotID uuid.UUID) (domain.AvailabilitySlot, error) {
	var row domain.AvailabilitySlot
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", slotID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	return row, nil
}

func (r *AvailabilityRepo) UpsertSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	var out domain.AvailabilitySlot
	err := r.InArtistTransaction(ctx, slot.ArtistID, func(ctx context.Context, tx store.AvailabilityTx) error {
		s, err := upsertSlotTx(ctx, tx, slot)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	return out, nil
}

func (r *AvailabilityRepo) BulkUpsert(ctx context.Context, artistID uuid.UUID, slots []domain.AvailabilitySlot) (store.BulkResult, error) {
	order, byDate := groupSlotsByDate(slots)

	var res store.BulkResult
	for _, date := range order {
		group := byDate[date]
		var updated []domain.AvailabilitySlot
		err := r.InArtistTransaction(ctx, artistID, func(ctx context.Context, tx store.AvailabilityTx) error {
			for _, s := range group {
				s.ArtistID = artistID
				out, err := upsertSlotTx(ctx, tx, s)
				if err != nil {
					return err
				}
				updated = append(updated, out)
			}
			return nil
		})
		if err != nil {
			reason, recoverable := bulkFailureReason(err)
			if !recoverable {
				return store.BulkResult{}, err
			}
			res.Failed = append(res.Failed, store.BulkFailure{Date: date, Reason: reason})
			continue
		}
		res.Updated = append(res.Updated, updated...)
	}
	return res, nil
}

func (r *AvailabilityRepo) MoveSlot(ctx context.Context, slotID uuid.UUID, newDate domain.Date) (domain.AvailabilitySlot, error) {
	slot, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}

	var out domain.AvailabilitySlot
	err = r.InArtistTransaction(ctx, slot.ArtistID, func(ctx context.Context, tx store.AvailabilityTx) error {
		existing, err := tx.ListSlotsOnDate(ctx, slot.ArtistID, newDate)
		if err != nil {
			return err
		}
		moved := slot
		moved.Date = newDate
		if err := ensureNoSlotOverlap(existing, moved, slot.ID); err != nil {
			return err
		}
		updated, err := tx.UpdateSlot(ctx, moved)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	return out, nil
}

func (r *AvailabilityRepo) SetSlotStatus(ctx context.Context, artistID uuid.UUID, date domain.Date, from, to domain.SlotStatus) error {
	return r.InArtistTransaction(ctx, artistID, func(ctx context.Context, tx store.AvailabilityTx) error {
		t := tx.(availabilityTx)
		res, err := t.tx.NewUpdate().
			Model((*domain.AvailabilitySlot)(nil)).
			Set("status = ?", to).
			Set("updated_at = now()").
			Where("artist_id = ?", artistID).
			Where("date = ?", date).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

// InArtistTransaction runs fn inside a transaction holding an advisory lock on
// the artist's calendar. All writers for one artist serialize here, which is
// what lets overlap validation read-then-write safely.
func (r *AvailabilityRepo) InArtistTransaction(ctx context.Context, artistID uuid.UUID, fn func(ctx context.Context, tx store.AvailabilityTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockArtistCalendar(ctx, tx, artistID); err != nil {
			return err
		}
		return fn(ctx, availabilityTx{tx: tx})
	})
}

func lockArtistCalendar(ctx context.Context, tx bun.Tx, artistID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", artistID.String()).Exec(ctx)
	return err
}

func (r availabilityTx) ListSlotsOnDate(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.AvailabilitySlot, error) {
	var rows []domain.AvailabilitySlot
	err := r.tx.NewSelect().
		Model(&rows).
		Where("artist_id = ?", artistID).
		Where("date = ?", date).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r availabilityTx) InsertSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	m := slot
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.AvailabilitySlot{}, store.ErrConflict
		}
		return domain.AvailabilitySlot{}, err
	}
	return m, nil
}

func (r availabilityTx) UpdateSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	m := slot
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("date", "start_time", "end_time", "status", "price_multiplier",
			"buffer_before", "buffer_after", "notes", "requirements",
			"recurring_pattern_id", "updated_at").
		WherePK().
		Where("artist_id = ?", slot.ArtistID).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.AvailabilitySlot{}, store.ErrConflict
		}
		return domain.AvailabilitySlot{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}
	if affected == 0 {
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}
	return m, nil
}

// upsertSlotTx writes one slot inside a locked artist transaction. A slot with
// a known ID, or one matching an existing start time on the same date, updates
// that row in place; anything else inserts. The wall-clock range must not
// intersect any other slot on the date.
func upsertSlotTx(ctx context.Context, tx store.AvailabilityTx, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	existing, err := tx.ListSlotsOnDate(ctx, slot.ArtistID, slot.Date)
	if err != nil {
		return domain.AvailabilitySlot{}, err
	}

	target := upsertTarget(existing, slot)
	excludeID := uuid.Nil
	if target != nil {
		excludeID = target.ID
	}
	if err := ensureNoSlotOverlap(existing, slot, excludeID); err != nil {
		return domain.AvailabilitySlot{}, err
	}

	if target != nil {
		slot.ID = target.ID
		slot.CreatedAt = target.CreatedAt
		return tx.UpdateSlot(ctx, slot)
	}
	if slot.ID != uuid.Nil {
		// Caller supplied an ID that is not on this date; treat as not found
		// rather than silently inserting a second row.
		return domain.AvailabilitySlot{}, store.ErrNotFound
	}
	return tx.InsertSlot(ctx, slot)
}

// upsertTarget picks the existing row an upsert replaces, if any.
func upsertTarget(existing []domain.AvailabilitySlot, slot domain.AvailabilitySlot) *domain.AvailabilitySlot {
	for i := range existing {
		if slot.ID != uuid.Nil {
			if existing[i].ID == slot.ID {
				return &existing[i]
			}
			continue
		}
		if existing[i].StartTime == slot.StartTime {
			return &existing[i]
		}
	}
	return nil
}

// ensureNoSlotOverlap rejects a slot whose range intersects another slot on
// the same date. excludeID skips the row the write is replacing.
func ensureNoSlotOverlap(existing []domain.AvailabilitySlot, slot domain.AvailabilitySlot, excludeID uuid.UUID) error {
	for i := range existing {
		e := existing[i]
		if excludeID != uuid.Nil && e.ID == excludeID {
			continue
		}
		if domain.RangesOverlap(e.StartTime, e.EndTime, slot.StartTime, slot.EndTime) {
			return store.ErrOverlap
		}
	}
	return nil
}

func groupSlotsByDate(slots []domain.AvailabilitySlot) ([]domain.Date, map[domain.Date][]domain.AvailabilitySlot) {
	order := make([]domain.Date, 0, len(slots))
	byDate := make(map[domain.Date][]domain.AvailabilitySlot, len(slots))
	for _, s := range slots {
		if _, ok := byDate[s.Date]; !ok {
			order = append(order, s.Date)
		}
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	return order, byDate
}

func bulkFailureReason(err error) (reason string, recoverable bool) {
	switch {
	case errors.Is(err, store.ErrOverlap):
		return "overlapping time range", true
	case errors.Is(err, store.ErrConflict):
		return "concurrent write conflict", true
	case errors.Is(err, store.ErrNotFound):
		return "slot not found", true
	default:
		return "", false
	}
}

func (r *AvailabilityRepo) CreatePattern(ctx context.Context, p domain.RecurringPattern) (domain.RecurringPattern, error) {
	m := p
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.RecurringPattern{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) ListPatterns(ctx context.Context, artistID uuid.UUID) ([]domain.RecurringPattern, error) {
	var rows []domain.RecurringPattern
	err := r.db.NewSelect().
		Model(&rows).
		Where("artist_id = ?", artistID).
		Where("is_active").
		OrderExpr("day_of_week ASC, start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) GetPattern(ctx context.Context, patternID uuid.UUID) (domain.RecurringPattern, error) {
	var row domain.RecurringPattern
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", patternID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RecurringPattern{}, store.ErrNotFound
	}
	if err != nil {
		return domain.RecurringPattern{}, err
	}
	return row, nil
}

func (r *AvailabilityRepo) DeactivatePattern(ctx context.Context, artistID, patternID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.RecurringPattern)(nil)).
		Set("is_active = false").
		Set("updated_at = now()").
		Where("id = ?", patternID).
		Where("artist_id = ?", artistID).
		Where("is_active").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AvailabilityRepo) CreateTemplate(ctx context.Context, t domain.TimeSlotTemplate) (domain.TimeSlotTemplate, error) {
	m := t
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.TimeSlotTemplate{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) ListTemplates(ctx context.Context, artistID uuid.UUID) ([]domain.TimeSlotTemplate, error) {
	var rows []domain.TimeSlotTemplate
	err := r.db.NewSelect().
		Model(&rows).
		Where("artist_id = ?", artistID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) GetTemplate(ctx context.Context, templateID uuid.UUID) (domain.TimeSlotTemplate, error) {
	var row domain.TimeSlotTemplate
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", templateID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TimeSlotTemplate{}, store.ErrNotFound
	}
	if err != nil {
		return domain.TimeSlotTemplate{}, err
	}
	return row, nil
}

func (r *AvailabilityRepo) DeleteTemplate(ctx context.Context, artistID, templateID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.TimeSlotTemplate)(nil)).
		Where("id = ?", templateID).
		Where("artist_id = ?", artistID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
