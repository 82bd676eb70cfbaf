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

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	var out domain.Assignment
	err := r.inVenueTransaction(ctx, a.VenueID, func(ctx context.Context, tx bun.Tx) error {
		m := a
		_, err := tx.NewInsert().Model(&m).Exec(ctx)
		if err != nil {
			return mapAssignmentWriteError(err)
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return out, nil
}

func (r *ScheduleRepo) UpdateAssignment(ctx context.Context, assignmentID uuid.UUID, upd store.AssignmentUpdate) (domain.Assignment, error) {
	current, err := r.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}

	var out domain.Assignment
	err = r.inVenueTransaction(ctx, current.VenueID, func(ctx context.Context, tx bun.Tx) error {
		var row domain.Assignment
		err := tx.NewSelect().
			Model(&row).
			Where("id = ?", assignmentID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}

		m := applyAssignmentUpdate(row, upd)
		res, err := tx.NewUpdate().
			Model(&m).
			Column("artist_id", "date", "start_time", "end_time", "slot",
				"status", "notes", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return mapAssignmentWriteError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return out, nil
}

func (r *ScheduleRepo) DeleteAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	current, err := r.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.Assignment{}, err
	}

	err = r.inVenueTransaction(ctx, current.VenueID, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*domain.Assignment)(nil)).
			Where("id = ?", assignmentID).
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
	if err != nil {
		return domain.Assignment{}, err
	}
	return current, nil
}

func (r *ScheduleRepo) GetAssignment(ctx context.Context, assignmentID uuid.UUID) (domain.Assignment, error) {
	var row domain.Assignment
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", assignmentID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Assignment{}, err
	}
	return row, nil
}

func (r *ScheduleRepo) ListAssignments(ctx context.Context, venueIDs []uuid.UUID, from, to domain.Date) ([]domain.Assignment, error) {
	var rows []domain.Assignment
	q := r.db.NewSelect().
		Model(&rows).
		Where("date >= ?", from).
		Where("date <= ?", to).
		OrderExpr("date ASC, start_time ASC")
	if len(venueIDs) > 0 {
		q = q.Where("venue_id IN (?)", bun.In(venueIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) ListAssignmentsForArtist(ctx context.Context, artistID uuid.UUID, date domain.Date) ([]domain.Assignment, error) {
	var rows []domain.Assignment
	err := r.db.NewSelect().
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

// inVenueTransaction serializes assignment writes per venue. The unique
// (venue, date, slot) index is the backstop; the lock keeps read-validate-write
// sequences coherent without exposure to serialization failures.
func (r *ScheduleRepo) inVenueTransaction(ctx context.Context, venueID uuid.UUID, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", venueID.String()).Exec(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

// applyAssignmentUpdate overlays the non-nil fields of upd onto a.
func applyAssignmentUpdate(a domain.Assignment, upd store.AssignmentUpdate) domain.Assignment {
	if upd.ArtistID != nil {
		a.ArtistID = upd.ArtistID
	}
	if upd.Date != nil {
		a.Date = *upd.Date
	}
	if upd.StartTime != nil {
		a.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		a.EndTime = *upd.EndTime
	}
	if upd.Slot != nil {
		if *upd.Slot == "" {
			a.Slot = nil
		} else {
			a.Slot = upd.Slot
		}
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.Notes != nil {
		a.Notes = *upd.Notes
	}
	return a
}

func mapAssignmentWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}

func (r *ScheduleRepo) CreateVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	m := v
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.Venue{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) GetVenue(ctx context.Context, venueID uuid.UUID) (domain.Venue, error) {
	var row domain.Venue
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", venueID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Venue{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Venue{}, err
	}
	return row, nil
}

func (r *ScheduleRepo) ListVenues(ctx context.Context, venueIDs []uuid.UUID) ([]domain.Venue, error) {
	var rows []domain.Venue
	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("name ASC")
	if len(venueIDs) > 0 {
		q = q.Where("id IN (?)", bun.In(venueIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) UpsertArtist(ctx context.Context, a domain.Artist) (domain.Artist, error) {
	m := a
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("category = EXCLUDED.category").
		Set("image_url = EXCLUDED.image_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Artist{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) ListArtists(ctx context.Context, artistIDs []uuid.UUID) ([]domain.Artist, error) {
	var rows []domain.Artist
	q := r.db.NewSelect().
		Model(&rows).
		OrderExpr("name ASC")
	if len(artistIDs) > 0 {
		q = q.Where("id IN (?)", bun.In(artistIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
