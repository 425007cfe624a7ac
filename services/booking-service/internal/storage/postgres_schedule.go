package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type pgAvailability struct {
	q db.DBTX
}

const availabilityColumns = `id::text, day_of_week, start_minute, end_minute, timezone, is_active, created_at`

func scanAvailability(row interface{ Scan(...any) error }) (model.WeeklyAvailability, error) {
	var wa model.WeeklyAvailability
	var start, end int
	err := row.Scan(&wa.ID, &wa.DayOfWeek, &start, &end, &wa.Timezone, &wa.IsActive, &wa.CreatedAt)
	wa.StartTime = wallclock.Clock(start)
	wa.EndTime = wallclock.Clock(end)
	return wa, err
}

func (r *pgAvailability) query(ctx context.Context, sql string, args ...any) ([]model.WeeklyAvailability, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyAvailability
	for rows.Next() {
		wa, err := scanAvailability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wa)
	}
	return out, rows.Err()
}

func (r *pgAvailability) List(ctx context.Context) ([]model.WeeklyAvailability, error) {
	return r.query(ctx, `
		SELECT `+availabilityColumns+`
		FROM weekly_availability
		ORDER BY day_of_week ASC, start_minute ASC, seq ASC
	`)
}

func (r *pgAvailability) Get(ctx context.Context, id string) (model.WeeklyAvailability, error) {
	wa, err := scanAvailability(r.q.QueryRow(ctx, `SELECT `+availabilityColumns+` FROM weekly_availability WHERE id = $1`, id))
	return wa, mapErr(err)
}

func (r *pgAvailability) ActiveWeekly(ctx context.Context, dayOfWeek int) ([]model.WeeklyAvailability, error) {
	return r.query(ctx, `
		SELECT `+availabilityColumns+`
		FROM weekly_availability
		WHERE day_of_week = $1 AND is_active
		ORDER BY seq ASC
	`, dayOfWeek)
}

func (r *pgAvailability) Create(ctx context.Context, wa *model.WeeklyAvailability) error {
	return r.q.QueryRow(ctx, `
		INSERT INTO weekly_availability (id, day_of_week, start_minute, end_minute, timezone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, wa.ID, wa.DayOfWeek, wa.StartTime.Minutes(), wa.EndTime.Minutes(), wa.Timezone, wa.IsActive).Scan(&wa.CreatedAt)
}

func (r *pgAvailability) Update(ctx context.Context, wa *model.WeeklyAvailability) error {
	err := r.q.QueryRow(ctx, `
		UPDATE weekly_availability
		SET day_of_week = $2, start_minute = $3, end_minute = $4, timezone = $5, is_active = $6
		WHERE id = $1
		RETURNING created_at
	`, wa.ID, wa.DayOfWeek, wa.StartTime.Minutes(), wa.EndTime.Minutes(), wa.Timezone, wa.IsActive).Scan(&wa.CreatedAt)
	return mapErr(err)
}

func (r *pgAvailability) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM weekly_availability WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *pgAvailability) DeleteAll(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `DELETE FROM weekly_availability`)
	return err
}

type pgOverrides struct {
	q db.DBTX
}

const overrideColumns = `id::text, date, is_blocked, start_minute, end_minute, created_at`

func scanOverride(row interface{ Scan(...any) error }) (model.DateOverride, error) {
	var o model.DateOverride
	var date time.Time
	var start, end *int
	if err := row.Scan(&o.ID, &date, &o.IsBlocked, &start, &end, &o.CreatedAt); err != nil {
		return model.DateOverride{}, err
	}
	o.Date = wallclock.DateOf(date, time.UTC)
	if start != nil {
		c := wallclock.Clock(*start)
		o.StartTime = &c
	}
	if end != nil {
		c := wallclock.Clock(*end)
		o.EndTime = &c
	}
	return o, nil
}

func clockArg(c *wallclock.Clock) *int {
	if c == nil {
		return nil
	}
	m := c.Minutes()
	return &m
}

func (r *pgOverrides) List(ctx context.Context) ([]model.DateOverride, error) {
	rows, err := r.q.Query(ctx, `SELECT `+overrideColumns+` FROM date_overrides ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DateOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *pgOverrides) Get(ctx context.Context, id string) (model.DateOverride, error) {
	o, err := scanOverride(r.q.QueryRow(ctx, `SELECT `+overrideColumns+` FROM date_overrides WHERE id = $1`, id))
	return o, mapErr(err)
}

func (r *pgOverrides) OverrideForDate(ctx context.Context, date wallclock.Date) (*model.DateOverride, error) {
	o, err := scanOverride(r.q.QueryRow(ctx, `SELECT `+overrideColumns+` FROM date_overrides WHERE date = $1`, date.Midnight()))
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgOverrides) Create(ctx context.Context, o *model.DateOverride) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO date_overrides (id, date, is_blocked, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, o.ID, o.Date.Midnight(), o.IsBlocked, clockArg(o.StartTime), clockArg(o.EndTime)).Scan(&o.CreatedAt)
	return overrideDateErr(err)
}

func (r *pgOverrides) Update(ctx context.Context, o *model.DateOverride) error {
	err := r.q.QueryRow(ctx, `
		UPDATE date_overrides
		SET date = $2, is_blocked = $3, start_minute = $4, end_minute = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at
	`, o.ID, o.Date.Midnight(), o.IsBlocked, clockArg(o.StartTime), clockArg(o.EndTime)).Scan(&o.CreatedAt)
	return overrideDateErr(mapErr(err))
}

func (r *pgOverrides) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM date_overrides WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(tag.RowsAffected())
}

func overrideDateErr(err error) error {
	if IsUniqueViolation(err) {
		return model.Invalid("date", "an override already exists for this date")
	}
	return err
}
