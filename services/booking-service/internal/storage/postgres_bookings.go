package storage

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type pgBookings struct {
	q db.DBTX
}

const bookingColumns = `id::text, event_type_id::text, name, email, date, start_minute, end_minute, timezone, status, notes, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	var date time.Time
	var start, end int
	var status string
	if err := row.Scan(&b.ID, &b.EventTypeID, &b.Name, &b.Email, &date, &start, &end, &b.Timezone, &status,
		&b.Notes, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	b.Date = wallclock.DateOf(date, time.UTC)
	b.StartTime = wallclock.Clock(start)
	b.EndTime = wallclock.Clock(end)
	b.Status = model.BookingStatus(status)
	return b, nil
}

func (r *pgBookings) get(ctx context.Context, id string, lock bool) (model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(r.q.QueryRow(ctx, sql, id))
	if err != nil {
		return model.Booking{}, mapErr(err)
	}
	b.Answers, err = r.answers(ctx, b.ID)
	return b, err
}

func (r *pgBookings) Get(ctx context.Context, id string) (model.Booking, error) {
	return r.get(ctx, id, false)
}

func (r *pgBookings) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return r.get(ctx, id, true)
}

func (r *pgBookings) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}
	if f.EventTypeID != "" {
		where = append(where, "event_type_id = "+arg(f.EventTypeID))
	}
	if f.Email != "" {
		where = append(where, "lower(email) = lower("+arg(f.Email)+")")
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date ASC, start_minute ASC, created_at ASC`
	return r.list(ctx, sql, args...)
}

func (r *pgBookings) ListForDate(ctx context.Context, eventTypeID string, date wallclock.Date) ([]model.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE event_type_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_minute ASC
	`, eventTypeID, date.Midnight())
}

func (r *pgBookings) list(ctx context.Context, sql string, args ...any) ([]model.Booking, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i := range out {
		if out[i].Answers, err = r.answers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *pgBookings) Create(ctx context.Context, b *model.Booking) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO bookings (id, event_type_id, name, email, date, start_minute, end_minute, timezone, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.EventTypeID, b.Name, b.Email, b.Date.Midnight(), b.StartTime.Minutes(), b.EndTime.Minutes(),
		b.Timezone, string(b.Status), b.Notes).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	for i := range b.Answers {
		a := &b.Answers[i]
		a.BookingID = b.ID
		if _, err := r.q.Exec(ctx, `
			INSERT INTO booking_answers (id, booking_id, question_id, question, answer)
			VALUES ($1, $2, $3, $4, $5)
		`, a.ID, b.ID, a.QuestionID, a.Question, a.Answer); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgBookings) UpdateSchedule(ctx context.Context, b *model.Booking) error {
	err := r.q.QueryRow(ctx, `
		UPDATE bookings
		SET date = $2, start_minute = $3, end_minute = $4, timezone = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, b.Date.Midnight(), b.StartTime.Minutes(), b.EndTime.Minutes(), b.Timezone).Scan(&b.UpdatedAt)
	return mapErr(err)
}

func (r *pgBookings) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return mapErr(err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *pgBookings) answers(ctx context.Context, bookingID string) ([]model.BookingAnswer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, booking_id::text, COALESCE(question_id::text, ''), question, answer
		FROM booking_answers
		WHERE booking_id = $1
		ORDER BY seq
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BookingAnswer{}
	for rows.Next() {
		var a model.BookingAnswer
		if err := rows.Scan(&a.ID, &a.BookingID, &a.QuestionID, &a.Question, &a.Answer); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
