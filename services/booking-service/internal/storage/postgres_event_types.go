package storage

import (
	"context"

	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type pgEventTypes struct {
	q db.DBTX
}

const eventTypeColumns = `id::text, slug, title, description, duration_minutes, buffer_minutes, color, is_active, created_at, updated_at`

func scanEventType(row interface{ Scan(...any) error }) (model.EventType, error) {
	var et model.EventType
	err := row.Scan(&et.ID, &et.Slug, &et.Title, &et.Description, &et.DurationMinutes, &et.BufferMinutes,
		&et.Color, &et.IsActive, &et.CreatedAt, &et.UpdatedAt)
	return et, err
}

func (r *pgEventTypes) List(ctx context.Context, includeInactive bool) ([]model.EventType, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+eventTypeColumns+`
		FROM event_types
		WHERE is_active OR $1
		ORDER BY created_at ASC, id ASC
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventType
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i := range out {
		qs, err := r.questions(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Questions = qs
	}
	return out, nil
}

func (r *pgEventTypes) Get(ctx context.Context, id string) (model.EventType, error) {
	et, err := scanEventType(r.q.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id))
	if err != nil {
		return model.EventType{}, mapErr(err)
	}
	et.Questions, err = r.questions(ctx, et.ID)
	return et, err
}

func (r *pgEventTypes) GetBySlug(ctx context.Context, slug string) (model.EventType, error) {
	et, err := scanEventType(r.q.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE slug = $1`, slug))
	if err != nil {
		return model.EventType{}, mapErr(err)
	}
	et.Questions, err = r.questions(ctx, et.ID)
	return et, err
}

func (r *pgEventTypes) Create(ctx context.Context, et *model.EventType) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO event_types (id, slug, title, description, duration_minutes, buffer_minutes, color, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, et.ID, et.Slug, et.Title, et.Description, et.DurationMinutes, et.BufferMinutes, et.Color, et.IsActive).
		Scan(&et.CreatedAt, &et.UpdatedAt)
	if err != nil {
		return slugErr(err)
	}
	return r.insertQuestions(ctx, et)
}

func (r *pgEventTypes) Update(ctx context.Context, et *model.EventType, replaceQuestions bool) error {
	err := r.q.QueryRow(ctx, `
		UPDATE event_types
		SET slug = $2, title = $3, description = $4, duration_minutes = $5, buffer_minutes = $6,
			color = $7, is_active = $8, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, et.ID, et.Slug, et.Title, et.Description, et.DurationMinutes, et.BufferMinutes, et.Color, et.IsActive).
		Scan(&et.CreatedAt, &et.UpdatedAt)
	if err != nil {
		return slugErr(mapErr(err))
	}
	if !replaceQuestions {
		et.Questions, err = r.questions(ctx, et.ID)
		return err
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM custom_questions WHERE event_type_id = $1`, et.ID); err != nil {
		return err
	}
	return r.insertQuestions(ctx, et)
}

func (r *pgEventTypes) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE event_types SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(tag.RowsAffected())
}

func (r *pgEventTypes) insertQuestions(ctx context.Context, et *model.EventType) error {
	for i := range et.Questions {
		q := &et.Questions[i]
		q.EventTypeID = et.ID
		q.Position = i
		options := q.Options
		if options == nil {
			options = []string{}
		}
		if _, err := r.q.Exec(ctx, `
			INSERT INTO custom_questions (id, event_type_id, question, type, required, options, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, q.ID, et.ID, q.Question, string(q.Type), q.Required, options, q.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgEventTypes) questions(ctx context.Context, eventTypeID string) ([]model.CustomQuestion, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, event_type_id::text, question, type, required, options, position
		FROM custom_questions
		WHERE event_type_id = $1
		ORDER BY position ASC
	`, eventTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CustomQuestion{}
	for rows.Next() {
		var q model.CustomQuestion
		var typ string
		if err := rows.Scan(&q.ID, &q.EventTypeID, &q.Question, &typ, &q.Required, &q.Options, &q.Position); err != nil {
			return nil, err
		}
		q.Type = model.QuestionType(typ)
		out = append(out, q)
	}
	return out, rows.Err()
}

func slugErr(err error) error {
	if IsUniqueViolation(err) {
		return model.Invalid("slug", "slug already exists")
	}
	return err
}
