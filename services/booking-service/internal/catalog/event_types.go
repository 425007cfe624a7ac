// Package catalog manages what can be booked: event types, the weekly
// availability template and per-date overrides.
package catalog

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type Service struct {
	store  storage.Store
	logger *slog.Logger
}

func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

type QuestionInput struct {
	Question string             `json:"question"`
	Type     model.QuestionType `json:"type"`
	Required bool               `json:"required"`
	Options  []string           `json:"options"`
}

// EventTypeInput is used for create and partial update. Nil fields are left
// unchanged on update; a non-nil Questions replaces every question.
type EventTypeInput struct {
	Slug            *string          `json:"slug"`
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	DurationMinutes *int             `json:"durationMinutes"`
	BufferMinutes   *int             `json:"bufferMinutes"`
	Color           *string          `json:"color"`
	IsActive        *bool            `json:"isActive"`
	Questions       *[]QuestionInput `json:"questions"`
}

func (s *Service) ListEventTypes(ctx context.Context, includeInactive bool) ([]model.EventType, error) {
	out, err := s.store.Repos().EventTypes.List(ctx, includeInactive)
	if out == nil && err == nil {
		out = []model.EventType{}
	}
	return out, err
}

// EventType resolves ref as a slug, falling back to an id.
func (s *Service) EventType(ctx context.Context, ref string) (model.EventType, error) {
	repos := s.store.Repos()
	et, err := repos.EventTypes.GetBySlug(ctx, ref)
	if storage.IsNotFound(err) {
		if _, perr := uuid.Parse(ref); perr == nil {
			return repos.EventTypes.Get(ctx, ref)
		}
	}
	return et, err
}

func (s *Service) CreateEventType(ctx context.Context, in EventTypeInput) (model.EventType, error) {
	et := model.EventType{
		ID:       uuid.NewString(),
		Color:    model.DefaultColor,
		IsActive: true,
	}
	if in.Slug == nil || in.Title == nil || in.DurationMinutes == nil {
		return model.EventType{}, model.Invalid("", "title, slug and durationMinutes are required")
	}
	if err := applyEventType(&et, in); err != nil {
		return model.EventType{}, err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.EventTypes.Create(ctx, &et)
	})
	if err != nil {
		return model.EventType{}, err
	}
	s.logger.Info("event type created", "event_type_id", et.ID, "slug", et.Slug)
	return et, nil
}

func (s *Service) UpdateEventType(ctx context.Context, id string, in EventTypeInput) (model.EventType, error) {
	var et model.EventType
	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		var err error
		if et, err = repos.EventTypes.Get(ctx, id); err != nil {
			return err
		}
		if err := applyEventType(&et, in); err != nil {
			return err
		}
		return repos.EventTypes.Update(ctx, &et, in.Questions != nil)
	})
	if err != nil {
		return model.EventType{}, err
	}
	s.logger.Info("event type updated", "event_type_id", et.ID)
	return et, nil
}

// DeleteEventType deactivates the event type. Its bookings are kept.
func (s *Service) DeleteEventType(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.EventTypes.SetActive(ctx, id, false)
	})
	if err == nil {
		s.logger.Info("event type deactivated", "event_type_id", id)
	}
	return err
}

func applyEventType(et *model.EventType, in EventTypeInput) error {
	if in.Slug != nil {
		slug := strings.ToLower(strings.TrimSpace(*in.Slug))
		if !slugPattern.MatchString(slug) {
			return model.Invalid("slug", "must be lowercase letters, digits and dashes")
		}
		et.Slug = slug
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return model.Invalid("title", "is required")
		}
		et.Title = title
	}
	if in.Description != nil {
		et.Description = strings.TrimSpace(*in.Description)
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 || *in.DurationMinutes > 24*60 {
			return model.Invalid("durationMinutes", "must be between 1 and 1440")
		}
		et.DurationMinutes = *in.DurationMinutes
	}
	if in.BufferMinutes != nil {
		if *in.BufferMinutes < 0 {
			return model.Invalid("bufferMinutes", "must not be negative")
		}
		et.BufferMinutes = *in.BufferMinutes
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		switch {
		case color == "":
			color = model.DefaultColor
		case !colorPattern.MatchString(color):
			return model.Invalid("color", "must be a #rrggbb hex color")
		}
		et.Color = color
	}
	if in.IsActive != nil {
		et.IsActive = *in.IsActive
	}
	if in.Questions != nil {
		questions := make([]model.CustomQuestion, 0, len(*in.Questions))
		for i, q := range *in.Questions {
			text := strings.TrimSpace(q.Question)
			if text == "" {
				return model.Invalid("questions", "question %d has no text", i+1)
			}
			typ := q.Type
			if typ == "" {
				typ = model.QuestionText
			}
			if !typ.Valid() {
				return model.Invalid("questions", "question %d has unknown type %q", i+1, q.Type)
			}
			questions = append(questions, model.CustomQuestion{
				ID:          uuid.NewString(),
				EventTypeID: et.ID,
				Question:    text,
				Type:        typ,
				Required:    q.Required,
				Options:     q.Options,
				Position:    i,
			})
		}
		et.Questions = questions
	}
	return nil
}
