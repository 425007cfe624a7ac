package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultFixture []byte

type fixture struct {
	EventTypes []struct {
		Slug            string `yaml:"slug"`
		Title           string `yaml:"title"`
		Description     string `yaml:"description"`
		DurationMinutes int    `yaml:"durationMinutes"`
		BufferMinutes   int    `yaml:"bufferMinutes"`
		Color           string `yaml:"color"`
		Questions       []struct {
			Question string   `yaml:"question"`
			Type     string   `yaml:"type"`
			Required bool     `yaml:"required"`
			Options  []string `yaml:"options"`
		} `yaml:"questions"`
	} `yaml:"eventTypes"`
	Availability []struct {
		DayOfWeek int    `yaml:"dayOfWeek"`
		StartTime string `yaml:"startTime"`
		EndTime   string `yaml:"endTime"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"availability"`
}

func parseFixture(raw []byte) (fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

type result struct {
	Created int
	Skipped int
	Windows int
}

// apply creates missing event types by slug and, when the fixture lists any,
// replaces the weekly schedule. Running it twice leaves the catalog unchanged.
func apply(ctx context.Context, svc *catalog.Service, f fixture, logger *slog.Logger) (result, error) {
	var res result
	for _, et := range f.EventTypes {
		if _, err := svc.EventType(ctx, et.Slug); err == nil {
			res.Skipped++
			continue
		} else if !storage.IsNotFound(err) {
			return res, err
		}

		questions := make([]catalog.QuestionInput, 0, len(et.Questions))
		for _, q := range et.Questions {
			questions = append(questions, catalog.QuestionInput{
				Question: q.Question,
				Type:     model.QuestionType(q.Type),
				Required: q.Required,
				Options:  q.Options,
			})
		}
		in := catalog.EventTypeInput{
			Slug:            &et.Slug,
			Title:           &et.Title,
			Description:     &et.Description,
			DurationMinutes: &et.DurationMinutes,
			BufferMinutes:   &et.BufferMinutes,
			Questions:       &questions,
		}
		if et.Color != "" {
			in.Color = &et.Color
		}
		created, err := svc.CreateEventType(ctx, in)
		if err != nil {
			return res, fmt.Errorf("event type %q: %w", et.Slug, err)
		}
		logger.Info("event type seeded", "slug", created.Slug, "id", created.ID)
		res.Created++
	}

	if len(f.Availability) == 0 {
		return res, nil
	}
	inputs := make([]catalog.AvailabilityInput, len(f.Availability))
	for i := range f.Availability {
		a := &f.Availability[i]
		inputs[i] = catalog.AvailabilityInput{
			DayOfWeek: &a.DayOfWeek,
			StartTime: &a.StartTime,
			EndTime:   &a.EndTime,
			Timezone:  &a.Timezone,
		}
	}
	windows, err := svc.ReplaceAvailability(ctx, inputs)
	if err != nil {
		return res, fmt.Errorf("availability: %w", err)
	}
	res.Windows = len(windows)
	return res, nil
}
