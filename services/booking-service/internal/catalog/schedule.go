package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// AvailabilityInput describes one weekly window. Nil fields keep their value
// on update.
type AvailabilityInput struct {
	DayOfWeek *int    `json:"dayOfWeek"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Timezone  *string `json:"timezone"`
	IsActive  *bool   `json:"isActive"`
}

func (s *Service) ListAvailability(ctx context.Context, includeInactive bool) ([]model.WeeklyAvailability, error) {
	all, err := s.store.Repos().Availability.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.WeeklyAvailability, 0, len(all))
	for _, wa := range all {
		if wa.IsActive || includeInactive {
			out = append(out, wa)
		}
	}
	return out, nil
}

func (s *Service) CreateAvailability(ctx context.Context, in AvailabilityInput) (model.WeeklyAvailability, error) {
	wa, err := newAvailability(in)
	if err != nil {
		return model.WeeklyAvailability{}, err
	}
	err = s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.Availability.Create(ctx, &wa)
	})
	return wa, err
}

func (s *Service) UpdateAvailability(ctx context.Context, id string, in AvailabilityInput) (model.WeeklyAvailability, error) {
	var wa model.WeeklyAvailability
	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		var err error
		if wa, err = repos.Availability.Get(ctx, id); err != nil {
			return err
		}
		if err := applyAvailability(&wa, in); err != nil {
			return err
		}
		return repos.Availability.Update(ctx, &wa)
	})
	if err != nil {
		return model.WeeklyAvailability{}, err
	}
	return wa, nil
}

func (s *Service) DeleteAvailability(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.Availability.Delete(ctx, id)
	})
}

// ReplaceAvailability swaps the whole weekly template in one transaction.
// Nothing changes when any entry is invalid.
func (s *Service) ReplaceAvailability(ctx context.Context, in []AvailabilityInput) ([]model.WeeklyAvailability, error) {
	rows := make([]model.WeeklyAvailability, 0, len(in))
	for i, item := range in {
		wa, err := newAvailability(item)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				ve.Message = fmt.Sprintf("entry %d: %s", i+1, ve.Message)
			}
			return nil, err
		}
		rows = append(rows, wa)
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if err := repos.Availability.DeleteAll(ctx); err != nil {
			return err
		}
		for i := range rows {
			if err := repos.Availability.Create(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("weekly availability replaced", "count", len(rows))
	return rows, nil
}

func newAvailability(in AvailabilityInput) (model.WeeklyAvailability, error) {
	if in.DayOfWeek == nil || in.StartTime == nil || in.EndTime == nil {
		return model.WeeklyAvailability{}, model.Invalid("", "dayOfWeek, startTime and endTime are required")
	}
	wa := model.WeeklyAvailability{ID: uuid.NewString(), Timezone: "UTC", IsActive: true}
	return wa, applyAvailability(&wa, in)
}

func applyAvailability(wa *model.WeeklyAvailability, in AvailabilityInput) error {
	if in.DayOfWeek != nil {
		if *in.DayOfWeek < 0 || *in.DayOfWeek > 6 {
			return model.Invalid("dayOfWeek", "must be 0 (Sunday) through 6 (Saturday)")
		}
		wa.DayOfWeek = *in.DayOfWeek
	}
	if in.StartTime != nil {
		c, err := wallclock.ParseClock(*in.StartTime)
		if err != nil {
			return model.Invalid("startTime", "%v", err)
		}
		wa.StartTime = c
	}
	if in.EndTime != nil {
		c, err := wallclock.ParseClock(*in.EndTime)
		if err != nil {
			return model.Invalid("endTime", "%v", err)
		}
		wa.EndTime = c
	}
	if wa.StartTime >= wa.EndTime {
		return model.Invalid("endTime", "must be after startTime")
	}
	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if tz == "" {
			tz = "UTC"
		}
		if _, err := wallclock.LoadZone(tz); err != nil {
			return model.Invalid("timezone", "%v", err)
		}
		wa.Timezone = tz
	}
	if in.IsActive != nil {
		wa.IsActive = *in.IsActive
	}
	return nil
}

// OverrideInput replaces or closes the schedule of one date. StartTime and
// EndTime must be given together; they are ignored when IsBlocked is set.
type OverrideInput struct {
	Date      *string `json:"date"`
	IsBlocked *bool   `json:"isBlocked"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}

func (s *Service) ListOverrides(ctx context.Context) ([]model.DateOverride, error) {
	out, err := s.store.Repos().Overrides.List(ctx)
	if out == nil && err == nil {
		out = []model.DateOverride{}
	}
	return out, err
}

func (s *Service) CreateOverride(ctx context.Context, in OverrideInput) (model.DateOverride, error) {
	if in.Date == nil {
		return model.DateOverride{}, model.Invalid("date", "is required")
	}
	o := model.DateOverride{ID: uuid.NewString()}
	if err := applyOverride(&o, in); err != nil {
		return model.DateOverride{}, err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.Overrides.Create(ctx, &o)
	})
	if err != nil {
		return model.DateOverride{}, err
	}
	s.logger.Info("date override created", "override_id", o.ID, "date", o.Date.String(), "blocked", o.IsBlocked)
	return o, nil
}

func (s *Service) UpdateOverride(ctx context.Context, id string, in OverrideInput) (model.DateOverride, error) {
	var o model.DateOverride
	err := s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		var err error
		if o, err = repos.Overrides.Get(ctx, id); err != nil {
			return err
		}
		if err := applyOverride(&o, in); err != nil {
			return err
		}
		return repos.Overrides.Update(ctx, &o)
	})
	if err != nil {
		return model.DateOverride{}, err
	}
	return o, nil
}

func (s *Service) DeleteOverride(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		return repos.Overrides.Delete(ctx, id)
	})
}

func applyOverride(o *model.DateOverride, in OverrideInput) error {
	if in.Date != nil {
		d, err := wallclock.ParseDate(*in.Date)
		if err != nil {
			return model.Invalid("date", "%v", err)
		}
		o.Date = d
	}
	if in.IsBlocked != nil {
		o.IsBlocked = *in.IsBlocked
	}

	start, err := optionalClock("startTime", in.StartTime)
	if err != nil {
		return err
	}
	end, err := optionalClock("endTime", in.EndTime)
	if err != nil {
		return err
	}
	if in.StartTime != nil || in.EndTime != nil {
		if (start == nil) != (end == nil) {
			return model.Invalid("endTime", "startTime and endTime must be given together")
		}
		o.StartTime, o.EndTime = start, end
	}
	if o.IsBlocked {
		o.StartTime, o.EndTime = nil, nil
	}
	if o.HasWindow() && *o.StartTime >= *o.EndTime {
		return model.Invalid("endTime", "must be after startTime")
	}
	return nil
}

// optionalClock treats a missing or blank value as no time.
func optionalClock(field string, raw *string) (*wallclock.Clock, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	c, err := wallclock.ParseClock(*raw)
	if err != nil {
		return nil, model.Invalid(field, "%v", err)
	}
	return &c, nil
}
