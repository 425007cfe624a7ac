package availability

import (
	"context"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

// Window is a contiguous open interval on one date, [Start, End).
type Window struct {
	Start wallclock.Clock `json:"startTime"`
	End   wallclock.Clock `json:"endTime"`
}

// BlankOverridePolicy decides what a non-blocked override without times means.
type BlankOverridePolicy string

const (
	// BlankOverrideFallback ignores the override and uses the weekly template.
	BlankOverrideFallback BlankOverridePolicy = "fallback"
	// BlankOverrideClosed treats the date as having no windows.
	BlankOverrideClosed BlankOverridePolicy = "closed"
)

func ParseBlankOverridePolicy(raw string) (BlankOverridePolicy, error) {
	switch p := BlankOverridePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return BlankOverrideFallback, nil
	case BlankOverrideFallback, BlankOverrideClosed:
		return p, nil
	default:
		return "", fmt.Errorf("unknown blank override policy %q", raw)
	}
}

// Source is the read side of schedule storage used by the resolver.
type Source interface {
	OverrideForDate(ctx context.Context, date wallclock.Date) (*model.DateOverride, error)
	ActiveWeekly(ctx context.Context, dayOfWeek int) ([]model.WeeklyAvailability, error)
}

type Resolver struct {
	policy BlankOverridePolicy
}

func NewResolver(policy BlankOverridePolicy) *Resolver {
	if policy == "" {
		policy = BlankOverrideFallback
	}
	return &Resolver{policy: policy}
}


// Windows returns the open windows for date in schedule order. Overrides
// replace the weekly template for their date; they never merge with it.
func (r *Resolver) Windows(ctx context.Context, src Source, date wallclock.Date) ([]Window, error) {
	override, err := src.OverrideForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if override != nil {
		if override.IsBlocked {
			return nil, nil
		}
		if override.HasWindow() {
			return validWindows(Window{Start: *override.StartTime, End: *override.EndTime}), nil
		}
		if r.policy == BlankOverrideClosed {
			return nil, nil
		}
	}

	weekly, err := src.ActiveWeekly(ctx, date.Weekday())
	if err != nil {
		return nil, err
	}
	windows := make([]Window, 0, len(weekly))
	for _, w := range weekly {
		if !w.IsActive {
			continue
		}
		windows = append(windows, Window{Start: w.StartTime, End: w.EndTime})
	}
	return validWindows(windows...), nil
}

func validWindows(in ...Window) []Window {
	var out []Window
	for _, w := range in {
		if w.Start < w.End {
			out = append(out, w)
		}
	}
	return out
}

// Contains reports whether [start, end) fits entirely inside one window.
func Contains(windows []Window, start, end wallclock.Clock) bool {
	for _, w := range windows {
		if start >= w.Start && end <= w.End {
			return true
		}
	}
	return false
}
