package model

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/wallclock"
)

type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionNumber   QuestionType = "number"
)

func (q QuestionType) Valid() bool {
	switch q {
	case QuestionText, QuestionTextarea, QuestionNumber:
		return true
	}
	return false
}

const DefaultColor = "#3b82f6"

type EventType struct {
	ID              string           `json:"id"`
	Slug            string           `json:"slug"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DurationMinutes int              `json:"durationMinutes"`
	BufferMinutes   int              `json:"bufferMinutes"`
	Color           string           `json:"color"`
	IsActive        bool             `json:"isActive"`
	Questions       []CustomQuestion `json:"questions"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type CustomQuestion struct {
	ID          string       `json:"id"`
	EventTypeID string       `json:"eventTypeId"`
	Question    string       `json:"question"`
	Type        QuestionType `json:"type"`
	Required    bool         `json:"required"`
	Options     []string     `json:"options,omitempty"`
	Position    int          `json:"position"`
}

type WeeklyAvailability struct {
	ID        string          `json:"id"`
	DayOfWeek int             `json:"dayOfWeek"`
	StartTime wallclock.Clock `json:"startTime"`
	EndTime   wallclock.Clock `json:"endTime"`
	Timezone  string          `json:"timezone"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
}

type DateOverride struct {
	ID        string           `json:"id"`
	Date      wallclock.Date   `json:"date"`
	IsBlocked bool             `json:"isBlocked"`
	StartTime *wallclock.Clock `json:"startTime,omitempty"`
	EndTime   *wallclock.Clock `json:"endTime,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// HasWindow reports whether the override carries both bounds.
func (o DateOverride) HasWindow() bool {
	return o.StartTime != nil && o.EndTime != nil
}

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

type Booking struct {
	ID          string          `json:"id"`
	EventTypeID string          `json:"eventTypeId"`
	EventType   *EventType      `json:"eventType,omitempty"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Date        wallclock.Date  `json:"date"`
	StartTime   wallclock.Clock `json:"startTime"`
	EndTime     wallclock.Clock `json:"endTime"`
	Timezone    string          `json:"timezone"`
	Status      BookingStatus   `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	Answers     []BookingAnswer `json:"answers"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type BookingAnswer struct {
	ID         string `json:"id"`
	BookingID  string `json:"bookingId"`
	QuestionID string `json:"questionId"`
	Question   string `json:"question,omitempty"`
	Answer     string `json:"answer"`
}

// Slot is one bookable interval produced for a date.
type Slot struct {
	Time      wallclock.Clock `json:"time"`
	EndTime   wallclock.Clock `json:"endTime"`
	Available bool            `json:"available"`
}
