package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high=0, medium=1, low=2.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 1
}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryShopping Category = "shopping"
	CategoryOther    Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth, CategoryShopping, CategoryOther:
		return true
	}
	return false
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// Tasks with a date but no time are due at the end of that day.
	endOfDayTime = "23:59"
)

// Task is a single to-do item. Date is a calendar day in local time with the
// zero value meaning "no date"; Time is an optional "HH:MM" wall-clock string
// and is only meaningful together with Date.
type Task struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Time        string
	Priority    Priority
	Category    Category
	Completed   bool
	CreatedAt   time.Time
	EventID     string
}

var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrTimeWithoutDate = errors.New("time requires a date")
)

// New builds a task from user input, assigning the identifier and creation
// timestamp. It does not validate; callers run Validate before persisting.
func New(title, description string, date time.Time, clock string, prio Priority, cat Category, now time.Time) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Date:        Day(date),
		Time:        strings.TrimSpace(clock),
		Priority:    prio,
		Category:    cat,
		CreatedAt:   now,
	}
}

// Duplicate copies every field except identifier, creation timestamp and
// completion state, which reset.
func (t Task) Duplicate(now time.Time) Task {
	d := t
	d.ID = uuid.NewString()
	d.CreatedAt = now
	d.Completed = false
	d.EventID = ""
	return d
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Time != "" {
		if t.Date.IsZero() {
			return ErrTimeWithoutDate
		}
		if _, err := time.ParseInLocation(TimeLayout, t.Time, time.Local); err != nil {
			return fmt.Errorf("invalid time %q: %w", t.Time, err)
		}
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("invalid category %q", t.Category)
	}
	return nil
}

func (t Task) HasDate() bool {
	return !t.Date.IsZero()
}

// DueAt returns the effective due instant: date plus time, or date plus 23:59
// when no time is set. The second return is false for dateless tasks.
func (t Task) DueAt() (time.Time, bool) {
	if t.Date.IsZero() {
		return time.Time{}, false
	}
	clock := t.Time
	if clock == "" {
		clock = endOfDayTime
	}
	parsed, err := time.ParseInLocation(TimeLayout, clock, time.Local)
	if err != nil {
		parsed, _ = time.ParseInLocation(TimeLayout, endOfDayTime, time.Local)
	}
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, time.Local), true
}

// IsOverdue reports whether an incomplete task's due instant has passed.
// Completed and dateless tasks are never overdue.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Completed {
		return false
	}
	due, ok := t.DueAt()
	if !ok {
		return false
	}
	return due.Before(now)
}

// Day truncates an instant to local midnight; the zero value passes through.
func Day(v time.Time) time.Time {
	if v.IsZero() {
		return v
	}
	y, m, d := v.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// SameDay reports whether two instants fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD string; empty input means no date.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FormatDate renders a date as YYYY-MM-DD, empty for the zero value.
func FormatDate(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.Format(DateLayout)
}
