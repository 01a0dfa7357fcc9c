// Package query filters, sorts and groups task lists. Every function is pure
// and takes the current instant as an argument so callers control the clock.
package query

import (
	"sort"
	"strings"
	"time"

	"agenda/internal/task"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type DateScope string

const (
	ScopeAll   DateScope = "all"
	ScopeToday DateScope = "today"
	ScopeWeek  DateScope = "week"
	ScopeMonth DateScope = "month"
)

// Config is the set of active filter criteria. The zero value of each field is
// not meaningful; use DefaultConfig for the pass-everything configuration.
type Config struct {
	Status   Status
	Priority string
	Category string
	Scope    DateScope
	Search   string
}

func DefaultConfig() Config {
	return Config{
		Status:   StatusAll,
		Priority: "all",
		Category: "all",
		Scope:    ScopeAll,
	}
}

// Filter retains tasks passing every criterion. Output order is whatever the
// input order was; ordering is SortTasks' concern.
func Filter(tasks []task.Task, cfg Config, now time.Time) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if cfg.Status == StatusActive && t.Completed {
			continue
		}
		if cfg.Status == StatusCompleted && !t.Completed {
			continue
		}
		if cfg.Priority != "all" && string(t.Priority) != cfg.Priority {
			continue
		}
		if cfg.Category != "all" && string(t.Category) != cfg.Category {
			continue
		}
		if !PassesDateFilter(t, cfg.Scope, now) {
			continue
		}
		if !matchesSearch(t, cfg.Search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// PassesDateFilter applies the scope window. Dateless tasks only pass the
// unbounded scope. Incomplete tasks with a past date pass every bounded scope;
// an overdue task must stay visible no matter which window is selected.
func PassesDateFilter(t task.Task, scope DateScope, now time.Time) bool {
	if scope == ScopeAll {
		return true
	}
	if !t.HasDate() {
		return false
	}

	today := task.Day(now)
	day := task.Day(t.Date)

	if !t.Completed && day.Before(today) {
		return true
	}

	switch scope {
	case ScopeToday:
		return day.Equal(today)
	case ScopeWeek:
		return !day.Before(today) && !day.After(today.AddDate(0, 0, 7))
	case ScopeMonth:
		return !day.Before(today) && !day.After(today.AddDate(0, 0, 30))
	}
	return true
}

func matchesSearch(t task.Task, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}

// SortTasks returns a new slice ordered by: incomplete first, overdue first,
// ascending date, dated before dateless, priority rank, then creation time.
// The sort is stable, so tasks equal on all keys keep their input order.
func SortTasks(tasks []task.Task, now time.Time) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if a.Completed != b.Completed {
			return !a.Completed
		}

		aOver, bOver := a.IsOverdue(now), b.IsOverdue(now)
		if aOver != bOver {
			return aOver
		}

		if a.HasDate() && b.HasDate() {
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		} else if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}

		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}

		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

type Bucket string

const (
	BucketOverdue  Bucket = "Overdue"
	BucketToday    Bucket = "Today"
	BucketTomorrow Bucket = "Tomorrow"
	BucketThisWeek Bucket = "This Week"
	BucketUpcoming Bucket = "Upcoming"
	BucketNoDate   Bucket = "No Date"
)

// Buckets lists the groups in display precedence order.
func Buckets() []Bucket {
	return []Bucket{BucketOverdue, BucketToday, BucketTomorrow, BucketThisWeek, BucketUpcoming, BucketNoDate}
}

// GroupByDate partitions an already-sorted list into the six buckets. A task
// lands in exactly one: the first bucket whose rule matches, so a completed
// task dated today is "Today" even if its time has passed, while an incomplete
// one is "Overdue". Relative order within each bucket is preserved. Empty
// buckets stay in the map; hiding them is the caller's choice.
func GroupByDate(tasks []task.Task, now time.Time) map[Bucket][]task.Task {
	groups := make(map[Bucket][]task.Task, 6)
	for _, b := range Buckets() {
		groups[b] = nil
	}

	today := task.Day(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekEnd := today.AddDate(0, 0, 7)

	for _, t := range tasks {
		switch {
		case !t.HasDate():
			groups[BucketNoDate] = append(groups[BucketNoDate], t)
		case !t.Completed && t.IsOverdue(now):
			groups[BucketOverdue] = append(groups[BucketOverdue], t)
		case task.SameDay(t.Date, today):
			groups[BucketToday] = append(groups[BucketToday], t)
		case task.SameDay(t.Date, tomorrow):
			groups[BucketTomorrow] = append(groups[BucketTomorrow], t)
		case t.Date.After(today) && !t.Date.After(weekEnd):
			groups[BucketThisWeek] = append(groups[BucketThisWeek], t)
		case t.Date.After(weekEnd):
			groups[BucketUpcoming] = append(groups[BucketUpcoming], t)
		default:
			// Completed with a past date: not overdue, matches no window.
			// Filed under Today so the partition stays total.
			groups[BucketToday] = append(groups[BucketToday], t)
		}
	}
	return groups
}

// Statistics summarizes a task list for the dashboard line.
type Statistics struct {
	Total          int
	Completed      int
	Pending        int
	Overdue        int
	CompletionRate int
}

func Stats(tasks []task.Task, now time.Time) Statistics {
	var s Statistics
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = s.Completed * 100 / s.Total
	}
	return s
}
