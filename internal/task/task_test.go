package task

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestDueAt(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		time string
		want time.Time
		ok   bool
	}{
		{"no date", time.Time{}, "", time.Time{}, false},
		{"date and time", date(2025, 6, 1), "09:30", time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local), true},
		{"date only defaults to end of day", date(2025, 6, 1), "", time.Date(2025, 6, 1, 23, 59, 0, 0, time.Local), true},
		{"garbled time falls back to end of day", date(2025, 6, 1), "??", time.Date(2025, 6, 1, 23, 59, 0, 0, time.Local), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Task{Date: tt.date, Time: tt.time}.DueAt()
			if ok != tt.ok {
				t.Fatalf("DueAt ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("DueAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.Local)

	overdue := Task{Title: "late", Date: date(2025, 6, 1)}
	if !overdue.IsOverdue(now) {
		t.Error("task due yesterday should be overdue")
	}

	completed := Task{Title: "done", Date: date(2025, 6, 1), Completed: true}
	if completed.IsOverdue(now) {
		t.Error("completed tasks are never overdue")
	}

	dateless := Task{Title: "someday"}
	if dateless.IsOverdue(now) {
		t.Error("dateless tasks are never overdue")
	}

	todayLater := Task{Title: "tonight", Date: date(2025, 6, 2)}
	if todayLater.IsOverdue(now) {
		t.Error("date-only task is due at end of day, not before")
	}

	todayEarlier := Task{Title: "this morning", Date: date(2025, 6, 2), Time: "09:00"}
	if !todayEarlier.IsOverdue(now) {
		t.Error("timed task earlier today should be overdue")
	}
}

func TestValidate(t *testing.T) {
	valid := Task{Title: "ok", Priority: PriorityMedium, Category: CategoryWork}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	tests := []struct {
		name string
		task Task
	}{
		{"empty title", Task{Title: "   ", Priority: PriorityLow, Category: CategoryOther}},
		{"time without date", Task{Title: "x", Time: "10:00", Priority: PriorityLow, Category: CategoryOther}},
		{"bad time", Task{Title: "x", Date: date(2025, 1, 1), Time: "25:99", Priority: PriorityLow, Category: CategoryOther}},
		{"bad priority", Task{Title: "x", Priority: "urgent", Category: CategoryOther}},
		{"bad category", Task{Title: "x", Priority: PriorityLow, Category: "misc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.task.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDuplicateResetsIdentity(t *testing.T) {
	now := time.Now()
	orig := New("write report", "for Monday", date(2025, 6, 5), "10:00", PriorityHigh, CategoryWork, now.Add(-time.Hour))
	orig.Completed = true
	orig.EventID = "evt-1"

	dup := orig.Duplicate(now)
	if dup.ID == orig.ID {
		t.Error("duplicate must get a fresh identifier")
	}
	if dup.Completed {
		t.Error("duplicate must reset completion")
	}
	if dup.EventID != "" {
		t.Error("duplicate must not carry the calendar event reference")
	}
	if !dup.CreatedAt.Equal(now) {
		t.Errorf("duplicate CreatedAt = %v, want %v", dup.CreatedAt, now)
	}
	if dup.Title != orig.Title || dup.Time != orig.Time || !dup.Date.Equal(orig.Date) {
		t.Error("duplicate must copy content fields")
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() != 0 || PriorityMedium.Rank() != 1 || PriorityLow.Rank() != 2 {
		t.Error("priority ranks must order high < medium < low")
	}
}
