package calendar

import (
	"errors"
	"testing"
	"time"

	"agenda/internal/task"
)

func TestEventForTask(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)

	tk := task.New("dentist", "teeth cleaning", date, "14:30", task.PriorityHigh, task.CategoryHealth, time.Now())
	event, err := eventForTask(tk)
	if err != nil {
		t.Fatalf("eventForTask: %v", err)
	}

	if event.Summary != "dentist" || event.Description != "teeth cleaning" {
		t.Fatalf("summary/description = %q/%q", event.Summary, event.Description)
	}
	wantStart := time.Date(2025, 6, 10, 14, 30, 0, 0, time.Local).Format(time.RFC3339)
	if event.Start.DateTime != wantStart {
		t.Fatalf("start = %s, want %s", event.Start.DateTime, wantStart)
	}
	wantEnd := time.Date(2025, 6, 10, 15, 30, 0, 0, time.Local).Format(time.RFC3339)
	if event.End.DateTime != wantEnd {
		t.Fatalf("end = %s, want the start plus one hour (%s)", event.End.DateTime, wantEnd)
	}
	if event.ColorId != "11" {
		t.Fatalf("color = %s, want 11 for high priority", event.ColorId)
	}
	if got := event.ExtendedProperties.Private[taskKey]; got != tk.ID {
		t.Fatalf("extended property = %q, want the task id", got)
	}
	if got := event.ExtendedProperties.Private[sourceKey]; got != sourceValue {
		t.Fatalf("source property = %q, want %q", got, sourceValue)
	}
	if event.Reminders.UseDefault {
		t.Fatal("event uses default reminders")
	}
	if len(event.Reminders.Overrides) != 1 || event.Reminders.Overrides[0].Minutes != 10 {
		t.Fatalf("reminder overrides = %+v, want one 10-minute popup", event.Reminders.Overrides)
	}
}

func TestEventStartDefaultsToNine(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	tk := task.New("groceries", "", date, "", task.PriorityLow, task.CategoryShopping, time.Now())

	start, err := eventStart(tk)
	if err != nil {
		t.Fatalf("eventStart: %v", err)
	}
	want := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
	if !start.Equal(want) {
		t.Fatalf("start = %v, want 09:00 on the task's date", start)
	}
}

func TestEventForDatelessTask(t *testing.T) {
	tk := task.New("someday", "", time.Time{}, "", task.PriorityMedium, task.CategoryOther, time.Now())
	if _, err := eventForTask(tk); !errors.Is(err, ErrNoDate) {
		t.Fatalf("err = %v, want ErrNoDate", err)
	}
}

func TestColorForPriority(t *testing.T) {
	tests := []struct {
		prio task.Priority
		want string
	}{
		{task.PriorityHigh, "11"},
		{task.PriorityMedium, "5"},
		{task.PriorityLow, "10"},
		{task.Priority("bogus"), "9"},
	}
	for _, tt := range tests {
		if got := colorForPriority(tt.prio); got != tt.want {
			t.Errorf("colorForPriority(%q) = %s, want %s", tt.prio, got, tt.want)
		}
	}
}
