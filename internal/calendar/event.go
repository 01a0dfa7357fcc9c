package calendar

import (
	"errors"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"agenda/internal/task"
)

// taskKey is the private extended property carrying the owning task id, used
// to find an event again when the local mapping was lost.
const taskKey = "task_id"

// sourceKey marks events created by this app so pruning never touches
// events the user made themselves.
const (
	sourceKey   = "source"
	sourceValue = "agenda"
)

// eventDuration is the fixed slot length for task events.
const eventDuration = time.Hour

// defaultStartHour is used for tasks that carry a date but no time.
const defaultStartHour = 9

// ErrNoDate marks tasks that cannot appear on a calendar.
var ErrNoDate = errors.New("task has no date")

// eventForTask converts a task into a calendar event.
func eventForTask(t task.Task) (*gcal.Event, error) {
	start, err := eventStart(t)
	if err != nil {
		return nil, err
	}
	end := start.Add(eventDuration)

	return &gcal.Event{
		Summary:     t.Title,
		Description: t.Description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ColorId:     colorForPriority(t.Priority),
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{taskKey: t.ID, sourceKey: sourceValue},
		},
	}, nil
}

// eventStart is the event's start instant: the task's time on its date, or
// 9:00 for date-only tasks. It deliberately differs from the due instant,
// which uses end of day.
func eventStart(t task.Task) (time.Time, error) {
	if !t.HasDate() {
		return time.Time{}, ErrNoDate
	}
	y, m, d := t.Date.Date()
	if t.Time == "" {
		return time.Date(y, m, d, defaultStartHour, 0, 0, 0, time.Local), nil
	}
	clock, err := time.ParseInLocation(task.TimeLayout, t.Time, time.Local)
	if err != nil {
		return time.Date(y, m, d, defaultStartHour, 0, 0, 0, time.Local), nil
	}
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}

// Calendar color ids: 11 red, 5 yellow, 10 green, 9 blue.
func colorForPriority(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return "11"
	case task.PriorityMedium:
		return "5"
	case task.PriorityLow:
		return "10"
	}
	return "9"
}
