package calendar

import (
	"fmt"
	"log"

	gcal "google.golang.org/api/calendar/v3"

	"agenda/internal/task"
)

// EventRecorder persists the task-to-event mapping between runs.
type EventRecorder interface {
	SetEventID(taskID, eventID string) error
}

// eventsAPI is the slice of the Calendar events surface the client needs,
// narrowed so tests can substitute a fake.
type eventsAPI interface {
	Insert(event *gcal.Event) (*gcal.Event, error)
	Update(eventID string, event *gcal.Event) (*gcal.Event, error)
	Delete(eventID string) error
	ListByProperty(prop string) ([]*gcal.Event, error)
}

// serviceEvents backs eventsAPI with the real Calendar service.
type serviceEvents struct {
	srv        *gcal.Service
	calendarID string
}

func (s serviceEvents) Insert(event *gcal.Event) (*gcal.Event, error) {
	return s.srv.Events.Insert(s.calendarID, event).Do()
}

func (s serviceEvents) Update(eventID string, event *gcal.Event) (*gcal.Event, error) {
	return s.srv.Events.Update(s.calendarID, eventID, event).Do()
}

func (s serviceEvents) Delete(eventID string) error {
	return s.srv.Events.Delete(s.calendarID, eventID).Do()
}

func (s serviceEvents) ListByProperty(prop string) ([]*gcal.Event, error) {
	events, err := s.srv.Events.List(s.calendarID).
		PrivateExtendedProperty(prop).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// Client wraps the Calendar API for one target calendar.
type Client struct {
	api      eventsAPI
	recorder EventRecorder
}

func NewClient(srv *gcal.Service, calendarID string, recorder EventRecorder) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{api: serviceEvents{srv: srv, calendarID: calendarID}, recorder: recorder}
}

// SyncResult reports what one Sync run did.
type SyncResult struct {
	Created int
	Updated int
	Deleted int
	Skipped int
	Errors  int
}

// Sync pushes every incomplete dated task to the calendar: tasks with a known
// event id are updated, the rest inserted. Per-task failures are logged and
// counted, never fatal.
func (c *Client) Sync(tasks []task.Task) SyncResult {
	var res SyncResult
	for _, t := range tasks {
		if t.Completed || !t.HasDate() {
			res.Skipped++
			continue
		}
		if err := c.syncOne(t, &res); err != nil {
			log.Printf("calendar: syncing %q: %v", t.Title, err)
			res.Errors++
		}
	}
	return res
}

func (c *Client) syncOne(t task.Task, res *SyncResult) error {
	event, err := eventForTask(t)
	if err != nil {
		return err
	}

	eventID := t.EventID
	if eventID == "" {
		// The mapping may exist remotely even when the local copy lost it.
		if found, err := c.findByTaskID(t.ID); err == nil && found != nil {
			eventID = found.Id
		}
	}

	if eventID != "" {
		updated, err := c.api.Update(eventID, event)
		if err != nil {
			return fmt.Errorf("updating event %s: %w", eventID, err)
		}
		res.Updated++
		return c.record(t.ID, updated.Id)
	}

	created, err := c.api.Insert(event)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	res.Created++
	return c.record(t.ID, created.Id)
}

// Delete removes the calendar event for a task, if one is known.
func (c *Client) Delete(t task.Task) error {
	if t.EventID == "" {
		return nil
	}
	if err := c.api.Delete(t.EventID); err != nil {
		return fmt.Errorf("deleting event %s: %w", t.EventID, err)
	}
	return nil
}

// Prune deletes events this app created whose owning task no longer exists
// locally, so deleting a task eventually removes its calendar entry too.
// Delete failures are logged and counted, never fatal.
func (c *Client) Prune(tasks []task.Task, res *SyncResult) {
	events, err := c.api.ListByProperty(sourceKey + "=" + sourceValue)
	if err != nil {
		log.Printf("calendar: listing events to prune: %v", err)
		res.Errors++
		return
	}

	alive := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		alive[t.ID] = true
	}

	for _, ev := range events {
		id := eventTaskID(ev)
		if id == "" || alive[id] {
			continue
		}
		if err := c.Delete(task.Task{ID: id, EventID: ev.Id}); err != nil {
			log.Printf("calendar: pruning event %s: %v", ev.Id, err)
			res.Errors++
			continue
		}
		res.Deleted++
	}
}

func (c *Client) findByTaskID(taskID string) (*gcal.Event, error) {
	events, err := c.api.ListByProperty(taskKey + "=" + taskID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events[0], nil
}

func eventTaskID(ev *gcal.Event) string {
	if ev.ExtendedProperties == nil {
		return ""
	}
	return ev.ExtendedProperties.Private[taskKey]
}

func (c *Client) record(taskID, eventID string) error {
	if c.recorder == nil {
		return nil
	}
	if err := c.recorder.SetEventID(taskID, eventID); err != nil {
		return fmt.Errorf("recording event id: %w", err)
	}
	return nil
}
