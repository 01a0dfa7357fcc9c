package calendar

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"agenda/internal/task"
)

// fakeEvents is an in-memory eventsAPI for exercising the client without
// a live calendar.
type fakeEvents struct {
	events    map[string]*gcal.Event
	nextID    int
	deleted   []string
	deleteErr error
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[string]*gcal.Event{}}
}

func (f *fakeEvents) Insert(event *gcal.Event) (*gcal.Event, error) {
	f.nextID++
	cp := *event
	cp.Id = fmt.Sprintf("ev-%d", f.nextID)
	f.events[cp.Id] = &cp
	return &cp, nil
}

func (f *fakeEvents) Update(eventID string, event *gcal.Event) (*gcal.Event, error) {
	if _, ok := f.events[eventID]; !ok {
		return nil, fmt.Errorf("no event %s", eventID)
	}
	cp := *event
	cp.Id = eventID
	f.events[eventID] = &cp
	return &cp, nil
}

func (f *fakeEvents) Delete(eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.events[eventID]; !ok {
		return fmt.Errorf("no event %s", eventID)
	}
	delete(f.events, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeEvents) ListByProperty(prop string) ([]*gcal.Event, error) {
	key, value, ok := strings.Cut(prop, "=")
	if !ok {
		return nil, fmt.Errorf("bad property %q", prop)
	}
	var out []*gcal.Event
	for _, ev := range f.events {
		if ev.ExtendedProperties != nil && ev.ExtendedProperties.Private[key] == value {
			out = append(out, ev)
		}
	}
	return out, nil
}

// mapRecorder records task-to-event mappings in memory.
type mapRecorder map[string]string

func (r mapRecorder) SetEventID(taskID, eventID string) error {
	r[taskID] = eventID
	return nil
}

func datedTask(title, clock string) task.Task {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)
	return task.New(title, "", date, clock, task.PriorityMedium, task.CategoryWork, time.Now())
}

func TestSyncInsertsAndRecords(t *testing.T) {
	api := newFakeEvents()
	rec := mapRecorder{}
	c := &Client{api: api, recorder: rec}

	tk := datedTask("dentist", "14:30")
	res := c.Sync([]task.Task{tk})

	if res.Created != 1 || res.Updated != 0 || res.Errors != 0 {
		t.Fatalf("result = %+v, want one create", res)
	}
	if len(api.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(api.events))
	}
	if rec[tk.ID] == "" {
		t.Fatal("event id was not recorded for the task")
	}
}

func TestSyncUpdatesKnownEvent(t *testing.T) {
	api := newFakeEvents()
	c := &Client{api: api, recorder: mapRecorder{}}

	tk := datedTask("dentist", "14:30")
	c.Sync([]task.Task{tk})
	for id := range api.events {
		tk.EventID = id
	}

	tk.Title = "dentist (moved)"
	res := c.Sync([]task.Task{tk})
	if res.Updated != 1 || res.Created != 0 {
		t.Fatalf("result = %+v, want one update", res)
	}
	if got := api.events[tk.EventID].Summary; got != "dentist (moved)" {
		t.Fatalf("summary = %q after update", got)
	}
}

func TestSyncSkipsCompletedAndDateless(t *testing.T) {
	api := newFakeEvents()
	c := &Client{api: api}

	done := datedTask("shipped", "")
	done.Completed = true
	someday := task.New("someday", "", time.Time{}, "", task.PriorityLow, task.CategoryOther, time.Now())

	res := c.Sync([]task.Task{done, someday})
	if res.Skipped != 2 || res.Created != 0 {
		t.Fatalf("result = %+v, want both skipped", res)
	}
	if len(api.events) != 0 {
		t.Fatalf("stored %d events, want none", len(api.events))
	}
}

func TestDeleteRemovesEvent(t *testing.T) {
	api := newFakeEvents()
	c := &Client{api: api}

	tk := datedTask("dentist", "")
	c.Sync([]task.Task{tk})
	for id := range api.events {
		tk.EventID = id
	}

	if err := c.Delete(tk); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.events) != 0 {
		t.Fatal("event still present after Delete")
	}
}

func TestDeleteWithoutEventIDIsNoop(t *testing.T) {
	api := newFakeEvents()
	api.deleteErr = errors.New("should not be called")
	c := &Client{api: api}

	if err := c.Delete(datedTask("dentist", "")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestPruneDeletesOrphanedEvents(t *testing.T) {
	api := newFakeEvents()
	c := &Client{api: api, recorder: mapRecorder{}}

	kept := datedTask("kept", "")
	removed := datedTask("removed", "")
	c.Sync([]task.Task{kept, removed})

	// A foreign event without the source marker must survive the prune.
	api.events["foreign"] = &gcal.Event{Id: "foreign", Summary: "holiday"}

	var res SyncResult
	c.Prune([]task.Task{kept}, &res)

	if res.Deleted != 1 || res.Errors != 0 {
		t.Fatalf("result = %+v, want one delete", res)
	}
	if len(api.events) != 2 {
		t.Fatalf("stored %d events, want the kept task's and the foreign one", len(api.events))
	}
	if _, ok := api.events["foreign"]; !ok {
		t.Fatal("prune removed an event it did not create")
	}
	for _, ev := range api.events {
		if ev.Summary == "removed" {
			t.Fatal("orphaned event survived the prune")
		}
	}
}

func TestPruneCountsDeleteFailures(t *testing.T) {
	api := newFakeEvents()
	c := &Client{api: api}

	orphan := datedTask("gone", "")
	c.Sync([]task.Task{orphan})
	api.deleteErr = errors.New("backend down")

	var res SyncResult
	c.Prune(nil, &res)
	if res.Deleted != 0 || res.Errors != 1 {
		t.Fatalf("result = %+v, want one error and no deletes", res)
	}
}
