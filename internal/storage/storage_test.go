package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"agenda/internal/task"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "agenda.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(title string, created time.Time) task.Task {
	return task.New(title, "desc", time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local), "10:30",
		task.PriorityHigh, task.CategoryStudy, created)
}

func TestTaskRoundTrip(t *testing.T) {
	s := openTestStore(t)
	created := time.Date(2025, 6, 30, 9, 0, 0, 0, time.Local)
	in := sample("read chapter 4", created)

	if err := s.AddTask(in); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := s.GetTask(in.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != in.Title || got.Description != in.Description || got.Time != in.Time {
		t.Errorf("round trip mangled fields: %+v", got)
	}
	if !got.Date.Equal(in.Date) {
		t.Errorf("date round trip: got %v want %v", got.Date, in.Date)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at round trip: got %v want %v", got.CreatedAt, created)
	}
	if got.Priority != task.PriorityHigh || got.Category != task.CategoryStudy {
		t.Errorf("enum round trip: %+v", got)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	bad := sample("", time.Now())
	if err := s.AddTask(bad); !errors.Is(err, task.ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestToggleAndDelete(t *testing.T) {
	s := openTestStore(t)
	in := sample("toggle me", time.Now())
	if err := s.AddTask(in); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := s.ToggleComplete(in.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.Completed {
		t.Error("toggle did not complete the task")
	}
	got, err = s.ToggleComplete(in.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if got.Completed {
		t.Error("second toggle did not reopen the task")
	}

	if err := s.DeleteTask(in.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTask(in.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteTask(in.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should report ErrNotFound, got %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	s := openTestStore(t)
	in := sample("original", time.Now().Add(-time.Hour))
	in.Completed = true
	in.EventID = "evt-9"
	if err := s.AddTask(in); err != nil {
		t.Fatalf("add: %v", err)
	}

	now := time.Now()
	dup, err := s.DuplicateTask(in.ID, now)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == in.ID || dup.Completed || dup.EventID != "" {
		t.Errorf("duplicate did not reset identity fields: %+v", dup)
	}

	all, err := s.FetchTasks()
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 tasks after duplicate, got %d", len(all))
	}
}

func TestFetchOrdersByCreation(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.Local)
	for i, title := range []string{"first", "second", "third"} {
		if err := s.AddTask(sample(title, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
	}
	all, err := s.FetchTasks()
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if all[i].Title != want {
			t.Errorf("position %d = %q, want %q", i, all[i].Title, want)
		}
	}
}

func TestReplaceTasksIsAtomic(t *testing.T) {
	s := openTestStore(t)
	keep := sample("keep", time.Now())
	if err := s.AddTask(keep); err != nil {
		t.Fatalf("add: %v", err)
	}

	bad := sample("", time.Now())
	if err := s.ReplaceTasks([]task.Task{sample("new", time.Now()), bad}); err == nil {
		t.Fatal("replace with invalid record must fail")
	}

	all, err := s.FetchTasks()
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(all) != 1 || all[0].Title != "keep" {
		t.Errorf("failed replace must leave prior state untouched, got %v", all)
	}
}

func TestSettingsAndPrefs(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetSettings()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != DefaultSettings() {
		t.Errorf("fresh store should return defaults, got %+v", got)
	}

	want := Settings{Theme: "dark", ViewMode: "card"}
	if err := s.SaveSettings(want); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err = s.GetSettings()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != want {
		t.Errorf("settings round trip: got %+v want %+v", got, want)
	}

	prefs := DefaultPrefs()
	prefs.DeadlineLeadMin = 15
	prefs.MorningReminder = false
	if err := s.SavePrefs(prefs); err != nil {
		t.Fatalf("save prefs: %v", err)
	}
	gotPrefs, err := s.GetPrefs()
	if err != nil {
		t.Fatalf("get prefs: %v", err)
	}
	if gotPrefs != prefs {
		t.Errorf("prefs round trip: got %+v want %+v", gotPrefs, prefs)
	}
}
