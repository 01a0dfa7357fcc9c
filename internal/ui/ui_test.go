package ui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"agenda/internal/config"
	"agenda/internal/storage"
	"agenda/internal/task"
)

func testConfig() config.Config {
	return config.Config{
		Keys: config.Keymap{
			Quit:      "q",
			Add:       "a",
			Up:        "k",
			Down:      "j",
			Toggle:    " ",
			Delete:    "d",
			Duplicate: "y",
			Edit:      "e",
			Search:    "/",
			Confirm:   "enter",
			Cancel:    "esc",
			NextScope: "tab",
			Status:    "s",
			Priority:  "p",
			Category:  "c",
			Theme:     "t",
			View:      "v",
		},
	}
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func pressKey(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, _ := m.updateListMode(key)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("updateListMode returned %T", next)
	}
	return got
}

var _ tea.Model = Model{}

func TestNewModelLoadsSavedSettings(t *testing.T) {
	store := openTestStore(t)
	saved := storage.Settings{Theme: "dark", ViewMode: "compact"}
	if err := store.SaveSettings(saved); err != nil {
		t.Fatal(err)
	}

	m, err := newModel(store, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.settings != saved {
		t.Errorf("settings = %+v, want %+v", m.settings, saved)
	}
	if m.styles.header.Render("x") != stylesFor("dark").header.Render("x") {
		t.Error("styles do not match the dark theme")
	}
}

func TestThemeKeyTogglesAndPersists(t *testing.T) {
	store := openTestStore(t)
	m, err := newModel(store, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.settings.Theme != "light" {
		t.Fatalf("default theme = %q, want light", m.settings.Theme)
	}

	m = pressKey(t, m, "t")
	if m.settings.Theme != "dark" {
		t.Errorf("theme after toggle = %q, want dark", m.settings.Theme)
	}
	got, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.Theme != "dark" {
		t.Errorf("persisted theme = %q, want dark", got.Theme)
	}

	m = pressKey(t, m, "t")
	if m.settings.Theme != "light" {
		t.Errorf("theme after second toggle = %q, want light", m.settings.Theme)
	}
}

func TestViewKeyTogglesCompactRendering(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()
	due := task.Day(now.AddDate(0, 0, 2))
	tk := task.New("Ship release", "", due, "09:00", task.PriorityHigh, task.CategoryWork, now)
	if err := store.AddTask(tk); err != nil {
		t.Fatal(err)
	}

	m, err := newModel(store, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(m.renderRows(), "#work") {
		t.Fatal("list view should show the category tag")
	}

	m = pressKey(t, m, "v")
	if m.settings.ViewMode != "compact" {
		t.Fatalf("view mode = %q, want compact", m.settings.ViewMode)
	}
	rows := m.renderRows()
	if strings.Contains(rows, "#work") || strings.Contains(rows, task.FormatDate(due)) {
		t.Errorf("compact view should hide date and category, got:\n%s", rows)
	}
	if !strings.Contains(rows, "Ship release") {
		t.Errorf("compact view lost the title, got:\n%s", rows)
	}

	got, err := store.GetSettings()
	if err != nil {
		t.Fatal(err)
	}
	if got.ViewMode != "compact" {
		t.Errorf("persisted view mode = %q, want compact", got.ViewMode)
	}
}
