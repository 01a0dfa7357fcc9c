package notify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// SeenTable records when each task was last notified as overdue, so the
// hourly check alerts at most once per task per day. Persisted as JSON under
// the config dir.
type SeenTable struct {
	Entries map[string]time.Time `json:"entries"`
	Path    string               `json:"-"`
	dirty   bool
}

func NewSeenTable(path string) (*SeenTable, error) {
	t := &SeenTable{
		Path:    path,
		Entries: make(map[string]time.Time),
	}
	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *SeenTable) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(t)
}

func (t *SeenTable) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0o700); err != nil {
		return err
	}
	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	err = enc.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

// ShouldNotify reports whether the task has not been alerted within the last
// day, and marks it as alerted when so.
func (t *SeenTable) ShouldNotify(taskID string, now time.Time) bool {
	last, ok := t.Entries[taskID]
	if ok && now.Sub(last) < 24*time.Hour {
		return false
	}
	t.Entries[taskID] = now
	t.dirty = true
	return true
}

func (t *SeenTable) Remove(taskID string) {
	if _, ok := t.Entries[taskID]; ok {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}
