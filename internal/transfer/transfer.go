// Package transfer serializes the task list for backup and restores it,
// validating every record before any of them is accepted.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agenda/internal/task"
)

const Version = 1

type Document struct {
	Version    int      `json:"version"`
	ExportedAt string   `json:"exported_at"`
	Tasks      []Record `json:"tasks"`
}

type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
	Time        string `json:"time,omitempty"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	EventID     string `json:"event_id,omitempty"`
}

// Export renders the full task list as an indented JSON document.
func Export(tasks []task.Task, now time.Time) ([]byte, error) {
	doc := Document{
		Version:    Version,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Tasks:      make([]Record, 0, len(tasks)),
	}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, Record{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Date:        task.FormatDate(t.Date),
			Time:        t.Time,
			Priority:    string(t.Priority),
			Category:    string(t.Category),
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
			EventID:     t.EventID,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import parses an exported document and validates every record. It returns
// the parsed tasks only when all records pass; a single bad record rejects the
// whole document with an error naming the record and the problem.
func Import(data []byte, now time.Time) ([]task.Task, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("not a valid export document: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported export version %d", doc.Version)
	}
	if doc.Tasks == nil {
		return nil, fmt.Errorf("export document has no task list")
	}

	seen := make(map[string]bool, len(doc.Tasks))
	tasks := make([]task.Task, 0, len(doc.Tasks))
	for i, r := range doc.Tasks {
		t, err := recordToTask(r, now)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("record %d: duplicate identifier %q", i+1, t.ID)
		}
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func recordToTask(r Record, now time.Time) (task.Task, error) {
	t := task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Time:        r.Time,
		Priority:    task.Priority(r.Priority),
		Category:    task.Category(r.Category),
		Completed:   r.Completed,
		EventID:     r.EventID,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	date, err := task.ParseDate(r.Date)
	if err != nil {
		return task.Task{}, fmt.Errorf("invalid date %q", r.Date)
	}
	t.Date = date

	if r.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return task.Task{}, fmt.Errorf("invalid created_at %q", r.CreatedAt)
		}
		t.CreatedAt = created.Local()
	} else {
		t.CreatedAt = now
	}

	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	return t, nil
}
