package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"agenda/internal/task"
)

// Store owns the task list and the persisted settings. All mutations write the
// whole record; callers re-read after every change.
type Store struct {
	db *sql.DB
}

var ErrNotFound = errors.New("task not found")

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	date TEXT NOT NULL DEFAULT '',
	time TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT 'medium',
	category TEXT NOT NULL DEFAULT 'other',
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	event_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

func (s *Store) ensureTaskColumns() error {
	required := map[string]string{
		"event_id": "ALTER TABLE tasks ADD COLUMN event_id TEXT NOT NULL DEFAULT '';",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return rows.Err()
}

const taskColumns = `id, title, description, date, time, priority, category, completed, created_at, event_id`

func (s *Store) FetchTasks() ([]task.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(id string) (task.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	return t, err
}

func (s *Store) AddTask(t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		t.ID, t.Title, t.Description, task.FormatDate(t.Date), t.Time,
		string(t.Priority), string(t.Category), boolInt(t.Completed),
		t.CreatedAt.UTC().Format(time.RFC3339), t.EventID)
	return err
}

// UpdateTask overwrites the mutable fields of an existing task. Identifier and
// creation timestamp never change.
func (s *Store) UpdateTask(t task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE tasks SET title = ?, description = ?, date = ?, time = ?, priority = ?, category = ?, completed = ?, event_id = ? WHERE id = ?;`,
		t.Title, t.Description, task.FormatDate(t.Date), t.Time,
		string(t.Priority), string(t.Category), boolInt(t.Completed), t.EventID, t.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ToggleComplete(id string) (task.Task, error) {
	res, err := s.db.Exec(`UPDATE tasks SET completed = 1 - completed WHERE id = ?;`, id)
	if err != nil {
		return task.Task{}, err
	}
	if err := requireRow(res); err != nil {
		return task.Task{}, err
	}
	return s.GetTask(id)
}

// DuplicateTask inserts a copy of the task with a fresh identifier, reset
// completion and the given creation time, and returns the copy.
func (s *Store) DuplicateTask(id string, now time.Time) (task.Task, error) {
	orig, err := s.GetTask(id)
	if err != nil {
		return task.Task{}, err
	}
	dup := orig.Duplicate(now)
	if err := s.AddTask(dup); err != nil {
		return task.Task{}, err
	}
	return dup, nil
}

func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SetEventID(id, eventID string) error {
	res, err := s.db.Exec(`UPDATE tasks SET event_id = ? WHERE id = ?;`, eventID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ReplaceTasks swaps the whole task list in one transaction. Import uses this
// so a bad record leaves the previous list untouched.
func (s *Store) ReplaceTasks(tasks []task.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks;`); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %q: %w", t.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			t.ID, t.Title, t.Description, task.FormatDate(t.Date), t.Time,
			string(t.Priority), string(t.Category), boolInt(t.Completed),
			t.CreatedAt.UTC().Format(time.RFC3339), t.EventID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var t task.Task
	var dateStr, timeStr, prio, cat, createdStr string
	var completed int
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &dateStr, &timeStr, &prio, &cat, &completed, &createdStr, &t.EventID); err != nil {
		return task.Task{}, err
	}
	t.Completed = completed == 1
	t.Priority = task.Priority(prio)
	t.Category = task.Category(cat)
	t.Time = timeStr
	// Malformed dates come back as "no date".
	if parsed, err := task.ParseDate(dateStr); err == nil {
		t.Date = parsed
	}
	if created, err := time.Parse(time.RFC3339, createdStr); err == nil {
		t.CreatedAt = created.Local()
	}
	return t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
