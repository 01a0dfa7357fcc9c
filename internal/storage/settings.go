package storage

import (
	"database/sql"
	"errors"
	"strconv"
)

// Settings are the persisted display preferences, distinct from the per-render
// filter configuration which is never stored.
type Settings struct {
	Theme    string
	ViewMode string
}

func DefaultSettings() Settings {
	return Settings{Theme: "light", ViewMode: "list"}
}

// Prefs are the persisted notification preferences.
type Prefs struct {
	Enabled           bool
	MorningReminder   bool
	MorningReminderAt string
	DeadlineReminder  bool
	DeadlineLeadMin   int
	OverdueNotify     bool
}

func DefaultPrefs() Prefs {
	return Prefs{
		Enabled:           true,
		MorningReminder:   true,
		MorningReminderAt: "08:00",
		DeadlineReminder:  true,
		DeadlineLeadMin:   30,
		OverdueNotify:     true,
	}
}

func (s *Store) GetSettings() (Settings, error) {
	out := DefaultSettings()
	if v, ok, err := s.getValue("theme"); err != nil {
		return out, err
	} else if ok {
		out.Theme = v
	}
	if v, ok, err := s.getValue("view_mode"); err != nil {
		return out, err
	} else if ok {
		out.ViewMode = v
	}
	return out, nil
}

func (s *Store) SaveSettings(v Settings) error {
	if err := s.setValue("theme", v.Theme); err != nil {
		return err
	}
	return s.setValue("view_mode", v.ViewMode)
}

func (s *Store) GetPrefs() (Prefs, error) {
	out := DefaultPrefs()
	pairs := []struct {
		key string
		b   *bool
		s   *string
		n   *int
	}{
		{key: "notify_enabled", b: &out.Enabled},
		{key: "notify_morning", b: &out.MorningReminder},
		{key: "notify_morning_at", s: &out.MorningReminderAt},
		{key: "notify_deadline", b: &out.DeadlineReminder},
		{key: "notify_lead_min", n: &out.DeadlineLeadMin},
		{key: "notify_overdue", b: &out.OverdueNotify},
	}
	for _, p := range pairs {
		v, ok, err := s.getValue(p.key)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		switch {
		case p.b != nil:
			*p.b = v == "1"
		case p.s != nil:
			*p.s = v
		case p.n != nil:
			if n, err := strconv.Atoi(v); err == nil {
				*p.n = n
			}
		}
	}
	return out, nil
}

func (s *Store) SavePrefs(p Prefs) error {
	pairs := map[string]string{
		"notify_enabled":    boolStr(p.Enabled),
		"notify_morning":    boolStr(p.MorningReminder),
		"notify_morning_at": p.MorningReminderAt,
		"notify_deadline":   boolStr(p.DeadlineReminder),
		"notify_lead_min":   strconv.Itoa(p.DeadlineLeadMin),
		"notify_overdue":    boolStr(p.OverdueNotify),
	}
	for k, v := range pairs {
		if err := s.setValue(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) getValue(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) setValue(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, key, value)
	return err
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
