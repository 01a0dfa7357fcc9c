// Package notify schedules task reminders on cancelable one-shot timers.
package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"agenda/internal/storage"
	"agenda/internal/task"
)

const (
	kindReminder = "reminder"
	kindDeadline = "deadline"
)

// Scheduler keys pending timers by task identifier and kind, so a task holds
// at most one pending reminder and one pending deadline timer. Scheduling is
// always cancel-then-schedule; there is no way to double-fire for one task.
type Scheduler struct {
	mu       sync.Mutex
	notifier Notifier
	prefs    storage.Prefs
	timers   map[string]*time.Timer
	morning  *time.Timer
	overdue  *time.Ticker
	done     chan struct{}
	seen     *SeenTable
	now      func() time.Time
}

func NewScheduler(notifier Notifier, prefs storage.Prefs, seen *SeenTable) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		prefs:    prefs,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
		seen:     seen,
		now:      time.Now,
	}
}

// Schedule arms the reminder and deadline timers for a task, replacing any
// previously pending pair. Completed, dateless and already-due tasks arm
// nothing.
func (s *Scheduler) Schedule(t task.Task) {
	s.Cancel(t.ID)
	if !s.prefs.Enabled || t.Completed {
		return
	}
	due, ok := t.DueAt()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !due.After(now) {
		return
	}

	if s.prefs.DeadlineReminder && s.prefs.DeadlineLeadMin > 0 {
		remindAt := due.Add(-time.Duration(s.prefs.DeadlineLeadMin) * time.Minute)
		if remindAt.After(now) {
			tt := t
			s.timers[key(t.ID, kindReminder)] = time.AfterFunc(remindAt.Sub(now), func() {
				s.fire(key(tt.ID, kindReminder), Notification{
					Title: fmt.Sprintf("Task due in %d minutes", s.prefs.DeadlineLeadMin),
					Body:  tt.Title,
					Tag:   "upcoming_" + tt.ID,
				})
			})
		}
	}

	tt := t
	s.timers[key(t.ID, kindDeadline)] = time.AfterFunc(due.Sub(now), func() {
		s.fire(key(tt.ID, kindDeadline), Notification{
			Title: "Task due now",
			Body:  tt.Title,
			Tag:   "deadline_" + tt.ID,
		})
	})
}

// ScheduleAll arms timers for every task in the list.
func (s *Scheduler) ScheduleAll(tasks []task.Task) {
	for _, t := range tasks {
		s.Schedule(t)
	}
}

// Cancel drops any pending timers for a task. Called on edit, delete and
// completion.
func (s *Scheduler) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []string{kindReminder, kindDeadline} {
		k := key(taskID, kind)
		if timer, ok := s.timers[k]; ok {
			timer.Stop()
			delete(s.timers, k)
		}
	}
}

// Pending reports whether the task currently holds a timer of each kind.
func (s *Scheduler) Pending(taskID string) (reminder, deadline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, reminder = s.timers[key(taskID, kindReminder)]
	_, deadline = s.timers[key(taskID, kindDeadline)]
	return reminder, deadline
}

// StartMorningReminder arms a daily summary at the configured time. fetch is
// called at firing time so the summary reflects the current list.
func (s *Scheduler) StartMorningReminder(fetch func() []task.Task) {
	if !s.prefs.Enabled || !s.prefs.MorningReminder {
		return
	}
	s.armMorning(fetch)
}

func (s *Scheduler) armMorning(fetch func() []task.Task) {
	at, err := time.ParseInLocation(task.TimeLayout, s.prefs.MorningReminderAt, time.Local)
	if err != nil {
		log.Printf("notify: bad morning reminder time %q: %v", s.prefs.MorningReminderAt, err)
		return
	}
	now := s.clock()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.Local)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.morning != nil {
		s.morning.Stop()
	}
	s.morning = time.AfterFunc(next.Sub(now), func() {
		select {
		case <-s.done:
			return
		default:
		}
		s.morningSummary(fetch())
		s.armMorning(fetch)
	})
}

func (s *Scheduler) morningSummary(tasks []task.Task) {
	today := task.Day(s.clock())
	pending := 0
	for _, t := range tasks {
		if !t.Completed && t.HasDate() && task.SameDay(t.Date, today) {
			pending++
		}
	}
	if pending == 0 {
		return
	}
	s.show(Notification{
		Title: "Good morning",
		Body:  fmt.Sprintf("You have %d task(s) for today.", pending),
		Tag:   "morning_summary",
	})
}

// StartOverdueCheck alerts for overdue tasks on the given interval, at most
// once per task per day via the seen table.
func (s *Scheduler) StartOverdueCheck(fetch func() []task.Task, interval time.Duration) {
	if !s.prefs.Enabled || !s.prefs.OverdueNotify || s.seen == nil {
		return
	}
	s.mu.Lock()
	s.overdue = time.NewTicker(interval)
	ticker := s.overdue
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.checkOverdue(fetch())
			}
		}
	}()
}

func (s *Scheduler) checkOverdue(tasks []task.Task) {
	now := s.clock()
	overdue := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if !t.IsOverdue(now) {
			continue
		}
		overdue[t.ID] = true
		if !s.seen.ShouldNotify(t.ID, now) {
			continue
		}
		s.show(Notification{
			Title: "Task overdue",
			Body:  t.Title,
			Tag:   "overdue_" + t.ID,
		})
	}
	// Drop entries for tasks that were completed, deleted or rescheduled so
	// the table holds only currently overdue tasks.
	for id := range s.seen.Entries {
		if !overdue[id] {
			s.seen.Remove(id)
		}
	}
	if err := s.seen.Save(); err != nil {
		log.Printf("notify: saving overdue table: %v", err)
	}
}

// Stop cancels every pending timer and the background checks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	for k, timer := range s.timers {
		timer.Stop()
		delete(s.timers, k)
	}
	if s.morning != nil {
		s.morning.Stop()
		s.morning = nil
	}
	if s.overdue != nil {
		s.overdue.Stop()
		s.overdue = nil
	}
}

func (s *Scheduler) fire(timerKey string, n Notification) {
	s.mu.Lock()
	delete(s.timers, timerKey)
	s.mu.Unlock()
	s.show(n)
}

func (s *Scheduler) show(n Notification) {
	if err := s.notifier.Show(n); err != nil {
		log.Printf("notify: showing %q: %v", n.Title, err)
	}
}

// SetNow overrides the clock, for tests.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Scheduler) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func key(taskID, kind string) string {
	return taskID + "/" + kind
}
