package notify

import "log"

// Notification is a user-facing alert. Tag deduplicates repeated alerts for
// the same cause.
type Notification struct {
	Title string
	Body  string
	Tag   string
}

// Notifier displays notifications. Display failures are the caller's to log;
// a missed notification is never retried.
type Notifier interface {
	Show(n Notification) error
}

// LogNotifier writes notifications to the process log. It is the default sink
// when no desktop integration is wired up.
type LogNotifier struct{}

func (LogNotifier) Show(n Notification) error {
	if n.Body != "" {
		log.Printf("notify: %s: %s", n.Title, n.Body)
	} else {
		log.Printf("notify: %s", n.Title)
	}
	return nil
}
