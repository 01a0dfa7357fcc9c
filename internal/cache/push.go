package cache

import (
	"encoding/json"
	"log"
	"strings"

	"agenda/internal/notify"
)

// PushAction is one button on a push notification.
type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// PushPayload is the optional JSON body of a push event. Absent fields fall
// back to fixed defaults.
type PushPayload struct {
	Title   string       `json:"title"`
	Body    string       `json:"body"`
	Icon    string       `json:"icon"`
	Badge   string       `json:"badge"`
	URL     string       `json:"url"`
	Actions []PushAction `json:"actions"`
}

func defaultPayload() PushPayload {
	return PushPayload{
		Title: "Agenda",
		Body:  "You have pending tasks.",
		Icon:  "/icons/icon-192x192.png",
		Badge: "/icons/icon-72x72.png",
		URL:   "/",
		Actions: []PushAction{
			{Action: "view", Title: "View tasks"},
			{Action: "close", Title: "Close"},
		},
	}
}

// DecodePush parses a push payload, filling absent fields with defaults.
// Empty data yields the default payload; unparseable data becomes the body
// of the default payload.
func DecodePush(raw []byte) PushPayload {
	p := defaultPayload()
	if len(raw) == 0 {
		return p
	}
	var incoming PushPayload
	if err := json.Unmarshal(raw, &incoming); err != nil {
		p.Body = strings.TrimSpace(string(raw))
		return p
	}
	if incoming.Title != "" {
		p.Title = incoming.Title
	}
	if incoming.Body != "" {
		p.Body = incoming.Body
	}
	if incoming.Icon != "" {
		p.Icon = incoming.Icon
	}
	if incoming.Badge != "" {
		p.Badge = incoming.Badge
	}
	if incoming.URL != "" {
		p.URL = incoming.URL
	}
	if len(incoming.Actions) > 0 {
		p.Actions = incoming.Actions
	}
	return p
}

// HandlePush displays a notification for a push event.
func (g *Gateway) HandlePush(raw []byte, notifier notify.Notifier) {
	p := DecodePush(raw)
	if err := notifier.Show(notify.Notification{Title: p.Title, Body: p.Body, Tag: "push"}); err != nil {
		log.Printf("cache: showing push notification: %v", err)
	}
}

// WindowOpener focuses or opens application windows for notification clicks.
type WindowOpener interface {
	// Focus brings an existing window for the URL to the front, reporting
	// whether one was found.
	Focus(url string) bool
	Open(url string) error
}

// HandleNotificationClick resolves a click on a pushed notification. A
// "close" action dismisses without navigation; otherwise an existing window
// for the URL is focused, or a new one opened.
func HandleNotificationClick(action, url string, windows WindowOpener) {
	if action == "close" {
		return
	}
	if url == "" {
		url = "/"
	}
	if windows.Focus(url) {
		return
	}
	if err := windows.Open(url); err != nil {
		log.Printf("cache: opening window for %s: %v", url, err)
	}
}
