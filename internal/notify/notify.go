// Package notify carries the short user-facing messages (toasts) produced by
// mint attempts and wallet actions.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultCapacity is how many notifications a Feed keeps
const DefaultCapacity = 50

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a title with an optional description
type Notification struct {
	Level       Level     `json:"level"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}

func Success(title, description string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Description: description}
}

func Error(title, description string) Notification {
	return Notification{Level: LevelError, Title: title, Description: description}
}

func Info(title, description string) Notification {
	return Notification{Level: LevelInfo, Title: title, Description: description}
}

// Notifier displays notifications
type Notifier interface {
	Notify(n Notification)
}

// Feed keeps the most recent notifications in a ring buffer and logs each one
type Feed struct {
	mu    sync.RWMutex
	items []Notification
	next  int
	full  bool
	now   func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{
		items: make([]Notification, capacity),
		now:   time.Now,
	}
}

func (f *Feed) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = f.now()
	}

	f.mu.Lock()
	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
	f.mu.Unlock()

	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "Notification", "level", n.Level, "title", n.Title, "description", n.Description)
}

// Recent returns up to limit notifications, newest first. limit <= 0 returns all.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := f.next
	if f.full {
		size = len(f.items)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// WriterNotifier prints notifications as lines, for the CLI
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if notification.Description == "" {
		fmt.Fprintf(n.w, "[%s] %s\n", notification.Level, notification.Title)
		return
	}
	fmt.Fprintf(n.w, "[%s] %s: %s\n", notification.Level, notification.Title, notification.Description)
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
