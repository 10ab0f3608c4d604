package ui

import (
	"time"

	"virtualcare/internal/steps"

	"github.com/charmbracelet/lipgloss"
)

// Notice is a transient message shown until it expires.
type Notice struct {
	ID      int
	Level   steps.Level
	Message string
	Expires time.Time
}

// Notices is a small queue of auto-dismissing notices, newest last.
type Notices struct {
	ttl   time.Duration
	max   int
	next  int
	items []Notice
}

// NewNotices creates a queue whose notices live for ttl. At most max are
// kept; older ones are dropped first.
func NewNotices(ttl time.Duration, max int) *Notices {
	if max < 1 {
		max = 1
	}
	return &Notices{ttl: ttl, max: max}
}

// TTL returns how long a notice stays visible.
func (n *Notices) TTL() time.Duration { return n.ttl }

// Push adds a notice and returns it.
func (n *Notices) Push(level steps.Level, msg string, now time.Time) Notice {
	n.next++
	item := Notice{ID: n.next, Level: level, Message: msg, Expires: now.Add(n.ttl)}
	n.items = append(n.items, item)
	if len(n.items) > n.max {
		n.items = n.items[len(n.items)-n.max:]
	}
	return item
}

// Dismiss removes the notice with id.
func (n *Notices) Dismiss(id int) {
	for i, it := range n.items {
		if it.ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// Expire drops notices whose time has passed and reports whether any were
// removed.
func (n *Notices) Expire(now time.Time) bool {
	kept := n.items[:0]
	for _, it := range n.items {
		if now.Before(it.Expires) {
			kept = append(kept, it)
		}
	}
	removed := len(kept) != len(n.items)
	n.items = kept
	return removed
}

// Items returns the visible notices, oldest first.
func (n *Notices) Items() []Notice {
	return append([]Notice(nil), n.items...)
}

// Len returns the number of visible notices.
func (n *Notices) Len() int { return len(n.items) }

// Render draws the notices stacked vertically.
func (n *Notices) Render(s Styles) string {
	if len(n.items) == 0 {
		return ""
	}
	rows := make([]string, 0, len(n.items))
	for _, it := range n.items {
		var label lipgloss.Style
		var icon string
		switch it.Level {
		case steps.LevelError:
			label, icon = s.Error, "✗"
		case steps.LevelWarn:
			label, icon = s.Warning, "!"
		default:
			label, icon = s.Info, "i"
		}
		rows = append(rows, s.Notice.Render(label.Render(icon)+" "+s.Body.Render(it.Message)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
