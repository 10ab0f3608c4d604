package ui

import (
	"strings"
	"testing"
	"time"

	"virtualcare/internal/steps"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("INTAKE_DARK_MODE", "1")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme when INTAKE_DARK_MODE=1")
	}

	t.Setenv("INTAKE_DARK_MODE", "")
	if DetectTheme().IsDark {
		t.Fatalf("expected light theme when INTAKE_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black background")
	}
}

func TestThemeFor(t *testing.T) {
	if !ThemeFor("dark").IsDark {
		t.Fatalf("dark should be dark")
	}
	if ThemeFor("Light").IsDark {
		t.Fatalf("light should be light")
	}
}

func TestNoticesExpire(t *testing.T) {
	now := time.Now()
	n := NewNotices(5*time.Second, 3)

	first := n.Push(steps.LevelWarn, "Oops, you forgot to answer!", now)
	n.Push(steps.LevelError, "File size must be less than 10MB.", now.Add(2*time.Second))

	if n.Expire(now.Add(4 * time.Second)) {
		t.Fatalf("nothing should expire before the ttl")
	}
	if !n.Expire(now.Add(5 * time.Second)) {
		t.Fatalf("first notice should expire at its ttl")
	}
	items := n.Items()
	if len(items) != 1 || items[0].ID == first.ID {
		t.Fatalf("unexpected notices after expiry: %+v", items)
	}
}

func TestNoticesCapAndDismiss(t *testing.T) {
	now := time.Now()
	n := NewNotices(time.Second, 2)
	a := n.Push(steps.LevelInfo, "a", now)
	b := n.Push(steps.LevelInfo, "b", now)
	c := n.Push(steps.LevelInfo, "c", now)

	if n.Len() != 2 || n.Items()[0].ID != b.ID {
		t.Fatalf("oldest notice should be dropped, got %+v", n.Items())
	}
	n.Dismiss(a.ID) // already gone
	n.Dismiss(c.ID)
	if n.Len() != 1 {
		t.Fatalf("expected one notice left, got %d", n.Len())
	}

	out := n.Render(NewStyles(LightTheme()))
	if !strings.Contains(out, "b") {
		t.Fatalf("render should contain the remaining notice: %q", out)
	}
}
