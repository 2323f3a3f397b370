package tui

import (
	"testing"

	"tasklist/app"
)

func TestPaneWidthsPreferNarrowLeftPanel(t *testing.T) {
	svc := app.New(app.NewLocalBackend(), app.Options{})
	m := NewModel(Options{Service: svc})
	m.width = 120

	viewW := m.viewportWidth()
	left, right := m.paneWidths(viewW, 1)
	if left >= right {
		t.Fatalf("expected left panel to be narrower than right (left=%d right=%d)", left, right)
	}
	if left+right+1 != viewW {
		t.Fatalf("expected pane widths to fill available width=%d, got left=%d right=%d", viewW, left, right)
	}
}

func TestPaneWidthsSmallTerminalStillValid(t *testing.T) {
	svc := app.New(app.NewLocalBackend(), app.Options{})
	m := NewModel(Options{Service: svc})
	m.width = 48

	viewW := m.viewportWidth()
	left, right := m.paneWidths(viewW, 1)
	if left < 10 || right < 12 {
		t.Fatalf("expected minimum usable pane widths, got left=%d right=%d", left, right)
	}
	if left+right+1 > viewW {
		t.Fatalf("expected panes not to exceed viewport width=%d, got left=%d right=%d", viewW, left, right)
	}
}

func TestFooterTruncatesLongStatus(t *testing.T) {
	m := NewModel(Options{})
	m.width = 40
	line := m.renderFooter("uma mensagem de status muito longa que não cabe na linha", mutedStyle(), "? atalhos")
	if line == "" {
		t.Fatalf("expected footer")
	}
	if got := truncateRunes("abcdef", 4); got != "abc…" {
		t.Fatalf("truncateRunes = %q", got)
	}
}
