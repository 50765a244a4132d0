package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/mikettle/internal/kettle"
)

func testStatus(t *testing.T) kettle.Status {
	t.Helper()
	s, err := kettle.DecodeStatus([]byte{1, 1, 0, 0, 75, 60, 1, 0, 0, 0, 34})
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	return s
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModel_StatusAndRefresh(t *testing.T) {
	var calls []bool
	status := testStatus(t)
	fetch := func(fresh bool) (kettle.Status, error) {
		calls = append(calls, fresh)
		return status, nil
	}

	m := NewWatchModel("kitchen", fetch, time.Minute)
	if !m.Loading {
		t.Fatal("Loading = false before first reading")
	}

	// Refresh is ignored while a read is in flight
	next, cmd := m.Update(keyMsg("r"))
	if cmd != nil {
		t.Error("refresh while loading returned a command")
	}
	m = next.(WatchModel)

	next, cmd = m.Update(statusMsg{status: status, at: time.Now()})
	m = next.(WatchModel)
	if m.Loading {
		t.Error("Loading = true after reading")
	}
	if m.Status == nil || m.Status.CurrentTemperature != 60 {
		t.Fatalf("Status = %v", m.Status)
	}
	if cmd == nil {
		t.Error("no poll scheduled after reading")
	}

	next, cmd = m.Update(keyMsg("r"))
	m = next.(WatchModel)
	if !m.Loading || cmd == nil {
		t.Fatalf("refresh: Loading = %v, cmd = %v", m.Loading, cmd)
	}
	msg, ok := cmd().(statusMsg)
	if !ok {
		t.Fatalf("refresh command returned %T", cmd())
	}
	if len(calls) != 1 || !calls[0] {
		t.Errorf("fetch calls = %v, want [true]", calls)
	}
	if msg.err != nil {
		t.Errorf("msg.err = %v", msg.err)
	}
}

func TestWatchModel_StalePollIgnored(t *testing.T) {
	m := NewWatchModel("kitchen", func(bool) (kettle.Status, error) { return kettle.Status{}, nil }, time.Minute)

	next, _ := m.Update(statusMsg{at: time.Now()})
	m = next.(WatchModel)
	gen := m.gen

	next, cmd := m.Update(pollMsg{gen: gen - 1})
	m = next.(WatchModel)
	if cmd != nil || m.Loading {
		t.Error("stale poll started a read")
	}

	next, cmd = m.Update(pollMsg{gen: gen})
	m = next.(WatchModel)
	if cmd == nil || !m.Loading {
		t.Error("current poll did not start a read")
	}
}

func TestWatchModel_ErrorKeepsLastReading(t *testing.T) {
	status := testStatus(t)
	m := NewWatchModel("kitchen", nil, 0)
	if m.Interval != DefaultWatchInterval {
		t.Errorf("Interval = %v, want %v", m.Interval, DefaultWatchInterval)
	}

	next, _ := m.Update(statusMsg{status: status, at: time.Now()})
	m = next.(WatchModel)
	next, _ = m.Update(statusMsg{err: kettle.NewNoDataError("AA:BB:CC:DD:EE:FF")})
	m = next.(WatchModel)

	if m.Status == nil {
		t.Error("Status cleared by failed read")
	}
	if !kettle.IsNoData(m.Err) {
		t.Errorf("Err = %v, want NoData", m.Err)
	}
	if view := m.View(); !strings.Contains(view, "No data from kettle") {
		t.Errorf("View() missing error:\n%s", view)
	}
}

func TestWatchModel_Quit(t *testing.T) {
	m := NewWatchModel("kitchen", nil, time.Minute)
	next, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("quit command returned %T", cmd())
	}
	if view := next.(WatchModel).View(); view != "" {
		t.Errorf("View() after quit = %q", view)
	}
}

func TestRenderStatus(t *testing.T) {
	status := testStatus(t)
	out := RenderStatus("kitchen", status, time.Now(), 80)
	for _, want := range []string{"KITCHEN", "Action:", "heating", "Current temperature:", "60°C", "34 (17.0 h)"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderStatus() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderStatusPlain(t *testing.T) {
	out := RenderStatusPlain(testStatus(t))
	for _, want := range []string{"action: heating\n", "set temperature: 75\n", "extended warm up: true\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderStatusPlain() missing %q:\n%s", want, out)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"yes", true},
		{"no\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out strings.Builder
		got := Confirm(strings.NewReader(tt.input), &out, "Remove kitchen", []string{"The token is deleted"}, "yes")
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Remove kitchen") {
			t.Errorf("Confirm(%q) output missing title", tt.input)
		}
	}
}

func TestRenderErrorBox(t *testing.T) {
	out := RenderErrorBox("Status", errors.New("boom"), []string{"Check power"}, 70)
	for _, want := range []string{"FAILED", "Error: boom", "Check power"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderErrorBox() missing %q:\n%s", want, out)
		}
	}
}
