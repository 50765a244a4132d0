package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muurk/mikettle/internal/kettle"
)

// DefaultWatchInterval is how often the watch screen polls
const DefaultWatchInterval = 30 * time.Second

// FetchFunc reads the kettle status. fresh bypasses the client cache.
type FetchFunc func(fresh bool) (kettle.Status, error)

// statusMsg carries the result of one fetch
type statusMsg struct {
	status kettle.Status
	err    error
	at     time.Time
}

// pollMsg fires when the poll interval elapses. gen discards ticks scheduled
// before a manual refresh.
type pollMsg struct {
	gen int
}

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Quit}}
}

// WatchModel polls a kettle and renders its status until the user quits
type WatchModel struct {
	Title    string
	Interval time.Duration

	fetch FetchFunc

	Status   *kettle.Status
	Err      error
	LastRead time.Time
	Loading  bool

	gen      int
	width    int
	quitting bool

	Spinner spinner.Model
	Help    help.Model
	Keys    watchKeyMap
}

// NewWatchModel creates a watch screen polling fetch every interval
func NewWatchModel(title string, fetch FetchFunc, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return WatchModel{
		Title:    title,
		Interval: interval,
		fetch:    fetch,
		Loading:  true,
		width:    GetTerminalWidth(),
		Spinner:  s,
		Help:     help.New(),
		Keys: watchKeyMap{
			Refresh: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "refresh now"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// fetchCmd runs the blocking read off the UI goroutine
func (m WatchModel) fetchCmd(fresh bool) tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		status, err := fetch(fresh)
		return statusMsg{status: status, err: err, at: time.Now()}
	}
}

func (m WatchModel) pollCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.Interval, func(time.Time) tea.Msg {
		return pollMsg{gen: gen}
	})
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.fetchCmd(false))
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Refresh):
			if m.Loading {
				return m, nil
			}
			m.Loading = true
			return m, m.fetchCmd(true)
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case statusMsg:
		m.Loading = false
		m.Err = msg.err
		if msg.err == nil {
			status := msg.status
			m.Status = &status
			m.LastRead = msg.at
		}
		m.gen++
		return m, m.pollCmd()

	case pollMsg:
		if msg.gen != m.gen || m.Loading {
			return m, nil
		}
		m.Loading = true
		return m, m.fetchCmd(false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if m.Status != nil {
		b.WriteString(RenderStatus(m.Title, *m.Status, m.LastRead, m.width))
	} else {
		b.WriteString(RenderHeader(m.Title, "waiting for first reading", nil, m.width))
	}
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(ErrorMessageStyle.PaddingLeft(2).Render(FailureMarker + " " + kettle.ShortErrorMessage(m.Err)))
		b.WriteString("\n")
	}

	if m.Loading {
		b.WriteString("  " + m.Spinner.View() + " Reading kettle...")
	} else {
		b.WriteString(FooterStyle.Render("Next poll in " + m.Interval.String()))
	}
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	b.WriteString("\n")

	return b.String()
}

// RunWatch runs the watch screen until the user quits
func RunWatch(title string, fetch FetchFunc, interval time.Duration) error {
	p := tea.NewProgram(NewWatchModel(title, fetch, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
