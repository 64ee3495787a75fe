package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/argilla-geo/strata/progress"
)

// chunkMsg reports one decoded chunk's decompressed byte count.
type chunkMsg int

// doneMsg ends the fetch view.
type doneMsg struct {
	location string
	err      error
}

// FetchModel is a live progress view for a streaming fetch.
type FetchModel struct {
	label   string
	spinner spinner.Model

	chunks   int
	bytes    int64
	done     bool
	err      error
	location string
}

// NewFetchModel creates a fetch progress model.
func NewFetchModel(label string) FetchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(primaryColor)
	return FetchModel{label: label, spinner: s}
}

// Init implements tea.Model.
func (m FetchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chunkMsg:
		m.chunks++
		m.bytes += int64(msg)
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		m.location = msg.location
		return m, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.done = true
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m FetchModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Fetching " + m.label))
	b.WriteString("\n")

	status := fmt.Sprintf("%d chunks, %s decoded", m.chunks, progress.FormatBytes(m.bytes))
	if m.done {
		if m.err != nil {
			b.WriteString(ErrorStyle.Render("✗ " + m.err.Error()))
		} else {
			b.WriteString(SuccessStyle.Render("✓ " + status))
			if m.location != "" {
				b.WriteString("\n" + ValueStyle.Render(m.location))
			}
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.spinner.View() + status + "\n")
	b.WriteString(HelpStyle.Render("Press q to abort"))
	b.WriteString("\n")
	return b.String()
}

// RunFetch drives a streaming fetch under a live progress view. The fetch
// runs concurrently; report is safe to call from the fetch goroutine and
// feeds per-chunk byte counts into the view. RunFetch returns the fetch
// error, if any.
func RunFetch(label string, fetch func(report func(bytesProcessed int)) (string, error)) error {
	p := tea.NewProgram(NewFetchModel(label))

	go func() {
		location, err := fetch(func(n int) {
			p.Send(chunkMsg(n))
		})
		p.Send(doneMsg{location: location, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(FetchModel); ok {
		return m.err
	}
	return nil
}
