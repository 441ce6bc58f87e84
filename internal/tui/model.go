// Package tui is a terminal operator console for the recorder.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/okian/bodytrack/internal/domain/types"
)

const (
	defaultPoll    = 500 * time.Millisecond
	requestTimeout = 5 * time.Second
	maxListed      = 8
)

// Recorder is the part of the recorder API the console drives.
type Recorder interface {
	Session(ctx context.Context) (types.SessionStatus, error)
	Start(ctx context.Context) (types.SessionStatus, error)
	Stop(ctx context.Context) (types.SessionStatus, error)
	Discard(ctx context.Context) (types.SessionStatus, error)
	Save(ctx context.Context, name string) (types.SaveResult, error)
	ListRecordings(ctx context.Context) ([]types.RecordingInfo, error)
}

type (
	statusMsg struct {
		status types.SessionStatus
		err    error
	}
	actionMsg statusMsg
	savedMsg struct {
		result types.SaveResult
		err    error
	}
	listMsg struct {
		recordings []types.RecordingInfo
		err        error
	}
	tickMsg time.Time
)

// Model is the bubbletea model of the console. Which keys work follows the
// controls the recorder reports for its current state.
type Model struct {
	rec        Recorder
	poll       time.Duration
	status     types.SessionStatus
	name       string
	message    string
	err        error // last failed action
	pollErr    error // last failed status poll
	recordings []types.RecordingInfo
}

// New returns a console model polling rec every poll interval.
func New(rec Recorder, poll time.Duration) Model {
	if poll <= 0 {
		poll = defaultPoll
	}
	return Model{rec: rec, poll: poll, status: types.SessionStatus{State: "unknown"}}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), m.fetchList(), m.tick())
}

func (m Model) allowed(control string) bool {
	for _, c := range m.status.Controls {
		if c == control {
			return true
		}
	}
	return false
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg)

	case statusMsg:
		m.pollErr = msg.err
		if msg.err == nil {
			m.setStatus(msg.status)
		}
		return m, nil

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.setStatus(msg.status)
		}
		return m, m.fetchStatus()

	case savedMsg:
		if msg.err != nil {
			// The take is still held; keep the name so the operator can retry.
			m.err = msg.err
			return m, m.fetchStatus()
		}
		m.err = nil
		m.name = ""
		m.message = fmt.Sprintf("saved %s (%d frames, %d rows)", msg.result.Path, msg.result.Frames, msg.result.Rows)
		return m, tea.Batch(m.fetchStatus(), m.fetchList())

	case listMsg:
		if msg.err == nil {
			m.recordings = msg.recordings
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), m.tick())
	}
	return m, nil
}

func (m *Model) setStatus(st types.SessionStatus) {
	m.status = st
	if !m.allowed("name") {
		m.name = ""
	}
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.allowed("name") {
		switch msg.Type {
		case tea.KeyEnter:
			if strings.TrimSpace(m.name) == "" {
				m.message = "type a name before saving"
				return m, nil
			}
			m.message = "saving..."
			return m, m.save(m.name)
		case tea.KeyEsc:
			m.message = "discarded"
			return m, m.press(m.rec.Discard)
		case tea.KeyBackspace:
			if r := []rune(m.name); len(r) > 0 {
				m.name = string(r[:len(r)-1])
			}
		case tea.KeySpace:
			m.name += " "
		case tea.KeyRunes:
			m.name += string(msg.Runes)
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		if m.allowed("record") {
			m.message = ""
			return m, m.press(m.rec.Start)
		}
	case "s", " ":
		if m.allowed("stop") {
			m.message = ""
			return m, m.press(m.rec.Stop)
		}
	case "l":
		return m, m.fetchList()
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("Body Tracking Recorder\n")
	b.WriteString("======================\n\n")
	fmt.Fprintf(&b, "State: %s   frames %d   rows %d\n\n", m.status.State, m.status.Frames, m.status.Rows)

	switch {
	case m.allowed("record"):
		b.WriteString("[r] Record")
	case m.allowed("stop"):
		b.WriteString("[s] Stop")
	case m.allowed("name"):
		fmt.Fprintf(&b, "Name: %s_\n", m.name)
		b.WriteString("[enter] Save   [esc] Discard")
	}
	b.WriteString("   [l] Refresh list   [q] Quit\n")

	if m.message != "" {
		fmt.Fprintf(&b, "\n%s\n", m.message)
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", m.err)
	}
	if m.pollErr != nil {
		fmt.Fprintf(&b, "\nrecorder unreachable: %v\n", m.pollErr)
	}

	if len(m.recordings) > 0 {
		b.WriteString("\nRecordings:\n")
		for i, r := range m.recordings {
			if i == maxListed {
				fmt.Fprintf(&b, "  ... %d more\n", len(m.recordings)-maxListed)
				break
			}
			fmt.Fprintf(&b, "  %-24s %8d bytes  %s\n", r.Name, r.Size, r.Modified.Format(time.DateTime))
		}
	}
	return b.String()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchStatus() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := rec.Session(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) fetchList() tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		list, err := rec.ListRecordings(ctx)
		return listMsg{recordings: list, err: err}
	}
}

func (m Model) press(fn func(context.Context) (types.SessionStatus, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		st, err := fn(ctx)
		return actionMsg{status: st, err: err}
	}
}

func (m Model) save(name string) tea.Cmd {
	rec := m.rec
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := rec.Save(ctx, name)
		return savedMsg{result: res, err: err}
	}
}
