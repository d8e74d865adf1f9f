package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leonardotrapani/tsukkomi/internal/bus"
	"github.com/leonardotrapani/tsukkomi/internal/facilitation"
	"github.com/leonardotrapani/tsukkomi/internal/results"
	"github.com/leonardotrapani/tsukkomi/internal/session"
)

const requestTimeout = 5 * time.Second

// Requester is the part of bus.Client the watch view needs.
type Requester interface {
	Do(ctx context.Context, req bus.Request) (bus.Response, error)
}

type tickMsg time.Time

type copiedMsg struct{ err error }

type responseMsg struct {
	cmd  bus.Command
	resp bus.Response
	err  error
}

type watchModel struct {
	client   Requester
	interval time.Duration
	now      func() time.Time
	copyText func(string) error

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int

	lines   []string
	summary string
	status  *session.Snapshot
	notice  string
	err     error
}

func newWatchModel(client Requester, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = time.Second
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleWarning))
	return watchModel{client: client, interval: interval, now: time.Now, copyText: clipboard.WriteAll, spinner: sp}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.request(bus.Request{Cmd: bus.CmdPoll}), m.spinner.Tick)
}

func (m watchModel) request(req bus.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := m.client.Do(ctx, req)
		return responseMsg{cmd: req.Cmd, resp: resp, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			return m, m.request(bus.Request{Cmd: bus.CmdStart})
		case "x":
			m.notice = "stopping..."
			return m, m.request(bus.Request{Cmd: bus.CmdStop})
		case "m":
			return m, m.request(bus.Request{Cmd: bus.CmdMode, Mode: string(m.nextMode())})
		case "S":
			m.notice = "generating summary..."
			return m, m.request(bus.Request{Cmd: bus.CmdSummary})
		case "c":
			if m.summary == "" {
				m.notice = "no summary yet (press S)"
				return m, nil
			}
			text, copyText := m.summary, m.copyText
			return m, func() tea.Msg { return copiedMsg{err: copyText(text)} }
		}

	case copiedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = "summary copied to clipboard"
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - lipgloss.Height(m.header()) - lipgloss.Height(m.footer())
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refresh()

	case tickMsg:
		return m, m.request(bus.Request{Cmd: bus.CmdPoll})

	case responseMsg:
		m.err = msg.err
		if msg.resp.Status != nil {
			m.status = msg.resp.Status
		}
		switch msg.cmd {
		case bus.CmdPoll:
			cmds = append(cmds, m.tick())
			if msg.err == nil {
				m.appendMessages(msg.resp.Messages)
			}
		case bus.CmdSummary:
			m.notice = ""
			if msg.err == nil {
				m.summary = msg.resp.Summary
				m.appendLines(StyleHeader.Render("── 会議要約 ──"), msg.resp.Summary, "")
			}
		default:
			m.notice = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m watchModel) nextMode() facilitation.Mode {
	if m.status != nil && m.status.Mode == facilitation.ModeAssertive {
		return facilitation.ModeGentle
	}
	return facilitation.ModeAssertive
}

func (m *watchModel) appendMessages(msgs []results.Message) {
	for _, msg := range msgs {
		m.appendLines(renderMessage(msg, m.width))
	}
}

func (m *watchModel) appendLines(lines ...string) {
	if len(lines) == 0 {
		return
	}
	m.lines = append(m.lines, lines...)
	m.refresh()
}

func (m *watchModel) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func renderMessage(msg results.Message, width int) string {
	switch msg.Kind {
	case results.KindTranscript:
		t := msg.Transcript
		return StyleMuted.Render(t.ReceivedAt.Format("[15:04:05]")) + " " + t.Text

	case results.KindInterjection:
		in := msg.Interjection
		color := personaColor(in.Persona)
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s\n", lipgloss.NewStyle().Foreground(color).Bold(true).Render(in.Persona), StyleWarning.Render(severityStars(in.Decision.Severity)))
		b.WriteString(in.Decision.Reply.Comment)
		if next := in.Decision.Reply.NextAction; next != "" {
			b.WriteString("\n" + StyleSubtle.Render("→ "+next))
		}
		card := StyleCard.BorderForeground(color)
		if width > 8 {
			card = card.Width(width - 4)
		}
		return card.Render(b.String())

	case results.KindFailure:
		return StyleError.Render("✗ " + msg.Error)
	}
	return ""
}

func (m watchModel) header() string {
	title := StyleHeader.Render("tsukkomi")
	if m.status == nil {
		return title + " " + StyleMuted.Render("connecting to daemon...")
	}
	s := m.status
	state := string(s.Status)
	if s.Status == session.Connecting || s.Status == session.Stopping {
		state = m.spinner.View() + state
	}
	parts := []string{
		title,
		statusStyle(string(s.Status)).Render(state),
		lipgloss.NewStyle().Foreground(personaColor(s.Persona)).Render(s.Persona),
		StyleMuted.Render("every " + s.Interval.String()),
	}
	if elapsed := m.elapsed(); elapsed != "" {
		parts = append(parts, StyleMuted.Render(elapsed))
	}
	return strings.Join(parts, "  ")
}

// elapsed is the meeting duration, frozen once the session ended.
func (m watchModel) elapsed() string {
	s := m.status
	if s == nil || s.StartedAt.IsZero() {
		return ""
	}
	end := m.now()
	if !s.Status.Active() && !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	return end.Sub(s.StartedAt).Truncate(time.Second).String()
}

func (m watchModel) footer() string {
	line := StyleSubtle.Render("s start • x stop • m switch persona • S summary • c copy summary • ↑/↓ scroll • q quit")
	switch {
	case m.err != nil:
		line = StyleError.Render(m.err.Error()) + "\n" + line
	case m.status != nil && m.status.Error != "":
		line = StyleError.Render(m.status.Error) + "\n" + line
	case m.notice != "":
		line = StyleWarning.Render(m.notice) + "\n" + line
	}
	return line
}

func (m watchModel) View() string {
	if !m.ready {
		return m.header() + "\n"
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}

// Watch runs the live view until the user quits. Polling stops with it.
func Watch(client Requester, interval time.Duration) error {
	_, err := tea.NewProgram(newWatchModel(client, interval), tea.WithAltScreen()).Run()
	return err
}
