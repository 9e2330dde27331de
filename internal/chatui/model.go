package chatui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
)

// Status texts shown above the history.
const (
	statusLost         = "Connection lost. Reconnecting..."
	statusGaveUp       = "Disconnected. Press ctrl+r to reconnect."
	statusReconnecting = "Reconnecting..."
)

const (
	placeholderOpen    = "Type a message... (enter to send, ctrl+c to quit)"
	placeholderWaiting = "Connecting..."
)

// Session is the part of connection.Manager the UI drives.
type Session interface {
	Connect(identity connection.Identity) error
	Send(payload []byte) error
	State() connection.State
}

// Options configures a Model.
type Options struct {
	StatusTimeout time.Duration // how long transient statuses stay up
	HistoryLimit  int           // oldest entries beyond this are dropped
	Logger        *slog.Logger
}

type statusFadeMsg struct{ seq int }

// Model is the chat screen.
type Model struct {
	session Session
	user    model.User
	logger  *slog.Logger
	styles  styles

	viewport viewport.Model
	input    textinput.Model
	ready    bool
	width    int
	height   int

	entries      []model.Entry
	historyLimit int

	state         connection.State
	status        string
	statusSeq     int
	statusTimeout time.Duration
}

// New creates the chat screen for user, driving session.
func New(session Session, user model.User, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = 5 * time.Second
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 500
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1000

	m := Model{
		session:       session,
		user:          user,
		logger:        opts.Logger,
		styles:        defaultStyles(),
		input:         input,
		historyLimit:  opts.HistoryLimit,
		statusTimeout: opts.StatusTimeout,
	}
	m.applyState(session.State())
	return m
}

// Init implements tea.Model. The session may have changed state between
// New and the program starting, before any notification could reach
// the program, so the state is read again here.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.syncState)
}

func (m Model) syncState() tea.Msg {
	return stateMsg{state: m.session.State()}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			return m, m.reconnect()
		case "enter":
			return m, m.submit()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if !m.inputEnabled() {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case inboundMsg:
		m.appendEntry(msg.entry)
		return m, nil

	case stateMsg:
		return m, m.applyState(msg.state)

	case openMsg:
		m.status = ""
		m.statusSeq++
		return m, nil

	case connErrorMsg:
		return m, m.flash(msg.err.Error())

	case closedMsg:
		m.setStatus(statusLost)
		return m, nil

	case giveUpMsg:
		m.logger.Info("reconnect budget exhausted", "attempts", msg.attempts)
		m.setStatus(statusGaveUp)
		return m, nil

	case statusFadeMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.styles.status.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.styles.inputBox.Width(max(m.width-2, 10)).Render(m.input.View()))
	return b.String()
}

func (m Model) headerView() string {
	conn := m.styles.disconnected.Render("Disconnected")
	if m.state == connection.StateOpen {
		conn = m.styles.connected.Render("Connected")
	}
	left := m.styles.title.Render("Chat") + "  " + m.styles.user.Render("You: "+m.user.Name)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(conn)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + conn
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	// header, status, input box (3 rows with border)
	const chrome = 5
	vpHeight := max(height-chrome, 1)
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = max(width-6, 10)
	m.refresh()
}

func (m Model) inputEnabled() bool {
	return m.state == connection.StateOpen
}

// applyState enables the compose box only while the connection is open.
func (m *Model) applyState(s connection.State) tea.Cmd {
	m.state = s
	if m.inputEnabled() {
		m.input.Placeholder = placeholderOpen
		return m.input.Focus()
	}
	m.input.Placeholder = placeholderWaiting
	m.input.Blur()
	return nil
}

func (m *Model) submit() tea.Cmd {
	if !m.inputEnabled() {
		return nil
	}
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	msg := model.ChatMessage{Text: text, User: m.user}
	payload, err := msg.Encode()
	if err != nil {
		return m.flash(fmt.Sprintf("encode message: %v", err))
	}
	if err := m.session.Send(payload); err != nil {
		m.logger.Warn("send failed", "error", err)
		return m.flash(fmt.Sprintf("Send failed: %v", err))
	}
	m.input.Reset()
	// The server relays to everyone but the sender.
	m.appendEntry(model.Entry{Message: msg, ReceivedAt: time.Now()})
	return nil
}

func (m *Model) reconnect() tea.Cmd {
	if m.state == connection.StateOpen {
		return nil
	}
	if err := m.session.Connect(m.user); err != nil {
		return m.flash(fmt.Sprintf("Reconnect failed: %v", err))
	}
	m.setStatus(statusReconnecting)
	return nil
}

// setStatus shows text until something replaces it.
func (m *Model) setStatus(text string) {
	m.status = text
	m.statusSeq++
}

// flash shows text and clears it after the status timeout, unless a
// newer status has replaced it by then.
func (m *Model) flash(text string) tea.Cmd {
	m.setStatus(text)
	seq := m.statusSeq
	return tea.Tick(m.statusTimeout, func(time.Time) tea.Msg {
		return statusFadeMsg{seq: seq}
	})
}

func (m *Model) appendEntry(e model.Entry) {
	e.Own = e.Message.User.ID != "" && e.Message.User.ID == m.user.ID
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.historyLimit; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
	}
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		lines = append(lines, m.renderEntry(e))
	}
	return strings.Join(lines, "\n")
}

// renderEntry draws the sender's own messages with avatar, name and time;
// everyone else's as bare text.
func (m Model) renderEntry(e model.Entry) string {
	text := m.styles.text.Render(e.Message.Text)
	if !e.Own {
		return m.styles.other.Render(text)
	}
	avatar := m.styles.avatar(e.Message.User.ID).Render(e.Message.User.Initial())
	header := m.styles.name.Render(e.Message.User.Name) + " " +
		m.styles.timestamp.Render(e.ReceivedAt.Format("15:04"))
	return lipgloss.JoinHorizontal(lipgloss.Top, avatar, " ", header+"\n"+text)
}

// Status returns the status line text. Empty when nothing is shown.
func (m Model) Status() string {
	return m.status
}

// Entries returns the history.
func (m Model) Entries() []model.Entry {
	return m.entries
}
