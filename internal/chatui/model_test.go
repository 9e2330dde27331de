package chatui

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
)

type fakeSession struct {
	state    connection.State
	sent     [][]byte
	connects []model.User
	sendErr  error
}

func (f *fakeSession) Connect(identity connection.Identity) error {
	f.connects = append(f.connects, identity)
	return nil
}

func (f *fakeSession) Send(payload []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.state != connection.StateOpen {
		return connection.ErrNotConnected
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSession) State() connection.State { return f.state }

var me = model.User{ID: "u-1", Name: "User1"}

func newTestModel(t *testing.T, session *fakeSession) Model {
	t.Helper()
	m := New(session, me, Options{StatusTimeout: time.Second})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestModel_SendWhenOpen(t *testing.T) {
	session := &fakeSession{state: connection.StateOpen}
	m := newTestModel(t, session)

	m = typeText(t, m, "hello there")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(session.sent) != 1 {
		t.Fatalf("sent %d payloads, want 1", len(session.sent))
	}
	var got model.ChatMessage
	if err := json.Unmarshal(session.sent[0], &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Text != "hello there" || got.User != me {
		t.Errorf("payload = %+v, want text %q from %+v", got, "hello there", me)
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q, want cleared after send", m.input.Value())
	}
	entries := m.Entries()
	if len(entries) != 1 || !entries[0].Own || entries[0].Message.Text != "hello there" {
		t.Errorf("entries = %+v, want the sent message shown as own", entries)
	}
}

func TestModel_InputDisabledWhileNotOpen(t *testing.T) {
	session := &fakeSession{state: connection.StateConnecting}
	m := newTestModel(t, session)

	m = typeText(t, m, "early")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(session.sent) != 0 {
		t.Errorf("sent %d payloads while connecting, want 0", len(session.sent))
	}
	if m.input.Value() != "" {
		t.Errorf("input accepted text while disabled: %q", m.input.Value())
	}
	if m.input.Placeholder != placeholderWaiting {
		t.Errorf("placeholder = %q, want %q", m.input.Placeholder, placeholderWaiting)
	}

	session.state = connection.StateOpen
	m, _ = update(t, m, stateMsg{state: connection.StateOpen})
	m = typeText(t, m, "now")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(session.sent) != 1 {
		t.Errorf("sent %d payloads after open, want 1", len(session.sent))
	}
}

func TestModel_InitPicksUpStateChangedBeforeStart(t *testing.T) {
	session := &fakeSession{state: connection.StateConnecting}
	m := newTestModel(t, session)

	// The session opens before the program is running, so the
	// notification for it never reaches the model.
	session.state = connection.StateOpen

	batch, ok := m.Init()().(tea.BatchMsg)
	if !ok {
		t.Fatal("Init() did not return a batch")
	}
	var synced tea.Msg
	for _, cmd := range batch {
		if cmd == nil {
			continue
		}
		if msg, ok := cmd().(stateMsg); ok {
			synced = msg
		}
	}
	if synced == nil {
		t.Fatal("Init() did not re-read the session state")
	}

	m, _ = update(t, m, synced)
	if !m.inputEnabled() {
		t.Error("input still disabled after Init synced an open session")
	}
	if m.input.Placeholder != placeholderOpen {
		t.Errorf("placeholder = %q, want %q", m.input.Placeholder, placeholderOpen)
	}
}

func TestModel_BlankInputIgnored(t *testing.T) {
	session := &fakeSession{state: connection.StateOpen}
	m := newTestModel(t, session)

	m = typeText(t, m, "   ")
	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(session.sent) != 0 {
		t.Errorf("sent %d payloads for blank input, want 0", len(session.sent))
	}
}

func TestModel_SendFailureFlashes(t *testing.T) {
	session := &fakeSession{state: connection.StateOpen, sendErr: connection.ErrRateLimited}
	m := newTestModel(t, session)

	m = typeText(t, m, "spam")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.Status(), "rate limit") {
		t.Errorf("status = %q, want rate limit notice", m.Status())
	}
	if cmd == nil {
		t.Error("expected a fade command")
	}
	if m.input.Value() != "spam" {
		t.Errorf("input = %q, want text kept after failed send", m.input.Value())
	}
}

func TestModel_ErrorStatusFades(t *testing.T) {
	m := newTestModel(t, &fakeSession{state: connection.StateOpen})

	m, cmd := update(t, m, connErrorMsg{err: errors.New("dial failed")})
	if m.Status() != "dial failed" {
		t.Fatalf("status = %q, want %q", m.Status(), "dial failed")
	}
	if cmd == nil {
		t.Fatal("expected a fade command")
	}

	m, _ = update(t, m, statusFadeMsg{seq: m.statusSeq})
	if m.Status() != "" {
		t.Errorf("status = %q, want cleared", m.Status())
	}
}

func TestModel_StaleFadeKeepsNewerStatus(t *testing.T) {
	m := newTestModel(t, &fakeSession{state: connection.StateOpen})

	m, _ = update(t, m, connErrorMsg{err: errors.New("boom")})
	stale := m.statusSeq
	m, _ = update(t, m, closedMsg{})
	m, _ = update(t, m, statusFadeMsg{seq: stale})

	if m.Status() != statusLost {
		t.Errorf("status = %q, want %q", m.Status(), statusLost)
	}
}

func TestModel_OpenClearsStatus(t *testing.T) {
	m := newTestModel(t, &fakeSession{state: connection.StateClosed})

	m, _ = update(t, m, closedMsg{})
	m, _ = update(t, m, openMsg{})
	if m.Status() != "" {
		t.Errorf("status = %q, want cleared on open", m.Status())
	}
}

func TestModel_GiveUpAndReconnect(t *testing.T) {
	session := &fakeSession{state: connection.StateClosed}
	m := newTestModel(t, session)

	m, _ = update(t, m, giveUpMsg{attempts: 5})
	if m.Status() != statusGaveUp {
		t.Errorf("status = %q, want %q", m.Status(), statusGaveUp)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if len(session.connects) != 1 || session.connects[0] != me {
		t.Errorf("connects = %v, want one for %v", session.connects, me)
	}
	if m.Status() != statusReconnecting {
		t.Errorf("status = %q, want %q", m.Status(), statusReconnecting)
	}
}

func TestModel_ReconnectIgnoredWhenOpen(t *testing.T) {
	session := &fakeSession{state: connection.StateOpen}
	m := newTestModel(t, session)

	update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if len(session.connects) != 0 {
		t.Errorf("connects = %d, want 0 while open", len(session.connects))
	}
}

func TestModel_History(t *testing.T) {
	m := newTestModel(t, &fakeSession{state: connection.StateOpen})
	at := time.Date(2026, 3, 1, 9, 5, 0, 0, time.Local)

	m, _ = update(t, m, inboundMsg{entry: model.Entry{
		Message:    model.ChatMessage{Text: "from me", User: me},
		ReceivedAt: at,
	}})
	m, _ = update(t, m, inboundMsg{entry: model.Entry{
		Message:    model.ChatMessage{Text: "from them", User: model.User{ID: "u-2", Name: "User2"}},
		ReceivedAt: at,
	}})

	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if !entries[0].Own || entries[1].Own {
		t.Errorf("own flags = %v/%v, want true/false", entries[0].Own, entries[1].Own)
	}

	own := m.renderEntry(entries[0])
	for _, want := range []string{"U", "User1", "09:05", "from me"} {
		if !strings.Contains(own, want) {
			t.Errorf("own entry %q missing %q", own, want)
		}
	}
	other := m.renderEntry(entries[1])
	if strings.Contains(other, "User2") {
		t.Errorf("other entry %q should show text only", other)
	}

	view := m.View()
	if !strings.Contains(view, "from them") || !strings.Contains(view, "Connected") {
		t.Errorf("view missing content:\n%s", view)
	}
}

func TestModel_HistoryLimit(t *testing.T) {
	session := &fakeSession{state: connection.StateOpen}
	m := New(session, me, Options{HistoryLimit: 3})

	for i := 0; i < 5; i++ {
		m, _ = update(t, m, inboundMsg{entry: model.Entry{
			Message: model.ChatMessage{Text: string(rune('a' + i))},
		}})
	}

	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Message.Text != "c" || entries[2].Message.Text != "e" {
		t.Errorf("entries = %v, want c..e", entries)
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &fakeSession{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, isQuit := cmd().(tea.QuitMsg); !isQuit {
		t.Errorf("expected QuitMsg, got %T", cmd())
	}
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(&fakeSession{}, me, Options{})
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want placeholder", got)
	}
}

func TestAvatarColor(t *testing.T) {
	if AvatarColor("abc") != AvatarColor("abc") {
		t.Error("AvatarColor is not deterministic")
	}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[string(AvatarColor(string(rune('a'+i%26))+string(rune('0'+i%10))))] = true
	}
	if len(seen) < 2 {
		t.Errorf("AvatarColor used %d colors, want a spread", len(seen))
	}
}
