package chatui

import (
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
)

// Messages delivered to Model by the Bridge.
type (
	inboundMsg   struct{ entry model.Entry }
	connErrorMsg struct{ err error }
	closedMsg    struct{}
	openMsg      struct{}
	giveUpMsg    struct{ attempts int }
	stateMsg     struct{ state connection.State }
)

// Sender accepts bubbletea messages. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge adapts manager callbacks into bubbletea messages. Callbacks
// arriving before Attach are dropped.
//
// Program.Send blocks until Update picks the message up, so callbacks
// are delivered in order. Update must never wait on the manager.
type Bridge struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	target Sender
}

// NewBridge creates a Bridge. A nil logger uses slog.Default().
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{logger: logger, now: time.Now}
}

// Attach sets the destination for subsequent callbacks.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = s
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.RLock()
	target := b.target
	b.mu.RUnlock()
	if target == nil {
		return
	}
	target.Send(msg)
}

// Observer returns the callbacks to pass to connection.NewManager.
func (b *Bridge) Observer() connection.Observer {
	return connection.Observer{
		OnMessage: b.onMessage,
		OnError: func(err error) {
			b.post(connErrorMsg{err: err})
		},
		OnClose: func() {
			b.post(closedMsg{})
		},
		OnOpen: func() {
			b.post(openMsg{})
		},
		OnGiveUp: func(attempts int) {
			b.post(giveUpMsg{attempts: attempts})
		},
		OnStateChange: func(_, to connection.State) {
			b.post(stateMsg{state: to})
		},
	}
}

// onMessage decodes a chat payload. Malformed frames stop here.
func (b *Bridge) onMessage(payload []byte) {
	msg, err := model.DecodeChatMessage(payload)
	if err != nil {
		b.logger.Warn("dropping malformed message", "error", err, "size", len(payload))
		return
	}
	b.post(inboundMsg{entry: model.Entry{Message: msg, ReceivedAt: b.now()}})
}
