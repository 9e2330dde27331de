package chatui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/model"
)

// Plain is a line-mode front end: each input line is sent as a chat
// message and inbound messages are printed one per line.
type Plain struct {
	session Session
	user    model.User
	logger  *slog.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewPlain creates a line-mode front end writing to out.
func NewPlain(session Session, user model.User, out io.Writer, logger *slog.Logger) *Plain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plain{session: session, user: user, out: out, logger: logger}
}

// SetSession sets the session lines are sent to. The manager needs
// the observer before it exists, so the session is wired afterwards.
func (p *Plain) SetSession(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
}

func (p *Plain) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Observer returns the callbacks to pass to connection.NewManager.
func (p *Plain) Observer() connection.Observer {
	return connection.Observer{
		OnMessage: func(payload []byte) {
			msg, err := model.DecodeChatMessage(payload)
			if err != nil {
				p.logger.Warn("dropping malformed message", "error", err, "size", len(payload))
				return
			}
			name := msg.User.Name
			if name == "" {
				name = "?"
			}
			p.printf("[%s] %s: %s\n", time.Now().Format("15:04"), name, msg.Text)
		},
		OnError: func(err error) {
			p.printf("! %v\n", err)
		},
		OnClose: func() {
			p.printf("! %s\n", statusLost)
		},
		OnOpen: func() {
			p.printf("* connected as %s\n", p.user.Name)
		},
		OnGiveUp: func(attempts int) {
			p.printf("! gave up after %d attempts, type /reconnect to try again\n", attempts)
		},
	}
}

// Run reads lines from in until EOF or ctx is done. "/reconnect"
// starts a new connection attempt and "/quit" returns.
func (p *Plain) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if done := p.handleLine(line); done {
				return nil
			}
		}
	}
}

func (p *Plain) handleLine(line string) bool {
	text := strings.TrimSpace(line)
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	switch text {
	case "":
		return false
	case "/quit":
		return true
	case "/reconnect":
		if err := session.Connect(p.user); err != nil {
			p.printf("! reconnect: %v\n", err)
		}
		return false
	}

	payload, err := model.ChatMessage{Text: text, User: p.user}.Encode()
	if err != nil {
		p.printf("! %v\n", err)
		return false
	}
	if err := session.Send(payload); err != nil {
		if errors.Is(err, connection.ErrNotConnected) {
			p.printf("! not connected, message not sent\n")
		} else {
			p.printf("! send: %v\n", err)
		}
	}
	return false
}
