package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyText is returned when decoding a chat message without text.
var ErrEmptyText = errors.New("chat message has no text")

// User is the session identity announced on every new connection.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewUser creates an identity with a random UUID. An empty name is
// replaced by RandomName().
func NewUser(name string) User {
	name = strings.TrimSpace(name)
	if name == "" {
		name = RandomName()
	}
	return User{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// RandomName returns a display name of the form "User123".
func RandomName() string {
	return fmt.Sprintf("User%d", rand.Intn(1000))
}

// Valid reports whether both fields are set.
func (u User) Valid() bool {
	return u.ID != "" && u.Name != ""
}

// Initial returns the upper-cased first rune of the name, or "?".
func (u User) Initial() string {
	for _, r := range u.Name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Encode serializes the identity frame.
func (u User) Encode() ([]byte, error) {
	return json.Marshal(u)
}

// ChatMessage is a user-originated chat line.
type ChatMessage struct {
	Text string `json:"text"`
	User User   `json:"user"`
}

// Encode serializes the message for Send.
func (m ChatMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeChatMessage parses an inbound frame. Frames that are not JSON
// objects, or carry no text, are rejected.
func DecodeChatMessage(data []byte) (ChatMessage, error) {
	var m ChatMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ChatMessage{}, fmt.Errorf("decode chat message: %w", err)
	}
	if m.Text == "" {
		return ChatMessage{}, ErrEmptyText
	}
	return m, nil
}

// Entry is a chat message as shown in history.
type Entry struct {
	Message    ChatMessage
	ReceivedAt time.Time
	Own        bool // sent by the local identity
}
