package bot

import (
	"context"
	"strings"
)

type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventCallback
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	default:
		return "unknown"
	}
}

// User identifies the person behind an event.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName prefers the full name, then the username.
func (u User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return "Friend"
}

// Event is a transport-neutral chat input. ChatID carries a transport prefix
// ("tg:", "ws:") so replies can be routed back.
type Event struct {
	Kind       EventKind
	ChatID     string
	User       User
	MessageID  string
	CallbackID string
	Command    string
	Args       []string
	Data       string
	Text       string
}

type Button struct {
	Text string
	Data string
	URL  string
}

type Keyboard [][]Button

// Message is an outgoing chat message. When PhotoPath is set Text is used as
// the caption.
type Message struct {
	Text      string
	PhotoPath string
	Keyboard  Keyboard
	Markdown  bool
}

// Messenger delivers replies for one or more transports.
type Messenger interface {
	Send(ctx context.Context, chatID string, msg Message) error
	ClearKeyboard(ctx context.Context, chatID, messageID string) error
	AckCallback(ctx context.Context, callbackID, notice string) error
}

// BotUsername is implemented by messengers that know the public bot handle.
type BotUsername interface {
	BotUsername(ctx context.Context) (string, error)
}
