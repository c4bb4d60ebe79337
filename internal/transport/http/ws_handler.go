package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"totem-quiz-bot/internal/bot"
)

const Prefix = "ws"

var ErrNotConnected = errors.New("chat not connected")

// Submitter accepts events for processing, usually a *bot.Pool.
type Submitter interface {
	Submit(ctx context.Context, ev bot.Event) error
}

// WSHandler is a chat transport over websockets. Each connection is one chat
// identified by the userId query parameter. It also delivers replies, so it
// is registered as the "ws" messenger.
type WSHandler struct {
	sink      Submitter
	mediaRoot string
	logger    zerolog.Logger
	upgrader  websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	seq     atomic.Int64
}

type client struct {
	conn *websocket.Conn
	send chan outboundMessage
	done chan struct{}
}

func NewWSHandler(sink Submitter, mediaRoot string, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		sink:      sink,
		mediaRoot: mediaRoot,
		logger:    logger.With().Str("component", "websocket").Logger(),
		clients:   make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type commandPayload struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

type callbackPayload struct {
	Data      string `json:"data"`
	MessageID string `json:"messageId"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type buttonPayload struct {
	Text string `json:"text"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

type messagePayload struct {
	MessageID string            `json:"messageId"`
	Text      string            `json:"text"`
	PhotoURL  string            `json:"photoUrl,omitempty"`
	Markdown  bool              `json:"markdown"`
	Keyboard  [][]buttonPayload `json:"keyboard,omitempty"`
}

type clearKeyboardPayload struct {
	MessageID string `json:"messageId"`
}

type noticePayload struct {
	Text string `json:"text"`
}

// ServeWS upgrades the request and feeds the connection's messages to the
// bot as events of chat "ws:<userId>".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	chatID := Prefix + ":" + userID
	user := bot.User{ID: userID, FirstName: displayName}
	c := &client{conn: conn, send: make(chan outboundMessage, 16), done: make(chan struct{})}
	h.attach(chatID, c)
	defer h.detach(chatID, c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug().Err(err).Str("chat_id", chatID).Msg("ws write error")
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ev, err := h.toEvent(chatID, user, inbound)
		if err != nil {
			h.push(c, outboundMessage{Type: "notice", Payload: noticePayload{Text: err.Error()}})
			continue
		}
		if err := h.sink.Submit(r.Context(), ev); err != nil {
			h.logger.Warn().Err(err).Str("chat_id", chatID).Msg("drop event")
		}
	}

	h.detach(chatID, c)
	<-writerDone
}

func (h *WSHandler) toEvent(chatID string, user bot.User, in inboundMessage) (bot.Event, error) {
	ev := bot.Event{ChatID: chatID, User: user}
	switch in.Type {
	case "command":
		var p commandPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Name == "" {
			return ev, errors.New("invalid command payload")
		}
		ev.Kind = bot.EventCommand
		ev.Command = strings.TrimPrefix(p.Name, "/")
		ev.Args = p.Args
	case "callback":
		var p callbackPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Data == "" {
			return ev, errors.New("invalid callback payload")
		}
		ev.Kind = bot.EventCallback
		ev.Data = p.Data
		ev.MessageID = p.MessageID
		ev.CallbackID = fmt.Sprintf("%s#%d", chatID, h.seq.Add(1))
	case "text":
		var p textPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || strings.TrimSpace(p.Text) == "" {
			return ev, errors.New("invalid text payload")
		}
		ev.Kind = bot.EventText
		ev.Text = p.Text
	default:
		return ev, errors.New("unsupported message type")
	}
	return ev, nil
}

func (h *WSHandler) Send(ctx context.Context, chatID string, msg bot.Message) error {
	payload := messagePayload{
		MessageID: strconv.FormatInt(h.seq.Add(1), 10),
		Text:      msg.Text,
		Markdown:  msg.Markdown,
		PhotoURL:  h.mediaURL(msg.PhotoPath),
	}
	for _, row := range msg.Keyboard {
		buttons := make([]buttonPayload, len(row))
		for i, b := range row {
			buttons[i] = buttonPayload{Text: b.Text, Data: b.Data, URL: b.URL}
		}
		payload.Keyboard = append(payload.Keyboard, buttons)
	}
	return h.deliver(ctx, chatID, outboundMessage{Type: "message", Payload: payload})
}

func (h *WSHandler) ClearKeyboard(ctx context.Context, chatID, messageID string) error {
	return h.deliver(ctx, chatID, outboundMessage{Type: "clearKeyboard", Payload: clearKeyboardPayload{MessageID: messageID}})
}

// AckCallback shows non-empty notices to the chat that pressed the button.
func (h *WSHandler) AckCallback(ctx context.Context, callbackID, notice string) error {
	if notice == "" {
		return nil
	}
	chatID, _, _ := strings.Cut(callbackID, "#")
	return h.deliver(ctx, chatID, outboundMessage{Type: "notice", Payload: noticePayload{Text: notice}})
}

// Connected reports the number of open chats.
func (h *WSHandler) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) deliver(ctx context.Context, chatID string, msg outboundMessage) error {
	h.mu.RLock()
	c, ok := h.clients[chatID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, chatID)
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %s", ErrNotConnected, chatID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) push(c *client, msg outboundMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// attach registers c, closing any older connection of the same chat.
func (h *WSHandler) attach(chatID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[chatID]; ok {
		close(old.done)
		_ = old.conn.Close()
	}
	h.clients[chatID] = c
}

func (h *WSHandler) detach(chatID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[chatID] == c {
		delete(h.clients, chatID)
		close(c.done)
	}
}

// mediaURL maps a file under the media root to its /media/ URL. Files
// elsewhere are not served and yield "".
func (h *WSHandler) mediaURL(path string) string {
	if path == "" || h.mediaRoot == "" {
		return ""
	}
	rel, err := filepath.Rel(h.mediaRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return "/media/" + filepath.ToSlash(rel)
}
