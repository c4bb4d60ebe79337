package bot

import (
	"context"
	"fmt"
	"strings"
)

// Router is a Messenger that forwards to the transport owning the chat ID
// prefix. Callback IDs carry the same prefix.
type Router struct {
	routes map[string]Messenger
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Messenger)}
}

// Register binds prefix (for example "tg") to a messenger.
func (r *Router) Register(prefix string, m Messenger) {
	r.routes[prefix] = m
}

func (r *Router) Send(ctx context.Context, chatID string, msg Message) error {
	m, err := r.route(chatID)
	if err != nil {
		return err
	}
	return m.Send(ctx, chatID, msg)
}

func (r *Router) ClearKeyboard(ctx context.Context, chatID, messageID string) error {
	m, err := r.route(chatID)
	if err != nil {
		return err
	}
	return m.ClearKeyboard(ctx, chatID, messageID)
}

func (r *Router) AckCallback(ctx context.Context, callbackID, notice string) error {
	if callbackID == "" {
		return nil
	}
	m, err := r.route(callbackID)
	if err != nil {
		return err
	}
	return m.AckCallback(ctx, callbackID, notice)
}

// BotUsername asks the first registered transport that knows it.
func (r *Router) BotUsername(ctx context.Context) (string, error) {
	for _, m := range r.routes {
		if named, ok := m.(BotUsername); ok {
			return named.BotUsername(ctx)
		}
	}
	return "", nil
}

func (r *Router) route(id string) (Messenger, error) {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return nil, fmt.Errorf("no transport prefix in %q", id)
	}
	m, ok := r.routes[prefix]
	if !ok {
		return nil, fmt.Errorf("no transport registered for %q", prefix)
	}
	return m, nil
}
