package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"totem-quiz-bot/internal/bot"
)

const (
	Prefix          = "tg"
	maxCaptionRunes = 1024
)

// API is the subset of tgbotapi.BotAPI the transport uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Submitter accepts events for processing, usually a *bot.Pool.
type Submitter interface {
	Submit(ctx context.Context, ev bot.Event) error
}

// Transport long-polls the Bot API and delivers replies.
type Transport struct {
	api         API
	username    string
	pollTimeout int
	logger      zerolog.Logger
}

// Dial connects to Telegram with token and reads the bot's own username.
func Dial(token string, pollTimeout int, debug bool, logger zerolog.Logger) (*Transport, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	api.Debug = debug
	return New(api, api.Self.UserName, pollTimeout, logger), nil
}

func New(api API, username string, pollTimeout int, logger zerolog.Logger) *Transport {
	return &Transport{
		api:         api,
		username:    username,
		pollTimeout: pollTimeout,
		logger:      logger.With().Str("component", "telegram").Logger(),
	}
}

// Run polls updates until ctx is cancelled.
func (t *Transport) Run(ctx context.Context, sink Submitter) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(cfg)
	defer t.api.StopReceivingUpdates()

	t.logger.Info().Str("bot", t.username).Msg("polling updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := ToEvent(update)
			if !ok {
				continue
			}
			if err := sink.Submit(ctx, ev); err != nil {
				t.logger.Warn().Err(err).Int("update_id", update.UpdateID).Msg("drop update")
			}
		}
	}
}

// ToEvent converts a Telegram update. Updates the bot does not react to
// (edits, stickers, channel posts) report false.
func ToEvent(update tgbotapi.Update) (bot.Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		ev := bot.Event{
			Kind:       bot.EventCallback,
			User:       toUser(q.From),
			CallbackID: Prefix + ":" + q.ID,
			Data:       q.Data,
		}
		if q.Message != nil {
			ev.ChatID = chatID(q.Message.Chat.ID)
			ev.MessageID = strconv.Itoa(q.Message.MessageID)
		} else if q.From != nil {
			ev.ChatID = chatID(q.From.ID)
		}
		return ev, ev.ChatID != ""
	case update.Message != nil:
		m := update.Message
		ev := bot.Event{
			ChatID:    chatID(m.Chat.ID),
			User:      toUser(m.From),
			MessageID: strconv.Itoa(m.MessageID),
		}
		if m.IsCommand() {
			ev.Kind = bot.EventCommand
			ev.Command = m.Command()
			ev.Args = strings.Fields(m.CommandArguments())
			return ev, true
		}
		if m.Text == "" {
			return bot.Event{}, false
		}
		ev.Kind = bot.EventText
		ev.Text = m.Text
		return ev, true
	default:
		return bot.Event{}, false
	}
}

func (t *Transport) Send(ctx context.Context, chat string, msg bot.Message) error {
	id, err := parseChatID(chat)
	if err != nil {
		return err
	}
	markup := toMarkup(msg.Keyboard)

	if msg.PhotoPath == "" {
		out := tgbotapi.NewMessage(id, msg.Text)
		if msg.Markdown {
			out.ParseMode = tgbotapi.ModeMarkdown
		}
		if markup != nil {
			out.ReplyMarkup = *markup
		}
		_, err := t.api.Send(out)
		return err
	}

	photo := tgbotapi.NewPhoto(id, tgbotapi.FilePath(msg.PhotoPath))
	if len([]rune(msg.Text)) > maxCaptionRunes {
		if _, err := t.api.Send(photo); err != nil {
			return err
		}
		return t.Send(ctx, chat, bot.Message{Text: msg.Text, Keyboard: msg.Keyboard, Markdown: msg.Markdown})
	}
	photo.Caption = msg.Text
	if msg.Markdown {
		photo.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup != nil {
		photo.ReplyMarkup = *markup
	}
	_, err = t.api.Send(photo)
	return err
}

func (t *Transport) ClearKeyboard(_ context.Context, chat, messageID string) error {
	id, err := parseChatID(chat)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("message id %q: %w", messageID, err)
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(id, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, err = t.api.Request(edit)
	return err
}

func (t *Transport) AckCallback(_ context.Context, callbackID, notice string) error {
	_, err := t.api.Request(tgbotapi.NewCallback(strings.TrimPrefix(callbackID, Prefix+":"), notice))
	return err
}

func (t *Transport) BotUsername(context.Context) (string, error) {
	return t.username, nil
}

func toMarkup(kb bot.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func toUser(u *tgbotapi.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{
		ID:        strconv.FormatInt(u.ID, 10),
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func chatID(id int64) string {
	return Prefix + ":" + strconv.FormatInt(id, 10)
}

func parseChatID(chat string) (int64, error) {
	raw, ok := strings.CutPrefix(chat, Prefix+":")
	if !ok {
		return 0, fmt.Errorf("not a telegram chat: %q", chat)
	}
	return strconv.ParseInt(raw, 10, 64)
}
