package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totem-quiz-bot/internal/bot"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type collectSink struct {
	mu     sync.Mutex
	events []bot.Event
}

func (s *collectSink) Submit(_ context.Context, ev bot.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

var from = &tgbotapi.User{ID: 42, UserName: "anna_k", FirstName: "Anna", LastName: "K"}

func commandUpdate(text string, length int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 5,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func TestToEventCommand(t *testing.T) {
	ev, ok := ToEvent(commandUpdate("/test_result owl", len("/test_result")))
	require.True(t, ok)
	assert.Equal(t, bot.EventCommand, ev.Kind)
	assert.Equal(t, "tg:42", ev.ChatID)
	assert.Equal(t, "test_result", ev.Command)
	assert.Equal(t, []string{"owl"}, ev.Args)
	assert.Equal(t, bot.User{ID: "42", Username: "anna_k", FirstName: "Anna", LastName: "K"}, ev.User)
}

func TestToEventCallback(t *testing.T) {
	ev, ok := ToEvent(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    from,
		Data:    "answer_0_1",
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: -100}},
	}})
	require.True(t, ok)
	assert.Equal(t, bot.EventCallback, ev.Kind)
	assert.Equal(t, "tg:-100", ev.ChatID)
	assert.Equal(t, "77", ev.MessageID)
	assert.Equal(t, "tg:cb-1", ev.CallbackID)
	assert.Equal(t, "answer_0_1", ev.Data)
}

func TestToEventTextAndIgnored(t *testing.T) {
	ev, ok := ToEvent(tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: &tgbotapi.Chat{ID: 42}, Text: "great quiz"}})
	require.True(t, ok)
	assert.Equal(t, bot.EventText, ev.Kind)
	assert.Equal(t, "great quiz", ev.Text)

	_, ok = ToEvent(tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: &tgbotapi.Chat{ID: 42}}})
	assert.False(t, ok)
	_, ok = ToEvent(tgbotapi.Update{UpdateID: 9})
	assert.False(t, ok)
}

func TestSendTextWithKeyboard(t *testing.T) {
	api := newFakeAPI()
	tr := New(api, "zoo_bot", 60, zerolog.Nop())

	err := tr.Send(context.Background(), "tg:42", bot.Message{
		Text:     "*hi*",
		Markdown: true,
		Keyboard: bot.Keyboard{{{Text: "Start", Data: "start_quiz"}}, {{Text: "Site", URL: "https://zoo.example"}}},
	})
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "start_quiz", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "https://zoo.example", *markup.InlineKeyboard[1][0].URL)
}

func TestSendPhotoSplitsLongCaption(t *testing.T) {
	api := newFakeAPI()
	tr := New(api, "zoo_bot", 60, zerolog.Nop())

	short := bot.Message{Text: "caption", PhotoPath: "generated/a.jpg"}
	require.NoError(t, tr.Send(context.Background(), "tg:1", short))
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "caption", photo.Caption)

	long := bot.Message{Text: string(make([]rune, 1100)), PhotoPath: "generated/a.jpg", Keyboard: bot.ResultKeyboard("owl")}
	require.NoError(t, tr.Send(context.Background(), "tg:1", long))
	require.Len(t, api.sent, 3)
	photo = api.sent[1].(tgbotapi.PhotoConfig)
	assert.Empty(t, photo.Caption)
	_, ok = api.sent[2].(tgbotapi.MessageConfig)
	assert.True(t, ok)
}

func TestClearKeyboardAndAck(t *testing.T) {
	api := newFakeAPI()
	tr := New(api, "zoo_bot", 60, zerolog.Nop())

	require.NoError(t, tr.ClearKeyboard(context.Background(), "tg:42", "77"))
	require.NoError(t, tr.AckCallback(context.Background(), "tg:cb-1", "done"))
	assert.Error(t, tr.ClearKeyboard(context.Background(), "ws:42", "77"))

	require.Len(t, api.requests, 2)
	edit := api.requests[0].(tgbotapi.EditMessageReplyMarkupConfig)
	assert.Equal(t, 77, edit.MessageID)
	ack := api.requests[1].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb-1", ack.CallbackQueryID)
	assert.Equal(t, "done", ack.Text)

	name, err := tr.BotUsername(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "zoo_bot", name)
}

func TestRunSubmitsUntilCancelled(t *testing.T) {
	api := newFakeAPI()
	tr := New(api, "zoo_bot", 60, zerolog.Nop())
	sink := &collectSink{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() { done <- tr.Run(ctx, sink) }()

	api.updates <- commandUpdate("/start", len("/start"))
	api.updates <- tgbotapi.Update{UpdateID: 2}
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, api.stopped)
}
