package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/content"
	"totem-quiz-bot/internal/domain"
	"totem-quiz-bot/internal/infra/memory"
)

type sent struct {
	ChatID string
	Msg    Message
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sent
	cleared   []string
	acks      map[string]string
	failPhoto bool
	failAll   int
	username  string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{acks: make(map[string]string)}
}

func (m *fakeMessenger) Send(_ context.Context, chatID string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll > 0 {
		m.failAll--
		return errors.New("send failed")
	}
	if m.failPhoto && msg.PhotoPath != "" {
		return errors.New("photo upload failed")
	}
	m.sent = append(m.sent, sent{ChatID: chatID, Msg: msg})
	return nil
}

func (m *fakeMessenger) ClearKeyboard(_ context.Context, _ string, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, messageID)
	return nil
}

func (m *fakeMessenger) AckCallback(_ context.Context, callbackID, notice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks[callbackID] = notice
	return nil
}

func (m *fakeMessenger) last() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Message{}
	}
	return m.sent[len(m.sent)-1].Msg
}

type namedMessenger struct {
	*fakeMessenger
}

func (m namedMessenger) BotUsername(context.Context) (string, error) {
	return m.username, nil
}

type fakeRenderer struct {
	err   error
	calls []string
}

func (r *fakeRenderer) Render(_ context.Context, profile domain.AnimalProfile, displayName string) (string, error) {
	r.calls = append(r.calls, displayName+"/"+string(profile.Key))
	if r.err != nil {
		return "", r.err
	}
	return "generated/" + string(profile.Key) + ".jpg", nil
}

type fakeRequests struct {
	mu        sync.Mutex
	feedback  []domain.FeedbackEntry
	contacts  []domain.ContactRequest
	failWrite bool
}

func (r *fakeRequests) AppendFeedback(_ context.Context, e domain.FeedbackEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return errors.New("disk full")
	}
	r.feedback = append(r.feedback, e)
	return nil
}

func (r *fakeRequests) AppendContact(_ context.Context, c domain.ContactRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return errors.New("disk full")
	}
	r.contacts = append(r.contacts, c)
	return nil
}

func testContent() *content.Store {
	return content.NewStore(
		[]domain.Question{
			{Prompt: "Day or night?", Answers: []domain.Answer{
				{Label: "Day", Weights: []domain.AnimalKey{"fox"}},
				{Label: "Night", Weights: []domain.AnimalKey{"owl"}},
			}},
			{Prompt: "Forest or field?", Answers: []domain.Answer{
				{Label: "Forest", Weights: []domain.AnimalKey{"fox", "owl"}},
				{Label: "Field", Weights: []domain.AnimalKey{"owl"}},
			}},
		},
		domain.Catalog{
			"fox": {Name: "Fox", Description: "Clever and curious", Image: "media/fox.jpg"},
			"owl": {Name: "Owl", Description: "Wise and calm", Image: "media/owl.jpg"},
		},
	)
}

type harness struct {
	dispatcher *Dispatcher
	messenger  *fakeMessenger
	renderer   *fakeRenderer
	requests   *fakeRequests
	sessions   *memory.SessionStore
}

func newHarness(settings Settings, messenger Messenger, opts ...DispatcherOption) *harness {
	sessions := memory.NewSessionStore()
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	quiz := app.NewQuizService(sessions, testContent(), app.WithClock(func() time.Time { return fixed }))
	renderer := &fakeRenderer{}
	requests := &fakeRequests{}
	opts = append([]DispatcherOption{WithDispatcherClock(func() time.Time { return fixed })}, opts...)
	h := &harness{renderer: renderer, requests: requests, sessions: sessions}
	switch m := messenger.(type) {
	case *fakeMessenger:
		h.messenger = m
	case namedMessenger:
		h.messenger = m.fakeMessenger
	}
	h.dispatcher = NewDispatcher(quiz, messenger, renderer, requests, settings, opts...)
	return h
}

var anna = User{ID: "7", Username: "anna_k", FirstName: "Anna", LastName: "K"}

func command(name string, args ...string) Event {
	return Event{Kind: EventCommand, ChatID: "tg:7", User: anna, Command: name, Args: args}
}

func callback(data, messageID string) Event {
	return Event{Kind: EventCallback, ChatID: "tg:7", User: anna, Data: data, MessageID: messageID, CallbackID: "tg:cb-" + messageID}
}

func text(body string) Event {
	return Event{Kind: EventText, ChatID: "tg:7", User: anna, Text: body}
}
