package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"totem-quiz-bot/internal/app"
	"totem-quiz-bot/internal/domain"
	"totem-quiz-bot/internal/logging"
	"totem-quiz-bot/internal/metrics"
)

// Renderer produces the result picture for a user.
type Renderer interface {
	Render(ctx context.Context, profile domain.AnimalProfile, displayName string) (string, error)
}

// RequestLog records feedback and contact requests.
type RequestLog interface {
	AppendFeedback(ctx context.Context, entry domain.FeedbackEntry) error
	AppendContact(ctx context.Context, req domain.ContactRequest) error
}

// FeedbackState remembers chats whose next text message is feedback.
type FeedbackState interface {
	SetAwaiting(ctx context.Context, chatID string, on bool) error
	TakeAwaiting(ctx context.Context, chatID string) (bool, error)
}

type Settings struct {
	WelcomeImage     string
	GuardianshipLink string
	FallbackUsername string
	DebugCommands    bool
}

// Dispatcher turns chat events into quiz operations and replies.
type Dispatcher struct {
	quiz      *app.QuizService
	messenger Messenger
	renderer  Renderer
	requests  RequestLog
	settings  Settings
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
	pick      func(n int) int
	feedback  FeedbackState
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithPicker replaces the random choice used by /test_result.
func WithPicker(pick func(n int) int) DispatcherOption {
	return func(d *Dispatcher) { d.pick = pick }
}

// WithFeedbackState shares the awaiting-feedback flags between instances.
func WithFeedbackState(state FeedbackState) DispatcherOption {
	return func(d *Dispatcher) { d.feedback = state }
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(quiz *app.QuizService, messenger Messenger, renderer Renderer, requests RequestLog, settings Settings, opts ...DispatcherOption) *Dispatcher {
	if settings.FallbackUsername == "" {
		settings.FallbackUsername = defaultBotUsername
	}
	d := &Dispatcher{
		quiz:      quiz,
		messenger: messenger,
		renderer:  renderer,
		requests:  requests,
		settings:  settings,
		logger:    zerolog.Nop(),
		now:       time.Now,
		pick:      rand.Intn,
		feedback:  newLocalFeedback(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one event. Events of the same chat must not be handled
// concurrently; the Pool guarantees this.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	d.metrics.Event(ev.Kind.String())
	ctx = logging.IntoContext(ctx, d.logger.With().Str("chat_id", ev.ChatID).Str("kind", ev.Kind.String()).Logger())
	switch ev.Kind {
	case EventCommand:
		return d.handleCommand(ctx, ev)
	case EventCallback:
		return d.handleCallback(ctx, ev)
	case EventText:
		return d.handleText(ctx, ev)
	default:
		return fmt.Errorf("unsupported event kind %d", ev.Kind)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) error {
	switch ev.Command {
	case "start":
		d.setAwaitingFeedback(ctx, ev.ChatID, false)
		if err := d.quiz.Abandon(ctx, ev.ChatID); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().Err(err).Msg("abandon session")
		}
		return d.sendWelcome(ctx, ev)
	case "test_result":
		if !d.settings.DebugCommands {
			return d.messenger.Send(ctx, ev.ChatID, Message{Text: idleHintText})
		}
		return d.testResult(ctx, ev)
	default:
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: idleHintText})
	}
}

func (d *Dispatcher) sendWelcome(ctx context.Context, ev Event) error {
	logger := logging.FromContext(ctx)
	logger.Info().Msg("welcome")
	msg := Message{Text: welcomeText, PhotoPath: d.settings.WelcomeImage, Keyboard: StartKeyboard(), Markdown: true}
	err := d.messenger.Send(ctx, ev.ChatID, msg)
	if err == nil || msg.PhotoPath == "" {
		return err
	}
	logger.Warn().Err(err).Msg("welcome photo failed, sending text")
	msg.PhotoPath = ""
	return d.messenger.Send(ctx, ev.ChatID, msg)
}

func (d *Dispatcher) testResult(ctx context.Context, ev Event) error {
	keys := d.quiz.Content().AnimalKeys()
	var key domain.AnimalKey
	if len(ev.Args) > 0 {
		key = domain.AnimalKey(ev.Args[0])
	} else {
		key = keys[d.pick(len(keys))]
	}
	r, err := d.quiz.ResolveFor(key)
	if errors.Is(err, domain.ErrAnimalNotFound) {
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: unknownTestAnimalText(key, keys)})
	}
	logger := logging.FromContext(ctx)
	logger.Info().Str("animal", string(key)).Msg("test result requested")
	return d.sendResult(ctx, ev, r)
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev Event) error {
	cb, err := ParseCallback(ev.Data)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Msg("ignored callback")
		return d.messenger.AckCallback(ctx, ev.CallbackID, "Unknown action.")
	}

	var handleErr error
	notice := ""
	switch cb.Action {
	case ActionStartQuiz:
		handleErr = d.startQuiz(ctx, ev)
	case ActionAnswer:
		notice, handleErr = d.answer(ctx, ev, cb)
	case ActionShare:
		handleErr = d.share(ctx, ev, cb.Animal)
	case ActionFeedback:
		d.setAwaitingFeedback(ctx, ev.ChatID, true)
		handleErr = d.messenger.Send(ctx, ev.ChatID, Message{Text: feedbackPromptText})
	case ActionContact:
		handleErr = d.contact(ctx, ev, cb.Animal)
	}

	if err := d.messenger.AckCallback(ctx, ev.CallbackID, notice); err != nil {
		logger := logging.FromContext(ctx)
		logger.Debug().Err(err).Msg("ack callback")
	}
	return handleErr
}

func (d *Dispatcher) startQuiz(ctx context.Context, ev Event) error {
	d.setAwaitingFeedback(ctx, ev.ChatID, false)
	first, err := d.quiz.Start(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	return d.sendQuestion(ctx, ev.ChatID, first)
}

// answer returns a notice for the callback acknowledgement when the answer
// was rejected.
func (d *Dispatcher) answer(ctx context.Context, ev Event, cb Callback) (string, error) {
	step, err := d.quiz.SubmitAnswer(ctx, ev.ChatID, cb.QuestionIndex, cb.AnswerIndex)
	if errors.Is(err, domain.ErrInvalidTransition) {
		return transitionNotice(err), nil
	}
	if err != nil {
		return "Please try again.", err
	}

	if ev.MessageID != "" {
		if err := d.messenger.ClearKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
			logger := logging.FromContext(ctx)
			logger.Debug().Err(err).Msg("clear keyboard")
		}
	}
	if step.Completed {
		return "", d.sendResult(ctx, ev, step.Resolution)
	}
	return "", d.sendQuestion(ctx, ev.ChatID, *step.Next)
}

func (d *Dispatcher) sendQuestion(ctx context.Context, chatID string, q app.QuestionView) error {
	return d.messenger.Send(ctx, chatID, Message{Text: questionText(q), Keyboard: QuestionKeyboard(q)})
}

func (d *Dispatcher) sendResult(ctx context.Context, ev Event, r domain.Resolution) error {
	if !r.Resolved() {
		text := noAnswersText
		if r.Reason == domain.ReasonUnknownKey {
			text = unknownAnimalText
		}
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: text, Keyboard: StartKeyboard()})
	}

	logger := logging.FromContext(ctx)
	profile := r.Outcome.Profile
	msg := Message{
		Text:     resultCaption(profile, d.settings.GuardianshipLink),
		Keyboard: ResultKeyboard(r.Outcome.AnimalKey),
		Markdown: true,
	}
	if d.renderer != nil {
		path, err := d.renderer.Render(ctx, profile, ev.User.DisplayName())
		if err != nil {
			d.metrics.RenderFailed()
			logger.Error().Err(err).Str("animal", string(profile.Key)).Msg("render result image")
		} else {
			msg.PhotoPath = path
		}
	}

	if err := d.messenger.Send(ctx, ev.ChatID, msg); err != nil {
		logger.Error().Err(err).Msg("send result")
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: resultSendFailedText})
	}
	return nil
}

func (d *Dispatcher) share(ctx context.Context, ev Event, key domain.AnimalKey) error {
	logger := logging.FromContext(ctx)
	username := d.settings.FallbackUsername
	if named, ok := d.messenger.(BotUsername); ok {
		if name, err := named.BotUsername(ctx); err == nil && name != "" {
			username = name
		} else if err != nil {
			logger.Warn().Err(err).Msg("bot username unavailable")
		}
	}
	logger.Info().Str("animal", string(key)).Msg("share requested")
	return d.messenger.Send(ctx, ev.ChatID, Message{Text: shareText(username), Markdown: true})
}

func (d *Dispatcher) contact(ctx context.Context, ev Event, key domain.AnimalKey) error {
	req := domain.ContactRequest{
		ID:        uuid.New(),
		UserID:    ev.User.ID,
		FullName:  ev.User.DisplayName(),
		AnimalKey: key,
		CreatedAt: d.now(),
	}
	logger := logging.FromContext(ctx)
	if err := d.requests.AppendContact(ctx, req); err != nil {
		logger.Error().Err(err).Msg("save contact request")
	} else {
		logger.Info().Str("request_id", req.ID.String()).Str("animal", string(key)).Msg("contact request saved")
	}
	return d.messenger.Send(ctx, ev.ChatID, Message{Text: contactSentText})
}

func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	logger := logging.FromContext(ctx)
	awaiting, err := d.feedback.TakeAwaiting(ctx, ev.ChatID)
	if err != nil {
		logger.Error().Err(err).Msg("read feedback state")
	}
	if !awaiting {
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: idleHintText})
	}
	username := ev.User.Username
	if username == "" {
		username = ev.User.FirstName
	}
	entry := domain.FeedbackEntry{
		UserID:    ev.User.ID,
		Username:  username,
		Text:      ev.Text,
		CreatedAt: d.now(),
	}
	if err := d.requests.AppendFeedback(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("save feedback")
		return d.messenger.Send(ctx, ev.ChatID, Message{Text: feedbackFailedText})
	}
	logger.Info().Msg("feedback saved")
	return d.messenger.Send(ctx, ev.ChatID, Message{Text: feedbackThanksText})
}

func (d *Dispatcher) setAwaitingFeedback(ctx context.Context, chatID string, on bool) {
	if err := d.feedback.SetAwaiting(ctx, chatID, on); err != nil {
		logger := logging.FromContext(ctx)
		logger.Error().Err(err).Bool("awaiting", on).Msg("store feedback state")
	}
}

// localFeedback keeps feedback flags in process memory.
type localFeedback struct {
	mu    sync.Mutex
	chats map[string]bool
}

func newLocalFeedback() *localFeedback {
	return &localFeedback{chats: make(map[string]bool)}
}

func (f *localFeedback) SetAwaiting(_ context.Context, chatID string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.chats[chatID] = true
	} else {
		delete(f.chats, chatID)
	}
	return nil
}

func (f *localFeedback) TakeAwaiting(_ context.Context, chatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	on := f.chats[chatID]
	delete(f.chats, chatID)
	return on, nil
}
