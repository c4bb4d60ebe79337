package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"totem-quiz-bot/internal/content"
	"totem-quiz-bot/internal/domain"
	"totem-quiz-bot/internal/metrics"
	"totem-quiz-bot/internal/scoring"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
// Implementations hand out copies: mutating a returned session has no effect until Save.
type SessionRepository interface {
	Get(ctx context.Context, userID string) (*Session, bool, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID string) error
}

// QuestionView is the transport-facing rendering of a question.
type QuestionView struct {
	Index   int
	Total   int
	Prompt  string
	Answers []string
}

// Step describes what follows an accepted answer: either the next question or
// the resolved result.
type Step struct {
	Next       *QuestionView
	Completed  bool
	Resolution domain.Resolution
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions SessionRepository
	content  *content.Store
	locks    *userLocks
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QuizService) { s.metrics = m }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *QuizService) { s.logger = logger }
}

func NewQuizService(store SessionRepository, catalog *content.Store, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: store,
		content:  catalog,
		locks:    newUserLocks(),
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Content exposes the immutable content store the service was built with.
func (s *QuizService) Content() *content.Store {
	return s.content
}

// Start creates a fresh session for the user, discarding any previous one, and
// returns the first question.
func (s *QuizService) Start(ctx context.Context, userID string) (QuestionView, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session := NewSession(userID)
	session.Start(s.now())
	if err := s.sessions.Save(ctx, session); err != nil {
		return QuestionView{}, fmt.Errorf("save session: %w", err)
	}
	s.metrics.QuizStarted()
	s.logger.Info().Str("user_id", userID).Msg("quiz started")
	return s.view(0), nil
}

// SubmitAnswer applies one answer event. Rejected events return an error
// wrapping domain.ErrInvalidTransition and leave the stored session untouched.
// The session is cleared once the last question is answered; if clearing
// fails the stored session stays Completed.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID string, questionIndex, answerIndex int) (Step, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	session, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return Step{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		session = NewSession(userID)
	}

	if err := session.SubmitAnswer(s.content.Questions(), questionIndex, answerIndex, s.now()); err != nil {
		s.metrics.InvalidTransition(transitionReason(err))
		s.logger.Debug().Err(err).
			Str("user_id", userID).
			Int("question", questionIndex).
			Int("answer", answerIndex).
			Int("current", session.CurrentQuestionIndex).
			Msg("answer rejected")
		return Step{}, err
	}
	s.metrics.AnswerAccepted()

	if !session.Completed() {
		if err := s.sessions.Save(ctx, session); err != nil {
			return Step{}, fmt.Errorf("save session: %w", err)
		}
		next := s.view(session.CurrentQuestionIndex)
		return Step{Next: &next}, nil
	}

	// The completed state is stored before clearing so a failed delete still
	// rejects replays of the last answer.
	if err := s.sessions.Save(ctx, session); err != nil {
		return Step{}, fmt.Errorf("save session: %w", err)
	}
	resolution := Resolve(session.CollectedWeights, s.content.Catalog())
	s.observe(userID, session.CollectedWeights, resolution)
	if err := s.sessions.Delete(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("clear completed session")
	}
	return Step{Completed: true, Resolution: resolution}, nil
}

// Abandon clears the user's session, if any.
func (s *QuizService) Abandon(ctx context.Context, userID string) error {
	unlock := s.locks.lock(userID)
	defer unlock()
	return s.sessions.Delete(ctx, userID)
}

// Session returns a copy of the user's stored session.
func (s *QuizService) Session(ctx context.Context, userID string) (*Session, bool, error) {
	return s.sessions.Get(ctx, userID)
}

// ResolveFor builds a resolution for an explicit animal without running the
// quiz. Keys missing from the catalog yield domain.ErrAnimalNotFound.
func (s *QuizService) ResolveFor(key domain.AnimalKey) (domain.Resolution, error) {
	profile, ok := s.content.Animal(key)
	if !ok {
		return domain.Resolution{Reason: domain.ReasonUnknownKey, Key: key}, fmt.Errorf("%w: %s", domain.ErrAnimalNotFound, key)
	}
	return domain.Resolution{Key: key, Outcome: &domain.Outcome{AnimalKey: key, Profile: profile}}, nil
}

func (s *QuizService) view(index int) QuestionView {
	q, _ := s.content.Question(index)
	labels := make([]string, len(q.Answers))
	for i, a := range q.Answers {
		labels[i] = a.Label
	}
	return QuestionView{
		Index:   index,
		Total:   s.content.TotalQuestions(),
		Prompt:  q.Prompt,
		Answers: labels,
	}
}

func (s *QuizService) observe(userID string, weights [][]domain.AnimalKey, r domain.Resolution) {
	if r.Resolved() {
		s.metrics.Outcome(string(r.Outcome.AnimalKey))
		s.logger.Info().
			Str("user_id", userID).
			Str("animal", string(r.Outcome.AnimalKey)).
			Int("score", r.Outcome.Score).
			Interface("ranking", scoring.Ranking(scoring.CalculateScores(weights))).
			Msg("quiz completed")
		return
	}
	s.metrics.NoOutcome(string(r.Reason))
	event := s.logger.Warn()
	if r.Reason == domain.ReasonUnknownKey {
		event = s.logger.Error()
	}
	event.Str("user_id", userID).
		Str("reason", string(r.Reason)).
		Str("animal", string(r.Key)).
		Msg("quiz completed without outcome")
}

func transitionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotStarted):
		return "not_started"
	case errors.Is(err, domain.ErrSessionCompleted):
		return "completed"
	case errors.Is(err, domain.ErrStaleQuestion):
		return "stale_question"
	case errors.Is(err, domain.ErrAnswerOutOfRange):
		return "answer_out_of_range"
	default:
		return "other"
	}
}
