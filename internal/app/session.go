package app

import (
	"time"

	"totem-quiz-bot/internal/domain"
)

// State is the lifecycle stage of a quiz session.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingAnswer
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// Session is one user's run through the question sequence. The number of
// collected weight sets always equals CurrentQuestionIndex.
type Session struct {
	UserID               string               `json:"userId"`
	State                State                `json:"state"`
	CurrentQuestionIndex int                  `json:"currentQuestionIndex"`
	CollectedWeights     [][]domain.AnimalKey `json:"collectedWeights"`
	StartedAt            time.Time            `json:"startedAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// NewSession returns a session that has not been started.
func NewSession(userID string) *Session {
	return &Session{UserID: userID, State: StateNotStarted}
}

// Start resets the session to the first question. Calling it again always
// discards previous answers.
func (s *Session) Start(now time.Time) {
	s.State = StateAwaitingAnswer
	s.CurrentQuestionIndex = 0
	s.CollectedWeights = nil
	s.StartedAt = now
	s.UpdatedAt = now
}

// SubmitAnswer records the chosen answer for the current question. Events for
// another question, out-of-range answers or a session that is not awaiting an
// answer are rejected without touching the session.
func (s *Session) SubmitAnswer(questions []domain.Question, questionIndex, answerIndex int, now time.Time) error {
	switch s.State {
	case StateNotStarted:
		return domain.ErrNotStarted
	case StateCompleted:
		return domain.ErrSessionCompleted
	}
	if questionIndex != s.CurrentQuestionIndex || questionIndex >= len(questions) {
		return domain.ErrStaleQuestion
	}
	answers := questions[questionIndex].Answers
	if answerIndex < 0 || answerIndex >= len(answers) {
		return domain.ErrAnswerOutOfRange
	}

	weights := make([]domain.AnimalKey, len(answers[answerIndex].Weights))
	copy(weights, answers[answerIndex].Weights)
	s.CollectedWeights = append(s.CollectedWeights, weights)
	s.CurrentQuestionIndex++
	s.UpdatedAt = now
	if s.CurrentQuestionIndex == len(questions) {
		s.State = StateCompleted
	}
	return nil
}

// Completed reports whether every question has been answered.
func (s *Session) Completed() bool {
	return s.State == StateCompleted
}

// Clone returns a deep copy so stores never share mutable slices with callers.
func (s *Session) Clone() *Session {
	c := *s
	if s.CollectedWeights != nil {
		c.CollectedWeights = make([][]domain.AnimalKey, len(s.CollectedWeights))
		for i, w := range s.CollectedWeights {
			c.CollectedWeights[i] = make([]domain.AnimalKey, len(w))
			copy(c.CollectedWeights[i], w)
		}
	}
	return &c
}
