package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"totem-quiz-bot/internal/domain"
)

func threeQuestions() []domain.Question {
	return []domain.Question{
		{ID: 0, Prompt: "q0", Answers: []domain.Answer{
			{Label: "a", Weights: []domain.AnimalKey{"fox"}},
			{Label: "b", Weights: []domain.AnimalKey{"owl", "bear"}},
		}},
		{ID: 1, Prompt: "q1", Answers: []domain.Answer{
			{Label: "c", Weights: []domain.AnimalKey{"owl"}},
		}},
		{ID: 2, Prompt: "q2", Answers: []domain.Answer{
			{Label: "d", Weights: []domain.AnimalKey{"fox"}},
			{Label: "e"},
		}},
	}
}

func TestSessionWalkThrough(t *testing.T) {
	questions := threeQuestions()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s := NewSession("u1")
	assert.Equal(t, StateNotStarted, s.State)

	s.Start(now)
	assert.Equal(t, StateAwaitingAnswer, s.State)
	assert.Equal(t, 0, s.CurrentQuestionIndex)

	require.NoError(t, s.SubmitAnswer(questions, 0, 0, now))
	assert.Equal(t, 1, s.CurrentQuestionIndex)
	assert.Len(t, s.CollectedWeights, 1)

	require.NoError(t, s.SubmitAnswer(questions, 1, 0, now))
	require.NoError(t, s.SubmitAnswer(questions, 2, 1, now))
	assert.True(t, s.Completed())
	assert.Equal(t, [][]domain.AnimalKey{{"fox"}, {"owl"}, {}}, s.CollectedWeights)

	before := s.Clone()
	err := s.SubmitAnswer(questions, 3, 0, now)
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, before, s)
}

func TestSessionRejectsInvalidEventsWithoutMutation(t *testing.T) {
	questions := threeQuestions()
	now := time.Now()

	cases := []struct {
		name     string
		question int
		answer   int
		want     error
	}{
		{"stale question", 1, 0, domain.ErrStaleQuestion},
		{"replayed question", -1, 0, domain.ErrStaleQuestion},
		{"answer too large", 0, 2, domain.ErrAnswerOutOfRange},
		{"negative answer", 0, -1, domain.ErrAnswerOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession("u1")
			s.Start(now)
			before := s.Clone()

			err := s.SubmitAnswer(questions, tc.question, tc.answer, now.Add(time.Second))
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, s)
			assert.Equal(t, len(s.CollectedWeights), s.CurrentQuestionIndex)
		})
	}
}

func TestSessionRejectsAnswersBeforeStart(t *testing.T) {
	s := NewSession("u1")
	err := s.SubmitAnswer(threeQuestions(), 0, 0, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotStarted)
	assert.Empty(t, s.CollectedWeights)
}

func TestSessionStartDiscardsProgress(t *testing.T) {
	questions := threeQuestions()
	s := NewSession("u1")
	s.Start(time.Now())
	require.NoError(t, s.SubmitAnswer(questions, 0, 1, time.Now()))

	s.Start(time.Now())
	assert.Equal(t, 0, s.CurrentQuestionIndex)
	assert.Empty(t, s.CollectedWeights)

	// start from a completed session is also fine
	for i := 0; i < len(questions); i++ {
		require.NoError(t, s.SubmitAnswer(questions, i, 0, time.Now()))
	}
	require.True(t, s.Completed())
	s.Start(time.Now())
	assert.Equal(t, StateAwaitingAnswer, s.State)
}

func TestSessionCopiesWeights(t *testing.T) {
	questions := threeQuestions()
	s := NewSession("u1")
	s.Start(time.Now())
	require.NoError(t, s.SubmitAnswer(questions, 0, 1, time.Now()))

	s.CollectedWeights[0][0] = "mutated"
	assert.Equal(t, domain.AnimalKey("owl"), questions[0].Answers[1].Weights[0])
}
