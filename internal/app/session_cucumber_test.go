package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"totem-quiz-bot/internal/domain"
)

// TestSessionFeatures runs the state machine scenarios in features/.
func TestSessionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "quiz-session",
		ScenarioInitializer: initializeSessionScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("features", "quiz_session.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

type sessionScenario struct {
	questions []domain.Question
	session   *Session
	lastErr   error
}

func initializeSessionScenario(ctx *godog.ScenarioContext) {
	state := &sessionScenario{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*state = sessionScenario{session: NewSession("u1")}
		return ctx, nil
	})

	ctx.Step(`^a question bank with (\d+) questions$`, state.givenQuestionBank)
	ctx.Step(`^the user starts the quiz$`, state.userStarts)
	ctx.Step(`^the user answers question (-?\d+) with answer (-?\d+)$`, state.userAnswers)
	ctx.Step(`^the answer is accepted$`, state.answerAccepted)
	ctx.Step(`^the answer is rejected as "([^"]+)"$`, state.answerRejectedAs)
	ctx.Step(`^the current question index is (\d+)$`, state.currentIndexIs)
	ctx.Step(`^(\d+) weight sets? (?:has|have) been collected$`, state.weightSetsCollected)
	ctx.Step(`^the session is completed$`, state.sessionCompleted)
}

func (s *sessionScenario) givenQuestionBank(n int) error {
	s.questions = make([]domain.Question, n)
	for i := range s.questions {
		s.questions[i] = domain.Question{
			ID:     i,
			Prompt: fmt.Sprintf("question %d", i),
			Answers: []domain.Answer{
				{Label: "first", Weights: []domain.AnimalKey{"fox"}},
				{Label: "second", Weights: []domain.AnimalKey{"owl", "bear"}},
			},
		}
	}
	return nil
}

func (s *sessionScenario) userStarts() error {
	s.session.Start(time.Now())
	return nil
}

func (s *sessionScenario) userAnswers(question, answer int) error {
	s.lastErr = s.session.SubmitAnswer(s.questions, question, answer, time.Now())
	return nil
}

func (s *sessionScenario) answerAccepted() error {
	if s.lastErr != nil {
		return fmt.Errorf("expected answer to be accepted, got %v", s.lastErr)
	}
	return nil
}

func (s *sessionScenario) answerRejectedAs(reason string) error {
	want := map[string]error{
		"completed":    domain.ErrSessionCompleted,
		"stale":        domain.ErrStaleQuestion,
		"out of range": domain.ErrAnswerOutOfRange,
		"not started":  domain.ErrNotStarted,
	}[reason]
	if want == nil {
		return fmt.Errorf("unknown rejection reason %q", reason)
	}
	if !errors.Is(s.lastErr, want) {
		return fmt.Errorf("expected %v, got %v", want, s.lastErr)
	}
	return nil
}

func (s *sessionScenario) currentIndexIs(index int) error {
	if s.session.CurrentQuestionIndex != index {
		return fmt.Errorf("expected current question %d, got %d", index, s.session.CurrentQuestionIndex)
	}
	return nil
}

func (s *sessionScenario) weightSetsCollected(n int) error {
	if got := len(s.session.CollectedWeights); got != n {
		return fmt.Errorf("expected %d weight sets, got %d", n, got)
	}
	if len(s.session.CollectedWeights) != s.session.CurrentQuestionIndex {
		return fmt.Errorf("weights/index out of sync: %d vs %d", len(s.session.CollectedWeights), s.session.CurrentQuestionIndex)
	}
	return nil
}

func (s *sessionScenario) sessionCompleted() error {
	if !s.session.Completed() {
		return fmt.Errorf("expected completed session, state %s", s.session.State)
	}
	return nil
}
