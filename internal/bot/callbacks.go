package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"totem-quiz-bot/internal/domain"
)

const (
	ActionStartQuiz = "start_quiz"
	ActionAnswer    = "answer"
	ActionShare     = "share"
	ActionFeedback  = "feedback"
	ActionContact   = "contact"

	answerPrefix  = "answer_"
	sharePrefix   = "share_"
	contactPrefix = "contact_"
)

var ErrBadCallback = errors.New("malformed callback data")

// Callback is decoded button data.
type Callback struct {
	Action        string
	QuestionIndex int
	AnswerIndex   int
	Animal        domain.AnimalKey
}

func ParseCallback(data string) (Callback, error) {
	switch {
	case data == ActionStartQuiz:
		return Callback{Action: ActionStartQuiz}, nil
	case data == ActionFeedback:
		return Callback{Action: ActionFeedback}, nil
	case strings.HasPrefix(data, answerPrefix):
		parts := strings.Split(strings.TrimPrefix(data, answerPrefix), "_")
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		q, errQ := strconv.Atoi(parts[0])
		a, errA := strconv.Atoi(parts[1])
		if errQ != nil || errA != nil {
			return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
		}
		return Callback{Action: ActionAnswer, QuestionIndex: q, AnswerIndex: a}, nil
	case strings.HasPrefix(data, sharePrefix):
		return animalCallback(ActionShare, strings.TrimPrefix(data, sharePrefix), data)
	case strings.HasPrefix(data, contactPrefix):
		return animalCallback(ActionContact, strings.TrimPrefix(data, contactPrefix), data)
	default:
		return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, data)
	}
}

func animalCallback(action, key, raw string) (Callback, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Callback{}, fmt.Errorf("%w: %q", ErrBadCallback, raw)
	}
	return Callback{Action: action, Animal: domain.AnimalKey(key)}, nil
}

func AnswerData(questionIndex, answerIndex int) string {
	return fmt.Sprintf("%s%d_%d", answerPrefix, questionIndex, answerIndex)
}

func ShareData(key domain.AnimalKey) string {
	return sharePrefix + string(key)
}

func ContactData(key domain.AnimalKey) string {
	return contactPrefix + string(key)
}
