package content

import (
	"fmt"

	"totem-quiz-bot/internal/domain"
)

// DanglingKey is an answer weight that has no catalog entry.
type DanglingKey struct {
	QuestionIndex int
	AnswerIndex   int
	Key           domain.AnimalKey
}

func (d DanglingKey) String() string {
	return fmt.Sprintf("question %d answer %d: unknown animal %q", d.QuestionIndex, d.AnswerIndex, d.Key)
}

// CrossCheck lists every weight key that is missing from the catalog.
func CrossCheck(store *Store) []DanglingKey {
	var dangling []DanglingKey
	for qi, q := range store.Questions() {
		for ai, a := range q.Answers {
			for _, key := range a.Weights {
				if _, ok := store.Animal(key); !ok {
					dangling = append(dangling, DanglingKey{QuestionIndex: qi, AnswerIndex: ai, Key: key})
				}
			}
		}
	}
	return dangling
}
