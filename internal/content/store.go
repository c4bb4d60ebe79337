package content

import (
	"context"
	"fmt"
	"sort"

	"totem-quiz-bot/internal/domain"
)

// Source loads the persisted question bank and animal catalog.
type Source interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	LoadAnimalCatalog(ctx context.Context) (domain.Catalog, error)
}

// Store holds the immutable quiz content for the lifetime of the process.
type Store struct {
	questions []domain.Question
	animals   domain.Catalog
	keys      []domain.AnimalKey
}

// Initialize loads both catalogs once. It is the only way to build a Store;
// callers pass the result to every component that needs content.
func Initialize(ctx context.Context, src Source) (*Store, error) {
	questions, err := src.LoadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkQuestions(questions); err != nil {
		return nil, err
	}
	animals, err := src.LoadAnimalCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(animals) == 0 {
		return nil, fmt.Errorf("%w: animal catalog is empty", domain.ErrDataLoad)
	}
	return NewStore(questions, animals), nil
}

// NewStore builds a Store from already loaded content. Question IDs and
// profile keys are normalised from positions and map keys.
func NewStore(questions []domain.Question, animals domain.Catalog) *Store {
	qs := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.ID = i
		qs[i] = q
	}
	catalog := make(domain.Catalog, len(animals))
	keys := make([]domain.AnimalKey, 0, len(animals))
	for key, profile := range animals {
		profile.Key = key
		catalog[key] = profile
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return &Store{questions: qs, animals: catalog, keys: keys}
}

func checkQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: question list is empty", domain.ErrDataLoad)
	}
	for i, q := range questions {
		if len(q.Answers) == 0 {
			return fmt.Errorf("%w: question %d has no answers", domain.ErrDataLoad, i)
		}
	}
	return nil
}

// Questions returns the ordered question sequence. Callers must not modify it.
func (s *Store) Questions() []domain.Question {
	return s.questions
}

// Question returns the question at index.
func (s *Store) Question(index int) (domain.Question, bool) {
	if index < 0 || index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[index], true
}

// TotalQuestions is the fixed length of the quiz.
func (s *Store) TotalQuestions() int {
	return len(s.questions)
}

// Catalog returns the animal catalog. Callers must not modify it.
func (s *Store) Catalog() domain.Catalog {
	return s.animals
}

// Animal looks up one profile.
func (s *Store) Animal(key domain.AnimalKey) (domain.AnimalProfile, bool) {
	profile, ok := s.animals[key]
	return profile, ok
}

// AnimalKeys lists catalog keys in sorted order.
func (s *Store) AnimalKeys() []domain.AnimalKey {
	return s.keys
}
