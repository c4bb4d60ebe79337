package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"totem-quiz-bot/internal/domain"
)

// FileSource reads questions.json and animals.json from disk.
type FileSource struct {
	QuestionsPath string
	AnimalsPath   string
}

func NewFileSource(questionsPath, animalsPath string) *FileSource {
	return &FileSource{QuestionsPath: questionsPath, AnimalsPath: animalsPath}
}

func (s *FileSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	var questions []domain.Question
	if err := readJSON(s.QuestionsPath, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *FileSource) LoadAnimalCatalog(_ context.Context) (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := readJSON(s.AnimalsPath, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrDataLoad, path, err)
	}
	if err := DecodeJSON(data, dst); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// DecodeJSON unmarshals a content document, reporting failures as data load errors.
func DecodeJSON(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: decode: %v", domain.ErrDataLoad, err)
	}
	return nil
}
