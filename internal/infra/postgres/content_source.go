package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"totem-quiz-bot/internal/content"
	"totem-quiz-bot/internal/domain"
)

const (
	QuestionsDocument = "questions"
	AnimalsDocument   = "animals"
)

// ContentSource loads the question bank and animal catalog from JSONB
// documents in the quiz_content table.
type ContentSource struct {
	pool *pgxpool.Pool
}

func NewContentSource(pool *pgxpool.Pool) *ContentSource {
	return &ContentSource{pool: pool}
}

func (s *ContentSource) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	var questions []domain.Question
	if err := s.load(ctx, QuestionsDocument, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *ContentSource) LoadAnimalCatalog(ctx context.Context) (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := s.load(ctx, AnimalsDocument, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Publish stores or replaces a content document. data must be valid JSON.
func (s *ContentSource) Publish(ctx context.Context, name string, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_content (name, data, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		name, string(data))
	if err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

func (s *ContentSource) load(ctx context.Context, name string, dst any) error {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quiz_content WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: content document %q not found", domain.ErrDataLoad, name)
	}
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", domain.ErrDataLoad, name, err)
	}
	if err := content.DecodeJSON(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
