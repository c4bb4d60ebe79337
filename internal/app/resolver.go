package app

import (
	"totem-quiz-bot/internal/domain"
	"totem-quiz-bot/internal/scoring"
)

// Resolve turns collected answers into an outcome. It never mutates its inputs.
func Resolve(weights [][]domain.AnimalKey, catalog domain.Catalog) domain.Resolution {
	scores := scoring.CalculateScores(weights)
	key, score, ok := scoring.DetermineTopAnimal(scores)
	if !ok {
		return domain.Resolution{Reason: domain.ReasonNoAnswers}
	}
	profile, found := catalog[key]
	if !found {
		return domain.Resolution{Reason: domain.ReasonUnknownKey, Key: key}
	}
	return domain.Resolution{
		Key:     key,
		Outcome: &domain.Outcome{AnimalKey: key, Score: score, Profile: profile},
	}
}
