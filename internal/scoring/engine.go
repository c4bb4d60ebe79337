package scoring

import (
	"sort"

	"totem-quiz-bot/internal/domain"
)

// ScoreTable counts how many collected answers tagged each animal.
type ScoreTable map[domain.AnimalKey]int

// Entry is one row of a ranked score table.
type Entry struct {
	Key   domain.AnimalKey
	Score int
}

// CalculateScores adds one point per tag occurrence. An answer tagging three
// animals contributes one point to each of them.
func CalculateScores(weights [][]domain.AnimalKey) ScoreTable {
	scores := make(ScoreTable)
	for _, answer := range weights {
		for _, key := range answer {
			scores[key]++
		}
	}
	return scores
}

// DetermineTopAnimal returns the animal with the highest score. Ties go to the
// lexicographically smallest key so the winner never depends on map order.
// ok is false when scores is empty.
func DetermineTopAnimal(scores ScoreTable) (key domain.AnimalKey, score int, ok bool) {
	for k, s := range scores {
		if !ok || s > score || (s == score && k < key) {
			key, score, ok = k, s, true
		}
	}
	return key, score, ok
}

// Ranking orders the table by score desc, then key asc.
func Ranking(scores ScoreTable) []Entry {
	entries := make([]Entry, 0, len(scores))
	for k, s := range scores {
		entries = append(entries, Entry{Key: k, Score: s})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
