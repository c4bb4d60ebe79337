package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnimalKey joins answer weights to the animal catalog.
type AnimalKey string

// Answer is one selectable option of a question. An answer may count toward
// several animals at once.
type Answer struct {
	Label   string      `json:"text"`
	Weights []AnimalKey `json:"weights"`
}

// Question models one step of the quiz. ID is the position in the question
// sequence and is assigned when the content is loaded.
type Question struct {
	ID      int      `json:"-"`
	Prompt  string   `json:"question"`
	Answers []Answer `json:"answers"`
}

// AnimalProfile describes a possible quiz outcome.
type AnimalProfile struct {
	Key         AnimalKey `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
}

// Catalog maps animal keys to their profiles.
type Catalog map[AnimalKey]AnimalProfile

// Outcome is the resolved quiz result.
type Outcome struct {
	AnimalKey AnimalKey
	Score     int
	Profile   AnimalProfile
}

// NoOutcomeReason explains why a finished quiz produced no outcome.
type NoOutcomeReason string

const (
	ReasonNoAnswers  NoOutcomeReason = "no-answers"
	ReasonUnknownKey NoOutcomeReason = "unknown-key"
)

// Resolution carries either an Outcome or the reason there is none.
type Resolution struct {
	Outcome *Outcome
	Reason  NoOutcomeReason
	// Key is the winning key even when it is missing from the catalog.
	Key AnimalKey
}

// Resolved reports whether an outcome was found.
func (r Resolution) Resolved() bool {
	return r.Outcome != nil
}

// FeedbackEntry is free-form feedback left after a quiz.
type FeedbackEntry struct {
	UserID    string
	Username  string
	Text      string
	CreatedAt time.Time
}

// ContactRequest asks zoo staff to get in touch about a guardianship.
type ContactRequest struct {
	ID        uuid.UUID
	UserID    string
	FullName  string
	AnimalKey AnimalKey
	CreatedAt time.Time
}
