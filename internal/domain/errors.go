package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataLoad is returned when quiz content is missing or malformed.
	ErrDataLoad = errors.New("quiz content could not be loaded")
	// ErrInvalidTransition wraps every rejected answer event.
	ErrInvalidTransition = errors.New("invalid quiz transition")
	// ErrNotStarted is returned when a user answers without an active session.
	ErrNotStarted = fmt.Errorf("%w: quiz not started", ErrInvalidTransition)
	// ErrSessionCompleted is returned for answers after the last question.
	ErrSessionCompleted = fmt.Errorf("%w: quiz already completed", ErrInvalidTransition)
	// ErrStaleQuestion is returned when the answered question is not the current one.
	ErrStaleQuestion = fmt.Errorf("%w: question is not current", ErrInvalidTransition)
	// ErrAnswerOutOfRange indicates a submitted answer index is invalid.
	ErrAnswerOutOfRange = fmt.Errorf("%w: answer out of range", ErrInvalidTransition)
	// ErrAnimalNotFound indicates an animal key missing from the catalog.
	ErrAnimalNotFound = errors.New("animal not found")
)
