package domain

import (
	"errors"

	"survey-game-service/internal/survey"
)

var (
	// ErrSessionNotFound is returned when a survey session does not exist or has expired.
	ErrSessionNotFound = errors.New("survey session not found")
	// ErrSessionCompleted is returned when an action targets a finished survey.
	ErrSessionCompleted = errors.New("survey session already completed")
	// ErrNoCurrentQuestion indicates there is no question to act on (no content loaded).
	ErrNoCurrentQuestion = errors.New("no current question")
	// ErrInvalidAnswer indicates the submitted value is not acceptable for the current question.
	ErrInvalidAnswer = errors.New("invalid answer for question")
	// ErrPlayerNotFound is returned when a respondent has no stored stats yet.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrNoQuestions indicates the question store returned nothing.
	ErrNoQuestions = errors.New("no questions available")
	// ErrSnapshotMismatch indicates a stored session no longer fits the loaded questions.
	ErrSnapshotMismatch = survey.ErrSnapshotMismatch
)
