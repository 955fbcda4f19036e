package services

import "errors"

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")

	ErrNotFound          = errors.New("not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrInvalidOpponent   = errors.New("invalid opponent")
	ErrInvalidClicks     = errors.New("invalid click count")
	ErrInvalidState      = errors.New("match is not in a valid state for this operation")
	ErrMatchNotActive    = errors.New("match is not in progress")
	ErrNotAParticipant   = errors.New("not a participant in this match")
	ErrFinishFailed      = errors.New("failed to finish match")
)
