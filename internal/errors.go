package internal

import "errors"

// Typed failures the HTTP layer and tests distinguish with errors.Is. None
// of these are fatal; each one scopes to the single requested operation.
var (
	// Validation errors, raised before any store write happens.
	ErrEmptyRoomName     = errors.New("room name must not be empty")
	ErrInvalidMaxPlayers = errors.New("max players must be between 1 and 8")
	ErrUnknownCategory   = errors.New("unknown question category")

	// Precondition errors.
	ErrCapacityExceeded    = errors.New("room is full")
	ErrInvalidPasscode     = errors.New("invalid room code")
	ErrNotHost             = errors.New("only the host may do this")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrAlreadyJoined       = errors.New("already joined this room")
	ErrRoomFinished        = errors.New("room is finished")
	ErrRoomNotPlaying      = errors.New("room is not playing")
	ErrWordAlreadySet      = errors.New("a word is already assigned")

	// Not-found errors.
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// Game-logic edge cases.
	ErrNoQuestionsAvailable = errors.New("no questions available")
)
