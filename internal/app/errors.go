package app

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownGame     = errors.New("unknown game")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrSlotTaken       = errors.New("slot already taken")
	ErrPanicked        = errors.New("game panicked")
)
