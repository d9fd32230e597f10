package game

import "errors"

var (
	ErrNotAllowed     = errors.New("action not allowed in current phase")
	ErrIllegalMove    = errors.New("illegal move")
	ErrUnknownCall    = errors.New("unknown call")
	ErrAlreadyStarted = errors.New("game already started")
	ErrNoPlayers      = errors.New("no occupied player slots")
	ErrInvalidSlot    = errors.New("invalid slot number")
	ErrInvalidState   = errors.New("invalid game state")
)
