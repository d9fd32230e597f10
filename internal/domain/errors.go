package domain

import "errors"

var (
	ErrInvalidLocation  = errors.New("invalid location")
	ErrUnknownTile      = errors.New("unknown tile")
	ErrOccupiedPosition = errors.New("position already occupied")
	ErrNotAdjacent      = errors.New("tile must touch an existing tile")
	ErrEdgeMismatch     = errors.New("tile edges do not match neighbours")
	ErrNoFeature        = errors.New("no feature at pointer")
	ErrUnknownMeeple    = errors.New("unknown meeple kind")
)
