package bot

import (
	"errors"

	"cloister/internal/game"
)

var ErrNoPrompt = errors.New("bot: game is not waiting on a decision")

// Brain is the interface that all bot strategies must implement.
type Brain interface {
	// NextCall answers the prompt the game currently presents to player.
	NextCall(g *game.Game, player int) (game.Call, error)
}
