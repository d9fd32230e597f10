package bot

import (
	"fmt"

	"cloister/internal/game"
)

// Agent is an AI seat of one game.
type Agent struct {
	Player   int
	Class    string
	Strategy Brain
}

// NewAgent builds the agent for a seated player.
func NewAgent(player int, class string) (*Agent, error) {
	brain, err := NewBrain(class)
	if err != nil {
		return nil, err
	}
	return &Agent{Player: player, Class: class, Strategy: brain}, nil
}

// Play asks the agent for its call. It returns ErrNoPrompt when the game
// is not waiting on this agent.
func (a *Agent) Play(g *game.Game) (game.Call, error) {
	pr, ok := g.Prompt()
	if !ok || pr.Player != a.Player || g.ActivePlayer() != a.Player {
		return nil, ErrNoPrompt
	}
	call, err := a.Strategy.NextCall(g, a.Player)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Class, err)
	}
	return call, nil
}
