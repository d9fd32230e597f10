package game

import (
	"fmt"

	"cloister/internal/domain"
)

type tilePhase struct {
	basePhase
}

func (p *tilePhase) Enter() Step {
	if _, ok := p.game.DrawnTile(); !ok {
		return Goto(PhaseGameOver)
	}
	pr, _ := p.Prompt()
	p.game.postPrompt(pr)
	return Await
}

func (p *tilePhase) Prompt() (Prompt, bool) {
	g := p.game
	id, ok := g.DrawnTile()
	if !ok {
		return Prompt{}, false
	}
	def, _ := domain.LookupTile(id)
	return Prompt{
		Kind:       PromptTile,
		Player:     g.turn,
		TileID:     id,
		Placements: g.board.LegalPlacements(def),
	}, true
}

func (p *tilePhase) PlaceTile(pos domain.Position, rot domain.Rotation) (Step, error) {
	g := p.game
	id, ok := g.DrawnTile()
	if !ok {
		return Await, fmt.Errorf("%w: no tile drawn", ErrIllegalMove)
	}
	def, ok := domain.LookupTile(id)
	if !ok {
		return Await, fmt.Errorf("%w: %q", domain.ErrUnknownTile, id)
	}
	placed, err := g.board.Place(def, pos, rot)
	if err != nil {
		return Await, fmt.Errorf("%w: %w", ErrIllegalMove, err)
	}
	g.lastPlaced = &pos
	g.drawn = ""
	g.Post(Event{Kind: EventTilePlaced, Payload: TilePlacedPayload{
		Player:   g.turn,
		TileID:   id,
		Position: pos,
		Rotation: placed.Rotation,
	}})
	return Advance, nil
}

// cleanUpPhase hands the turn to the next player and draws their tile.
type cleanUpPhase struct {
	basePhase
}

func (p *cleanUpPhase) Enter() Step {
	g := p.game
	g.turn = (g.turn + 1) % len(g.players)
	if !g.drawNext() {
		return Goto(PhaseGameOver)
	}
	return Advance
}

// gameOverPhase is terminal.
type gameOverPhase struct {
	basePhase
}

func (p *gameOverPhase) Enter() Step {
	var castles []Castle
	if c, ok := CapabilityOf[*CastleCapability](p.game); ok {
		castles = c.Built()
	}
	p.game.Post(Event{Kind: EventGameOver, Payload: GameOverPayload{Castles: castles}})
	return Await
}

func (p *gameOverPhase) ActivePlayer() int { return -1 }
