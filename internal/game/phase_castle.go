package game

import (
	"fmt"
	"slices"

	"cloister/internal/domain"
)

// castlePhase offers players owning a freshly completed two segment city
// base the chance to turn it into a castle. Several players may qualify on
// the same tile; they are asked one at a time in seating order from the
// turn player.
type castlePhase struct {
	basePhase
}

func (p *castlePhase) capability() *CastleCapability {
	c, _ := CapabilityOf[*CastleCapability](p.game)
	return c
}

func (p *castlePhase) IsActive() bool {
	return p.game.HasCapability(CapabilityCastle)
}

func (p *castlePhase) ActivePlayer() int {
	if player, ok := p.capability().CastlePlayer(); ok {
		return player
	}
	return p.game.TurnPlayer()
}

func (p *castlePhase) Enter() Step {
	g := p.game
	c := p.capability()
	pos, ok := g.LastPlaced()
	if !ok {
		return Advance
	}
	tile, ok := g.board.Tile(pos)
	if !ok {
		return Advance
	}
	bases := map[int][]domain.Location{}
	for _, f := range tile.Features {
		if f.Kind != domain.KindCity {
			continue
		}
		region, ok := domain.WalkRegion(g.board, domain.FeaturePointer{Position: pos, Location: f.Location})
		if !ok {
			continue
		}
		owner, ok := region.CastleOwner()
		if !ok || c.PlayerCastles(owner) == 0 {
			continue
		}
		bases[owner] = append(bases[owner], f.Location)
	}
	if len(bases) == 0 {
		return Advance
	}
	c.SetCurrentTileCastleBases(bases)
	return p.prepareCastleAction()
}

// prepareCastleAction presents the next qualifying player their locations,
// consuming them from the pending set, or leaves once none remain.
func (p *castlePhase) prepareCastleAction() Step {
	g := p.game
	c := p.capability()
	bases := c.CurrentTileCastleBases()
	n := len(g.players)
	for i := 0; i < n && len(bases) > 0; i++ {
		player := (g.turn + i) % n
		locs, ok := bases[player]
		if !ok {
			continue
		}
		delete(bases, player)
		c.setCastlePlayer(player, locs)
		pr, _ := p.Prompt()
		g.postPrompt(pr)
		return Await
	}
	c.clearScratch()
	return Advance
}

func (p *castlePhase) Prompt() (Prompt, bool) {
	c := p.capability()
	player, ok := c.CastlePlayer()
	if !ok {
		return Prompt{}, false
	}
	pos, _ := p.game.LastPlaced()
	pr := Prompt{Kind: PromptCastle, Player: player, Passable: true}
	for _, loc := range c.Offered() {
		pr.Pointers = append(pr.Pointers, domain.FeaturePointer{Position: pos, Location: loc})
	}
	return pr, true
}

func (p *castlePhase) Pass() (Step, error) {
	if _, ok := p.capability().CastlePlayer(); !ok {
		return p.notAllowed(MethodPass)
	}
	return p.prepareCastleAction(), nil
}

func (p *castlePhase) DeployCastle(pos domain.Position, loc domain.Location) (Step, error) {
	g := p.game
	c := p.capability()
	player, ok := c.CastlePlayer()
	if !ok {
		return p.notAllowed(MethodDeployCastle)
	}
	if last, _ := g.LastPlaced(); last != pos {
		return Await, fmt.Errorf("%w: castle must be on the placed tile %s", ErrIllegalMove, last)
	}
	if !slices.Contains(c.Offered(), loc) {
		return Await, fmt.Errorf("%w: %s was not offered", ErrIllegalMove, loc)
	}
	if c.PlayerCastles(player) == 0 {
		return Await, fmt.Errorf("%w: player %d has no castles left", ErrIllegalMove, player)
	}
	castle, err := c.ConvertCityToCastle(g.board, domain.FeaturePointer{Position: pos, Location: loc}, player)
	if err != nil {
		return Await, err
	}
	c.DecreaseCastles(player)
	g.Post(Event{Kind: EventCastleDeployed, Payload: CastleDeployedPayload{Player: player, Castle: castle}})
	return p.prepareCastleAction(), nil
}
