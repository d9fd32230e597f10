package game

import (
	"fmt"
	"slices"

	"cloister/internal/domain"
)

// actionPhase lets the turn player deploy one figure on the tile just placed.
type actionPhase struct {
	basePhase
}

// targets returns the unoccupied features of the last placed tile.
func (p *actionPhase) targets() []domain.FeaturePointer {
	g := p.game
	pos, ok := g.LastPlaced()
	if !ok {
		return nil
	}
	tile, ok := g.board.Tile(pos)
	if !ok {
		return nil
	}
	var out []domain.FeaturePointer
	for _, f := range tile.Features {
		if f.Kind == domain.KindCastle {
			continue
		}
		fp := domain.FeaturePointer{Position: pos, Location: f.Location}
		region, ok := domain.WalkRegion(g.board, fp)
		if !ok || region.Occupied() {
			continue
		}
		out = append(out, fp)
	}
	return out
}

// meeples returns the figure kinds the turn player still holds.
func (p *actionPhase) meeples() []domain.MeepleKind {
	g := p.game
	var out []domain.MeepleKind
	if g.Followers(g.turn) > 0 {
		out = append(out, domain.SmallFollower)
	}
	if m, ok := CapabilityOf[*MayorCapability](g); ok && m.Available(g.turn) {
		out = append(out, domain.Mayor)
	}
	return out
}

func (p *actionPhase) Prompt() (Prompt, bool) {
	targets, kinds := p.targets(), p.meeples()
	if len(targets) == 0 || len(kinds) == 0 {
		return Prompt{}, false
	}
	return Prompt{
		Kind:     PromptMeeple,
		Player:   p.game.turn,
		Pointers: targets,
		Meeples:  kinds,
		Passable: true,
	}, true
}

func (p *actionPhase) Enter() Step {
	pr, ok := p.Prompt()
	if !ok {
		return Advance
	}
	p.game.postPrompt(pr)
	return Await
}

func (p *actionPhase) Pass() (Step, error) { return Advance, nil }

func (p *actionPhase) DeployMeeple(fp domain.FeaturePointer, kind domain.MeepleKind) (Step, error) {
	g := p.game
	if !slices.Contains(p.targets(), fp) {
		return Await, fmt.Errorf("%w: %s is not an open feature of the placed tile", ErrIllegalMove, fp)
	}
	if !slices.Contains(p.meeples(), kind) {
		return Await, fmt.Errorf("%w: no %s left", ErrIllegalMove, kind)
	}
	f, _ := g.board.Feature(fp)
	if kind == domain.Mayor && f.Kind != domain.KindCity {
		return Await, fmt.Errorf("%w: mayor must stand in a city", ErrIllegalMove)
	}
	if err := g.board.AddMeeple(fp, domain.Meeple{Player: g.turn, Kind: kind}); err != nil {
		return Await, err
	}
	if kind == domain.Mayor {
		m, _ := CapabilityOf[*MayorCapability](g)
		m.take(g.turn)
	} else {
		g.followers[g.turn]--
	}
	g.Post(Event{Kind: EventMeepleDeployed, Payload: MeepleDeployedPayload{Player: g.turn, Pointer: fp, Meeple: kind}})
	return Advance, nil
}
