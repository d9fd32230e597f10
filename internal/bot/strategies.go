package bot

import (
	"cloister/internal/domain"
	"cloister/internal/game"
)

// LegalBot places the first legal tile and declines every optional action.
type LegalBot struct{}

func (b *LegalBot) NextCall(g *game.Game, player int) (game.Call, error) {
	pr, ok := g.Prompt()
	if !ok {
		return nil, ErrNoPrompt
	}
	if pr.Kind == game.PromptTile {
		if len(pr.Placements) == 0 {
			return nil, ErrNoPrompt
		}
		p := pr.Placements[0]
		return game.PlaceTileCall{Position: p.Position, Rotation: p.Rotation}, nil
	}
	return game.PassCall{}, nil
}

// EagerBot keeps the board compact and takes every figure and castle it is
// offered.
type EagerBot struct{}

func (b *EagerBot) NextCall(g *game.Game, player int) (game.Call, error) {
	pr, ok := g.Prompt()
	if !ok {
		return nil, ErrNoPrompt
	}
	switch pr.Kind {
	case game.PromptTile:
		if len(pr.Placements) == 0 {
			return nil, ErrNoPrompt
		}
		best := pr.Placements[0]
		bestScore := -1
		for _, p := range pr.Placements {
			if s := neighbours(g.Board(), p.Position); s > bestScore {
				best, bestScore = p, s
			}
		}
		return game.PlaceTileCall{Position: best.Position, Rotation: best.Rotation}, nil

	case game.PromptMeeple:
		return eagerMeeple(g, pr), nil

	case game.PromptCastle:
		if len(pr.Pointers) > 0 {
			fp := pr.Pointers[0]
			return game.DeployCastleCall{Position: fp.Position, Location: fp.Location}, nil
		}
	}
	return game.PassCall{}, nil
}

// eagerMeeple prefers a follower in a city, then any follower, then a
// mayor in a city.
func eagerMeeple(g *game.Game, pr game.Prompt) game.Call {
	has := func(kind domain.MeepleKind) bool {
		for _, k := range pr.Meeples {
			if k == kind {
				return true
			}
		}
		return false
	}
	var city, other *domain.FeaturePointer
	for i := range pr.Pointers {
		fp := pr.Pointers[i]
		f, ok := g.Board().Feature(fp)
		if !ok {
			continue
		}
		if f.Kind == domain.KindCity && city == nil {
			city = &fp
		} else if other == nil {
			other = &fp
		}
	}
	switch {
	case has(domain.SmallFollower) && city != nil:
		return game.DeployMeepleCall{Pointer: *city, Meeple: domain.SmallFollower}
	case has(domain.SmallFollower) && other != nil:
		return game.DeployMeepleCall{Pointer: *other, Meeple: domain.SmallFollower}
	case has(domain.Mayor) && city != nil:
		return game.DeployMeepleCall{Pointer: *city, Meeple: domain.Mayor}
	}
	return game.PassCall{}
}

func neighbours(b *domain.Board, pos domain.Position) int {
	n := 0
	for _, side := range domain.Sides {
		if _, ok := b.Tile(pos.Add(side)); ok {
			n++
		}
	}
	return n
}
