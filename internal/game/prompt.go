package game

import "cloister/internal/domain"

// PromptKind names the decision the active player is asked to make.
type PromptKind string

const (
	PromptTile   PromptKind = "tile"
	PromptMeeple PromptKind = "meeple"
	PromptCastle PromptKind = "castle"
)

// Prompt is the action currently presented to the active player.
type Prompt struct {
	Kind       PromptKind              `json:"kind"`
	Player     int                     `json:"player"`
	TileID     string                  `json:"tileId,omitempty"`
	Placements []domain.Placement      `json:"placements,omitempty"`
	Pointers   []domain.FeaturePointer `json:"pointers,omitempty"`
	Meeples    []domain.MeepleKind     `json:"meeples,omitempty"`
	Passable   bool                    `json:"passable"`
}

// Prompt returns the decision the game waits for, if any.
func (g *Game) Prompt() (Prompt, bool) {
	if !g.entered {
		return Prompt{}, false
	}
	return g.phases[g.current].Prompt()
}

func (g *Game) postPrompt(pr Prompt) {
	g.Post(Event{Kind: EventSelectAction, Payload: SelectActionPayload{Prompt: pr}})
}

// Reprompt posts the pending decision again. Clients rebuild their action
// panel from it after an undo or a resume.
func (g *Game) Reprompt() bool {
	pr, ok := g.Prompt()
	if ok {
		g.postPrompt(pr)
	}
	return ok
}
