package game

import (
	"fmt"

	"cloister/internal/domain"
)

// State is the complete persistent state of a game. Scratch state of a
// capability is included while a phase waits on it, so a restored game
// resumes mid-decision.
type State struct {
	Name       string
	Slots      []domain.PlayerSlot
	Expansions []domain.Expansion
	Rules      []domain.CustomRule

	Started    bool
	Players    []Player
	Followers  []int
	Tiles      []domain.PlacedTile
	Pack       []string
	Drawn      string
	LastPlaced *domain.Position
	Turn       int
	Serial     int

	Phase   PhaseID
	Entered bool

	Castle *CastleState `cbor:",omitempty"`
	Mayor  *MayorState  `cbor:",omitempty"`
}

// Export deep-copies the game state. A game parked in LoadGame exports the
// phase it will resume.
func (g *Game) Export() State {
	st := State{
		Name:       g.name,
		Slots:      g.Slots(),
		Expansions: g.Expansions(),
		Rules:      g.Rules(),
		Started:    g.started,
		Players:    g.Players(),
		Followers:  append([]int(nil), g.followers...),
		Pack:       append([]string(nil), g.pack...),
		Drawn:      g.drawn,
		Turn:       g.turn,
		Serial:     g.serial,
		Phase:      g.current,
		Entered:    g.entered,
	}
	if g.lastPlaced != nil {
		pos := *g.lastPlaced
		st.LastPlaced = &pos
	}
	for _, t := range g.board.Tiles() {
		pt := domain.PlacedTile{TileID: t.TileID, Position: t.Position, Rotation: t.Rotation}
		for _, f := range t.Features {
			cf := *f
			cf.Meeples = append([]domain.Meeple(nil), f.Meeples...)
			pt.Features = append(pt.Features, &cf)
		}
		st.Tiles = append(st.Tiles, pt)
	}
	if lg, ok := g.phases[PhaseLoadGame].(*loadGamePhase); ok && g.current == PhaseLoadGame && g.started {
		st.Phase = lg.resumeTo
		st.Entered = lg.resumeEntered
	}
	for _, c := range g.capabilities {
		c.export(&st)
	}
	return st
}

// Restore rebuilds a game from st and leaves it at the captured phase, as
// if play had never stopped.
func Restore(id string, st State) (*Game, error) {
	g := New(id, st.Name)
	if err := g.fill(st); err != nil {
		return nil, err
	}
	if !g.phases[st.Phase].IsActive() {
		return nil, fmt.Errorf("%w: phase %s is inactive with the saved expansions", ErrInvalidState, st.Phase)
	}
	g.current = st.Phase
	g.entered = st.Entered
	return g, nil
}

// Load rebuilds a game from st and parks it in LoadGame until StartGame
// resumes it. Games saved before start go back to setup.
func Load(id string, st State) (*Game, error) {
	g, err := Restore(id, st)
	if err != nil {
		return nil, err
	}
	if !g.started {
		g.enterPhase(PhaseCreateGame)
		return g, nil
	}
	lg := g.phases[PhaseLoadGame].(*loadGamePhase)
	lg.resumeTo = g.current
	lg.resumeEntered = g.entered
	g.enterPhase(PhaseLoadGame)
	return g, nil
}

func (g *Game) fill(st State) error {
	if _, ok := g.phases[st.Phase]; !ok {
		return fmt.Errorf("%w: unknown phase %d", ErrInvalidState, int(st.Phase))
	}
	if len(st.Slots) != domain.SlotCount {
		return fmt.Errorf("%w: %d slots", ErrInvalidState, len(st.Slots))
	}
	g.slots = append([]domain.PlayerSlot(nil), st.Slots...)

	g.expansions = map[domain.Expansion]bool{}
	for _, e := range st.Expansions {
		if !e.IsImplemented() {
			return fmt.Errorf("%w: unknown expansion %q", ErrInvalidState, e)
		}
		g.expansions[e] = true
	}
	g.rules = map[domain.CustomRule]bool{}
	for _, r := range st.Rules {
		g.rules[r] = true
	}

	board, err := domain.RestoreBoard(st.Tiles)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	g.board = board
	g.pack = append([]string(nil), st.Pack...)
	g.drawn = st.Drawn
	if st.LastPlaced != nil {
		pos := *st.LastPlaced
		g.lastPlaced = &pos
	}
	g.serial = st.Serial

	if !st.Started {
		return nil
	}
	if len(st.Players) == 0 || len(st.Followers) != len(st.Players) {
		return fmt.Errorf("%w: %d players with %d follower supplies", ErrInvalidState, len(st.Players), len(st.Followers))
	}
	if st.Turn < 0 || st.Turn >= len(st.Players) {
		return fmt.Errorf("%w: turn %d", ErrInvalidState, st.Turn)
	}
	g.started = true
	g.players = append([]Player(nil), st.Players...)
	g.followers = append([]int(nil), st.Followers...)
	g.turn = st.Turn
	g.initCapabilities()
	for _, c := range g.capabilities {
		if err := c.restore(st); err != nil {
			return err
		}
	}
	if st.Castle != nil && !g.HasCapability(CapabilityCastle) {
		return fmt.Errorf("%w: castle state without castle expansion", ErrInvalidState)
	}
	return nil
}
