package game

import (
	"fmt"

	"cloister/internal/domain"
)

// CastlesPerPlayer is the conversion allowance each player starts with.
const CastlesPerPlayer = 3

// Castle is a converted two segment city.
type Castle struct {
	Owner    int                     `json:"owner"`
	Pointers []domain.FeaturePointer `json:"pointers"`
}

// CastleState is the exported form of CastleCapability.
type CastleState struct {
	Remaining []int
	Built     []Castle
	Bases     map[int][]domain.Location
	Player    int
	Offered   []domain.Location
}

// CastleCapability tracks castle allowances and the scratch state of the
// tile event currently being processed.
type CastleCapability struct {
	remaining []int
	built     []Castle

	// scratch, scoped to the last placed tile
	bases   map[int][]domain.Location
	player  int
	offered []domain.Location
}

func newCastleCapability(players int) *CastleCapability {
	c := &CastleCapability{remaining: make([]int, players), player: -1}
	for i := range c.remaining {
		c.remaining[i] = CastlesPerPlayer
	}
	return c
}

func (c *CastleCapability) Kind() CapabilityKind { return CapabilityCastle }

// PlayerCastles returns the remaining allowance of a player.
func (c *CastleCapability) PlayerCastles(player int) int {
	if player < 0 || player >= len(c.remaining) {
		return 0
	}
	return c.remaining[player]
}

// DecreaseCastles consumes one allowance. Callers check PlayerCastles
// first; an exhausted allowance stays at zero.
func (c *CastleCapability) DecreaseCastles(player int) {
	if c.PlayerCastles(player) > 0 {
		c.remaining[player]--
	}
}

// Built returns converted castles in conversion order.
func (c *CastleCapability) Built() []Castle {
	return append([]Castle(nil), c.built...)
}

// CurrentTileCastleBases returns the unresolved qualifying locations per player.
func (c *CastleCapability) CurrentTileCastleBases() map[int][]domain.Location {
	return c.bases
}

func (c *CastleCapability) SetCurrentTileCastleBases(bases map[int][]domain.Location) {
	c.bases = bases
}

// CastlePlayer returns the player currently choosing a castle location.
func (c *CastleCapability) CastlePlayer() (int, bool) {
	return c.player, c.player >= 0
}

// Offered returns the locations presented to the castle player.
func (c *CastleCapability) Offered() []domain.Location {
	return append([]domain.Location(nil), c.offered...)
}

func (c *CastleCapability) setCastlePlayer(player int, offered []domain.Location) {
	c.player = player
	c.offered = offered
}

// clearScratch drops the per tile state before the phase moves on.
func (c *CastleCapability) clearScratch() {
	c.bases = nil
	c.player = -1
	c.offered = nil
}

// ConvertCityToCastle turns the whole region containing fp into a castle.
func (c *CastleCapability) ConvertCityToCastle(b *domain.Board, fp domain.FeaturePointer, owner int) (Castle, error) {
	region, ok := domain.WalkRegion(b, fp)
	if !ok {
		return Castle{}, fmt.Errorf("%w: %s", domain.ErrNoFeature, fp)
	}
	if err := b.Convert(region.Pointers, domain.KindCastle); err != nil {
		return Castle{}, err
	}
	castle := Castle{Owner: owner, Pointers: region.Pointers}
	c.built = append(c.built, castle)
	return castle, nil
}

func (c *CastleCapability) export(st *State) {
	cs := &CastleState{
		Remaining: append([]int(nil), c.remaining...),
		Player:    c.player,
		Offered:   append([]domain.Location(nil), c.offered...),
	}
	for _, castle := range c.built {
		cs.Built = append(cs.Built, Castle{Owner: castle.Owner, Pointers: append([]domain.FeaturePointer(nil), castle.Pointers...)})
	}
	if c.bases != nil {
		cs.Bases = make(map[int][]domain.Location, len(c.bases))
		for p, locs := range c.bases {
			cs.Bases[p] = append([]domain.Location(nil), locs...)
		}
	}
	st.Castle = cs
}

func (c *CastleCapability) restore(st State) error {
	if st.Castle == nil {
		return fmt.Errorf("%w: castle state missing", ErrInvalidState)
	}
	cs := st.Castle
	if len(cs.Remaining) != len(c.remaining) {
		return fmt.Errorf("%w: castle allowance for %d players, want %d", ErrInvalidState, len(cs.Remaining), len(c.remaining))
	}
	c.remaining = append([]int(nil), cs.Remaining...)
	c.built = append([]Castle(nil), cs.Built...)
	c.player = cs.Player
	if c.player >= len(c.remaining) {
		return fmt.Errorf("%w: castle player %d", ErrInvalidState, c.player)
	}
	if len(cs.Offered) > 0 {
		c.offered = append([]domain.Location(nil), cs.Offered...)
	}
	if cs.Bases != nil {
		c.bases = make(map[int][]domain.Location, len(cs.Bases))
		for p, locs := range cs.Bases {
			c.bases[p] = append([]domain.Location(nil), locs...)
		}
	}
	return nil
}
