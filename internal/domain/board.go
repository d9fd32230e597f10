package domain

import (
	"fmt"
	"sort"
)

// Feature is one feature instance on a placed tile. Location is absolute,
// i.e. already rotated.
type Feature struct {
	Kind       FeatureKind `json:"kind"`
	Location   Location    `json:"location"`
	CastleBase bool        `json:"castleBase,omitempty"`
	Meeples    []Meeple    `json:"meeples,omitempty"`
}

// PlacedTile is a tile on the board.
type PlacedTile struct {
	TileID   string     `json:"tileId"`
	Position Position   `json:"position"`
	Rotation Rotation   `json:"rotation"`
	Features []*Feature `json:"features"`
}

// Placement is a candidate position and rotation for a tile.
type Placement struct {
	Position Position `json:"position"`
	Rotation Rotation `json:"rotation"`
}

// Board holds the placed tiles keyed by position.
type Board struct {
	tiles map[Position]*PlacedTile
	order []Position
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{tiles: make(map[Position]*PlacedTile)}
}

// Len returns the number of placed tiles.
func (b *Board) Len() int {
	return len(b.order)
}

// Tile returns the tile at pos.
func (b *Board) Tile(pos Position) (*PlacedTile, bool) {
	t, ok := b.tiles[pos]
	return t, ok
}

// Tiles returns placed tiles in placement order.
func (b *Board) Tiles() []*PlacedTile {
	out := make([]*PlacedTile, 0, len(b.order))
	for _, pos := range b.order {
		out = append(out, b.tiles[pos])
	}
	return out
}

// Feature resolves a pointer to the feature with exactly that location.
func (b *Board) Feature(fp FeaturePointer) (*Feature, bool) {
	t, ok := b.tiles[fp.Position]
	if !ok {
		return nil, false
	}
	for _, f := range t.Features {
		if f.Location == fp.Location {
			return f, true
		}
	}
	return nil, false
}

// featureOnSide returns the feature of the tile at pos touching side.
func (b *Board) featureOnSide(pos Position, side Location) (*Feature, bool) {
	t, ok := b.tiles[pos]
	if !ok {
		return nil, false
	}
	for _, f := range t.Features {
		if f.Location&side != 0 {
			return f, true
		}
	}
	return nil, false
}

func edgeOf(features []FeatureDef, rot Rotation, side Location) edgeType {
	for _, f := range features {
		if f.Location.Rotate(rot)&side != 0 {
			return f.Kind.edge()
		}
	}
	return edgeField
}

func placedEdge(b *Board, pos Position, side Location) edgeType {
	if f, ok := b.featureOnSide(pos, side); ok {
		return f.Kind.edge()
	}
	return edgeField
}

// CanPlace checks whether def fits at pos with rotation rot.
func (b *Board) CanPlace(def TileDef, pos Position, rot Rotation) error {
	if _, ok := b.tiles[pos]; ok {
		return fmt.Errorf("%w: %s", ErrOccupiedPosition, pos)
	}
	if len(b.tiles) == 0 {
		return nil
	}
	neighbours := 0
	for _, side := range Sides {
		np := pos.Add(side)
		if _, ok := b.tiles[np]; !ok {
			continue
		}
		neighbours++
		if edgeOf(def.Features, rot, side) != placedEdge(b, np, side.Opposite()) {
			return fmt.Errorf("%w: %s side %s", ErrEdgeMismatch, pos, side)
		}
	}
	if neighbours == 0 {
		return fmt.Errorf("%w: %s", ErrNotAdjacent, pos)
	}
	return nil
}

// Place puts def on the board after validating the placement.
func (b *Board) Place(def TileDef, pos Position, rot Rotation) (*PlacedTile, error) {
	rot = rot.Normalize()
	if err := b.CanPlace(def, pos, rot); err != nil {
		return nil, err
	}
	t := &PlacedTile{TileID: def.ID, Position: pos, Rotation: rot}
	for _, fd := range def.Features {
		t.Features = append(t.Features, &Feature{
			Kind:       fd.Kind,
			Location:   fd.Location.Rotate(rot),
			CastleBase: fd.CastleBase,
		})
	}
	b.tiles[pos] = t
	b.order = append(b.order, pos)
	return t, nil
}

// LegalPlacements lists every valid placement of def, ordered by row,
// column and rotation so all participants enumerate them identically.
func (b *Board) LegalPlacements(def TileDef) []Placement {
	candidates := map[Position]struct{}{}
	for pos := range b.tiles {
		for _, side := range Sides {
			np := pos.Add(side)
			if _, ok := b.tiles[np]; !ok {
				candidates[np] = struct{}{}
			}
		}
	}
	positions := make([]Position, 0, len(candidates))
	for pos := range candidates {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Y != positions[j].Y {
			return positions[i].Y < positions[j].Y
		}
		return positions[i].X < positions[j].X
	})

	var out []Placement
	for _, pos := range positions {
		for rot := Rotation(0); rot < 4; rot++ {
			if b.CanPlace(def, pos, rot) == nil {
				out = append(out, Placement{Position: pos, Rotation: rot})
			}
		}
	}
	return out
}

// AddMeeple stands a figure on the feature at fp.
func (b *Board) AddMeeple(fp FeaturePointer, m Meeple) error {
	f, ok := b.Feature(fp)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoFeature, fp)
	}
	f.Meeples = append(f.Meeples, m)
	return nil
}

// Convert changes the kind of every feature in fps.
func (b *Board) Convert(fps []FeaturePointer, kind FeatureKind) error {
	for _, fp := range fps {
		f, ok := b.Feature(fp)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoFeature, fp)
		}
		f.Kind = kind
	}
	return nil
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	out := NewBoard()
	for _, pos := range b.order {
		t := b.tiles[pos]
		ct := &PlacedTile{TileID: t.TileID, Position: t.Position, Rotation: t.Rotation}
		for _, f := range t.Features {
			cf := *f
			cf.Meeples = append([]Meeple(nil), f.Meeples...)
			ct.Features = append(ct.Features, &cf)
		}
		out.tiles[pos] = ct
		out.order = append(out.order, pos)
	}
	return out
}

// RestoreBoard rebuilds a board from tiles in placement order, trusting the
// recorded feature state instead of re-deriving it from the catalogue.
func RestoreBoard(placed []PlacedTile) (*Board, error) {
	b := NewBoard()
	for i := range placed {
		t := placed[i]
		if _, ok := LookupTile(t.TileID); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTile, t.TileID)
		}
		if _, ok := b.tiles[t.Position]; ok {
			return nil, fmt.Errorf("%w: %s", ErrOccupiedPosition, t.Position)
		}
		ct := &PlacedTile{TileID: t.TileID, Position: t.Position, Rotation: t.Rotation}
		for _, f := range t.Features {
			cf := *f
			cf.Meeples = append([]Meeple(nil), f.Meeples...)
			ct.Features = append(ct.Features, &cf)
		}
		b.tiles[t.Position] = ct
		b.order = append(b.order, t.Position)
	}
	return b, nil
}
