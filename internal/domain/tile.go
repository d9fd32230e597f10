package domain

import (
	"hash/fnv"
	"math/rand"
)

// FeatureKind identifies what a feature is for region traversal and edge matching.
type FeatureKind string

const (
	KindCity     FeatureKind = "city"
	KindCastle   FeatureKind = "castle"
	KindRoad     FeatureKind = "road"
	KindCloister FeatureKind = "cloister"
)

// edge returns the edge family used for placement matching.
func (k FeatureKind) edge() edgeType {
	switch k {
	case KindCity, KindCastle:
		return edgeCity
	case KindRoad:
		return edgeRoad
	}
	return edgeField
}

type edgeType int

const (
	edgeField edgeType = iota
	edgeCity
	edgeRoad
)

// FeatureDef describes one feature printed on a tile in its unrotated orientation.
type FeatureDef struct {
	Kind       FeatureKind
	Location   Location
	CastleBase bool
}

// TileDef is a tile type from the catalogue.
type TileDef struct {
	ID       string
	Features []FeatureDef
}

// StartingTileID is placed at the origin when a game starts.
const StartingTileID = "start"

var tiles = map[string]TileDef{
	StartingTileID: {ID: StartingTileID, Features: []FeatureDef{
		{Kind: KindCity, Location: North, CastleBase: true},
		{Kind: KindRoad, Location: East | West},
	}},
	"cap": {ID: "cap", Features: []FeatureDef{
		{Kind: KindCity, Location: North, CastleBase: true},
	}},
	"cap-road": {ID: "cap-road", Features: []FeatureDef{
		{Kind: KindCity, Location: North, CastleBase: true},
		{Kind: KindRoad, Location: East | West},
	}},
	"two-caps": {ID: "two-caps", Features: []FeatureDef{
		{Kind: KindCity, Location: North, CastleBase: true},
		{Kind: KindCity, Location: East, CastleBase: true},
	}},
	"corridor": {ID: "corridor", Features: []FeatureDef{
		{Kind: KindCity, Location: North | South},
	}},
	"road": {ID: "road", Features: []FeatureDef{
		{Kind: KindRoad, Location: North | South},
	}},
	"cloister": {ID: "cloister", Features: []FeatureDef{
		{Kind: KindCloister, Location: Center},
	}},
}

// packContents is the multiset of tiles drawn during a game.
var packContents = map[string]int{
	"cap":      6,
	"cap-road": 4,
	"two-caps": 2,
	"corridor": 2,
	"road":     4,
	"cloister": 2,
}

// LookupTile returns the catalogue entry for id.
func LookupTile(id string) (TileDef, bool) {
	def, ok := tiles[id]
	return def, ok
}

// NewPack returns the draw order for a game. The order depends only on the
// seed so every participant derives the same pack.
func NewPack(seed string) []string {
	ids := make([]string, 0, 20)
	for _, id := range []string{"cap", "cap-road", "two-caps", "corridor", "road", "cloister"} {
		for i := 0; i < packContents[id]; i++ {
			ids = append(ids, id)
		}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}
