package domain

// Region is the result of walking all connected segments of one feature.
type Region struct {
	Kind       FeatureKind
	Pointers   []FeaturePointer
	Segments   int
	CastleBase bool
	Followers  []Meeple
}

// WalkRegion collects the connected segments of the feature at fp. Segments
// connect across tile edges when both sides carry the same feature kind.
// The walk is breadth first from fp so Followers are ordered by distance.
func WalkRegion(b *Board, fp FeaturePointer) (Region, bool) {
	start, ok := b.Feature(fp)
	if !ok {
		return Region{}, false
	}
	region := Region{Kind: start.Kind, CastleBase: true}
	visited := map[FeaturePointer]bool{fp: true}
	queue := []FeaturePointer{fp}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		f, _ := b.Feature(cur)

		region.Pointers = append(region.Pointers, cur)
		region.Segments++
		if !f.CastleBase {
			region.CastleBase = false
		}
		for _, m := range f.Meeples {
			if m.IsFollower() {
				region.Followers = append(region.Followers, m)
			}
		}

		for _, side := range f.Location.Sides() {
			np := cur.Position.Add(side)
			nf, ok := b.featureOnSide(np, side.Opposite())
			if !ok || nf.Kind != start.Kind {
				continue
			}
			next := FeaturePointer{Position: np, Location: nf.Location}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return region, true
}

// Occupied reports whether any follower stands in the region.
func (r Region) Occupied() bool {
	return len(r.Followers) > 0
}

// CastleOwner resolves who may convert the region into a castle. The region
// must be a two segment castle base and every follower must belong to one
// player. A mayor never establishes ownership on its own, but a mayor of a
// different player seen after the owner is known still makes the owner
// ambiguous.
func (r Region) CastleOwner() (int, bool) {
	if r.Kind != KindCity || !r.CastleBase || r.Segments != 2 {
		return 0, false
	}
	owner := -1
	for _, m := range r.Followers {
		if owner != -1 && owner != m.Player {
			return 0, false
		}
		if owner == -1 && m.Kind != Mayor {
			owner = m.Player
		}
	}
	if owner == -1 {
		return 0, false
	}
	return owner, true
}
