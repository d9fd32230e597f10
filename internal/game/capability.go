package game

import "cloister/internal/domain"

// CapabilityKind names an optional expansion sub-state.
type CapabilityKind string

const (
	CapabilityCastle CapabilityKind = "castle"
	CapabilityMayor  CapabilityKind = "mayor"
)

// Capability is expansion specific state attached to a started game. The
// export hooks are unexported so the set of capabilities stays closed.
type Capability interface {
	Kind() CapabilityKind
	export(st *State)
	restore(st State) error
}

// capabilityFactories maps an expansion to the capability it enables.
var capabilityFactories = map[domain.Expansion]func(players int) Capability{
	domain.ExpansionCastles: func(players int) Capability { return newCastleCapability(players) },
	domain.ExpansionMayor:   func(players int) Capability { return newMayorCapability(players) },
}

func (g *Game) initCapabilities() {
	g.capabilities = map[CapabilityKind]Capability{}
	for _, e := range domain.Expansions {
		factory, ok := capabilityFactories[e]
		if !ok || !g.expansions[e] {
			continue
		}
		c := factory(len(g.players))
		g.capabilities[c.Kind()] = c
	}
}

// HasCapability reports whether the capability is attached.
func (g *Game) HasCapability(kind CapabilityKind) bool {
	_, ok := g.capabilities[kind]
	return ok
}

// Capability returns the attached capability of the given kind.
func (g *Game) Capability(kind CapabilityKind) (Capability, bool) {
	c, ok := g.capabilities[kind]
	return c, ok
}

// CapabilityOf returns the attached capability with concrete type T.
func CapabilityOf[T Capability](g *Game) (T, bool) {
	for _, c := range g.capabilities {
		if typed, ok := c.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}
