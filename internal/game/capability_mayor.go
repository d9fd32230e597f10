package game

import "fmt"

// MayorsPerPlayer is the mayor supply each player starts with.
const MayorsPerPlayer = 1

// MayorState is the exported form of MayorCapability.
type MayorState struct {
	Remaining []int
}

// MayorCapability tracks which players still hold their mayor.
type MayorCapability struct {
	remaining []int
}

func newMayorCapability(players int) *MayorCapability {
	c := &MayorCapability{remaining: make([]int, players)}
	for i := range c.remaining {
		c.remaining[i] = MayorsPerPlayer
	}
	return c
}

func (c *MayorCapability) Kind() CapabilityKind { return CapabilityMayor }

// Available reports whether the player can still deploy a mayor.
func (c *MayorCapability) Available(player int) bool {
	return player >= 0 && player < len(c.remaining) && c.remaining[player] > 0
}

func (c *MayorCapability) take(player int) {
	c.remaining[player]--
}

func (c *MayorCapability) export(st *State) {
	st.Mayor = &MayorState{Remaining: append([]int(nil), c.remaining...)}
}

func (c *MayorCapability) restore(st State) error {
	if st.Mayor == nil || len(st.Mayor.Remaining) != len(c.remaining) {
		return fmt.Errorf("%w: mayor state", ErrInvalidState)
	}
	c.remaining = append([]int(nil), st.Mayor.Remaining...)
	return nil
}
