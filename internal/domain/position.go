package domain

import (
	"fmt"
	"strings"
)

// Position is a cell on the board grid. Y grows southwards.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the neighbouring position across the given side.
func (p Position) Add(side Location) Position {
	switch side {
	case North:
		return Position{X: p.X, Y: p.Y - 1}
	case East:
		return Position{X: p.X + 1, Y: p.Y}
	case South:
		return Position{X: p.X, Y: p.Y + 1}
	case West:
		return Position{X: p.X - 1, Y: p.Y}
	}
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// Location is a bitmask of tile edges a feature touches. Center marks a
// feature with no edges (cloister).
type Location uint8

const (
	North Location = 1 << iota
	East
	South
	West
	Center

	edgeMask = North | East | South | West
)

// Sides lists the four edge locations in clockwise order.
var Sides = [4]Location{North, East, South, West}

var sideNames = map[Location]string{North: "N", East: "E", South: "S", West: "W"}

// Rotation counts clockwise quarter turns, 0..3.
type Rotation int

// Normalize folds any integer rotation into 0..3.
func (r Rotation) Normalize() Rotation {
	return ((r % 4) + 4) % 4
}

// Rotate turns the edge bits clockwise by r quarter turns.
func (l Location) Rotate(r Rotation) Location {
	n := uint(r.Normalize())
	edges := l & edgeMask
	rotated := ((edges << n) | (edges >> (4 - n))) & edgeMask
	return rotated | (l &^ edgeMask)
}

// Has reports whether every bit of other is set on l.
func (l Location) Has(other Location) bool {
	return other != 0 && l&other == other
}

// Opposite returns the facing edge for a single side.
func (l Location) Opposite() Location {
	return l.Rotate(2)
}

// Sides returns the individual edges of the location in clockwise order.
func (l Location) Sides() []Location {
	out := make([]Location, 0, 4)
	for _, s := range Sides {
		if l&s != 0 {
			out = append(out, s)
		}
	}
	return out
}

func (l Location) String() string {
	if l == Center {
		return "C"
	}
	var b strings.Builder
	for _, s := range Sides {
		if l&s != 0 {
			b.WriteString(sideNames[s])
		}
	}
	if l&Center != 0 {
		b.WriteString("C")
	}
	return b.String()
}

// ParseLocation is the inverse of Location.String.
func ParseLocation(s string) (Location, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}
	var loc Location
	for _, r := range strings.ToUpper(s) {
		var bit Location
		switch r {
		case 'N':
			bit = North
		case 'E':
			bit = East
		case 'S':
			bit = South
		case 'W':
			bit = West
		case 'C':
			bit = Center
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
		}
		if loc&bit != 0 {
			return 0, fmt.Errorf("%w: %q repeats a side", ErrInvalidLocation, s)
		}
		loc |= bit
	}
	return loc, nil
}

// MarshalText encodes the location using its compact side letters.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText parses the compact side letters.
func (l *Location) UnmarshalText(text []byte) error {
	loc, err := ParseLocation(string(text))
	if err != nil {
		return err
	}
	*l = loc
	return nil
}

// FeaturePointer addresses one feature instance on the board.
type FeaturePointer struct {
	Position Position `json:"position"`
	Location Location `json:"location"`
}

func (fp FeaturePointer) String() string {
	return fp.Position.String() + fp.Location.String()
}
