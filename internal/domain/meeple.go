package domain

import "fmt"

// MeepleKind is the figure type standing on a feature.
type MeepleKind string

const (
	SmallFollower MeepleKind = "SMALL_FOLLOWER"
	Mayor         MeepleKind = "MAYOR"
)

// ParseMeepleKind validates a wire value.
func ParseMeepleKind(s string) (MeepleKind, error) {
	switch MeepleKind(s) {
	case SmallFollower, Mayor:
		return MeepleKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeeple, s)
}

// Meeple is a figure owned by a player index.
type Meeple struct {
	Player int        `json:"player"`
	Kind   MeepleKind `json:"kind"`
}

// IsFollower reports whether the figure counts towards feature ownership.
func (m Meeple) IsFollower() bool {
	return m.Kind == SmallFollower || m.Kind == Mayor
}

// FollowersPerPlayer is the small follower supply each player starts with.
const FollowersPerPlayer = 7
