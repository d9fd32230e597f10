package game

import "cloister/internal/domain"

// EventKind identifies events posted while the game mutates.
type EventKind string

const (
	EventSlotChanged      EventKind = "slot_changed"
	EventExpansionChanged EventKind = "expansion_changed"
	EventRuleChanged      EventKind = "rule_changed"
	EventGameStarted      EventKind = "game_started"
	EventGameResumed      EventKind = "game_resumed"
	EventTileDrawn        EventKind = "tile_drawn"
	EventTileDiscarded    EventKind = "tile_discarded"
	EventTilePlaced       EventKind = "tile_placed"
	EventSelectAction     EventKind = "select_action"
	EventMeepleDeployed   EventKind = "meeple_deployed"
	EventCastleDeployed   EventKind = "castle_deployed"
	EventGameOver         EventKind = "game_over"
	EventUndone           EventKind = "undone"
)

// Event is an observable state change. Payload is one of the *Payload types.
type Event struct {
	Kind    EventKind
	Payload any
}

type SlotChangedPayload struct {
	Slot domain.PlayerSlot
}

type ExpansionChangedPayload struct {
	Expansion domain.Expansion
	Enabled   bool
}

type RuleChangedPayload struct {
	Rule    domain.CustomRule
	Enabled bool
}

type GameStartedPayload struct {
	Players []Player
}

type GameResumedPayload struct {
	Phase PhaseID
}

type TileDrawnPayload struct {
	Player int
	TileID string
}

type TileDiscardedPayload struct {
	TileID string
}

type TilePlacedPayload struct {
	Player   int
	TileID   string
	Position domain.Position
	Rotation domain.Rotation
}

type SelectActionPayload struct {
	Prompt Prompt
}

type MeepleDeployedPayload struct {
	Player  int
	Pointer domain.FeaturePointer
	Meeple  domain.MeepleKind
}

type CastleDeployedPayload struct {
	Player int
	Castle Castle
}

type GameOverPayload struct {
	Castles []Castle
}

type UndonePayload struct {
	Serial int
}
