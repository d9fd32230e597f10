package game

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"

	"cloister/internal/domain"
)

// Player is a seated participant of a started game.
type Player struct {
	Index    int    `json:"index"`
	Nickname string `json:"nickname"`
	Slot     int    `json:"slot"`
}

// Game owns all replicated state of one game. It is not safe for concurrent
// use; the owning controller serialises access.
type Game struct {
	id   string
	name string

	slots      []domain.PlayerSlot
	expansions map[domain.Expansion]bool
	rules      map[domain.CustomRule]bool

	started    bool
	players    []Player
	followers  []int
	board      *domain.Board
	pack       []string
	drawn      string
	lastPlaced *domain.Position
	turn       int
	serial     int

	capabilities map[CapabilityKind]Capability

	phases  map[PhaseID]Phase
	current PhaseID
	entered bool

	events []Event
}

// New creates a game waiting in the setup phase.
func New(id, name string) *Game {
	g := &Game{
		id:           id,
		name:         name,
		slots:        domain.NewSlots(),
		expansions:   map[domain.Expansion]bool{domain.ExpansionBasic: true},
		rules:        map[domain.CustomRule]bool{},
		board:        domain.NewBoard(),
		capabilities: map[CapabilityKind]Capability{},
	}
	g.registerPhases()
	g.current = PhaseCreateGame
	return g
}

func (g *Game) ID() string   { return g.id }
func (g *Game) Name() string { return g.name }

func (g *Game) SetName(name string) { g.name = name }

// Serial counts applied state-changing calls.
func (g *Game) Serial() int { return g.serial }

// Post queues an event for the controller to forward.
func (g *Game) Post(ev Event) {
	g.events = append(g.events, ev)
}

// DrainEvents returns and clears the queued events.
func (g *Game) DrainEvents() []Event {
	out := g.events
	g.events = nil
	return out
}

// Slots returns a copy of the setup seats.
func (g *Game) Slots() []domain.PlayerSlot {
	return append([]domain.PlayerSlot(nil), g.slots...)
}

// Slot returns one seat.
func (g *Game) Slot(number int) (domain.PlayerSlot, bool) {
	if number < 0 || number >= len(g.slots) {
		return domain.PlayerSlot{}, false
	}
	return g.slots[number], true
}

// UpdateSlot replaces the seat with the same number and posts the change.
func (g *Game) UpdateSlot(slot domain.PlayerSlot) error {
	if slot.Number < 0 || slot.Number >= len(g.slots) {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot.Number)
	}
	g.slots[slot.Number] = slot
	g.Post(Event{Kind: EventSlotChanged, Payload: SlotChangedPayload{Slot: slot}})
	return nil
}

// Expansions returns enabled expansions sorted by name.
func (g *Game) Expansions() []domain.Expansion {
	var out []domain.Expansion
	for e, on := range g.expansions {
		if on {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Game) HasExpansion(e domain.Expansion) bool { return g.expansions[e] }

// SetExpansion toggles an expansion. Expansions only matter until the game starts.
func (g *Game) SetExpansion(e domain.Expansion, enabled bool) {
	if enabled {
		g.expansions[e] = true
	} else {
		delete(g.expansions, e)
	}
	g.Post(Event{Kind: EventExpansionChanged, Payload: ExpansionChangedPayload{Expansion: e, Enabled: enabled}})
}

// ReplaceSetup swaps the whole expansion and rule set and posts one change
// event per known expansion and rule.
func (g *Game) ReplaceSetup(expansions []domain.Expansion, rules []domain.CustomRule) {
	g.expansions = map[domain.Expansion]bool{}
	for _, e := range expansions {
		g.expansions[e] = true
	}
	g.rules = map[domain.CustomRule]bool{}
	for _, r := range rules {
		g.rules[r] = true
	}
	for _, e := range domain.Expansions {
		g.Post(Event{Kind: EventExpansionChanged, Payload: ExpansionChangedPayload{Expansion: e, Enabled: g.expansions[e]}})
	}
	for _, r := range domain.CustomRules {
		g.Post(Event{Kind: EventRuleChanged, Payload: RuleChangedPayload{Rule: r, Enabled: g.rules[r]}})
	}
}

// Rules returns enabled custom rules sorted by name.
func (g *Game) Rules() []domain.CustomRule {
	var out []domain.CustomRule
	for r, on := range g.rules {
		if on {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Game) HasRule(r domain.CustomRule) bool { return g.rules[r] }

func (g *Game) SetRule(r domain.CustomRule, enabled bool) {
	if enabled {
		g.rules[r] = true
	} else {
		delete(g.rules, r)
	}
	g.Post(Event{Kind: EventRuleChanged, Payload: RuleChangedPayload{Rule: r, Enabled: enabled}})
}

func (g *Game) Started() bool { return g.started }

// Players returns a copy of the seating order.
func (g *Game) Players() []Player {
	return append([]Player(nil), g.players...)
}

func (g *Game) PlayerCount() int { return len(g.players) }

// TurnPlayer returns the index of the player whose turn it is, or -1 before start.
func (g *Game) TurnPlayer() int {
	if !g.started {
		return -1
	}
	return g.turn
}

// SlotOf returns the setup seat a player was created from.
func (g *Game) SlotOf(player int) (domain.PlayerSlot, bool) {
	if player < 0 || player >= len(g.players) {
		return domain.PlayerSlot{}, false
	}
	return g.Slot(g.players[player].Slot)
}

// Followers returns the remaining small follower supply of a player.
func (g *Game) Followers(player int) int {
	if player < 0 || player >= len(g.followers) {
		return 0
	}
	return g.followers[player]
}

// Board exposes the board for read access.
func (g *Game) Board() *domain.Board { return g.board }

// DrawnTile returns the tile the turn player has to place.
func (g *Game) DrawnTile() (string, bool) {
	return g.drawn, g.drawn != ""
}

// LastPlaced returns the position of the most recently placed tile.
func (g *Game) LastPlaced() (domain.Position, bool) {
	if g.lastPlaced == nil {
		return domain.Position{}, false
	}
	return *g.lastPlaced, true
}

// RemainingTiles returns how many tiles are left in the pack.
func (g *Game) RemainingTiles() int { return len(g.pack) }

// start freezes the player list and deals the opening position.
func (g *Game) start() error {
	if g.started {
		return ErrAlreadyStarted
	}
	var players []Player
	for _, s := range g.slots {
		if s.IsOccupied() {
			players = append(players, Player{Nickname: s.Nickname, Slot: s.Number})
		}
	}
	if len(players) == 0 {
		return ErrNoPlayers
	}
	if g.rules[domain.RuleRandomSeating] {
		rng := rand.New(rand.NewSource(seedOf(g.id)))
		rng.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
	}
	for i := range players {
		players[i].Index = i
	}

	g.players = players
	g.followers = make([]int, len(players))
	for i := range g.followers {
		g.followers[i] = domain.FollowersPerPlayer
	}
	g.started = true
	g.initCapabilities()

	start, _ := domain.LookupTile(domain.StartingTileID)
	if _, err := g.board.Place(start, domain.Position{}, 0); err != nil {
		return fmt.Errorf("place starting tile: %w", err)
	}
	g.pack = domain.NewPack(g.id)
	g.turn = 0
	g.Post(Event{Kind: EventGameStarted, Payload: GameStartedPayload{Players: g.Players()}})
	g.drawNext()
	return nil
}

// drawNext draws until a placeable tile comes up. It reports false once
// the pack is exhausted.
func (g *Game) drawNext() bool {
	for len(g.pack) > 0 {
		id := g.pack[0]
		g.pack = g.pack[1:]
		def, ok := domain.LookupTile(id)
		if ok && len(g.board.LegalPlacements(def)) > 0 {
			g.drawn = id
			g.Post(Event{Kind: EventTileDrawn, Payload: TileDrawnPayload{Player: g.turn, TileID: id}})
			return true
		}
		g.Post(Event{Kind: EventTileDiscarded, Payload: TileDiscardedPayload{TileID: id}})
	}
	g.drawn = ""
	return false
}

func seedOf(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
