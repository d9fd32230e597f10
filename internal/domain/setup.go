package domain

// Expansion is an optional rule set that can be toggled during game setup.
type Expansion string

const (
	ExpansionBasic   Expansion = "BASIC"
	ExpansionCastles Expansion = "BRIDGES_CASTLES_AND_BAZAARS"
	ExpansionMayor   Expansion = "ABBEY_AND_MAYOR"
)

// Expansions lists every implemented expansion in display order.
var Expansions = []Expansion{ExpansionBasic, ExpansionCastles, ExpansionMayor}

// IsImplemented reports whether the engine knows the expansion.
func (e Expansion) IsImplemented() bool {
	for _, known := range Expansions {
		if e == known {
			return true
		}
	}
	return false
}

// CustomRule is a house rule toggle.
type CustomRule string

const RuleRandomSeating CustomRule = "RANDOM_SEATING_ORDER"

// CustomRules lists every known rule in display order.
var CustomRules = []CustomRule{RuleRandomSeating}

// SlotState describes who controls a seat during setup.
type SlotState string

const (
	SlotOpen   SlotState = "OPEN"
	SlotOwn    SlotState = "OWN"
	SlotRemote SlotState = "REMOTE"
)

// SlotCount is the number of seats a game offers.
const SlotCount = 6

// PlayerSlot is a seat in a game that has not started yet.
type PlayerSlot struct {
	Number    int       `json:"number"`
	Nickname  string    `json:"nickname,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	State     SlotState `json:"state"`
	AIClass   string    `json:"aiClassName,omitempty"`
	Serial    int       `json:"serial,omitempty"`
}

// IsOccupied reports whether someone took the seat.
func (s PlayerSlot) IsOccupied() bool {
	return s.State != SlotOpen && s.SessionID != ""
}

// IsAI reports whether the seat is played by an AI.
func (s PlayerSlot) IsAI() bool {
	return s.AIClass != ""
}

// NewSlots returns SlotCount open seats numbered 0..SlotCount-1.
func NewSlots() []PlayerSlot {
	slots := make([]PlayerSlot, SlotCount)
	for i := range slots {
		slots[i] = PlayerSlot{Number: i, State: SlotOpen}
	}
	return slots
}
