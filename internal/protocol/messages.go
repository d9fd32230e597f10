package protocol

import (
	"encoding/json"

	"cloister/internal/domain"
)

// Kind discriminates wire messages.
type Kind string

const (
	KindGame         Kind = "GAME"
	KindGameSetup    Kind = "GAME_SETUP"
	KindSlot         Kind = "SLOT"
	KindTakeSlot     Kind = "TAKE_SLOT"
	KindSetExpansion Kind = "SET_EXPANSION"
	KindSetRule      Kind = "SET_RULE"
	KindChat         Kind = "CHAT"
	KindClientList   Kind = "CLIENT_LIST"
	KindGameList     Kind = "GAME_LIST"
	KindChannel      Kind = "CHANNEL"
	KindRmi          Kind = "RMI"
	KindUndo         Kind = "UNDO"
	KindStartGame    Kind = "START_GAME"
	KindError        Kind = "ERR"
)

// Message is a unit of the wire protocol.
type Message interface {
	Kind() Kind
}

// InGame is implemented by messages addressed to one game.
type InGame interface {
	Message
	GameID() string
	SetGameID(id string)
}

// InChannel is implemented by messages addressed to a channel.
type InChannel interface {
	Message
	ChannelName() string
	SetChannelName(name string)
}

// GameRef addresses a message to a game.
type GameRef struct {
	Game string `json:"gameId,omitempty"`
}

func (r *GameRef) GameID() string      { return r.Game }
func (r *GameRef) SetGameID(id string) { r.Game = id }

// ChannelRef addresses a message to a channel.
type ChannelRef struct {
	Channel string `json:"channel,omitempty"`
}

func (r *ChannelRef) ChannelName() string        { return r.Channel }
func (r *ChannelRef) SetChannelName(name string) { r.Channel = name }

// GameState is the lifecycle state advertised for a game.
type GameState string

const (
	GameOpen    GameState = "OPEN"
	GameRunning GameState = "RUNNING"
)

// GameMessage establishes a game or advertises its configuration. Snapshot
// carries a restorable state for loaded games and late joiners.
type GameMessage struct {
	GameRef
	Name     string            `json:"name"`
	Channel  string            `json:"channel,omitempty"`
	State    GameState         `json:"state"`
	Snapshot string            `json:"snapshot,omitempty"`
	Setup    *GameSetupMessage `json:"gameSetup,omitempty"`
	Slots    []*SlotMessage    `json:"slots,omitempty"`
}

type GameSetupMessage struct {
	GameRef
	Expansions []domain.Expansion  `json:"expansions"`
	Rules      []domain.CustomRule `json:"customRules"`
}

// SlotMessage is the authoritative state of one seat. An empty SessionID
// releases the seat.
type SlotMessage struct {
	GameRef
	Number    int    `json:"number"`
	Nickname  string `json:"nickname,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	AIClass   string `json:"aiClassName,omitempty"`
	Serial    int    `json:"serial,omitempty"`
}

// TakeSlotMessage asks for a seat on behalf of the sending session.
type TakeSlotMessage struct {
	GameRef
	Number    int    `json:"number"`
	Nickname  string `json:"nickname"`
	SessionID string `json:"sessionId,omitempty"`
	AIClass   string `json:"aiClassName,omitempty"`
}

type SetExpansionMessage struct {
	GameRef
	Expansion domain.Expansion `json:"expansion"`
	Enabled   bool             `json:"enabled"`
}

type SetRuleMessage struct {
	GameRef
	Rule    domain.CustomRule `json:"rule"`
	Enabled bool              `json:"enabled"`
}

// ChatMessage is addressed either to a game or to a channel.
type ChatMessage struct {
	GameRef
	ChannelRef
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// RemoteClient describes a connected session.
type RemoteClient struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	State     string `json:"state,omitempty"`
}

type ClientListMessage struct {
	GameRef
	ChannelRef
	Clients []RemoteClient `json:"clients"`
}

type GameListMessage struct {
	ChannelRef
	Games []*GameMessage `json:"games"`
}

// ChannelMessage opens a channel view.
type ChannelMessage struct {
	ChannelRef
}

// RmiMessage invokes a method on the active phase of a game. SessionID is
// stamped by the server with the sender.
type RmiMessage struct {
	GameRef
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Args      json.RawMessage `json:"args,omitempty"`
}

type UndoMessage struct {
	GameRef
	SessionID string `json:"sessionId,omitempty"`
}

type StartGameMessage struct {
	GameRef
}

// Error codes carried by ErrorMessage.
const (
	ErrorBadVersion = "BAD_VERSION"
)

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (*GameMessage) Kind() Kind         { return KindGame }
func (*GameSetupMessage) Kind() Kind    { return KindGameSetup }
func (*SlotMessage) Kind() Kind         { return KindSlot }
func (*TakeSlotMessage) Kind() Kind     { return KindTakeSlot }
func (*SetExpansionMessage) Kind() Kind { return KindSetExpansion }
func (*SetRuleMessage) Kind() Kind      { return KindSetRule }
func (*ChatMessage) Kind() Kind         { return KindChat }
func (*ClientListMessage) Kind() Kind   { return KindClientList }
func (*GameListMessage) Kind() Kind     { return KindGameList }
func (*ChannelMessage) Kind() Kind      { return KindChannel }
func (*RmiMessage) Kind() Kind          { return KindRmi }
func (*UndoMessage) Kind() Kind         { return KindUndo }
func (*StartGameMessage) Kind() Kind    { return KindStartGame }
func (*ErrorMessage) Kind() Kind        { return KindError }

// newMessage allocates an empty message of the given kind.
func newMessage(kind Kind) (Message, bool) {
	switch kind {
	case KindGame:
		return &GameMessage{}, true
	case KindGameSetup:
		return &GameSetupMessage{}, true
	case KindSlot:
		return &SlotMessage{}, true
	case KindTakeSlot:
		return &TakeSlotMessage{}, true
	case KindSetExpansion:
		return &SetExpansionMessage{}, true
	case KindSetRule:
		return &SetRuleMessage{}, true
	case KindChat:
		return &ChatMessage{}, true
	case KindClientList:
		return &ClientListMessage{}, true
	case KindGameList:
		return &GameListMessage{}, true
	case KindChannel:
		return &ChannelMessage{}, true
	case KindRmi:
		return &RmiMessage{}, true
	case KindUndo:
		return &UndoMessage{}, true
	case KindStartGame:
		return &StartGameMessage{}, true
	case KindError:
		return &ErrorMessage{}, true
	}
	return nil, false
}
