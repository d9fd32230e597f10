package app

import (
	"fmt"
	"sync"

	"cloister/internal/domain"
	"cloister/internal/game"
	"cloister/internal/ports"
	"cloister/internal/protocol"
	"cloister/internal/snapshot"
)

// GameController owns one game. mu serialises every message applied to it;
// the game itself is not safe for concurrent use.
type GameController struct {
	gameID  string
	channel string

	mu           sync.Mutex
	game         *game.Game
	reporter     ports.Reporter
	undo         []snapshot.Snapshot
	undoDepth    int
	lastAISerial int
	mounted      bool

	clientsMu sync.RWMutex
	clients   []protocol.RemoteClient
}

// NewGameController wraps g. undoDepth bounds the undo stack; zero disables undo.
func NewGameController(g *game.Game, channel string, undoDepth int) *GameController {
	return &GameController{
		gameID:       g.ID(),
		channel:      channel,
		game:         g,
		undoDepth:    undoDepth,
		lastAISerial: -1,
	}
}

func (c *GameController) GameID() string  { return c.gameID }
func (c *GameController) Channel() string { return c.channel }

// PhaseLoop runs the game's phase loop. It is a no-op while the current
// phase waits for input.
func (c *GameController) PhaseLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.game.PhaseLoop()
}

// View runs fn with exclusive access to the game. fn must not keep g.
func (c *GameController) View(fn func(g *game.Game)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.game)
}

// SetReporter attaches the reporting sink and makes this game the reported one.
func (c *GameController) SetReporter(r ports.Reporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachReporter(r)
}

func (c *GameController) attachReporter(r ports.Reporter) {
	if r == nil || c.reporter != nil {
		return
	}
	c.reporter = r
	r.SetGame(c.gameID)
}

func (c *GameController) SetRemoteClients(clients []protocol.RemoteClient) {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()
	c.clients = append([]protocol.RemoteClient(nil), clients...)
}

func (c *GameController) RemoteClients() []protocol.RemoteClient {
	c.clientsMu.RLock()
	defer c.clientsMu.RUnlock()
	return append([]protocol.RemoteClient(nil), c.clients...)
}

// ClientBySession finds a connected client. An unknown session is an
// ErrSessionNotFound.
func (c *GameController) ClientBySession(sessionID string) (protocol.RemoteClient, error) {
	c.clientsMu.RLock()
	defer c.clientsMu.RUnlock()
	return findClient(c.clients, sessionID)
}

// ClaimSlot turns a seat request into the authoritative slot message. A
// seat held by another session cannot be claimed; an empty nickname
// releases a seat the session holds.
func (c *GameController) ClaimSlot(req *protocol.TakeSlotMessage) (*protocol.SlotMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.game.Slot(req.Number)
	if !ok {
		return nil, fmt.Errorf("%w: %d", game.ErrInvalidSlot, req.Number)
	}
	if cur.SessionID != "" && cur.SessionID != req.SessionID {
		return nil, fmt.Errorf("%w: slot %d", ErrSlotTaken, req.Number)
	}
	msg := &protocol.SlotMessage{
		Number:    req.Number,
		Nickname:  req.Nickname,
		SessionID: req.SessionID,
		AIClass:   req.AIClass,
		Serial:    cur.Serial + 1,
	}
	if req.Nickname == "" {
		msg.SessionID, msg.AIClass = "", ""
	}
	msg.SetGameID(c.gameID)
	return msg, nil
}

// GameMessage describes the game for a late joiner. Started games carry
// a snapshot the receiver loads and resumes.
func (c *GameController) GameMessage() (*protocol.GameMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameMessage()
}

func (c *GameController) gameMessage() (*protocol.GameMessage, error) {
	g := c.game
	msg := &protocol.GameMessage{
		Name:    g.Name(),
		Channel: c.channel,
		State:   protocol.GameOpen,
		Setup:   &protocol.GameSetupMessage{Expansions: g.Expansions(), Rules: g.Rules()},
	}
	msg.SetGameID(c.gameID)
	msg.Setup.SetGameID(c.gameID)
	for _, s := range g.Slots() {
		msg.Slots = append(msg.Slots, slotMessage(c.gameID, s))
	}
	if g.Started() {
		text, err := snapshot.EncodeString(snapshot.Capture(g))
		if err != nil {
			return nil, fmt.Errorf("snapshot game %s: %w", c.gameID, err)
		}
		msg.State = protocol.GameRunning
		msg.Snapshot = text
	}
	return msg, nil
}

// Snapshot captures the current game state.
func (c *GameController) Snapshot() snapshot.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot.Capture(c.game)
}

// UndoDepth returns how many steps can currently be undone.
func (c *GameController) UndoDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.undo)
}

func (c *GameController) pushUndo(s snapshot.Snapshot) {
	if c.undoDepth == 0 {
		return
	}
	c.undo = append(c.undo, s)
	if len(c.undo) > c.undoDepth {
		c.undo = c.undo[len(c.undo)-c.undoDepth:]
	}
}

// undoLast restores the state captured before the last applied call.
func (c *GameController) undoLast() error {
	if len(c.undo) == 0 {
		return ErrNothingToUndo
	}
	s := c.undo[len(c.undo)-1]
	restored, err := s.Restore(c.gameID)
	if err != nil {
		return fmt.Errorf("undo game %s: %w", c.gameID, err)
	}
	c.undo = c.undo[:len(c.undo)-1]
	c.game = restored
	c.lastAISerial = -1
	restored.Post(game.Event{Kind: game.EventUndone, Payload: game.UndonePayload{Serial: restored.Serial()}})
	restored.Reprompt()
	return nil
}

func slotMessage(gameID string, s domain.PlayerSlot) *protocol.SlotMessage {
	msg := &protocol.SlotMessage{
		Number:    s.Number,
		Nickname:  s.Nickname,
		SessionID: s.SessionID,
		AIClass:   s.AIClass,
		Serial:    s.Serial,
	}
	msg.SetGameID(gameID)
	return msg
}
