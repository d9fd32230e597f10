package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"

	"cloister/internal/config"
	"cloister/internal/domain"
	"cloister/internal/game"
	"cloister/internal/protocol"
	"cloister/internal/snapshot"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the per-match runtime state. The game itself lives in
// the listener's registry under GameID.
type MatchState struct {
	GameID    string                      `json:"game_id"`
	Name      string                      `json:"name"`
	Presences map[string]runtime.Presence `json:"-"` // Map SessionId -> Presence
	Label     string                      `json:"-"`
}

// clientKinds are the message kinds a client may send. Everything else is
// produced by the server.
var clientKinds = map[protocol.Kind]bool{
	protocol.KindTakeSlot:     true,
	protocol.KindGameSetup:    true,
	protocol.KindSetExpansion: true,
	protocol.KindSetRule:      true,
	protocol.KindChat:         true,
	protocol.KindRmi:          true,
	protocol.KindUndo:         true,
	protocol.KindStartGame:    true,
}

type matchHandler struct {
	mod *module
}

// MatchInit registers the game with the listener, fresh or from a save.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	gameID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	if gameID == "" {
		logger.Error("MatchInit: No match id in context.")
		return nil, 0, ""
	}
	logger.Debug("MatchInit: Initializing game %s.", gameID)

	gm, err := mh.mod.gameMessage(ctx, gameID, params)
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}
	if err := mh.mod.listener.OnMessage(ctx, gm); err != nil {
		logger.Error("MatchInit: Failed to create game %s: %v", gameID, err)
		return nil, 0, ""
	}

	state := &MatchState{
		GameID:    gameID,
		Name:      gm.Name,
		Presences: make(map[string]runtime.Presence),
	}
	label, err := mh.label(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = label
	return state, tickRate, label
}

// gameMessage builds the GAME message for a new match. A save_id param
// loads a stored snapshot; its human seats are released so players can
// claim them again before resuming.
func (m *module) gameMessage(ctx context.Context, gameID string, params map[string]interface{}) (*protocol.GameMessage, error) {
	name, _ := params["name"].(string)
	gm := &protocol.GameMessage{Name: name, Channel: m.settings.DefaultChannel, State: protocol.GameOpen}
	gm.SetGameID(gameID)

	if preset, _ := params["preset"].(string); preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		gm.Setup = &protocol.GameSetupMessage{Expansions: p.Expansions, Rules: p.Rules}
	}

	saveID, _ := params["save_id"].(string)
	if saveID == "" {
		if gm.Name == "" {
			gm.Name = gameID
		}
		return gm, nil
	}
	save, err := m.store.Load(ctx, saveID)
	if err != nil {
		return nil, fmt.Errorf("load save %s: %w", saveID, err)
	}
	s, err := snapshot.Decode(save.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("load save %s: %w", saveID, err)
	}
	text, err := snapshot.EncodeString(s)
	if err != nil {
		return nil, err
	}
	gm.Snapshot = text
	if gm.Name == "" {
		gm.Name = save.Name
	}
	for _, slot := range s.State.Slots {
		msg := &protocol.SlotMessage{Number: slot.Number, Nickname: slot.Nickname, AIClass: slot.AIClass, Serial: slot.Serial + 1}
		if slot.IsAI() {
			msg.SessionID = m.session
		}
		if !slot.IsOccupied() {
			msg.Nickname, msg.AIClass = "", ""
		}
		msg.SetGameID(gameID)
		gm.Slots = append(gm.Slots, msg)
	}
	return gm, nil
}

// MatchJoinAttempt rejects clients speaking another protocol version.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*MatchState); !ok {
		return state, false, "state not found"
	}
	if v, ok := metadata[MetadataVersion]; ok && v != strconv.Itoa(protocol.Version) {
		logger.Warn("MatchJoinAttempt: Session %s speaks protocol %s, want %d.", presence.GetSessionId(), v, protocol.Version)
		return state, false, protocol.ErrorBadVersion
	}
	return state, true, ""
}

// MatchJoin publishes the new client list and sends every joiner the full
// game, including a snapshot once it has started.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	for _, p := range presences {
		ms.Presences[p.GetSessionId()] = p
	}
	mh.syncClients(ctx, ms, dispatcher, logger)

	c, err := mh.mod.listener.Registry().Lookup(ms.GameID)
	if err != nil {
		logger.Error("MatchJoin: %v", err)
		return ms
	}
	gm, err := c.GameMessage()
	if err != nil {
		logger.Error("MatchJoin: %v", err)
		return ms
	}
	mh.send(dispatcher, logger, gm, presences)
	mh.updateLabel(ms, dispatcher, logger)
	return ms
}

// MatchLeave frees the seats of leaving sessions while seats can still change.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	leaving := map[string]bool{}
	for _, p := range presences {
		delete(ms.Presences, p.GetSessionId())
		leaving[p.GetSessionId()] = true
	}

	if c, ok := mh.mod.listener.Registry().Game(ms.GameID); ok {
		var freed []*protocol.TakeSlotMessage
		c.View(func(g *game.Game) {
			if g.Started() && !g.IsCurrent(game.PhaseLoadGame) {
				return
			}
			for _, s := range g.Slots() {
				if leaving[s.SessionID] {
					release := &protocol.TakeSlotMessage{Number: s.Number, SessionID: s.SessionID}
					release.SetGameID(ms.GameID)
					freed = append(freed, release)
				}
			}
		})
		for _, release := range freed {
			logger.Debug("MatchLeave: Session %s left, slot %d freed.", release.SessionID, release.Number)
			mh.apply(ctx, ms, dispatcher, logger, release, nil)
		}
	}

	if len(ms.Presences) == 0 {
		logger.Info("MatchLeave: Terminating game %s with no clients.", ms.GameID)
		mh.mod.listener.Registry().RemoveGame(ms.GameID)
		mh.mod.outbox.take(ms.GameID)
		return nil
	}
	mh.syncClients(ctx, ms, dispatcher, logger)
	mh.updateLabel(ms, dispatcher, logger)
	return ms
}

// MatchLoop applies client messages in arrival order, then whatever the
// server queued for this game since the last tick.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, md := range messages {
		kind, ok := protocol.KindForOpCode(md.GetOpCode())
		if !ok {
			logger.Warn("MatchLoop: Unknown opcode received: %d", md.GetOpCode())
			continue
		}
		if !clientKinds[kind] {
			logger.Warn("MatchLoop: Session %s may not send %s.", md.GetSessionId(), kind)
			continue
		}
		msg, err := protocol.DecodePayload(kind, md.GetData())
		if err != nil {
			logger.Warn("MatchLoop: %v", err)
			mh.sendError(dispatcher, logger, md, "MALFORMED", err.Error())
			continue
		}
		stamp(msg, ms.GameID, md.GetSessionId())
		mh.apply(ctx, ms, dispatcher, logger, msg, md)
	}

	for _, msg := range mh.mod.outbox.take(ms.GameID) {
		mh.apply(ctx, ms, dispatcher, logger, msg, nil)
	}

	mh.updateLabel(ms, dispatcher, logger)
	return ms
}

// stamp addresses msg to the match's game and records the sender.
func stamp(msg protocol.Message, gameID, sessionID string) {
	if ig, ok := msg.(protocol.InGame); ok {
		ig.SetGameID(gameID)
	}
	switch m := msg.(type) {
	case *protocol.TakeSlotMessage:
		m.SessionID = sessionID
	case *protocol.ChatMessage:
		m.SessionID = sessionID
	case *protocol.RmiMessage:
		m.SessionID = sessionID
	case *protocol.UndoMessage:
		m.SessionID = sessionID
	}
}

// apply hands msg to the listener and relays it to every client once
// accepted. Seat requests are turned into the authoritative slot first.
// sender is nil for messages the server produced.
func (mh *matchHandler) apply(ctx context.Context, ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg protocol.Message, sender runtime.Presence) {
	if take, ok := msg.(*protocol.TakeSlotMessage); ok {
		c, err := mh.mod.listener.Registry().Lookup(ms.GameID)
		if err != nil {
			logger.Warn("MatchLoop: %v", err)
			return
		}
		slot, err := c.ClaimSlot(take)
		if err != nil {
			logger.Warn("MatchLoop: Cannot claim slot %d: %v", take.Number, err)
			mh.sendError(dispatcher, logger, sender, "SLOT", err.Error())
			return
		}
		msg = slot
	}
	if err := mh.mod.listener.OnMessage(ctx, msg); err != nil {
		logger.Warn("MatchLoop: %s rejected: %v", msg.Kind(), err)
		mh.sendError(dispatcher, logger, sender, string(msg.Kind()), err.Error())
		return
	}
	mh.send(dispatcher, logger, msg, nil)
}

// syncClients applies and publishes the list of connected clients.
func (mh *matchHandler) syncClients(ctx context.Context, ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	list := &protocol.ClientListMessage{}
	list.SetGameID(ms.GameID)
	for _, p := range ms.Presences {
		list.Clients = append(list.Clients, protocol.RemoteClient{SessionID: p.GetSessionId(), Name: p.GetUsername()})
	}
	sort.Slice(list.Clients, func(i, j int) bool { return list.Clients[i].SessionID < list.Clients[j].SessionID })
	mh.apply(ctx, ms, dispatcher, logger, list, nil)
}

// send broadcasts msg to presences, or to the whole match when presences is nil.
func (mh *matchHandler) send(dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg protocol.Message, presences []runtime.Presence) {
	op, ok := protocol.OpCode(msg.Kind())
	if !ok {
		logger.Error("Send: No opcode for %s", msg.Kind())
		return
	}
	data, err := protocol.EncodePayload(msg)
	if err != nil {
		logger.Error("Send: Failed to encode %s: %v", msg.Kind(), err)
		return
	}
	if err := dispatcher.BroadcastMessage(op, data, presences, nil, true); err != nil {
		logger.Error("Send: Failed to broadcast %s: %v", msg.Kind(), err)
	}
}

func (mh *matchHandler) sendError(dispatcher runtime.MatchDispatcher, logger runtime.Logger, to runtime.Presence, code, message string) {
	if to == nil {
		return
	}
	mh.send(dispatcher, logger, &protocol.ErrorMessage{Code: code, Message: message}, []runtime.Presence{to})
}

// label describes the match for MatchList queries.
func (mh *matchHandler) label(ms *MatchState) (string, error) {
	fields := map[string]interface{}{
		"game":                  "cloister",
		"name":                  ms.Name,
		MatchLabelKey_OpenSlots: 0,
		"state":                 string(protocol.GameOpen),
		"phase":                 "",
	}
	if c, ok := mh.mod.listener.Registry().Game(ms.GameID); ok {
		c.View(func(g *game.Game) {
			fields["phase"] = g.PhaseID().String()
			if g.Started() {
				fields["state"] = string(protocol.GameRunning)
			}
			if !g.Started() || g.IsCurrent(game.PhaseLoadGame) {
				fields[MatchLabelKey_OpenSlots] = openSlots(g.Slots())
			}
		})
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return "", err
	}
	b, err := protojson.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func openSlots(slots []domain.PlayerSlot) int {
	n := 0
	for _, s := range slots {
		if s.SessionID == "" {
			n++
		}
	}
	return n
}

func (mh *matchHandler) updateLabel(ms *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := mh.label(ms)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == ms.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	ms.Label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	if ms, ok := state.(*MatchState); ok {
		mh.mod.listener.Registry().RemoveGame(ms.GameID)
		mh.mod.outbox.take(ms.GameID)
		logger.Debug("MatchTerminate: Game %s dropped.", ms.GameID)
	}
	return state
}

// MatchSignal applies an enveloped message on behalf of the server.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	ms, ok := state.(*MatchState)
	if !ok {
		return state, "state not found"
	}
	msg, err := protocol.Decode([]byte(data))
	if err != nil {
		logger.Warn("MatchSignal: %v", err)
		return ms, err.Error()
	}
	if ig, ok := msg.(protocol.InGame); ok {
		ig.SetGameID(ms.GameID)
	}
	mh.apply(ctx, ms, dispatcher, logger, msg, nil)
	return ms, "ok"
}
