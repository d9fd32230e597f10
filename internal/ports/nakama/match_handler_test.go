package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"cloister/internal/bot"
	"cloister/internal/config"
	"cloister/internal/domain"
	"cloister/internal/game"
	"cloister/internal/ports"
	"cloister/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode    int64
	data      []byte
	presences []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.sent = append(md.sent, sentMessage{opCode: opCode, data: append([]byte(nil), data...), presences: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) opCodes() []int64 {
	var out []int64
	for _, s := range md.sent {
		out = append(out, s.opCode)
	}
	return out
}

type mockPresence struct {
	session  string
	username string
}

func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return p.username }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p mockPresence) GetUserId() string                 { return "user-" + p.session }
func (p mockPresence) GetSessionId() string              { return p.session }
func (p mockPresence) GetNodeId() string                 { return "node" }

type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (d mockMatchData) GetOpCode() int64      { return d.opCode }
func (d mockMatchData) GetData() []byte       { return d.data }
func (d mockMatchData) GetReliable() bool     { return true }
func (d mockMatchData) GetReceiveTime() int64 { return 0 }

// memStore is an in-memory ports.SnapshotStore.
type memStore struct {
	mu    sync.Mutex
	saves map[string]ports.SavedGame
}

func (s *memStore) Save(_ context.Context, save ports.SavedGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saves == nil {
		s.saves = map[string]ports.SavedGame{}
	}
	s.saves[save.ID] = save
	return nil
}

func (s *memStore) Load(_ context.Context, id string) (ports.SavedGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	save, ok := s.saves[id]
	if !ok {
		return ports.SavedGame{}, ports.ErrSaveNotFound
	}
	return save, nil
}

func (s *memStore) List(_ context.Context, limit int) ([]ports.SavedGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.SavedGame
	for _, save := range s.saves {
		out = append(out, save)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	alice = mockPresence{session: "sa", username: "alice"}
	bob   = mockPresence{session: "sb", username: "bob"}
)

func newTestHandler(settings config.Settings) (*matchHandler, *memStore) {
	if settings.UndoDepth == 0 {
		settings.UndoDepth = 8
	}
	store := &memStore{}
	return &matchHandler{mod: newModule(noopLogger{}, settings, store)}, store
}

func matchCtx(id string) context.Context {
	return context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, id)
}

func initMatch(t *testing.T, mh *matchHandler, id string, params map[string]interface{}) *MatchState {
	t.Helper()
	state, rate, label := mh.MatchInit(matchCtx(id), noopLogger{}, nil, nil, params)
	if state == nil {
		t.Fatalf("MatchInit returned nil state for %s", id)
	}
	if rate != tickRate || label == "" {
		t.Fatalf("tick rate %d label %q", rate, label)
	}
	return state.(*MatchState)
}

func data(t *testing.T, from mockPresence, msg protocol.Message) runtime.MatchData {
	t.Helper()
	op, ok := protocol.OpCode(msg.Kind())
	if !ok {
		t.Fatalf("no op code for %s", msg.Kind())
	}
	payload, err := protocol.EncodePayload(msg)
	if err != nil {
		t.Fatal(err)
	}
	return mockMatchData{mockPresence: from, opCode: op, data: payload}
}

func loop(mh *matchHandler, ms *MatchState, d *mockDispatcher, msgs ...runtime.MatchData) {
	mh.MatchLoop(matchCtx(ms.GameID), noopLogger{}, nil, nil, d, 0, ms, msgs)
}

func viewGame(t *testing.T, mh *matchHandler, id string, fn func(g *game.Game)) {
	t.Helper()
	c, ok := mh.mod.listener.Registry().Game(id)
	if !ok {
		t.Fatalf("game %s not registered", id)
	}
	c.View(fn)
}

// seatAndStart joins alice and bob, seats them and starts the game.
func seatAndStart(t *testing.T, mh *matchHandler, ms *MatchState, d *mockDispatcher) {
	t.Helper()
	mh.MatchJoin(matchCtx(ms.GameID), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice, bob})
	loop(mh, ms, d,
		data(t, alice, &protocol.TakeSlotMessage{Number: 0, Nickname: "alice"}),
		data(t, bob, &protocol.TakeSlotMessage{Number: 1, Nickname: "bob"}),
		data(t, alice, &protocol.StartGameMessage{}),
	)
}

func TestMatchInitRegistersGame(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{DefaultChannel: "lobby"})
	ms := initMatch(t, mh, "m1.node", map[string]interface{}{"name": "Friday"})

	var label map[string]interface{}
	if err := json.Unmarshal([]byte(ms.Label), &label); err != nil {
		t.Fatalf("label is not json: %v", err)
	}
	if label["game"] != "cloister" || label["state"] != "OPEN" || label["name"] != "Friday" {
		t.Fatalf("label = %v", label)
	}
	if label[MatchLabelKey_OpenSlots] != float64(6) {
		t.Fatalf("open slots = %v, want 6", label[MatchLabelKey_OpenSlots])
	}
	viewGame(t, mh, "m1.node", func(g *game.Game) {
		if !g.IsCurrent(game.PhaseCreateGame) {
			t.Fatalf("phase = %s", g.PhaseID())
		}
	})
}

func TestMatchInitFailsForMissingSave(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	state, _, _ := mh.MatchInit(matchCtx("m1"), noopLogger{}, nil, nil, map[string]interface{}{"save_id": "nope"})
	if state != nil {
		t.Fatal("expected nil state")
	}
	if _, ok := mh.mod.listener.Registry().Game("m1"); ok {
		t.Fatal("game registered without its save")
	}
}

func TestMatchJoinSendsClientsAndGame(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}

	mh.MatchJoin(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice})

	ops := d.opCodes()
	if len(ops) != 2 || ops[0] != protocol.OpClientList || ops[1] != protocol.OpGame {
		t.Fatalf("op codes = %v, want client list then game", ops)
	}
	if len(d.sent[1].presences) != 1 || d.sent[1].presences[0].GetSessionId() != "sa" {
		t.Fatal("game message not targeted at the joiner")
	}
	msg, err := protocol.DecodePayload(protocol.KindGame, d.sent[1].data)
	if err != nil {
		t.Fatal(err)
	}
	if gm := msg.(*protocol.GameMessage); gm.GameID() != "m1" || gm.State != protocol.GameOpen || len(gm.Slots) != 6 {
		t.Fatalf("game message = %+v", gm)
	}
}

func TestMatchLoopSeatsAndStarts(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}
	seatAndStart(t, mh, ms, d)

	viewGame(t, mh, "m1", func(g *game.Game) {
		if !g.Started() || g.PlayerCount() != 2 {
			t.Fatalf("started=%v players=%d", g.Started(), g.PlayerCount())
		}
		if s, _ := g.Slot(1); s.SessionID != "sb" || s.Serial != 1 {
			t.Fatalf("slot 1 = %+v", s)
		}
	})
	var label map[string]interface{}
	_ = json.Unmarshal([]byte(d.lastLabel), &label)
	if label["state"] != "RUNNING" {
		t.Fatalf("label = %v", label)
	}
}

func TestMatchLoopRelaysAcceptedMessages(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}
	seatAndStart(t, mh, ms, d)
	d.sent = nil

	var call game.Call
	viewGame(t, mh, "m1", func(g *game.Game) {
		pr, _ := g.Prompt()
		call = game.PlaceTileCall{Position: pr.Placements[0].Position, Rotation: pr.Placements[0].Rotation}
	})
	rmi, err := protocol.NewRmi("ignored", call)
	if err != nil {
		t.Fatal(err)
	}
	loop(mh, ms, d, data(t, alice, rmi))

	if len(d.sent) != 1 || d.sent[0].opCode != protocol.OpRmi {
		t.Fatalf("op codes = %v, want one relayed rmi", d.opCodes())
	}
	relayed, _ := protocol.DecodePayload(protocol.KindRmi, d.sent[0].data)
	if m := relayed.(*protocol.RmiMessage); m.SessionID != "sa" || m.GameID() != "m1" {
		t.Fatalf("relayed rmi = %+v", m)
	}
	viewGame(t, mh, "m1", func(g *game.Game) {
		if g.IsCurrent(game.PhaseTile) && g.TurnPlayer() == 0 {
			t.Fatal("tile was not placed")
		}
	})
}

func TestMatchLoopDropsServerKinds(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}

	forged := &protocol.SlotMessage{Number: 0, Nickname: "mallory", SessionID: "sa", Serial: 9}
	loop(mh, ms, d, data(t, alice, forged), mockMatchData{mockPresence: alice, opCode: 999})

	if len(d.sent) != 0 {
		t.Fatalf("sent %v", d.opCodes())
	}
	viewGame(t, mh, "m1", func(g *game.Game) {
		if s, _ := g.Slot(0); s.IsOccupied() {
			t.Fatal("client forged a slot")
		}
	})
}

func TestMatchLoopReportsSlotConflicts(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}
	mh.MatchJoin(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice, bob})
	d.sent = nil

	loop(mh, ms, d,
		data(t, alice, &protocol.TakeSlotMessage{Number: 0, Nickname: "alice"}),
		data(t, bob, &protocol.TakeSlotMessage{Number: 0, Nickname: "bob"}),
	)
	ops := d.opCodes()
	if len(ops) != 2 || ops[0] != protocol.OpSlot || ops[1] != protocol.OpError {
		t.Fatalf("op codes = %v, want slot then error", ops)
	}
	if d.sent[1].presences[0].GetSessionId() != "sb" {
		t.Fatal("error not sent to the losing session")
	}
}

func TestMatchJoinAttemptChecksVersion(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)

	tests := []struct {
		name     string
		metadata map[string]string
		ok       bool
	}{
		{"No version", nil, true},
		{"Same version", map[string]string{MetadataVersion: "1"}, true},
		{"Other version", map[string]string{MetadataVersion: "0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 0, ms, alice, tt.metadata)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok && reason != protocol.ErrorBadVersion {
				t.Fatalf("reason = %q", reason)
			}
		})
	}
}

func TestMatchLeaveFreesSeatBeforeStart(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}
	mh.MatchJoin(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice, bob})
	loop(mh, ms, d, data(t, bob, &protocol.TakeSlotMessage{Number: 3, Nickname: "bob"}))

	if next := mh.MatchLeave(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{bob}); next == nil {
		t.Fatal("match terminated while alice is connected")
	}
	viewGame(t, mh, "m1", func(g *game.Game) {
		if s, _ := g.Slot(3); s.IsOccupied() {
			t.Fatalf("slot 3 = %+v, want released", s)
		}
	})

	if next := mh.MatchLeave(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, []runtime.Presence{alice}); next != nil {
		t.Fatal("expected termination once empty")
	}
	if _, ok := mh.mod.listener.Registry().Game("m1"); ok {
		t.Fatal("game kept after the last client left")
	}
}

func TestSaveAndResumeGame(t *testing.T) {
	mh, store := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}
	seatAndStart(t, mh, ms, d)

	out, err := mh.mod.rpcSaveGame(context.Background(), noopLogger{}, nil, nil, `{"game_id":"m1","name":"evening"}`)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	var resp SaveGameResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil || resp.SaveID == "" {
		t.Fatalf("save response %q: %v", out, err)
	}
	if _, err := store.Load(context.Background(), resp.SaveID); err != nil {
		t.Fatalf("stored save: %v", err)
	}

	listed, err := mh.mod.rpcListSaves(context.Background(), noopLogger{}, nil, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	var saves ListSavesResponse
	_ = json.Unmarshal([]byte(listed), &saves)
	if len(saves.Saves) != 1 || saves.Saves[0].Name != "evening" {
		t.Fatalf("saves = %+v", saves)
	}

	ms2 := initMatch(t, mh, "m2", map[string]interface{}{"save_id": resp.SaveID})
	viewGame(t, mh, "m2", func(g *game.Game) {
		if !g.IsCurrent(game.PhaseLoadGame) {
			t.Fatalf("phase = %s, want LoadGame", g.PhaseID())
		}
		if s, _ := g.Slot(0); s.SessionID != "" || s.Nickname != "alice" {
			t.Fatalf("slot 0 = %+v, want released seat keeping its nickname", s)
		}
	})
	if ms2.Name != "evening" {
		t.Fatalf("name = %q", ms2.Name)
	}

	d2 := &mockDispatcher{}
	seatAndStart(t, mh, ms2, d2)
	viewGame(t, mh, "m2", func(g *game.Game) {
		if !g.IsCurrent(game.PhaseTile) || g.TurnPlayer() != 0 {
			t.Fatalf("resumed in %s for player %d", g.PhaseID(), g.TurnPlayer())
		}
		if s, _ := g.Slot(0); s.SessionID != "sa" {
			t.Fatalf("slot 0 session = %q", s.SessionID)
		}
	})
}

func TestSaveUnknownGame(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	_, err := mh.mod.rpcSaveGame(context.Background(), noopLogger{}, nil, nil, `{"game_id":"ghost"}`)
	var rerr *runtime.Error
	if !errors.As(err, &rerr) || rerr.Code != codeNotFound {
		t.Fatalf("error = %v, want not found", err)
	}
	if _, err := mh.mod.rpcSaveGame(context.Background(), noopLogger{}, nil, nil, `{`); err == nil {
		t.Fatal("expected invalid payload error")
	}
}

func TestAutostartedAIGameRunsOverTicks(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{
		AutostartEnabled: true,
		AutostartPlayers: []string{bot.ClassEager, bot.ClassLegal},
	})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}

	over := false
	for tick := 0; tick < 5000 && !over; tick++ {
		loop(mh, ms, d)
		viewGame(t, mh, "m1", func(g *game.Game) { over = g.IsCurrent(game.PhaseGameOver) })
	}
	if !over {
		t.Fatal("AI game did not finish")
	}
}

func TestMatchTerminateDropsGame(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	mh.MatchTerminate(matchCtx("m1"), noopLogger{}, nil, nil, &mockDispatcher{}, 0, ms, 0)
	if _, ok := mh.mod.listener.Registry().Game("m1"); ok {
		t.Fatal("game still registered")
	}
}

func TestMatchSignalAppliesEnvelope(t *testing.T) {
	mh, _ := newTestHandler(config.Settings{})
	ms := initMatch(t, mh, "m1", nil)
	d := &mockDispatcher{}

	env, err := protocol.Encode(&protocol.SetRuleMessage{Rule: domain.RuleRandomSeating, Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, reply := mh.MatchSignal(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, string(env)); reply != "ok" {
		t.Fatalf("reply = %q", reply)
	}
	viewGame(t, mh, "m1", func(g *game.Game) {
		if !g.HasRule(domain.RuleRandomSeating) {
			t.Fatal("rule not applied")
		}
	})
	if _, reply := mh.MatchSignal(matchCtx("m1"), noopLogger{}, nil, nil, d, 0, ms, "junk"); reply == "ok" {
		t.Fatal("junk accepted")
	}
}
