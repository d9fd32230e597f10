package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloister/internal/bot"
	"cloister/internal/config"
	"cloister/internal/domain"
	"cloister/internal/game"
	"cloister/internal/ports"
	"cloister/internal/protocol"
	"cloister/internal/snapshot"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/sync/errgroup"
)

// ListenerConfig wires a Listener. Registry, Presenter and Observer
// default to an empty registry, a headless presenter and no observer.
type ListenerConfig struct {
	Logger     runtime.Logger
	Registry   *Registry
	Connection ports.Connection
	Presenter  ports.Presenter
	Reporter   ports.Reporter
	Observer   ports.Observer
	Settings   config.Settings
}

// Listener routes inbound protocol messages to game and channel controllers.
type Listener struct {
	logger    runtime.Logger
	registry  *Registry
	conn      ports.Connection
	presenter ports.Presenter
	reporter  ports.Reporter
	observer  ports.Observer
	settings  config.Settings

	autostartOnce sync.Once
}

func NewListener(cfg ListenerConfig) *Listener {
	l := &Listener{
		logger:    cfg.Logger,
		registry:  cfg.Registry,
		conn:      cfg.Connection,
		presenter: cfg.Presenter,
		reporter:  cfg.Reporter,
		observer:  cfg.Observer,
		settings:  cfg.Settings,
	}
	if l.registry == nil {
		l.registry = NewRegistry()
	}
	if l.presenter == nil {
		l.presenter = ports.HeadlessPresenter{}
	}
	return l
}

func (l *Listener) Registry() *Registry { return l.registry }

// OnMessage applies one inbound message. Routing misses, unknown methods
// and rejected calls are logged and absorbed; the returned error is
// reserved for failures the caller must handle, such as an undecodable
// snapshot or a chat line from an unknown session.
func (l *Listener) OnMessage(ctx context.Context, msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.GameMessage:
		return l.onGame(ctx, m)
	case *protocol.ChannelMessage:
		return l.onChannel(ctx, m)
	case *protocol.GameListMessage:
		return l.onGameList(m)
	case *protocol.ErrorMessage:
		l.onError(ctx, m)
		return nil
	}

	if ig, ok := msg.(protocol.InGame); ok && ig.GameID() != "" {
		c, ok := l.registry.Game(ig.GameID())
		if !ok {
			l.logger.Debug("Listener: no controller for game %s, dropping %s", ig.GameID(), msg.Kind())
			return nil
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		err := l.applyGameMessage(ctx, c, msg)
		l.settle(ctx, c, msg.Kind())
		return err
	}
	if ic, ok := msg.(protocol.InChannel); ok && ic.ChannelName() != "" {
		c, ok := l.registry.Channel(ic.ChannelName())
		if !ok {
			l.logger.Debug("Listener: no controller for channel %s, dropping %s", ic.ChannelName(), msg.Kind())
			return nil
		}
		return l.applyChannelMessage(ctx, c, msg)
	}
	l.logger.Debug("Listener: dropping unaddressed %s", msg.Kind())
	return nil
}

// DispatchBatch applies msgs. Messages that address no game go first, in
// order. The rest are grouped per game; each group keeps its order and
// groups run concurrently.
func (l *Listener) DispatchBatch(ctx context.Context, msgs []protocol.Message) error {
	groups := map[string][]protocol.Message{}
	var order []string
	for _, msg := range msgs {
		ig, ok := msg.(protocol.InGame)
		if !ok || ig.GameID() == "" {
			if err := l.OnMessage(ctx, msg); err != nil {
				return err
			}
			continue
		}
		id := ig.GameID()
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], msg)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, id := range order {
		batch := groups[id]
		eg.Go(func() error {
			for _, msg := range batch {
				if err := l.OnMessage(ctx, msg); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func (l *Listener) onGame(ctx context.Context, m *protocol.GameMessage) error {
	id := m.GameID()
	if id == "" {
		l.logger.Warn("Listener: GAME message without game id")
		return nil
	}
	c, err := l.trackGame(m)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	if !c.mounted {
		if err := l.mount(ctx, c, m); err != nil {
			l.registry.RemoveGame(id)
			return err
		}
		c.mounted = true
		if err := guard(func() error { c.game.PhaseLoop(); return nil }); err != nil {
			l.logger.Error("Listener: phase loop of game %s: %v", id, err)
		}
		if m.State == protocol.GameOpen {
			l.autostart(ctx, c)
		}
	}
	if m.State == protocol.GameRunning && (c.game.IsCurrent(game.PhaseCreateGame) || c.game.IsCurrent(game.PhaseLoadGame)) {
		l.startGame(c)
	}
	l.settle(ctx, c, m.Kind())
	return nil
}

// trackGame registers a controller for m, or updates the registered one
// with the announced setup and seats. The controller is returned locked.
func (l *Listener) trackGame(m *protocol.GameMessage) (*GameController, error) {
	id := m.GameID()
	if c, ok := l.registry.Game(id); ok {
		c.mu.Lock()
		l.updateGame(c, m)
		return c, nil
	}

	g, err := newGame(id, m)
	if err != nil {
		return nil, fmt.Errorf("create game %s: %w", id, err)
	}
	c := NewGameController(g, m.Channel, l.settings.UndoDepth)
	c.mu.Lock()
	l.updateGame(c, m)
	if existing, added := l.registry.AddGame(c); !added {
		c.mu.Unlock()
		existing.mu.Lock()
		l.updateGame(existing, m)
		return existing, nil
	}
	return c, nil
}

// updateGame applies the setup and seats a GAME message announces. c.mu is held.
func (l *Listener) updateGame(c *GameController, m *protocol.GameMessage) {
	g := c.game
	if m.Setup != nil && !g.Started() {
		g.ReplaceSetup(m.Setup.Expansions, m.Setup.Rules)
	}
	if g.Started() && !g.IsCurrent(game.PhaseLoadGame) {
		return
	}
	for _, s := range m.Slots {
		s.SetGameID(c.gameID)
		l.applySlot(c, s)
	}
}

// mount asks the presenter for the game view and waits for it to exist.
func (l *Listener) mount(ctx context.Context, c *GameController, m *protocol.GameMessage) error {
	ack := l.presenter.Mount(ctx, ports.View{Kind: ports.ViewGame, GameID: c.gameID, Channel: m.Channel, Name: m.Name})
	select {
	case err := <-ack:
		if err != nil {
			return fmt.Errorf("mount game %s: %w", c.gameID, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newGame builds a fresh game or loads the embedded snapshot. A snapshot
// that cannot be decoded never falls back to a fresh game.
func newGame(id string, m *protocol.GameMessage) (*game.Game, error) {
	if m.Snapshot == "" {
		return game.New(id, m.Name), nil
	}
	s, err := snapshot.Parse(m.Snapshot)
	if err != nil {
		return nil, err
	}
	g, err := s.Load(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", snapshot.ErrDecode, err)
	}
	return g, nil
}

func (l *Listener) startGame(c *GameController) {
	c.attachReporter(l.reporter)
	if err := c.game.StartGame(); err != nil {
		l.logger.Warn("Listener: cannot start game %s: %v", c.gameID, err)
	}
}

// defaultAutostartPlayer seats a single human when no players are configured.
const defaultAutostartPlayer = "Player"

// autostart seats the configured players and starts the first opened game.
// The messages travel through the connection like any client request. An
// unset preset plays the basic game; a named preset that does not exist
// cancels autostart.
func (l *Listener) autostart(ctx context.Context, c *GameController) {
	if !l.settings.AutostartEnabled || l.conn == nil {
		return
	}
	l.autostartOnce.Do(func() {
		preset, ok := config.GetPreset(l.settings.AutostartPreset)
		if l.settings.AutostartPreset != "" && !ok {
			l.logger.Warn("Listener: autostart preset %q not found", l.settings.AutostartPreset)
			return
		}
		players := l.settings.AutostartPlayers
		if len(players) == 0 {
			players = []string{defaultAutostartPlayer}
		}

		var msgs []protocol.Message
		ais := map[string]int{}
		for i, name := range players {
			take := &protocol.TakeSlotMessage{Number: i, Nickname: name, SessionID: l.conn.SessionID()}
			if bot.IsAIClass(name) {
				take.AIClass = name
				take.Nickname = bot.Nickname(name, ais[name])
				ais[name]++
			}
			msgs = append(msgs, take)
		}
		for _, e := range domain.Expansions {
			msgs = append(msgs, &protocol.SetExpansionMessage{Expansion: e, Enabled: containsExpansion(preset.Expansions, e)})
		}
		for _, r := range preset.Rules {
			msgs = append(msgs, &protocol.SetRuleMessage{Rule: r, Enabled: true})
		}
		msgs = append(msgs, &protocol.StartGameMessage{})

		l.logger.Info("Listener: autostarting game %s with %d players, preset %q", c.gameID, len(players), preset.Name)
		for _, msg := range msgs {
			msg.(protocol.InGame).SetGameID(c.gameID)
			if err := l.conn.Send(ctx, msg); err != nil {
				l.logger.Error("Listener: autostart send %s: %v", msg.Kind(), err)
				return
			}
		}
	})
}

func containsExpansion(list []domain.Expansion, e domain.Expansion) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

func (l *Listener) onChannel(ctx context.Context, m *protocol.ChannelMessage) error {
	c := NewChannelController(m.ChannelName())
	l.registry.ResetChannels(c)
	ack := l.presenter.Mount(ctx, ports.View{Kind: ports.ViewChannel, Channel: c.Name(), Name: c.Name()})
	select {
	case err := <-ack:
		if err != nil {
			return fmt.Errorf("mount channel %s: %w", c.Name(), err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// onGameList records the games a channel advertises. Each one gets a
// controller, without a view, so that joining it later reuses the state.
func (l *Listener) onGameList(m *protocol.GameListMessage) error {
	cc, ok := l.registry.Channel(m.ChannelName())
	if !ok {
		l.logger.Debug("Listener: game list for unknown channel %s", m.ChannelName())
		return nil
	}
	for _, gm := range m.Games {
		if gm.GameID() == "" {
			continue
		}
		c, err := l.trackGame(gm)
		if err != nil {
			return fmt.Errorf("game list of %s: %w", cc.Name(), err)
		}
		c.mu.Unlock()
	}
	cc.SetGames(m.Games)
	return nil
}

func (l *Listener) onError(ctx context.Context, m *protocol.ErrorMessage) {
	if m.Code == protocol.ErrorBadVersion {
		l.logger.Warn("Listener: protocol version mismatch: %s", m.Message)
		l.presenter.Alert(ctx, "Protocol mismatch", m.Message)
		return
	}
	l.logger.Error("Listener: server error %s: %s", m.Code, m.Message)
}

func (l *Listener) applyChannelMessage(ctx context.Context, c *ChannelController, msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.ChatMessage:
		from, err := c.ClientBySession(m.SessionID)
		if err != nil {
			return fmt.Errorf("chat in channel %s: %w", c.Name(), err)
		}
		if l.observer != nil {
			l.observer.Chat(ctx, c.Name(), from, m.Text)
		}
	case *protocol.ClientListMessage:
		c.SetRemoteClients(m.Clients)
	default:
		l.logger.Debug("Listener: channel %s ignores %s", c.Name(), msg.Kind())
	}
	return nil
}

// applyGameMessage handles one message for a game. c.mu is held.
func (l *Listener) applyGameMessage(ctx context.Context, c *GameController, msg protocol.Message) error {
	g := c.game
	switch m := msg.(type) {
	case *protocol.SlotMessage:
		l.applySlot(c, m)

	case *protocol.TakeSlotMessage:
		l.logger.Debug("Listener: TAKE_SLOT for game %s reached the listener unclaimed", c.gameID)

	case *protocol.GameSetupMessage:
		if l.beforeStart(c, msg) {
			g.ReplaceSetup(m.Expansions, m.Rules)
		}

	case *protocol.SetExpansionMessage:
		if !l.beforeStart(c, msg) {
			return nil
		}
		if !m.Expansion.IsImplemented() {
			l.logger.Warn("Listener: unknown expansion %q for game %s", m.Expansion, c.gameID)
			return nil
		}
		g.SetExpansion(m.Expansion, m.Enabled)

	case *protocol.SetRuleMessage:
		if l.beforeStart(c, msg) {
			g.SetRule(m.Rule, m.Enabled)
		}

	case *protocol.ChatMessage:
		from, err := c.ClientBySession(m.SessionID)
		if err != nil {
			return fmt.Errorf("chat in game %s: %w", c.gameID, err)
		}
		if l.observer != nil {
			l.observer.Chat(ctx, c.gameID, from, m.Text)
		}

	case *protocol.ClientListMessage:
		c.SetRemoteClients(m.Clients)

	case *protocol.RmiMessage:
		l.invoke(c, m)

	case *protocol.UndoMessage:
		if err := c.undoLast(); err != nil {
			l.logger.Warn("Listener: undo on game %s: %v", c.gameID, err)
		}

	case *protocol.StartGameMessage:
		l.startGame(c)

	default:
		l.logger.Debug("Listener: game %s ignores %s", c.gameID, msg.Kind())
	}
	return nil
}

func (l *Listener) beforeStart(c *GameController, msg protocol.Message) bool {
	if c.game.Started() {
		l.logger.Warn("Listener: %s for game %s after start", msg.Kind(), c.gameID)
		return false
	}
	return true
}

// applySlot stores the authoritative seat state. Seats may change until
// the game starts, and while a loaded game waits to resume.
func (l *Listener) applySlot(c *GameController, m *protocol.SlotMessage) {
	g := c.game
	if g.Started() && !g.IsCurrent(game.PhaseLoadGame) {
		l.logger.Warn("Listener: slot %d of game %s changed after start", m.Number, c.gameID)
		return
	}
	cur, ok := g.Slot(m.Number)
	if !ok {
		l.logger.Warn("Listener: game %s has no slot %d", c.gameID, m.Number)
		return
	}
	if m.Serial < cur.Serial {
		l.logger.Debug("Listener: stale slot %d for game %s (serial %d < %d)", m.Number, c.gameID, m.Serial, cur.Serial)
		return
	}
	slot := domain.PlayerSlot{
		Number:    m.Number,
		Nickname:  m.Nickname,
		SessionID: m.SessionID,
		AIClass:   m.AIClass,
		Serial:    m.Serial,
		State:     l.slotState(m.SessionID),
	}
	if err := g.UpdateSlot(slot); err != nil {
		l.logger.Warn("Listener: update slot for game %s: %v", c.gameID, err)
	}
}

func (l *Listener) slotState(sessionID string) domain.SlotState {
	switch {
	case sessionID == "":
		return domain.SlotOpen
	case l.conn != nil && sessionID == l.conn.SessionID():
		return domain.SlotOwn
	default:
		return domain.SlotRemote
	}
}

// invoke runs a remote call on the current phase. The state before the
// call is kept for undo only when the call succeeds.
func (l *Listener) invoke(c *GameController, m *protocol.RmiMessage) {
	g := c.game
	call, err := protocol.DecodeCall(m.Method, m.Args)
	if errors.Is(err, protocol.ErrUnknownMethod) {
		l.logger.Warn("Listener: game %s has no method %q", c.gameID, m.Method)
		return
	}
	if err != nil {
		l.logger.Warn("Listener: game %s: %v", c.gameID, err)
		return
	}
	if m.SessionID != "" {
		slot, ok := g.SlotOf(g.ActivePlayer())
		if !ok || slot.SessionID != m.SessionID {
			l.logger.Warn("Listener: session %s is not the active player of game %s", m.SessionID, c.gameID)
			return
		}
	}

	before := snapshot.Capture(g)
	if err := guard(func() error { return g.Invoke(call) }); err != nil {
		l.logger.Error("Listener: game %s: %v", c.gameID, err)
		return
	}
	c.pushUndo(before)
}

// guard runs fn and returns a panic raised by it as an ErrPanicked error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return fn()
}

// settle runs the phase loop after a message, reports it and forwards the
// events. An AI seat owned by this session answers the next prompt.
func (l *Listener) settle(ctx context.Context, c *GameController, kind protocol.Kind) {
	g := c.game
	if err := guard(func() error { g.PhaseLoop(); return nil }); err != nil {
		l.logger.Error("Listener: phase loop of game %s: %v", c.gameID, err)
	}
	if c.reporter != nil {
		c.reporter.Record(ctx, c.gameID, kind)
	}
	if events := g.DrainEvents(); len(events) > 0 && l.observer != nil {
		l.observer.Notify(ctx, c.gameID, events)
	}
	l.driveAI(ctx, c)
}

func (l *Listener) driveAI(ctx context.Context, c *GameController) {
	g := c.game
	if l.conn == nil || !g.Started() || !g.Waiting() || g.Serial() == c.lastAISerial {
		return
	}
	player := g.ActivePlayer()
	slot, ok := g.SlotOf(player)
	if !ok || !slot.IsAI() || slot.SessionID != l.conn.SessionID() {
		return
	}
	agent, err := bot.NewAgent(player, slot.AIClass)
	if err != nil {
		l.logger.Warn("Listener: game %s slot %d: %v", c.gameID, slot.Number, err)
		return
	}
	call, err := agent.Play(g)
	if err != nil {
		if !errors.Is(err, bot.ErrNoPrompt) {
			l.logger.Warn("Listener: ai %s in game %s: %v", slot.AIClass, c.gameID, err)
		}
		return
	}
	msg, err := protocol.NewRmi(c.gameID, call)
	if err != nil {
		l.logger.Error("Listener: encode ai call: %v", err)
		return
	}
	msg.SessionID = slot.SessionID
	c.lastAISerial = g.Serial()
	if err := l.conn.Send(ctx, msg); err != nil {
		l.logger.Error("Listener: send ai call for game %s: %v", c.gameID, err)
	}
}
