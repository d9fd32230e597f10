package nakama

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloister/internal/game"
	"cloister/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

var errNotAddressed = errors.New("message is not addressed to a game")

// outbox holds messages the server sends to its own matches. A match
// drains its queue on the next tick, so nothing is applied re-entrantly.
type outbox struct {
	mu      sync.Mutex
	pending map[string][]protocol.Message
}

func newOutbox() *outbox {
	return &outbox{pending: make(map[string][]protocol.Message)}
}

func (o *outbox) push(gameID string, msg protocol.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[gameID] = append(o.pending[gameID], msg)
}

func (o *outbox) take(gameID string) []protocol.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.pending[gameID]
	delete(o.pending, gameID)
	return msgs
}

// connection is the server's own participant in every match.
type connection struct {
	session string
	out     *outbox
}

func (c *connection) SessionID() string { return c.session }

func (c *connection) Send(_ context.Context, msg protocol.Message) error {
	ig, ok := msg.(protocol.InGame)
	if !ok || ig.GameID() == "" {
		return fmt.Errorf("send %s: %w", msg.Kind(), errNotAddressed)
	}
	c.out.push(ig.GameID(), msg)
	return nil
}

// logObserver logs what the listener applied. Clients see the relayed
// messages themselves.
type logObserver struct {
	logger runtime.Logger
}

func (o *logObserver) Notify(_ context.Context, gameID string, events []game.Event) {
	for _, ev := range events {
		if ev.Kind == game.EventGameOver {
			o.logger.Info("Observer: game %s is over", gameID)
		}
	}
	o.logger.Debug("Observer: game %s posted %d events", gameID, len(events))
}

func (o *logObserver) Chat(_ context.Context, scope string, from protocol.RemoteClient, text string) {
	o.logger.Debug("Observer: chat in %s from %s: %s", scope, from.Name, text)
}
