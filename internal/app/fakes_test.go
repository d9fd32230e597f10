package app

import (
	"context"
	"sync"

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

// fakeConn queues sent messages instead of delivering them.
type fakeConn struct {
	session string

	mu   sync.Mutex
	sent []protocol.Message
}

func (c *fakeConn) SessionID() string { return c.session }

func (c *fakeConn) Send(_ context.Context, msg protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) drain() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sent
	c.sent = nil
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// fakePresenter acknowledges mounts through ack, or immediately when ack is nil.
type fakePresenter struct {
	ack chan error

	mu      sync.Mutex
	mounted []ports.View
	alerts  []string
}

func (p *fakePresenter) Mount(_ context.Context, v ports.View) <-chan error {
	p.mu.Lock()
	p.mounted = append(p.mounted, v)
	p.mu.Unlock()
	if p.ack != nil {
		return p.ack
	}
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func (p *fakePresenter) Alert(_ context.Context, title, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, title)
}

type chatLine struct {
	scope, from, text string
}

type fakeObserver struct {
	mu     sync.Mutex
	events map[string][]game.Event
	chats  []chatLine
}

func (o *fakeObserver) Notify(_ context.Context, gameID string, events []game.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.events == nil {
		o.events = map[string][]game.Event{}
	}
	o.events[gameID] = append(o.events[gameID], events...)
}

func (o *fakeObserver) Chat(_ context.Context, scope string, from protocol.RemoteClient, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chats = append(o.chats, chatLine{scope: scope, from: from.SessionID, text: text})
}

func (o *fakeObserver) kinds(gameID string) []game.EventKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []game.EventKind
	for _, ev := range o.events[gameID] {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeReporter struct {
	mu      sync.Mutex
	active  string
	records []protocol.Kind
}

func (r *fakeReporter) SetGame(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = id
}

func (r *fakeReporter) Record(_ context.Context, gameID string, kind protocol.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gameID == r.active {
		r.records = append(r.records, kind)
	}
}
