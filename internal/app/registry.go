package app

import (
	"fmt"
	"sort"
	"sync"
)

// Registry indexes live controllers. Lookups happen on every message, so
// reads take the shared lock.
type Registry struct {
	mu       sync.RWMutex
	games    map[string]*GameController
	channels map[string]*ChannelController
}

func NewRegistry() *Registry {
	return &Registry{
		games:    make(map[string]*GameController),
		channels: make(map[string]*ChannelController),
	}
}

func (r *Registry) Game(id string) (*GameController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.games[id]
	return c, ok
}

// Lookup is Game for callers that report a miss. An unregistered id is an
// ErrUnknownGame.
func (r *Registry) Lookup(id string) (*GameController, error) {
	c, ok := r.Game(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	return c, nil
}

// AddGame registers c unless a controller for the same game exists. It
// returns the registered controller and whether c was added.
func (r *Registry) AddGame(c *GameController) (*GameController, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.games[c.GameID()]; ok {
		return existing, false
	}
	r.games[c.GameID()] = c
	return c, true
}

func (r *Registry) RemoveGame(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.games[id]
	delete(r.games, id)
	return ok
}

// Games returns the registered controllers ordered by game id.
func (r *Registry) Games() []*GameController {
	r.mu.RLock()
	out := make([]*GameController, 0, len(r.games))
	for _, c := range r.games {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].GameID() < out[j].GameID() })
	return out
}

func (r *Registry) Channel(name string) (*ChannelController, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[name]
	return c, ok
}

// ResetChannels drops every channel controller and registers c.
func (r *Registry) ResetChannels(c *ChannelController) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = map[string]*ChannelController{c.Name(): c}
}
