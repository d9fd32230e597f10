package app

import (
	"fmt"
	"sync"

	"cloister/internal/protocol"
)

// ChannelController tracks the clients and advertised games of a lobby channel.
type ChannelController struct {
	name string

	mu      sync.RWMutex
	clients []protocol.RemoteClient
	games   []*protocol.GameMessage
}

func NewChannelController(name string) *ChannelController {
	return &ChannelController{name: name}
}

func (c *ChannelController) Name() string { return c.name }

func (c *ChannelController) SetRemoteClients(clients []protocol.RemoteClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients = append([]protocol.RemoteClient(nil), clients...)
}

func (c *ChannelController) RemoteClients() []protocol.RemoteClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]protocol.RemoteClient(nil), c.clients...)
}

func (c *ChannelController) ClientBySession(sessionID string) (protocol.RemoteClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return findClient(c.clients, sessionID)
}

func (c *ChannelController) SetGames(games []*protocol.GameMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games = append([]*protocol.GameMessage(nil), games...)
}

func (c *ChannelController) Games() []*protocol.GameMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*protocol.GameMessage(nil), c.games...)
}

func findClient(clients []protocol.RemoteClient, sessionID string) (protocol.RemoteClient, error) {
	for _, rc := range clients {
		if rc.SessionID == sessionID {
			return rc, nil
		}
	}
	return protocol.RemoteClient{}, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
}
