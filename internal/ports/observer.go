package ports

import (
	"context"

	"cloister/internal/game"
	"cloister/internal/protocol"
)

// Observer receives game events after each applied message.
type Observer interface {
	Notify(ctx context.Context, gameID string, events []game.Event)
	// Chat delivers a chat line. scope is a game id or a channel name.
	Chat(ctx context.Context, scope string, from protocol.RemoteClient, text string)
}

// Reporter is the reporting sink a controller is wired to once its game
// becomes the active one.
type Reporter interface {
	SetGame(gameID string)
	Record(ctx context.Context, gameID string, kind protocol.Kind)
}
