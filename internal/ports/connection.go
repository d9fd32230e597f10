package ports

import (
	"context"

	"cloister/internal/protocol"
)

// Connection is the transport as seen by the local participant.
type Connection interface {
	// SessionID identifies the local session. Slots owned by it are OWN.
	SessionID() string

	// Send publishes msg to every participant, including the local one.
	Send(ctx context.Context, msg protocol.Message) error
}
