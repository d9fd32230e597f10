// Package snapshot serializes complete game state for late joiners, saved
// games and undo.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"cloister/internal/game"

	"github.com/fxamacker/cbor/v2"
	"github.com/pierrec/lz4/v4"
)

// ErrDecode marks a snapshot that could not be read back. Loading must fail
// rather than fall back to a fresh game.
var ErrDecode = errors.New("snapshot: decode failed")

// Version is bumped whenever game.State changes incompatibly.
const Version = 1

var magic = []byte("CLS1")

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Snapshot is the captured state of one game.
type Snapshot struct {
	Version int
	GameID  string
	State   game.State
}

// Capture copies the state of g.
func Capture(g *game.Game) Snapshot {
	return Snapshot{Version: Version, GameID: g.ID(), State: g.Export()}
}

// Restore rebuilds the game at the captured phase.
func (s Snapshot) Restore(gameID string) (*game.Game, error) {
	return game.Restore(gameID, s.State)
}

// Load rebuilds the game parked in the load phase, waiting to be resumed.
func (s Snapshot) Load(gameID string) (*game.Game, error) {
	return game.Load(gameID, s.State)
}

// Encode produces the compressed binary form.
func Encode(s Snapshot) ([]byte, error) {
	body, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(magic)
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("snapshot: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode. Every failure wraps ErrDecode.
func Decode(data []byte) (Snapshot, error) {
	if !bytes.HasPrefix(data, magic) {
		return Snapshot{}, fmt.Errorf("%w: bad header", ErrDecode)
	}
	body, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data[len(magic):])))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decompress: %v", ErrDecode, err)
	}
	var s Snapshot
	if err := decMode.Unmarshal(body, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if s.Version != Version {
		return Snapshot{}, fmt.Errorf("%w: version %d, want %d", ErrDecode, s.Version, Version)
	}
	return s, nil
}

// EncodeString returns the base64 text form embedded in game messages.
func EncodeString(s Snapshot) (string, error) {
	data, err := Encode(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Parse is the inverse of EncodeString.
func Parse(text string) (Snapshot, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(data)
}
