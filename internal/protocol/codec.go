package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownKind   = errors.New("protocol: unknown message kind")
	ErrMalformed     = errors.New("protocol: malformed message")
	ErrUnknownMethod = errors.New("protocol: unknown rmi method")
	ErrBadArguments  = errors.New("protocol: bad rmi arguments")
)

// Version is the protocol revision clients must speak.
const Version = 1

type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps msg in a typed envelope.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	return json.Marshal(envelope{Type: msg.Kind(), Payload: payload})
}

// Decode reads an envelope produced by Encode.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodePayload(env.Type, env.Payload)
}

// EncodePayload encodes msg without an envelope; the kind travels
// out of band, e.g. as a match op code.
func EncodePayload(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodePayload decodes data as a message of the given kind.
func DecodePayload(kind Kind, data []byte) (Message, error) {
	msg, ok := newMessage(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(data) == 0 {
		return msg, nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}
	return msg, nil
}
