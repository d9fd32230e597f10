package protocol

import (
	"fmt"
	"math"

	"cloister/internal/domain"
	"cloister/internal/game"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecodeCall resolves method against the invocable set and decodes the
// JSON argument list into the matching call. Names match exactly.
func DecodeCall(method string, args []byte) (game.Call, error) {
	list := &structpb.ListValue{}
	if len(args) > 0 {
		if err := protojson.Unmarshal(args, list); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadArguments, method, err)
		}
	}
	a := argList{method: method, values: list.GetValues()}

	switch game.Method(method) {
	case game.MethodPass:
		if err := a.arity(0); err != nil {
			return nil, err
		}
		return game.PassCall{}, nil

	case game.MethodPlaceTile:
		if err := a.arity(3); err != nil {
			return nil, err
		}
		pos, err := a.position(0)
		if err != nil {
			return nil, err
		}
		rot, err := a.intAt(2)
		if err != nil {
			return nil, err
		}
		return game.PlaceTileCall{Position: pos, Rotation: domain.Rotation(rot)}, nil

	case game.MethodDeployMeeple:
		if err := a.arity(4); err != nil {
			return nil, err
		}
		pos, err := a.position(0)
		if err != nil {
			return nil, err
		}
		loc, err := a.location(2)
		if err != nil {
			return nil, err
		}
		s, err := a.stringAt(3)
		if err != nil {
			return nil, err
		}
		kind, err := domain.ParseMeepleKind(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadArguments, method, err)
		}
		return game.DeployMeepleCall{Pointer: domain.FeaturePointer{Position: pos, Location: loc}, Meeple: kind}, nil

	case game.MethodDeployCastle:
		if err := a.arity(3); err != nil {
			return nil, err
		}
		pos, err := a.position(0)
		if err != nil {
			return nil, err
		}
		loc, err := a.location(2)
		if err != nil {
			return nil, err
		}
		return game.DeployCastleCall{Position: pos, Location: loc}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// EncodeCall is the inverse of DecodeCall.
func EncodeCall(call game.Call) (string, []byte, error) {
	var values []any
	switch c := call.(type) {
	case game.PassCall:
	case game.PlaceTileCall:
		values = []any{c.Position.X, c.Position.Y, int(c.Rotation)}
	case game.DeployMeepleCall:
		values = []any{c.Pointer.Position.X, c.Pointer.Position.Y, c.Pointer.Location.String(), string(c.Meeple)}
	case game.DeployCastleCall:
		values = []any{c.Position.X, c.Position.Y, c.Location.String()}
	default:
		return "", nil, fmt.Errorf("%w: %T", ErrUnknownMethod, call)
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return "", nil, err
	}
	data, err := protojson.Marshal(list)
	if err != nil {
		return "", nil, err
	}
	return string(call.Method()), data, nil
}

// NewRmi builds the message invoking call on a game.
func NewRmi(gameID string, call game.Call) (*RmiMessage, error) {
	method, args, err := EncodeCall(call)
	if err != nil {
		return nil, err
	}
	msg := &RmiMessage{Method: method, Args: args}
	msg.SetGameID(gameID)
	return msg, nil
}

type argList struct {
	method string
	values []*structpb.Value
}

func (a argList) arity(n int) error {
	if len(a.values) != n {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadArguments, a.method, n, len(a.values))
	}
	return nil
}

func (a argList) intAt(i int) (int, error) {
	v, ok := a.values[i].GetKind().(*structpb.Value_NumberValue)
	if !ok || v.NumberValue != math.Trunc(v.NumberValue) {
		return 0, fmt.Errorf("%w: %s argument %d is not an integer", ErrBadArguments, a.method, i)
	}
	return int(v.NumberValue), nil
}

func (a argList) stringAt(i int) (string, error) {
	v, ok := a.values[i].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s argument %d is not a string", ErrBadArguments, a.method, i)
	}
	return v.StringValue, nil
}

func (a argList) position(i int) (domain.Position, error) {
	x, err := a.intAt(i)
	if err != nil {
		return domain.Position{}, err
	}
	y, err := a.intAt(i + 1)
	if err != nil {
		return domain.Position{}, err
	}
	return domain.Position{X: x, Y: y}, nil
}

func (a argList) location(i int) (domain.Location, error) {
	s, err := a.stringAt(i)
	if err != nil {
		return 0, err
	}
	loc, err := domain.ParseLocation(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadArguments, a.method, err)
	}
	return loc, nil
}
