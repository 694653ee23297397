package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Ephemeral/internal/domain"
)

var (
	ErrMalformed       = errors.New("Malformed message")
	ErrSessionMismatch = errors.New("Invalid session")
)

type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("Unknown message type: %s", e.Type)
}

// ClientMessage is any client→server message.
type ClientMessage interface {
	Kind() Type
	clientMessage()
}

type JoinRoom struct {
	RoomID    domain.RoomID    `json:"roomId"`
	Username  domain.Username  `json:"username"`
	SessionID domain.SessionID `json:"sessionId"`
}

type SendText struct {
	Text string `json:"text"`
}

type DeleteMessage struct {
	MessageID string `json:"messageId"`
}

type MuteUser struct {
	TargetUsername domain.Username  `json:"targetUsername"`
	SessionID      domain.SessionID `json:"sessionId"`
}

type UnmuteUser struct {
	TargetUsername domain.Username  `json:"targetUsername"`
	SessionID      domain.SessionID `json:"sessionId"`
}

type ExtendRoom struct{}

type LeaveRoom struct {
	SessionID domain.SessionID `json:"sessionId"`
}

func (JoinRoom) Kind() Type { return TypeJoinRoom }
func (SendText) Kind() Type { return TypeMessage }
func (DeleteMessage) Kind() Type { return TypeDeleteMessage }
func (MuteUser) Kind() Type { return TypeMuteUser }
func (UnmuteUser) Kind() Type { return TypeUnmuteUser }
func (ExtendRoom) Kind() Type { return TypeExtendRoom }
func (LeaveRoom) Kind() Type { return TypeLeaveRoom }

func (JoinRoom) clientMessage() {}
func (SendText) clientMessage() {}
func (DeleteMessage) clientMessage() {}
func (MuteUser) clientMessage() {}
func (UnmuteUser) clientMessage() {}
func (ExtendRoom) clientMessage() {}
func (LeaveRoom) clientMessage() {}

// Decode classifies data by its "type" field. It returns ErrMalformed for
// invalid JSON and *UnknownTypeError for types outside the client set.
func Decode(data []byte) (ClientMessage, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeJoinRoom:
		return decodeAs[JoinRoom](data)
	case TypeMessage:
		return decodeAs[SendText](data)
	case TypeDeleteMessage:
		return decodeAs[DeleteMessage](data)
	case TypeMuteUser:
		return decodeAs[MuteUser](data)
	case TypeUnmuteUser:
		return decodeAs[UnmuteUser](data)
	case TypeExtendRoom:
		return ExtendRoom{}, nil
	case TypeLeaveRoom:
		return decodeAs[LeaveRoom](data)
	default:
		return nil, &UnknownTypeError{Type: string(env.Type)}
	}
}

func decodeAs[T ClientMessage](data []byte) (ClientMessage, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}
