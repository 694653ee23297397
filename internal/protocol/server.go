package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Ephemeral/internal/domain"
)

// ServerMessage is any server→client message.
type ServerMessage interface {
	Kind() Type
	serverMessage()
}

type SessionEstablished struct {
	SessionID domain.SessionID `json:"sessionId"`
}

// JoinSuccess carries the admin's username under both "admin" and "owner".
type JoinSuccess struct {
	RoomID      domain.RoomID        `json:"roomId"`
	Admin       domain.Username      `json:"admin"`
	Owner       domain.Username      `json:"owner"`
	UserCount   int                  `json:"userCount"`
	Users       []domain.Username    `json:"users"`
	Role        domain.Role          `json:"role"`
	SessionID   domain.SessionID     `json:"sessionId"`
	History     []domain.ChatMessage `json:"history"`
	ExpiresAt   int64                `json:"expiresAt"`
	Reconnected bool                 `json:"reconnected"`
}

type System struct {
	Text      string            `json:"text"`
	UserCount int               `json:"userCount,omitempty"`
	Users     []domain.Username `json:"users,omitempty"`
	Admin     domain.Username   `json:"admin,omitempty"`
}

type Chat struct {
	ID        string          `json:"id"`
	Username  domain.Username `json:"username"`
	Text      string          `json:"text"`
	Timestamp int64           `json:"timestamp"`
}

func ChatFrom(m domain.ChatMessage) Chat {
	return Chat{ID: m.ID, Username: m.Username, Text: m.Text, Timestamp: m.Timestamp}
}

type MuteState struct {
	MutedUsers []domain.Username `json:"mutedUsers"`
}

type MessageDeleted struct {
	MessageID string          `json:"messageId"`
	Username  domain.Username `json:"username"`
}

// RoomWarning.TimeLeft is in whole seconds.
type RoomWarning struct {
	TimeLeft int64  `json:"timeLeft"`
	Text     string `json:"text"`
}

type RoomMigration struct {
	NewRoomID domain.RoomID `json:"newRoomId"`
}

type RoomExpired struct {
	Text string `json:"text"`
}

type Error struct {
	Message string `json:"message"`
}

func (SessionEstablished) Kind() Type { return TypeSessionEstablished }
func (JoinSuccess) Kind() Type { return TypeJoinSuccess }
func (System) Kind() Type { return TypeSystem }
func (Chat) Kind() Type { return TypeMessage }
func (MuteState) Kind() Type { return TypeMuteState }
func (MessageDeleted) Kind() Type { return TypeDeleteMessage }
func (RoomWarning) Kind() Type { return TypeRoomWarning }
func (RoomMigration) Kind() Type { return TypeRoomMigration }
func (RoomExpired) Kind() Type { return TypeRoomExpired }
func (Error) Kind() Type { return TypeError }

func (SessionEstablished) serverMessage() {}
func (JoinSuccess) serverMessage() {}
func (System) serverMessage() {}
func (Chat) serverMessage() {}
func (MuteState) serverMessage() {}
func (MessageDeleted) serverMessage() {}
func (RoomWarning) serverMessage() {}
func (RoomMigration) serverMessage() {}
func (RoomExpired) serverMessage() {}
func (Error) serverMessage() {}

// Encode serialises m with its "type" discriminator as the first key.
func Encode(m ServerMessage) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	head := fmt.Appendf(nil, `{"type":%q`, m.Kind())
	if len(body) <= 2 {
		return append(head, '}'), nil
	}
	head = append(head, ',')
	return append(head, body[1:]...), nil
}
