// Package protocol defines the JSON wire messages exchanged with clients.
// Each direction is a closed set: only types declared here satisfy
// ServerMessage or ClientMessage.
package protocol

type Type string

const (
	TypeSessionEstablished Type = "SESSION_ESTABLISHED"
	TypeJoinSuccess        Type = "JOIN_SUCCESS"
	TypeSystem             Type = "SYSTEM"
	TypeMessage            Type = "MESSAGE"
	TypeMuteState          Type = "MUTE_STATE"
	TypeDeleteMessage      Type = "DELETE_MESSAGE"
	TypeRoomWarning        Type = "ROOM_WARNING"
	TypeRoomMigration      Type = "ROOM_MIGRATION"
	TypeRoomExpired        Type = "ROOM_EXPIRED"
	TypeError              Type = "ERROR"

	TypeJoinRoom   Type = "JOIN_ROOM"
	TypeMuteUser   Type = "MUTE_USER"
	TypeUnmuteUser Type = "UNMUTE_USER"
	TypeExtendRoom Type = "EXTEND_ROOM"
	TypeLeaveRoom  Type = "LEAVE_ROOM"
)
