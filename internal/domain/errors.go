package domain

import "errors"

// Error strings are sent to clients verbatim.
var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotAdmin        = errors.New("permission denied: only the room admin can do that")
	ErrMuted           = errors.New("You are muted by the room admin")
	ErrNotInRoom       = errors.New("you are not in a room")
	ErrAlreadyInRoom   = errors.New("you are already in a room")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidRoomID   = errors.New("invalid room id")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageTooLong  = errors.New("message too long")
	ErrMessageNotFound = errors.New("message not found")
	ErrRateLimited     = errors.New("you are sending messages too fast")
)
