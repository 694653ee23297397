package core

import (
	"sync"

	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// Session binds one connection to its server-issued id and, once joined,
// to a room. The connection handler owns it; the transport object is never mutated.
type Session struct {
	id     domain.SessionID
	signal SignalConnection

	mu       sync.RWMutex
	roomID   domain.RoomID
	username domain.Username
	leaving  bool
}

func NewSession(id domain.SessionID, signal SignalConnection) *Session {
	return &Session{id: id, signal: signal}
}

func (s *Session) ID() domain.SessionID { return s.id }
func (s *Session) Signal() SignalConnection { return s.signal }

// Room reports the room this session is currently a member of.
func (s *Session) Room() (domain.RoomID, domain.Username, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID, s.username, s.roomID != ""
}

func (s *Session) bind(roomID domain.RoomID, username domain.Username) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.username = username
}

func (s *Session) unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
}

// MarkLeaving flags an intentional leave so disconnect skips the grace period.
func (s *Session) MarkLeaving() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaving = true
}

func (s *Session) Leaving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaving
}

func (s *Session) Send(msg protocol.ServerMessage) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return s.signal.TrySend(b)
}
