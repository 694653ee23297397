package core

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/protocol"
)

// GraceEntry is a disconnected member and its pending finalize task.
type GraceEntry struct {
	domain.Disconnected
	timer Timer
}

func (g *GraceEntry) stop() {
	if g.timer != nil {
		g.timer.Stop()
	}
}

// Room is the in-memory state of one chat room.
// It is not safe on its own: every method except ID expects the caller to hold the embedded lock.
type Room struct {
	sync.Mutex

	id          domain.RoomID
	life        domain.Lifetime
	state       domain.RoomState
	warningSent bool
	admin       domain.SessionID

	clients      []*Session
	usernames    map[domain.SessionID]domain.Username
	muted        map[domain.SessionID]struct{}
	disconnected []*GraceEntry

	authors      map[string]domain.Username
	authorOrder  []string
	authorsLimit int
}

func NewRoom(id domain.RoomID, life domain.Lifetime, historyLimit int) *Room {
	return &Room{
		id:           id,
		life:         life,
		state:        domain.RoomActive,
		usernames:    make(map[domain.SessionID]domain.Username),
		muted:        make(map[domain.SessionID]struct{}),
		authors:      make(map[string]domain.Username),
		authorsLimit: historyLimit,
	}
}

func (r *Room) ID() domain.RoomID { return r.id }
func (r *Room) Lifetime() domain.Lifetime { return r.life }
func (r *Room) State() domain.RoomState { return r.state }
func (r *Room) Destroyed() bool { return r.state == domain.RoomDestroyed }
func (r *Room) WarningSent() bool { return r.warningSent }
func (r *Room) Admin() domain.SessionID { return r.admin }
func (r *Room) SetAdmin(sid domain.SessionID) { r.admin = sid }
func (r *Room) MemberCount() int { return len(r.clients) }
func (r *Room) Empty() bool { return len(r.clients) == 0 && len(r.disconnected) == 0 }

// MarkExpiring moves an active room to expiring. warned records whether the admin got the notice.
func (r *Room) MarkExpiring(warned bool) {
	if r.state == domain.RoomActive {
		r.state = domain.RoomExpiring
	}
	r.warningSent = r.warningSent || warned
}

// AddClient registers an active client; the first client of an admin-less room becomes admin.
func (r *Room) AddClient(s *Session, username domain.Username) {
	s.bind(r.id, username)
	r.clients = append(r.clients, s)
	r.usernames[s.ID()] = username
	if r.admin == "" {
		r.admin = s.ID()
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(s.ID())).
		Str("username", string(username)).Msg("client added")
}

// RemoveClient unregisters an active client. Grace bookkeeping is left to the caller.
func (r *Room) RemoveClient(sid domain.SessionID) (*Session, bool) {
	i := slices.IndexFunc(r.clients, func(s *Session) bool { return s.ID() == sid })
	if i < 0 {
		return nil, false
	}
	s := r.clients[i]
	r.clients = slices.Delete(r.clients, i, i+1)
	delete(r.usernames, sid)
	s.unbind()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("client removed")
	return s, true
}

func (r *Room) Client(sid domain.SessionID) (*Session, bool) {
	return lo.Find(r.clients, func(s *Session) bool { return s.ID() == sid })
}

// HasUsername matches active members only, case-sensitively.
func (r *Room) HasUsername(name domain.Username) bool {
	for _, existing := range r.usernames {
		if existing == name {
			return true
		}
	}
	return false
}

func (r *Room) Role(sid domain.SessionID) domain.Role {
	if sid != "" && r.admin == sid {
		return domain.RoleAdmin
	}
	return domain.RoleParticipant
}

// UsernameOf resolves an active or grace-period session.
func (r *Room) UsernameOf(sid domain.SessionID) (domain.Username, bool) {
	if name, ok := r.usernames[sid]; ok {
		return name, true
	}
	if g, ok := r.Disconnected(sid); ok {
		return g.Username, true
	}
	return "", false
}

func (r *Room) AdminName() domain.Username {
	name, _ := r.UsernameOf(r.admin)
	return name
}

// ResolveUsername scans active members first, then grace-period entries.
func (r *Room) ResolveUsername(name domain.Username) (domain.SessionID, bool) {
	for _, s := range r.clients {
		if r.usernames[s.ID()] == name {
			return s.ID(), true
		}
	}
	for _, g := range r.disconnected {
		if g.Username == name {
			return g.SessionID, true
		}
	}
	return "", false
}

// Members lists active usernames in join order.
func (r *Room) Members() []domain.Username {
	return lo.Map(r.clients, func(s *Session, _ int) domain.Username { return r.usernames[s.ID()] })
}

// NextAdmin picks the first active member, else the first grace-period entry.
func (r *Room) NextAdmin() domain.SessionID {
	if len(r.clients) > 0 {
		return r.clients[0].ID()
	}
	if len(r.disconnected) > 0 {
		return r.disconnected[0].SessionID
	}
	return ""
}

func (r *Room) IsMuted(sid domain.SessionID) bool {
	_, ok := r.muted[sid]
	return ok
}

func (r *Room) Mute(sid domain.SessionID) { r.muted[sid] = struct{}{} }

func (r *Room) Unmute(sid domain.SessionID) { delete(r.muted, sid) }

// MutedUsernames is sorted for stable output.
func (r *Room) MutedUsernames() []domain.Username {
	out := make([]domain.Username, 0, len(r.muted))
	for sid := range r.muted {
		if name, ok := r.UsernameOf(sid); ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Rebind moves role and mute state from an old session id to its successor.
func (r *Room) Rebind(from, to domain.SessionID) {
	if r.admin == from {
		r.admin = to
	}
	if r.IsMuted(from) {
		delete(r.muted, from)
		r.muted[to] = struct{}{}
	}
}

func (r *Room) AddDisconnected(m domain.Member, deadline time.Time, timer Timer) *GraceEntry {
	g := &GraceEntry{
		Disconnected: domain.Disconnected{Member: m, Deadline: deadline},
		timer:        timer,
	}
	r.disconnected = append(r.disconnected, g)
	return g
}

func (r *Room) Disconnected(sid domain.SessionID) (*GraceEntry, bool) {
	return lo.Find(r.disconnected, func(g *GraceEntry) bool { return g.SessionID == sid })
}

// TakeDisconnected removes the grace entry for username and cancels its timer.
func (r *Room) TakeDisconnected(name domain.Username) (*GraceEntry, bool) {
	i := slices.IndexFunc(r.disconnected, func(g *GraceEntry) bool { return g.Username == name })
	if i < 0 {
		return nil, false
	}
	g := r.disconnected[i]
	g.stop()
	r.disconnected = slices.Delete(r.disconnected, i, i+1)
	return g, true
}

// DropDisconnected removes the grace entry for sid and cancels its timer.
func (r *Room) DropDisconnected(sid domain.SessionID) bool {
	i := slices.IndexFunc(r.disconnected, func(g *GraceEntry) bool { return g.SessionID == sid })
	if i < 0 {
		return false
	}
	r.disconnected[i].stop()
	r.disconnected = slices.Delete(r.disconnected, i, i+1)
	return true
}

// RememberAuthor keeps authorship for the most recent messages only.
func (r *Room) RememberAuthor(messageID string, author domain.Username) {
	r.authors[messageID] = author
	r.authorOrder = append(r.authorOrder, messageID)
	if r.authorsLimit > 0 && len(r.authorOrder) > r.authorsLimit {
		delete(r.authors, r.authorOrder[0])
		r.authorOrder = r.authorOrder[1:]
	}
}

func (r *Room) Author(messageID string) (domain.Username, bool) {
	name, ok := r.authors[messageID]
	return name, ok
}

func (r *Room) ForgetAuthor(messageID string) {
	delete(r.authors, messageID)
	r.authorOrder = slices.DeleteFunc(r.authorOrder, func(id string) bool { return id == messageID })
}

// Broadcast serializes once and queues the frame on every active connection.
func (r *Room) Broadcast(msg protocol.ServerMessage) PublishResult {
	res := PublishResult{}
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("broadcast encode")
		return res
	}
	for _, s := range r.clients {
		if err := s.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, s)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("type", string(msg.Kind())).
		Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Destroy marks the room destroyed, cancels every grace timer, sends notice to
// all active clients and closes their connections after closeDelay.
// The delay keeps the notice from racing the socket teardown.
func (r *Room) Destroy(notice protocol.ServerMessage, closeDelay time.Duration, reason string) {
	r.state = domain.RoomDestroyed
	for _, g := range r.disconnected {
		g.stop()
	}
	r.disconnected = nil

	if notice != nil {
		r.Broadcast(notice)
	}
	clients := r.clients
	for _, s := range clients {
		s.unbind()
	}
	r.clients = nil
	r.admin = ""
	clear(r.usernames)
	clear(r.muted)
	clear(r.authors)
	r.authorOrder = nil

	if len(clients) > 0 {
		time.AfterFunc(closeDelay, func() {
			for _, s := range clients {
				s.Signal().CloseWithReason(reason)
			}
		})
	}
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Int("closed", len(clients)).Msg("room destroyed")
}
