package app

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ephemeral/internal/domain"
)

func TestReconnect_WithinGraceKeepsAdmin(t *testing.T) {
	f := newFixture(t)
	f.quietStore()
	alice, _, _ := f.join(t, "r1_room", "alice", "S1")
	_, bob, _ := f.join(t, "r1_room", "bobby", "S2")

	f.reg.MarkDisconnected(context.Background(), alice)
	require.Contains(t, bob.systemTexts(), "alice disconnected")
	info, ok := f.reg.Info("r1_room")
	require.True(t, ok)
	require.Equal(t, 1, info.MemberCount)

	f.clock.Advance(15 * time.Second)
	_, conn, res := f.join(t, "r1_room", "alice", "S1b")
	require.True(t, res.Reconnected)
	require.Equal(t, domain.RoleAdmin, res.Role)
	require.Equal(t, domain.SessionID("S1b"), res.SessionID)
	require.Equal(t, domain.Username("alice"), res.Admin)
	require.Equal(t, "JOIN_SUCCESS", conn.types()[0])
	require.Equal(t, true, conn.ofType("JOIN_SUCCESS")[0]["reconnected"])
	require.Contains(t, bob.systemTexts(), "alice reconnected")

	// the cancelled grace timer must not finalize the reconnected member
	f.clock.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	require.NotContains(t, bob.systemTexts(), "alice left the room")
	_, err := f.reg.ExtendRoom(context.Background(), "r1_room", "S1b")
	require.NoError(t, err)
}

func TestGraceExpiry_TransfersAdmin(t *testing.T) {
	f := newFixture(t)
	f.quietStore()
	alice, _, _ := f.join(t, "r1_room", "alice", "S1")
	_, bob, _ := f.join(t, "r1_room", "bobby", "S2")

	f.reg.MarkDisconnected(context.Background(), alice)
	f.clock.Advance(21 * time.Second)

	require.Eventually(t, func() bool {
		return slices.Contains(bob.systemTexts(), "bobby is now the admin")
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, bob.systemTexts(), "alice left the room")

	_, err := f.reg.ExtendRoom(context.Background(), "r1_room", "S1")
	require.ErrorIs(t, err, domain.ErrNotAdmin)
	_, err = f.reg.ExtendRoom(context.Background(), "r1_room", "S2")
	require.NoError(t, err)
}

func TestGraceExpiry_LastMemberDestroysRoom(t *testing.T) {
	f := newFixture(t)
	f.quietStore()
	alice, _, _ := f.join(t, "r1_room", "alice", "S1")

	f.reg.MarkDisconnected(context.Background(), alice)
	_, ok := f.reg.Info("r1_room")
	require.True(t, ok, "a pending reconnect keeps the room alive")

	f.clock.Advance(21 * time.Second)
	require.Eventually(t, func() bool {
		_, ok := f.reg.Info("r1_room")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAdminInGrace_KeepsRoleWhenAlone(t *testing.T) {
	f := newFixture(t)
	f.quietStore()
	alice, _, _ := f.join(t, "r1_room", "alice", "S1")
	bobSess, _, _ := f.join(t, "r1_room", "bobby", "S2")

	// bobby leaves while alice is in the grace period, so nobody else can take the role
	f.reg.MarkDisconnected(context.Background(), alice)
	_, err := f.reg.FinalizeLeave(context.Background(), bobSess)
	require.NoError(t, err)

	_, _, res := f.join(t, "r1_room", "alice", "S1b")
	require.True(t, res.Reconnected)
	require.Equal(t, domain.RoleAdmin, res.Role)
}
