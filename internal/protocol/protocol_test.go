package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Ephemeral/internal/domain"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ClientMessage
	}{
		{
			name: "join",
			raw:  `{"type":"JOIN_ROOM","roomId":"lobby","username":"alice","sessionId":"s1"}`,
			want: JoinRoom{RoomID: "lobby", Username: "alice", SessionID: "s1"},
		},
		{name: "text", raw: `{"type":"MESSAGE","text":"hello"}`, want: SendText{Text: "hello"}},
		{name: "delete", raw: `{"type":"DELETE_MESSAGE","messageId":"m1"}`, want: DeleteMessage{MessageID: "m1"}},
		{
			name: "mute",
			raw:  `{"type":"MUTE_USER","targetUsername":"bobby","sessionId":"s1"}`,
			want: MuteUser{TargetUsername: "bobby", SessionID: "s1"},
		},
		{
			name: "unmute",
			raw:  `{"type":"UNMUTE_USER","targetUsername":"bobby","sessionId":"s1"}`,
			want: UnmuteUser{TargetUsername: "bobby", SessionID: "s1"},
		},
		{name: "extend", raw: `{"type":"EXTEND_ROOM"}`, want: ExtendRoom{}},
		{name: "leave", raw: `{"type":"LEAVE_ROOM","sessionId":"s1"}`, want: LeaveRoom{SessionID: "s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"type":"MESSAGE","text":42}`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"type":"SELF_DESTRUCT"}`))
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "Unknown message type: SELF_DESTRUCT", err.Error())

	_, err = Decode([]byte(`{}`))
	require.ErrorAs(t, err, &unknown)
}

func TestEncode_PutsTypeFirst(t *testing.T) {
	b, err := Encode(SessionEstablished{SessionID: "abc"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"SESSION_ESTABLISHED","sessionId":"abc"}`, string(b))
	require.True(t, strings.HasPrefix(string(b), `{"type":"SESSION_ESTABLISHED",`))

	b, err = Encode(RoomWarning{TimeLeft: 60, Text: "soon"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ROOM_WARNING","timeLeft":60,"text":"soon"}`, string(b))
}

func TestEncode_JoinSuccess(t *testing.T) {
	msg := JoinSuccess{
		RoomID:    "lobby",
		Admin:     "alice",
		Owner:     "alice",
		UserCount: 1,
		Users:     []domain.Username{"alice"},
		Role:      domain.RoleAdmin,
		SessionID: "s1",
		History:   []domain.ChatMessage{},
		ExpiresAt: 1000,
	}
	b, err := Encode(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "JOIN_SUCCESS", decoded["type"])
	require.Equal(t, "admin", decoded["role"])
	require.Equal(t, false, decoded["reconnected"])
	require.Equal(t, []any{}, decoded["history"])
}
