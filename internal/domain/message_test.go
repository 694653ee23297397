package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPrepareText_Escapes(t *testing.T) {
	got, err := PrepareText(`<script>alert('x')</script> & "q"`, MaxMessageLength)
	require.NoError(t, err)
	require.Equal(t, "&lt;script&gt;alert(&#x27;x&#x27;)&lt;&#x2F;script&gt; &amp; &quot;q&quot;", got)
}

func TestPrepareText_Rejects(t *testing.T) {
	_, err := PrepareText("   ", MaxMessageLength)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = PrepareText(strings.Repeat("a", MaxMessageLength+1), MaxMessageLength)
	require.ErrorIs(t, err, ErrMessageTooLong)

	// limit counts characters, not bytes
	_, err = PrepareText(strings.Repeat("é", MaxMessageLength), MaxMessageLength)
	require.NoError(t, err)
}

func TestLifetime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLifetime(now, 15*time.Minute, time.Minute)
	require.Equal(t, now.Add(14*time.Minute), l.WarningAt)
	require.Equal(t, 5*time.Minute, l.Remaining(now.Add(10*time.Minute)))
	require.Zero(t, l.Remaining(now.Add(time.Hour)))
}

func TestNewChatMessage(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	m := NewChatMessage("alice", "hi", at)
	require.NotEmpty(t, m.ID)
	require.Equal(t, MessageTypeChat, m.Type)
	require.Equal(t, int64(1_700_000_000_123), m.Timestamp)
}
