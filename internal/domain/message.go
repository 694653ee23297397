package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MessageTypeChat  = "MESSAGE"
	MaxMessageLength = 1000
)

// ChatMessage is a user-authored message. Only these are kept in history.
type ChatMessage struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Username  Username `json:"username"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

func NewChatMessage(author Username, text string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Type:      MessageTypeChat,
		Username:  author,
		Text:      text,
		Timestamp: at.UnixMilli(),
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// PrepareText checks the raw text against maxLen (in characters) and returns it HTML-escaped.
func PrepareText(raw string, maxLen int) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(raw) > maxLen {
		return "", fmt.Errorf("%w (max %d characters)", ErrMessageTooLong, maxLen)
	}
	return htmlEscaper.Replace(raw), nil
}
