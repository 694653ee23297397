//go:generate go run go.uber.org/mock/mockgen -source=store_iface.go -destination=../mocks/mock_store.go -package=mocks
package core

import (
	"context"
	"time"

	"github.com/dkeye/Ephemeral/internal/domain"
)

// MessageStore keeps a bounded, TTL-limited history per room.
// List returns messages oldest first.
type MessageStore interface {
	Save(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage, ttl time.Duration) error
	List(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error)
	Remove(ctx context.Context, roomID domain.RoomID, messageID string) error
	Delete(ctx context.Context, roomID domain.RoomID) error
	Ping(ctx context.Context) error
	Close() error
}
