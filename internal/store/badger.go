package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ephemeral/internal/domain"
)

var errClosed = errors.New("badger: database closed")

// BadgerStore keeps entries under "{prefix}{room}:{unix_nano_padded}:{seq_padded}:{id}"
// so a prefix scan yields a room's messages in the order they were saved.
// seq breaks ties between messages stamped in the same millisecond.
type BadgerStore struct {
	db     *badger.DB
	codec  *Codec
	prefix string
	limit  int
	seq    atomic.Uint64
}

func NewBadgerStore(db *badger.DB, codec *Codec, prefix string, limit int) *BadgerStore {
	return &BadgerStore{db: db, codec: codec, prefix: prefix, limit: limit}
}

// OpenBadger opens the database at path, or an in-memory one when path is empty.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func (s *BadgerStore) roomPrefix(roomID domain.RoomID) []byte {
	return []byte(s.prefix + string(roomID) + ":")
}

func (s *BadgerStore) Save(ctx context.Context, roomID domain.RoomID, msg domain.ChatMessage, ttl time.Duration) error {
	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	prefix := s.roomPrefix(roomID)
	key := fmt.Appendf(bytes.Clone(prefix), "%019d:%020d:%s",
		time.UnixMilli(msg.Timestamp).UnixNano(), s.seq.Add(1), msg.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl)); err != nil {
			return err
		}
		return s.trim(txn, prefix)
	})
}

// trim drops the oldest entries beyond the limit. The entry set in the same
// transaction is visible to the iterator.
func (s *BadgerStore) trim(txn *badger.Txn, prefix []byte) error {
	keys := s.keys(txn, prefix)
	for len(keys) > s.limit {
		if err := txn.Delete(keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}
	return nil
}

func (s *BadgerStore) keys(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func (s *BadgerStore) List(ctx context.Context, roomID domain.RoomID) ([]domain.ChatMessage, error) {
	prefix := s.roomPrefix(roomID)
	var out []domain.ChatMessage
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				msg, err := s.codec.Decode(val)
				if err != nil {
					log.Warn().Err(err).Str("module", "store.badger").Str("room", string(roomID)).Msg("skipping unreadable entry")
					return nil
				}
				out = append(out, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Remove(ctx context.Context, roomID domain.RoomID, messageID string) error {
	suffix := ":" + messageID
	found := false
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range s.keys(txn, s.roomPrefix(roomID)) {
			if strings.HasSuffix(string(key), suffix) {
				found = true
				return txn.Delete(key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger remove: %w", err)
	}
	if !found {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, roomID domain.RoomID) error {
	if err := s.db.DropPrefix(s.roomPrefix(roomID)); err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errClosed
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any) {
	log.Error().Str("module", "store.badger").Msg(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Warningf(f string, v ...any) {
	log.Warn().Str("module", "store.badger").Msg(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(f string, v ...any) {
	log.Debug().Str("module", "store.badger").Msg(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Debugf(f string, v ...any) {
	log.Trace().Str("module", "store.badger").Msg(strings.TrimSpace(fmt.Sprintf(f, v...)))
}
