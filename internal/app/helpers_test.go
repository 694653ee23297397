package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/Ephemeral/internal/core"
	"github.com/dkeye/Ephemeral/internal/domain"
	"github.com/dkeye/Ephemeral/internal/mocks"
)

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// recorder is a SignalConnection that keeps every frame it is handed.
type recorder struct {
	mu     sync.Mutex
	frames []map[string]any
	full   bool
	closed bool
	reason string
}

func (c *recorder) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	var m map[string]any
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	c.frames = append(c.frames, m)
	return nil
}

func (c *recorder) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recorder) CloseWithReason(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = reason
}

func (c *recorder) isClosed() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.reason
}

func (c *recorder) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f["type"].(string))
	}
	return out
}

// ofType returns every frame of type t, oldest first.
func (c *recorder) ofType(t string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		if f["type"] == t {
			out = append(out, f)
		}
	}
	return out
}

func (c *recorder) systemTexts() []string {
	var out []string
	for _, f := range c.ofType("SYSTEM") {
		out = append(out, f["text"].(string))
	}
	return out
}

type fixture struct {
	reg   *Registry
	clock *clockwork.FakeClock
	store *mocks.MockMessageStore
}

func newFixture(t *testing.T, tweaks ...func(*Options)) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	clock := clockwork.NewFakeClockAt(epoch)
	opts := DefaultOptions()
	opts.CloseDelay = time.Millisecond
	for _, tweak := range tweaks {
		tweak(&opts)
	}
	return &fixture{
		reg:   NewRegistry(store, clock, nil, opts),
		clock: clock,
		store: store,
	}
}

// quietStore accepts every store call.
func (f *fixture) quietStore() {
	f.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.store.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.store.EXPECT().Remove(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.store.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func (f *fixture) join(t *testing.T, roomID domain.RoomID, name domain.Username, sid domain.SessionID) (*core.Session, *recorder, JoinResult) {
	t.Helper()
	conn := &recorder{}
	sess := core.NewSession(sid, conn)
	res, err := f.reg.ReconnectSession(context.Background(), roomID, name, sess)
	require.NoError(t, err)
	return sess, conn, res
}
