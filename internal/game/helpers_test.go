package game

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amitgk1/skribble/internal"
	"github.com/amitgk1/skribble/internal/protocol"
)

// testConn is an in-memory client connection. Frames the room writes are
// decoded and recorded; frames pushed by the test are served to the room's
// receive loop through Read.
type testConn struct {
	mu      sync.Mutex
	actions []internal.Action

	inbound   chan []byte
	buf       []byte
	closed    chan struct{}
	closeOnce sync.Once

	// autoPick answers every ChooseWord with its first option, so multi-turn
	// tests can run the rotation without scripting each drawer.
	autoPick bool

	id string
}

func newTestConn(autoPick bool) *testConn {
	return &testConn{
		inbound:  make(chan []byte, 64),
		closed:   make(chan struct{}),
		autoPick: autoPick,
	}
}

func (c *testConn) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	// The room writes one whole frame per call.
	batch, err := internal.UnmarshalActions(p[protocol.HeaderSize:])
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.actions = append(c.actions, batch...)
	c.mu.Unlock()

	if c.autoPick {
		for _, a := range batch {
			if cw, ok := a.(internal.ChooseWordAction); ok {
				c.push(internal.WordPickedAction{Word: cw.Options[0]})
			}
		}
	}
	return len(p), nil
}

func (c *testConn) Read(p []byte) (int, error) {
	for len(c.buf) == 0 {
		select {
		case frame := <-c.inbound:
			c.buf = frame
		case <-c.closed:
			return 0, io.EOF
		}
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *testConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *testConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// push frames a batch and queues it for the room's receive loop.
func (c *testConn) push(actions ...internal.Action) {
	var buf bytes.Buffer
	if err := protocol.SendBatch(&buf, actions); err != nil {
		panic(err)
	}
	c.inbound <- buf.Bytes()
}

// received returns a snapshot of every action matching the filter, in the
// order the server sent them.
func (c *testConn) received(match func(internal.Action) bool) []internal.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []internal.Action
	for _, a := range c.actions {
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

func (c *testConn) countKind(kind internal.ActionKind) int {
	return len(c.received(func(a internal.Action) bool { return a.Kind() == kind }))
}

// join connects a fresh client and waits for its InitGameState snapshot to
// learn the id the server assigned.
func join(t *testing.T, r *Room, autoPick bool) *testConn {
	t.Helper()
	c := newTestConn(autoPick)
	r.AddClient(c)

	require.Eventually(t, func() bool {
		inits := c.received(func(a internal.Action) bool { return a.Kind() == internal.KindInitGameState })
		if len(inits) == 0 {
			return false
		}
		c.id = inits[0].(internal.InitGameStateAction).You
		return true
	}, 2*time.Second, 5*time.Millisecond, "client never received its init snapshot")
	return c
}

// waitFor blocks until the client has received at least one action of type T
// and returns the most recent one.
func waitFor[T internal.Action](t *testing.T, c *testConn) T {
	t.Helper()
	var out T
	require.Eventually(t, func() bool {
		matches := c.received(func(a internal.Action) bool {
			_, ok := a.(T)
			return ok
		})
		if len(matches) == 0 {
			return false
		}
		out = matches[len(matches)-1].(T)
		return true
	}, 2*time.Second, 5*time.Millisecond, "client never received a %T", out)
	return out
}

// fakeClock is a controllable time source for deterministic score math.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.t
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	fc.t = fc.t.Add(d)
	fc.mu.Unlock()
}

func roomPhase(r *Room) internal.GamePhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func ownerCount(r *Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.players {
		if c.player.IsOwner {
			n++
		}
	}
	return n
}

func playerCount(r *Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
