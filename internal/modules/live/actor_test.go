package live

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edgeroom/core/internal/pkg/wire"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn records everything written to it; writes happen on the slot's
// writer goroutine, so assertions on recorded messages poll.
type fakeConn struct {
	mu     sync.Mutex
	writes []wire.ServerMessage
	fail   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write failed")
	}
	c.writes = append(c.writes, v.(wire.ServerMessage))
	return nil
}

func (c *fakeConn) messages() []wire.ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.ServerMessage, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) lastError() (string, bool) {
	for _, m := range c.messages() {
		if e, ok := m.(wire.ErrorMessage); ok {
			return e.Message, true
		}
	}
	return "", false
}

func helloFrame(userID, displayName string) []byte {
	return []byte(fmt.Sprintf(`{"kind":"hello","user":{"userId":%q,"displayName":%q}}`, userID, displayName))
}

func newTestActor(t *testing.T) *Actor {
	t.Helper()
	return newActor("room-1", zap.NewNop(), nil)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestActorPresenceLifecycle(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c1 := &fakeConn{}
	id1, ok := a.Accept(c1)
	req.True(ok)
	req.Empty(a.Snapshot(), "pending slot must not appear in presence")

	a.HandleInbound(id1, helloFrame("u1", "Ada"))
	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada"}}, a.Snapshot())

	c2 := &fakeConn{}
	id2, ok := a.Accept(c2)
	req.True(ok)
	a.HandleInbound(id2, helloFrame("u2", "Grace"))
	req.Equal([]wire.Presence{
		{UserID: "u1", DisplayName: "Ada"},
		{UserID: "u2", DisplayName: "Grace"},
	}, a.Snapshot())

	a.Close(id1)
	req.Equal([]wire.Presence{{UserID: "u2", DisplayName: "Grace"}}, a.Snapshot())
}

func TestActorInitialSnapshotBeforeOwnHello(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c1 := &fakeConn{}
	id1, _ := a.Accept(c1)
	a.HandleInbound(id1, helloFrame("u1", "Ada"))

	c2 := &fakeConn{}
	id2, _ := a.Accept(c2)
	a.HandleInbound(id2, helloFrame("u2", "Grace"))

	eventually(t, func() bool { return len(c2.messages()) >= 2 })

	msgs := c2.messages()
	first, ok := msgs[0].(wire.PresenceMessage)
	req.True(ok)
	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada"}}, first.Users,
		"a new connection sees existing participants before its own hello lands")

	second, ok := msgs[1].(wire.PresenceMessage)
	req.True(ok)
	req.Len(second.Users, 2)
}

func TestActorMultiTabFirstBoundWins(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c1 := &fakeConn{}
	id1, _ := a.Accept(c1)
	a.HandleInbound(id1, helloFrame("u1", "Ada"))

	c2 := &fakeConn{}
	id2, _ := a.Accept(c2)
	a.HandleInbound(id2, helloFrame("u1", "Ada (tab 2)"))

	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada"}}, a.Snapshot())

	// When the first tab goes away the second one's identity surfaces.
	a.Close(id1)
	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada (tab 2)"}}, a.Snapshot())
}

func TestActorBadFrameDoesNotPoisonSlot(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c := &fakeConn{}
	id, _ := a.Accept(c)

	a.HandleInbound(id, []byte("not json{{"))
	eventually(t, func() bool { _, ok := c.lastError(); return ok })
	msg, _ := c.lastError()
	req.Equal(errTextBadFormat, msg)
	req.Empty(a.Snapshot())

	a.HandleInbound(id, []byte(`{"kind":"ping"}`))
	eventually(t, func() bool {
		count := 0
		for _, m := range c.messages() {
			if _, ok := m.(wire.ErrorMessage); ok {
				count++
			}
		}
		return count == 2
	})
	req.Empty(a.Snapshot())

	// A valid hello after the rejections still binds.
	a.HandleInbound(id, helloFrame("u1", "Ada"))
	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada"}}, a.Snapshot())
}

func TestActorSecondHelloRejected(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c := &fakeConn{}
	id, _ := a.Accept(c)
	a.HandleInbound(id, helloFrame("u1", "Ada"))
	a.HandleInbound(id, helloFrame("u1", "Someone else"))

	eventually(t, func() bool { _, ok := c.lastError(); return ok })
	msg, _ := c.lastError()
	req.Equal(errTextAlreadyJoined, msg)
	req.Equal([]wire.Presence{{UserID: "u1", DisplayName: "Ada"}}, a.Snapshot(),
		"bound identity never changes")
}

func TestActorCloseIdempotent(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c := &fakeConn{}
	id, _ := a.Accept(c)
	a.HandleInbound(id, helloFrame("u1", "Ada"))

	a.Close(id)
	a.Close(id)
	req.Empty(a.Snapshot())
	req.Zero(a.SlotCount())
}

func TestActorBroadcastSurvivesFailingConn(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	good1, bad, good2 := &fakeConn{}, &fakeConn{fail: true}, &fakeConn{}
	for i, c := range []*fakeConn{good1, bad, good2} {
		id, _ := a.Accept(c)
		a.HandleInbound(id, helloFrame(fmt.Sprintf("u%d", i), "User"))
	}

	task := wire.Task{
		ID: "t1", RoomID: "room-1", Title: "page oncall", Status: "open",
		CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-01T00:00:00Z",
	}
	a.Broadcast(wire.NewTaskCreatedMessage(task))

	received := func(c *fakeConn) func() bool {
		return func() bool {
			for _, m := range c.messages() {
				if tc, ok := m.(wire.TaskCreatedMessage); ok && tc.Task.ID == "t1" {
					return true
				}
			}
			return false
		}
	}
	eventually(t, received(good1))
	eventually(t, received(good2))
	req.Equal(3, a.SlotCount(), "a failing conn is cleaned up by its close signal, not by broadcast")
}

func TestActorRetireIfEmpty(t *testing.T) {
	req := require.New(t)
	a := newTestActor(t)

	c := &fakeConn{}
	id, ok := a.Accept(c)
	req.True(ok)
	req.False(a.retireIfEmpty(), "occupied actor must not retire")

	a.Close(id)
	req.True(a.retireIfEmpty())

	_, ok = a.Accept(&fakeConn{})
	req.False(ok, "retired actor refuses new slots")
}
