package live

import (
	"encoding/json"
	"sync"

	"github.com/edgeroom/core/internal/pkg/wire"
	"go.uber.org/zap"
)

// slotSendBuffer bounds how many undelivered messages one socket may queue.
// A consumer slower than this loses messages rather than stalling the room;
// its own close signal eventually removes the slot.
const slotSendBuffer = 32

// Conn is the write side of one live socket. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
}

// SlotID identifies one connection slot within its actor.
type SlotID uint64

type slot struct {
	id   SlotID
	conn Conn
	user *wire.Presence // nil while the handshake is pending
	out  chan wire.ServerMessage
	done chan struct{}
}

// enqueue hands a message to the slot's writer without blocking. A full
// buffer drops the message; delivery is best-effort per slot.
func (s *slot) enqueue(msg wire.ServerMessage) {
	select {
	case s.out <- msg:
	case <-s.done:
	default:
	}
}

func (s *slot) writeLoop(logger *zap.Logger, roomID string) {
	for {
		select {
		case msg := <-s.out:
			if err := s.conn.WriteJSON(msg); err != nil {
				// Swallowed: the transport's close signal cleans this slot up.
				logger.Debug("slot write failed",
					zap.String("room", roomID),
					zap.Uint64("slot", uint64(s.id)),
					zap.Error(err))
			}
		case <-s.done:
			return
		}
	}
}

// Actor owns all live-connection state for one room. Every mutation runs
// under mu, so binds, closes, and broadcasts are totally ordered per room;
// actual socket writes happen on per-slot writer goroutines so a slow
// consumer cannot stall the others.
type Actor struct {
	RoomID string

	mu       sync.Mutex
	nextID   SlotID
	slots    map[SlotID]*slot
	order    []SlotID // slot registration order; drives snapshot iteration
	released bool

	logger  *zap.Logger
	onEmpty func(*Actor)
}

func newActor(roomID string, logger *zap.Logger, onEmpty func(*Actor)) *Actor {
	return &Actor{
		RoomID:  roomID,
		slots:   make(map[SlotID]*slot),
		logger:  logger,
		onEmpty: onEmpty,
	}
}

// Accept registers a new pending slot for conn and immediately queues the
// current presence snapshot to that connection only, strictly before any
// snapshot its own hello may later trigger. ok is false when the actor has
// been retired by the directory; callers must re-resolve and retry.
func (a *Actor) Accept(conn Conn) (SlotID, bool) {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		return 0, false
	}

	a.nextID++
	s := &slot{
		id:   a.nextID,
		conn: conn,
		out:  make(chan wire.ServerMessage, slotSendBuffer),
		done: make(chan struct{}),
	}
	a.slots[s.id] = s
	a.order = append(a.order, s.id)
	s.enqueue(a.snapshotLocked())
	a.mu.Unlock()

	go s.writeLoop(a.logger, a.RoomID)
	return s.id, true
}

// HandleInbound processes one raw frame from a connection. On a pending slot
// the frame must be a valid hello; anything else earns the sender a single
// error message and no state change. A bound slot gets "Already joined" for
// every further frame. Protocol violations never close the socket.
func (a *Actor) HandleInbound(id SlotID, raw []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.slots[id]
	if !ok {
		return
	}

	if !json.Valid(raw) {
		s.enqueue(wire.NewErrorMessage(errTextBadFormat))
		return
	}
	if s.user != nil {
		s.enqueue(wire.NewErrorMessage(errTextAlreadyJoined))
		return
	}

	user, err := ParseHello(raw)
	if err != nil {
		s.enqueue(wire.NewErrorMessage(errTextExpectedHello))
		return
	}

	s.user = &user
	a.broadcastLocked(a.snapshotLocked())
}

// Close removes the slot unconditionally (pending or bound) and broadcasts
// the recomputed presence snapshot. Closing an unknown slot is a no-op.
func (a *Actor) Close(id SlotID) {
	a.mu.Lock()
	s, ok := a.slots[id]
	if !ok {
		a.mu.Unlock()
		return
	}

	delete(a.slots, id)
	for i, sid := range a.order {
		if sid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	close(s.done)
	a.broadcastLocked(a.snapshotLocked())
	empty := len(a.slots) == 0
	a.mu.Unlock()

	if empty && a.onEmpty != nil {
		a.onEmpty(a)
	}
}

// Broadcast fans a pre-validated server message out to every open slot,
// best-effort per slot.
func (a *Actor) Broadcast(msg wire.ServerMessage) {
	a.mu.Lock()
	a.broadcastLocked(msg)
	a.mu.Unlock()
}

// SlotCount returns the number of open slots (pending included).
func (a *Actor) SlotCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.slots)
}

// Snapshot returns the current deduplicated presence list.
func (a *Actor) Snapshot() []wire.Presence {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked().Users
}

func (a *Actor) broadcastLocked(msg wire.ServerMessage) {
	for _, sid := range a.order {
		a.slots[sid].enqueue(msg)
	}
}

// snapshotLocked computes the presence snapshot: bound slots only,
// deduplicated by userId with first-bound-wins in slot registration order.
// A later tab's differing displayName stays hidden until earlier slots for
// that user close.
func (a *Actor) snapshotLocked() wire.PresenceMessage {
	users := make([]wire.Presence, 0, len(a.order))
	seen := make(map[string]struct{}, len(a.order))
	for _, sid := range a.order {
		s := a.slots[sid]
		if s.user == nil {
			continue
		}
		if _, dup := seen[s.user.UserID]; dup {
			continue
		}
		seen[s.user.UserID] = struct{}{}
		users = append(users, *s.user)
	}
	return wire.NewPresenceMessage(users)
}

// retireIfEmpty atomically marks the actor unusable when it holds no slots.
// Accept on a retired actor fails, so a stale reference cannot smuggle a
// slot into an instance the directory has already dropped.
func (a *Actor) retireIfEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.slots) > 0 {
		return false
	}
	a.released = true
	return true
}
