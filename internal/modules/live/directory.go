package live

import (
	"sync"

	"go.uber.org/zap"
)

// Directory resolves a room identifier to the single live actor for that
// room. Concurrent resolutions for one id always observe the same instance;
// two actors for one room would split presence state.
type Directory struct {
	mu     sync.Mutex
	rooms  map[string]*Actor
	logger *zap.Logger
}

func NewDirectory(logger *zap.Logger) *Directory {
	return &Directory{
		rooms:  make(map[string]*Actor),
		logger: logger,
	}
}

// Resolve returns the live actor for roomID, creating it on first access.
func (d *Directory) Resolve(roomID string) *Actor {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.rooms[roomID]; ok {
		return a
	}
	a := newActor(roomID, d.logger, d.release)
	d.rooms[roomID] = a
	return a
}

// RoomCount returns how many rooms currently have a live actor.
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// SlotCount returns the total open slots across all live actors.
func (d *Directory) SlotCount() int {
	d.mu.Lock()
	actors := make([]*Actor, 0, len(d.rooms))
	for _, a := range d.rooms {
		actors = append(actors, a)
	}
	d.mu.Unlock()

	total := 0
	for _, a := range actors {
		total += a.SlotCount()
	}
	return total
}

// release drops the actor if it is still the registered instance for its
// room and holds no slots. The retired flag makes a racing Accept on a
// stale reference fail, forcing the caller back through Resolve.
func (d *Directory) release(a *Actor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.rooms[a.RoomID]
	if !ok || current != a || !a.retireIfEmpty() {
		return
	}
	delete(d.rooms, a.RoomID)
}
