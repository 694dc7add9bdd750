package live

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDirectoryConcurrentResolveSameActor(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(zap.NewNop())

	const n = 32
	actors := make([]*Actor, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			actors[i] = d.Resolve("room-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		req.Same(actors[0], actors[i])
	}
	req.Equal(1, d.RoomCount())
}

func TestDirectoryIndependentRooms(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(zap.NewNop())

	a := d.Resolve("room-a")
	b := d.Resolve("room-b")
	req.NotSame(a, b)
	req.Equal(2, d.RoomCount())
}

func TestDirectoryEvictsEmptiedActor(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(zap.NewNop())

	a := d.Resolve("room-1")
	id, ok := a.Accept(&fakeConn{})
	req.True(ok)
	req.Equal(1, d.SlotCount())

	a.Close(id)
	req.Equal(0, d.RoomCount(), "empty actor is collected")

	// A stale reference cannot accept; a fresh resolve gets a new actor.
	_, ok = a.Accept(&fakeConn{})
	req.False(ok)

	fresh := d.Resolve("room-1")
	req.NotSame(a, fresh)
	_, ok = fresh.Accept(&fakeConn{})
	req.True(ok)
}

func TestDirectoryKeepsOccupiedActorOnRelease(t *testing.T) {
	req := require.New(t)
	d := NewDirectory(zap.NewNop())

	a := d.Resolve("room-1")
	_, ok := a.Accept(&fakeConn{})
	req.True(ok)

	// Release while a slot is open must be a no-op.
	d.release(a)
	req.Equal(1, d.RoomCount())
	req.Same(a, d.Resolve("room-1"))
}
