package live

import (
	"context"
	"encoding/json"

	pkgredis "github.com/edgeroom/core/internal/pkg/redis"
	"github.com/edgeroom/core/internal/pkg/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const broadcastChannel = "edgeroom:rooms:broadcast"

// relayEnvelope carries a broadcast between instances. Origin lets each
// instance skip its own publications; local delivery already happened.
type relayEnvelope struct {
	Origin string          `json:"origin"`
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

// Fanout is the broadcast ingress: it delivers validated server messages to
// the local room actor and relays them to peer instances over Redis pub/sub.
// rc may be nil for single-instance deployments.
type Fanout struct {
	dir      *Directory
	rc       *pkgredis.Client
	instance string
	logger   *zap.Logger
}

func NewFanout(dir *Directory, rc *pkgredis.Client, logger *zap.Logger) *Fanout {
	return &Fanout{
		dir:      dir,
		rc:       rc,
		instance: uuid.New().String(),
		logger:   logger,
	}
}

// Broadcast fans msg out to the room's live sockets. The message must
// already be validated; acceptance here is of the message, not of delivery
// to any particular socket. Relay failures degrade to local-only delivery.
func (f *Fanout) Broadcast(ctx context.Context, roomID string, msg wire.ServerMessage) {
	f.deliver(roomID, msg)

	if f.rc == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		f.logger.Warn("broadcast relay marshal failed", zap.String("room", roomID), zap.Error(err))
		return
	}
	env, err := json.Marshal(relayEnvelope{Origin: f.instance, RoomID: roomID, Data: data})
	if err != nil {
		f.logger.Warn("broadcast relay marshal failed", zap.String("room", roomID), zap.Error(err))
		return
	}
	if err := f.rc.Publish(ctx, broadcastChannel, string(env)); err != nil {
		f.logger.Warn("broadcast relay publish failed", zap.String("room", roomID), zap.Error(err))
	}
}

func (f *Fanout) deliver(roomID string, msg wire.ServerMessage) {
	a := f.dir.Resolve(roomID)
	a.Broadcast(msg)
	// A broadcast may have created an actor with no sockets; let the
	// directory collect it again.
	f.dir.release(a)
}

// Run consumes broadcasts published by peer instances until ctx is done.
func (f *Fanout) Run(ctx context.Context) {
	if f.rc == nil {
		return
	}

	pubsub := f.rc.Subscribe(ctx, broadcastChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(redisMsg.Payload), &env); err != nil {
				f.logger.Warn("broadcast relay decode failed", zap.Error(err))
				continue
			}
			if env.Origin == f.instance || env.RoomID == "" {
				continue
			}
			msg, err := wire.Decode(env.Data)
			if err != nil {
				f.logger.Warn("broadcast relay rejected message", zap.String("room", env.RoomID), zap.Error(err))
				continue
			}
			f.deliver(env.RoomID, msg)
		}
	}
}
