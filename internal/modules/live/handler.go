package live

import (
	"net/http"

	"github.com/edgeroom/core/internal/pkg/response"
	"github.com/edgeroom/core/internal/pkg/wire"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler mounts the socket upgrade and the internal broadcast ingress.
type Handler struct {
	dir    *Directory
	fanout *Fanout
	logger *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(dir *Directory, fanout *Fanout, logger *zap.Logger) *Handler {
	return &Handler{
		dir:    dir,
		fanout: fanout,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser origins are screened by CORS on the REST surface;
			// socket identity is whatever the hello supplies.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:id/ws", h.serveWS)
	rg.POST("/rooms/:id/broadcast", h.broadcast)

	rg.GET("/live/stats", func(c *gin.Context) {
		response.OK(c, gin.H{
			"rooms":   h.dir.RoomCount(),
			"sockets": h.dir.SlotCount(),
		})
	})
}

// GET /rooms/:id/ws — upgrade and pump frames into the room actor until the
// transport signals close.
func (h *Handler) serveWS(c *gin.Context) {
	roomID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.String("room", roomID), zap.Error(err))
		return
	}
	defer conn.Close()

	actor, slotID := h.accept(roomID, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		actor.HandleInbound(slotID, raw)
	}
	actor.Close(slotID)
}

// accept retries resolution when it loses the race against the directory
// retiring a just-emptied actor.
func (h *Handler) accept(roomID string, conn Conn) (*Actor, SlotID) {
	for {
		actor := h.dir.Resolve(roomID)
		if id, ok := actor.Accept(conn); ok {
			return actor, id
		}
	}
}

// POST /rooms/:id/broadcast — internal ingress. The body must be exactly one
// of the server message shapes; anything else is rejected before it can
// reach a socket.
func (h *Handler) broadcast(c *gin.Context) {
	roomID := c.Param("id")

	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	msg, err := wire.Decode(body)
	if err != nil {
		response.ValidationFailed(c, wire.Issues(err))
		return
	}

	h.fanout.Broadcast(c.Request.Context(), roomID, msg)
	response.NoContent(c)
}
