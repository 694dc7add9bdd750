package room

import (
	"context"
	"errors"
	"strconv"

	"github.com/edgeroom/core/internal/pkg/response"
	"github.com/edgeroom/core/internal/pkg/wire"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Broadcaster pushes a server message to a room's live sockets. Handlers call
// it after the write commits; the database is the source of truth and the
// realtime channel is advisory, so broadcast failures are not surfaced.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID string, msg wire.ServerMessage)
}

type Handler struct {
	service   *Service
	broadcast Broadcaster
	logger    *zap.Logger
}

func NewHandler(service *Service, broadcast Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{service: service, broadcast: broadcast, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rooms := rg.Group("/rooms")
	{
		rooms.POST("", h.createRoom)
		rooms.GET("", h.listRooms)
		rooms.GET("/:id", h.getRoom)
		rooms.GET("/:id/state", h.getState)

		rooms.GET("/:id/events", h.listEvents)
		rooms.POST("/:id/events", h.createEvent)

		rooms.GET("/:id/tasks", h.listTasks)
		rooms.POST("/:id/tasks", h.createTask)
		rooms.PATCH("/:id/tasks/:taskId", h.updateTask)

		rooms.GET("/:id/messages", h.listMessages)
		rooms.POST("/:id/messages", h.createMessage)
	}
}

func limitQuery(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.DefaultQuery(name, "0"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// requireRoom loads the room or writes the 404 itself.
func (h *Handler) requireRoom(c *gin.Context) bool {
	r, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return false
	}
	if r == nil {
		response.NotFoundMsg(c, "Room not found")
		return false
	}
	return true
}

func (h *Handler) createRoom(c *gin.Context) {
	var dto CreateRoomDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	r, err := h.service.CreateRoom(c.Request.Context(), dto.Name)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, r)
}

func (h *Handler) listRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"rooms": rooms})
}

func (h *Handler) getRoom(c *gin.Context) {
	r, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if r == nil {
		response.NotFoundMsg(c, "Room not found")
		return
	}
	response.OK(c, r)
}

func (h *Handler) getState(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), c.Param("id"),
		limitQuery(c, "eventsLimit"), limitQuery(c, "tasksLimit"), limitQuery(c, "messagesLimit"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if state == nil {
		response.NotFoundMsg(c, "Room not found")
		return
	}
	response.OK(c, state)
}

func (h *Handler) listEvents(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	events, err := h.service.ListEvents(c.Request.Context(), c.Param("id"), limitQuery(c, "limit"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"events": events})
}

func (h *Handler) createEvent(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	var dto CreateEventDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	e, err := h.service.CreateEvent(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.broadcast.Broadcast(c.Request.Context(), e.RoomID, wire.NewEventCreatedMessage(wire.FromEventModel(e)))
	response.Created(c, e)
}

func (h *Handler) listTasks(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	tasks, err := h.service.ListTasks(c.Request.Context(), c.Param("id"), limitQuery(c, "limit"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"tasks": tasks})
}

func (h *Handler) createTask(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	var dto CreateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	t, err := h.service.CreateTask(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.broadcast.Broadcast(c.Request.Context(), t.RoomID, wire.NewTaskCreatedMessage(wire.FromTaskModel(t)))
	response.Created(c, t)
}

func (h *Handler) updateTask(c *gin.Context) {
	var dto UpdateTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if dto.Assignee.Set && dto.Assignee.Value != nil {
		if v := *dto.Assignee.Value; v == "" || len(v) > 60 {
			response.BadRequest(c, "assignee must be 1-60 characters or null")
			return
		}
	}

	t, err := h.service.UpdateTask(c.Request.Context(), c.Param("id"), c.Param("taskId"), &dto)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			response.NotFoundMsg(c, "Task not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	h.broadcast.Broadcast(c.Request.Context(), t.RoomID, wire.NewTaskUpdatedMessage(wire.FromTaskModel(t)))
	response.OK(c, t)
}

func (h *Handler) listMessages(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	messages, err := h.service.ListMessages(c.Request.Context(), c.Param("id"), limitQuery(c, "limit"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

func (h *Handler) createMessage(c *gin.Context) {
	if !h.requireRoom(c) {
		return
	}
	var dto CreateMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.service.CreateMessage(c.Request.Context(), c.Param("id"), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	h.broadcast.Broadcast(c.Request.Context(), m.RoomID, wire.NewChatMessageMessage(wire.FromMessageModel(m)))
	response.Created(c, m)
}
