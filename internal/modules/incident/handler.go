package incident

import (
	"errors"
	"strconv"
	"strings"

	"github.com/edgeroom/core/internal/models"
	"github.com/edgeroom/core/internal/modules/room"
	"github.com/edgeroom/core/internal/pkg/response"
	"github.com/edgeroom/core/internal/pkg/wire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service   *Service
	rooms     *room.Service
	broadcast room.Broadcaster
	logger    *zap.Logger
}

func NewHandler(service *Service, rooms *room.Service, broadcast room.Broadcaster, logger *zap.Logger) *Handler {
	return &Handler{service: service, rooms: rooms, broadcast: broadcast, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	incidents := rg.Group("/incidents")
	{
		incidents.POST("/trigger", h.trigger)
		incidents.POST("", h.create)
		incidents.GET("", h.list)
		incidents.GET("/:incidentKey", h.detail)
		incidents.PATCH("/:incidentKey/status", h.updateStatus)
	}
}

// POST /incidents/trigger — idempotent: 201 when this call created the
// incident, 200 when one already existed for the key.
func (h *Handler) trigger(c *gin.Context) {
	var dto TriggerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Trigger(c.Request.Context(), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	r, err := h.rooms.GetRoom(c.Request.Context(), result.RoomID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if r == nil {
		response.InternalError(c, errors.New("room not found for incident"))
		return
	}

	if result.Created {
		h.broadcast.Broadcast(c.Request.Context(), result.RoomID,
			wire.NewEventCreatedMessage(wire.FromEventModel(result.Event)))
		response.Created(c, gin.H{
			"created":     true,
			"incidentKey": dto.IncidentKey,
			"room":        r,
			"event":       result.Event,
		})
		return
	}
	response.OK(c, gin.H{
		"created":     false,
		"incidentKey": dto.IncidentKey,
		"room":        r,
	})
}

// POST /incidents — human-driven creation. A fresh incident key is generated,
// so this never collides with a system trigger.
func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	message := "Incident created: " + dto.Title
	if dto.Description != nil {
		if d := strings.TrimSpace(*dto.Description); d != "" {
			message = d
		}
	}

	trigger := TriggerDTO{
		IncidentKey: "manual:" + uuid.New().String(),
		RoomName:    dto.Title,
		InitialEvent: room.CreateEventDTO{
			Type:      models.EventTypeStatus,
			Message:   message,
			CreatedBy: dto.CreatedBy,
		},
	}

	result, err := h.service.Trigger(c.Request.Context(), &trigger)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	r, err := h.rooms.GetRoom(c.Request.Context(), result.RoomID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if r == nil {
		response.InternalError(c, errors.New("room not found for incident"))
		return
	}

	body := gin.H{
		"created":     true,
		"incidentKey": trigger.IncidentKey,
		"room":        r,
	}
	if result.Created && result.Event != nil {
		h.broadcast.Broadcast(c.Request.Context(), result.RoomID,
			wire.NewEventCreatedMessage(wire.FromEventModel(result.Event)))
		body["event"] = result.Event
	}
	response.Created(c, body)
}

// GET /incidents — dashboard list, most recent first.
func (h *Handler) list(c *gin.Context) {
	limit := parseBounded(c.Query("limit"), 50, 1, 200)
	offset := parseBounded(c.Query("offset"), 0, 0, 1<<30)

	incidents, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"incidents": incidents, "limit": limit, "offset": offset})
}

// GET /incidents/:incidentKey
func (h *Handler) detail(c *gin.Context) {
	detail, err := h.service.GetByKey(c.Request.Context(), c.Param("incidentKey"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if detail == nil {
		response.NotFoundMsg(c, "Incident not found")
		return
	}
	response.OK(c, detail)
}

// PATCH /incidents/:incidentKey/status
func (h *Handler) updateStatus(c *gin.Context) {
	var dto UpdateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.service.UpdateStatus(c.Request.Context(), c.Param("incidentKey"), dto.Status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFoundMsg(c, "Incident not found")
		return
	}
	response.OK(c, gin.H{"status": m.Status, "resolvedAt": m.ResolvedAt})
}

func parseBounded(raw string, def, min, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return def
	}
	if n > max {
		return max
	}
	return n
}
