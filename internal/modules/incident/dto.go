package incident

import "github.com/edgeroom/core/internal/modules/room"

// TriggerDTO is the system-driven idempotent trigger request.
type TriggerDTO struct {
	IncidentKey  string              `json:"incidentKey"  binding:"required,min=1,max=120"`
	RoomName     string              `json:"roomName"     binding:"required,min=1,max=80"`
	InitialEvent room.CreateEventDTO `json:"initialEvent" binding:"required"`
}

// CreateDTO is the human-driven creation request. It is turned into a
// synthetic trigger with a generated incident key.
type CreateDTO struct {
	Title       string           `json:"title"       binding:"required,min=1,max=80"`
	Description *string          `json:"description" binding:"omitempty,max=2000"`
	CreatedBy   room.PresenceDTO `json:"createdBy"   binding:"required"`
}

// UpdateStatusDTO moves an incident between open and resolved.
type UpdateStatusDTO struct {
	Status string `json:"status" binding:"required,oneof=open resolved"`
}
