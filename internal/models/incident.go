package models

import "time"

const (
	IncidentStatusOpen     = "open"
	IncidentStatusResolved = "resolved"
)

// IncidentRoomModel maps one logical incident key to the room created for it.
// The primary key on incident_key is what makes concurrent triggers safe:
// at most one row can ever exist per key, and the room mapping never changes
// after insert (only status/resolved_at may).
type IncidentRoomModel struct {
	IncidentKey string     `json:"incidentKey" gorm:"size:120;primaryKey"`
	RoomID      string     `json:"roomId"      gorm:"type:char(36);not null"`
	Status      string     `json:"status"      gorm:"size:16;not null;default:open"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (IncidentRoomModel) TableName() string { return "incident_rooms" }
