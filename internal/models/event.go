package models

// Event types mirror the wire enum.
const (
	EventTypeNote   = "note"
	EventTypeStatus = "status"
	EventTypeLink   = "link"
)

// EventModel is one timeline entry in a room.
type EventModel struct {
	Base
	RoomID  string `json:"roomId"  gorm:"type:char(36);index;not null"`
	Type    string `json:"type"    gorm:"size:16;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
	Author  Author `json:"author"  gorm:"embedded"`
}

func (EventModel) TableName() string { return "events" }
