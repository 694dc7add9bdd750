package models

// RoomModel is a named collaboration space. Live presence is never persisted;
// it lives only in the room's actor while sockets are connected.
type RoomModel struct {
	Base
	Name string `json:"name" gorm:"size:80;not null"`
}

func (RoomModel) TableName() string { return "rooms" }
