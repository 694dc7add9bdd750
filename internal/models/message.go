package models

// MessageModel is one chat message in a room.
type MessageModel struct {
	Base
	RoomID  string `json:"roomId"  gorm:"type:char(36);index;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
	Author  Author `json:"author"  gorm:"embedded"`
}

func (MessageModel) TableName() string { return "messages" }
