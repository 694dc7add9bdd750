package models

import "time"

const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

// TaskModel is an action item inside a room. Assignee is free text and may be
// cleared again on update.
type TaskModel struct {
	Base
	RoomID    string    `json:"roomId"             gorm:"type:char(36);index;not null"`
	Title     string    `json:"title"              gorm:"size:200;not null"`
	Status    string    `json:"status"             gorm:"size:8;not null;default:open"`
	Assignee  *string   `json:"assignee,omitempty" gorm:"size:60"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TaskModel) TableName() string { return "tasks" }
