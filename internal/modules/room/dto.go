package room

import "encoding/json"

// PresenceDTO is a trusted participant identity supplied by the caller.
type PresenceDTO struct {
	UserID      string `json:"userId"      binding:"required"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=60"`
}

// CreateRoomDTO is the request body for creating a room.
type CreateRoomDTO struct {
	Name string `json:"name" binding:"required,min=1,max=80"`
}

// CreateEventDTO is the request body for appending a timeline event.
type CreateEventDTO struct {
	Type      string      `json:"type"      binding:"required,oneof=note status link"`
	Message   string      `json:"message"   binding:"required,min=1,max=2000"`
	CreatedBy PresenceDTO `json:"createdBy" binding:"required"`
}

// CreateTaskDTO is the request body for creating a task.
type CreateTaskDTO struct {
	Title     string      `json:"title"     binding:"required,min=1,max=200"`
	Assignee  *string     `json:"assignee"  binding:"omitempty,min=1,max=60"`
	CreatedBy PresenceDTO `json:"createdBy" binding:"required"`
}

// UpdateTaskDTO is the request body for updating a task. A present-but-null
// assignee clears the assignment; an absent one leaves it untouched.
type UpdateTaskDTO struct {
	Title    *string        `json:"title"  binding:"omitempty,min=1,max=200"`
	Status   *string        `json:"status" binding:"omitempty,oneof=open done"`
	Assignee OptionalString `json:"assignee"`
}

// OptionalString distinguishes an absent JSON field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CreateMessageDTO is the request body for posting a chat message.
type CreateMessageDTO struct {
	Message   string      `json:"message"   binding:"required,min=1,max=4000"`
	CreatedBy PresenceDTO `json:"createdBy" binding:"required"`
}
