package wire

import (
	"time"

	"github.com/edgeroom/core/internal/models"
)

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FromEventModel converts a persisted event row to its wire form.
func FromEventModel(m *models.EventModel) Event {
	return Event{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Type:      m.Type,
		Message:   m.Message,
		CreatedAt: isoTime(m.CreatedAt),
		Author: Presence{
			UserID:      m.Author.UserID,
			DisplayName: m.Author.DisplayName,
		},
	}
}

// FromTaskModel converts a persisted task row to its wire form.
func FromTaskModel(m *models.TaskModel) Task {
	return Task{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Title:     m.Title,
		Status:    m.Status,
		CreatedAt: isoTime(m.CreatedAt),
		UpdatedAt: isoTime(m.UpdatedAt),
		Assignee:  m.Assignee,
	}
}

// FromMessageModel converts a persisted chat message row to its wire form.
func FromMessageModel(m *models.MessageModel) ChatMessage {
	return ChatMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Message:   m.Message,
		CreatedAt: isoTime(m.CreatedAt),
		Author: Presence{
			UserID:      m.Author.UserID,
			DisplayName: m.Author.DisplayName,
		},
	}
}
