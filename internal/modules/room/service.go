package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edgeroom/core/internal/models"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 200
	maxListLimit     = 500
)

// ErrTaskNotFound reports an update against a task id that does not exist in
// the addressed room.
var ErrTaskNotFound = errors.New("task not found")

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ClampLimit normalizes a caller-supplied list limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (s *Service) CreateRoom(ctx context.Context, name string) (*models.RoomModel, error) {
	r := models.RoomModel{Name: strings.TrimSpace(name)}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]models.RoomModel, error) {
	var rooms []models.RoomModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(50).
		Find(&rooms).Error
	return rooms, err
}

// GetRoom returns nil, nil when the room does not exist.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.RoomModel, error) {
	var r models.RoomModel
	if err := s.db.WithContext(ctx).First(&r, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *Service) CreateEvent(ctx context.Context, roomID string, dto *CreateEventDTO) (*models.EventModel, error) {
	e := models.EventModel{
		RoomID:  roomID,
		Type:    dto.Type,
		Message: dto.Message,
		Author: models.Author{
			UserID:      dto.CreatedBy.UserID,
			DisplayName: dto.CreatedBy.DisplayName,
		},
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) ListEvents(ctx context.Context, roomID string, limit int) ([]models.EventModel, error) {
	var events []models.EventModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Limit(ClampLimit(limit)).
		Find(&events).Error
	return events, err
}

func (s *Service) CreateTask(ctx context.Context, roomID string, dto *CreateTaskDTO) (*models.TaskModel, error) {
	t := models.TaskModel{
		RoomID:   roomID,
		Title:    dto.Title,
		Status:   models.TaskStatusOpen,
		Assignee: dto.Assignee,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) ListTasks(ctx context.Context, roomID string, limit int) ([]models.TaskModel, error) {
	var tasks []models.TaskModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Limit(ClampLimit(limit)).
		Find(&tasks).Error
	return tasks, err
}

func (s *Service) UpdateTask(ctx context.Context, roomID, taskID string, dto *UpdateTaskDTO) (*models.TaskModel, error) {
	var t models.TaskModel
	if err := s.db.WithContext(ctx).First(&t, "id = ? AND room_id = ?", taskID, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Status != nil {
		updates["status"] = *dto.Status
	}
	if dto.Assignee.Set {
		updates["assignee"] = dto.Assignee.Value
	}
	if err := s.db.WithContext(ctx).Model(&t).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) CreateMessage(ctx context.Context, roomID string, dto *CreateMessageDTO) (*models.MessageModel, error) {
	m := models.MessageModel{
		RoomID:  roomID,
		Message: dto.Message,
		Author: models.Author{
			UserID:      dto.CreatedBy.UserID,
			DisplayName: dto.CreatedBy.DisplayName,
		},
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) ListMessages(ctx context.Context, roomID string, limit int) ([]models.MessageModel, error) {
	var messages []models.MessageModel
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Limit(ClampLimit(limit)).
		Find(&messages).Error
	return messages, err
}

// RoomState is the full snapshot returned by the state endpoint.
type RoomState struct {
	Room     *models.RoomModel     `json:"room"`
	Events   []models.EventModel   `json:"events"`
	Tasks    []models.TaskModel    `json:"tasks"`
	Messages []models.MessageModel `json:"messages"`
}

func (s *Service) State(ctx context.Context, roomID string, eventsLimit, tasksLimit, messagesLimit int) (*RoomState, error) {
	r, err := s.GetRoom(ctx, roomID)
	if err != nil || r == nil {
		return nil, err
	}

	events, err := s.ListEvents(ctx, roomID, eventsLimit)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(ctx, roomID, tasksLimit)
	if err != nil {
		return nil, err
	}
	messages, err := s.ListMessages(ctx, roomID, messagesLimit)
	if err != nil {
		return nil, err
	}

	return &RoomState{Room: r, Events: events, Tasks: tasks, Messages: messages}, nil
}
