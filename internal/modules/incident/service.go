package incident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edgeroom/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// TriggerResult reports the outcome of one trigger call. Event is only set
// when this call created the incident.
type TriggerResult struct {
	Created bool
	RoomID  string
	Event   *models.EventModel
}

// Trigger creates the room for an incident key exactly once. Re-triggers hit
// the fast-path read; concurrent first-triggers race on the incident_rooms
// primary key and the loser reconciles by reading the winner's row back.
func (s *Service) Trigger(ctx context.Context, dto *TriggerDTO) (*TriggerResult, error) {
	var existing models.IncidentRoomModel
	err := s.db.WithContext(ctx).First(&existing, "incident_key = ?", dto.IncidentKey).Error
	if err == nil {
		return &TriggerResult{Created: false, RoomID: existing.RoomID}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up incident %q: %w", dto.IncidentKey, err)
	}

	r := models.RoomModel{Name: strings.TrimSpace(dto.RoomName)}
	e := models.EventModel{
		Type:    dto.InitialEvent.Type,
		Message: dto.InitialEvent.Message,
		Author: models.Author{
			UserID:      dto.InitialEvent.CreatedBy.UserID,
			DisplayName: dto.InitialEvent.CreatedBy.DisplayName,
		},
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		e.RoomID = r.ID
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		m := models.IncidentRoomModel{
			IncidentKey: dto.IncidentKey,
			RoomID:      r.ID,
			Status:      models.IncidentStatusOpen,
		}
		return tx.Create(&m).Error
	})
	if txErr == nil {
		return &TriggerResult{Created: true, RoomID: r.ID, Event: &e}, nil
	}

	if errors.Is(txErr, gorm.ErrDuplicatedKey) {
		s.logger.Debug("incident trigger lost creation race",
			zap.String("incidentKey", dto.IncidentKey))
	}

	// Re-read regardless of the failure mode: a concurrent trigger that won
	// the insert is the expected cause, and its row settles the call.
	var again models.IncidentRoomModel
	if err := s.db.WithContext(ctx).First(&again, "incident_key = ?", dto.IncidentKey).Error; err == nil {
		return &TriggerResult{Created: false, RoomID: again.RoomID}, nil
	}

	return nil, fmt.Errorf("trigger incident %q: %w", dto.IncidentKey, txErr)
}

// ListItem is one dashboard row: the mapping joined with its room.
type ListItem struct {
	IncidentKey       string           `json:"incidentKey"`
	IncidentCreatedAt time.Time        `json:"incidentCreatedAt"`
	Status            string           `json:"status"`
	ResolvedAt        *time.Time       `json:"resolvedAt"`
	Room              models.RoomModel `json:"room"`
}

// List returns incidents most recent first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]ListItem, error) {
	var mappings []models.IncidentRoomModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return []ListItem{}, nil
	}

	roomIDs := make([]string, 0, len(mappings))
	for _, m := range mappings {
		roomIDs = append(roomIDs, m.RoomID)
	}
	var rooms []models.RoomModel
	if err := s.db.WithContext(ctx).Find(&rooms, "id IN ?", roomIDs).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.RoomModel, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}

	items := make([]ListItem, 0, len(mappings))
	for _, m := range mappings {
		r, ok := byID[m.RoomID]
		if !ok {
			// Mapping without a room should not exist; skip rather than fail
			// the whole listing.
			s.logger.Warn("incident mapping references missing room",
				zap.String("incidentKey", m.IncidentKey),
				zap.String("roomId", m.RoomID))
			continue
		}
		items = append(items, ListItem{
			IncidentKey:       m.IncidentKey,
			IncidentCreatedAt: m.CreatedAt,
			Status:            m.Status,
			ResolvedAt:        m.ResolvedAt,
			Room:              r,
		})
	}
	return items, nil
}

// Detail is the full incident view: mapping, room, and the room's recent
// events and tasks.
type Detail struct {
	IncidentKey       string              `json:"incidentKey"`
	IncidentCreatedAt time.Time           `json:"incidentCreatedAt"`
	Status            string              `json:"status"`
	ResolvedAt        *time.Time          `json:"resolvedAt"`
	Room              models.RoomModel    `json:"room"`
	Events            []models.EventModel `json:"events"`
	Tasks             []models.TaskModel  `json:"tasks"`
}

// GetByKey returns nil, nil when no incident exists for the key, or when its
// mapped room has gone missing.
func (s *Service) GetByKey(ctx context.Context, incidentKey string) (*Detail, error) {
	var m models.IncidentRoomModel
	if err := s.db.WithContext(ctx).First(&m, "incident_key = ?", incidentKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var r models.RoomModel
	if err := s.db.WithContext(ctx).First(&r, "id = ?", m.RoomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var events []models.EventModel
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", r.ID).
		Order("created_at ASC").
		Limit(200).
		Find(&events).Error; err != nil {
		return nil, err
	}
	var tasks []models.TaskModel
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", r.ID).
		Order("created_at ASC").
		Limit(200).
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return &Detail{
		IncidentKey:       m.IncidentKey,
		IncidentCreatedAt: m.CreatedAt,
		Status:            m.Status,
		ResolvedAt:        m.ResolvedAt,
		Room:              r,
		Events:            events,
		Tasks:             tasks,
	}, nil
}

// UpdateStatus transitions an incident's status. The room mapping itself
// never changes. Returns nil, nil when no incident exists for the key.
func (s *Service) UpdateStatus(ctx context.Context, incidentKey, status string) (*models.IncidentRoomModel, error) {
	var resolvedAt *time.Time
	if status == models.IncidentStatusResolved {
		now := time.Now()
		resolvedAt = &now
	}

	res := s.db.WithContext(ctx).
		Model(&models.IncidentRoomModel{}).
		Where("incident_key = ?", incidentKey).
		Updates(map[string]interface{}{"status": status, "resolved_at": resolvedAt})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var m models.IncidentRoomModel
	if err := s.db.WithContext(ctx).First(&m, "incident_key = ?", incidentKey).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
