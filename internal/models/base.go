package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all UUID-keyed entities.
type Base struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// Author denormalizes the presence identity captured at write time.
// Presence identities are trusted as supplied; they are never looked up.
type Author struct {
	UserID      string `json:"userId"      gorm:"column:author_user_id;size:191;not null"`
	DisplayName string `json:"displayName" gorm:"column:author_display_name;size:60;not null"`
}
