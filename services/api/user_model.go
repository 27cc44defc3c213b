package api

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID  string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
}

func (userModel) TableName() string { return "users" }
