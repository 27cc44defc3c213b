package api

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type tokenModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID         `gorm:"type:uuid;index;not null"`
	Name      string            `gorm:"type:text;not null"`
	Data      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"not null;autoUpdateTime"`
}

func (tokenModel) TableName() string { return "tokens" }

func (m tokenModel) toAPI(withUpdated bool) Token {
	t := Token{
		ID:        m.ID,
		Name:      m.Name,
		Data:      dataFromJSONMap(m.Data),
		CreatedAt: m.CreatedAt,
	}
	if withUpdated {
		updated := m.UpdatedAt
		t.UpdatedAt = &updated
	}
	return t
}

func dataFromJSONMap(src datatypes.JSONMap) TokenData {
	data := TokenData{}
	if src == nil {
		return data
	}
	if v, ok := src["csrfToken"].(string); ok {
		data.CsrfToken = v
	}
	if v, ok := src["authToken"].(string); ok {
		data.AuthToken = v
	}
	return data
}

func dataToJSONMap(data TokenData) datatypes.JSONMap {
	return datatypes.JSONMap{
		"csrfToken": data.CsrfToken,
		"authToken": data.AuthToken,
	}
}
