package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"feedswitch/pkg/db"
)

func (a *API) handleCreateOrGetUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		respondError(w, http.StatusBadRequest, errors.New("Device ID is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	orm := a.store.ORM.WithContext(ctx)

	var existing userModel
	err := orm.Where("device_id = ?", req.DeviceID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := userModel{
			ID:        uuid.New(),
			DeviceID:  req.DeviceID,
			CreatedAt: time.Now().UTC(),
		}
		if err := orm.Create(&model).Error; err != nil {
			a.respondStoreError(w, "create user", err)
			return
		}
		a.publishJSON(r.Context(), usersCreatedTopic, map[string]any{
			"user_id":   model.ID,
			"device_id": model.DeviceID,
		})
		respondJSON(w, http.StatusOK, map[string]any{"userId": model.ID})
	case err != nil:
		a.respondStoreError(w, "find user", err)
	default:
		respondJSON(w, http.StatusOK, map[string]any{"userId": existing.ID})
	}
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if a.store.DB == nil {
		a.respondStoreError(w, "list users", errors.New("no database pool configured"))
		return
	}

	users := []User{}
	err := db.Select(r.Context(), a.store.DB, &users,
		`SELECT id, device_id, created_at FROM users ORDER BY created_at`)
	if err != nil {
		a.respondStoreError(w, "list users", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}
