package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (a *API) handleListTokens(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid userId is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var models []tokenModel
	err = a.store.ORM.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		a.respondStoreError(w, "list tokens", err)
		return
	}

	tokens := make([]Token, 0, len(models))
	for _, m := range models {
		tokens = append(tokens, m.toAPI(false))
	}

	respondJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (a *API) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string     `json:"userId"`
		Name   string     `json:"name"`
		Data   *TokenData `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	if req.UserID == "" || req.Name == "" || req.Data == nil {
		respondError(w, http.StatusBadRequest, errors.New("userId, name, and data are required"))
		return
	}
	if req.Data.CsrfToken == "" || req.Data.AuthToken == "" {
		respondError(w, http.StatusBadRequest, errors.New("Token data is incomplete"))
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		respondError(w, http.StatusBadRequest, errors.New("valid userId is required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	now := time.Now().UTC()
	model := tokenModel{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Data:      dataToJSONMap(*req.Data),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.store.ORM.WithContext(ctx).Create(&model).Error; err != nil {
		a.respondStoreError(w, "create token", err)
		return
	}

	a.publishJSON(r.Context(), tokensCreatedTopic, map[string]any{
		"token_id": model.ID,
		"user_id":  model.UserID,
		"name":     model.Name,
	})

	respondJSON(w, http.StatusOK, model.toAPI(false))
}

func (a *API) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenId"))
	if err != nil {
		respondError(w, http.StatusNotFound, errors.New("Token not found"))
		return
	}

	var req struct {
		Name string     `json:"name"`
		Data *TokenData `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	orm := a.store.ORM.WithContext(ctx)

	var model tokenModel
	if err := orm.First(&model, "id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, errors.New("Token not found"))
			return
		}
		a.respondStoreError(w, "find token", err)
		return
	}

	if strings.TrimSpace(req.Name) != "" {
		model.Name = strings.TrimSpace(req.Name)
	}
	if req.Data != nil {
		// Field-wise merge: empty fields keep their prior value.
		merged := dataFromJSONMap(model.Data)
		if req.Data.CsrfToken != "" {
			merged.CsrfToken = req.Data.CsrfToken
		}
		if req.Data.AuthToken != "" {
			merged.AuthToken = req.Data.AuthToken
		}
		model.Data = dataToJSONMap(merged)
	}
	model.UpdatedAt = time.Now().UTC()

	if err := orm.Save(&model).Error; err != nil {
		a.respondStoreError(w, "update token", err)
		return
	}

	respondJSON(w, http.StatusOK, model.toAPI(true))
}

func (a *API) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := uuid.Parse(chi.URLParam(r, "tokenId"))
	if err != nil {
		respondError(w, http.StatusNotFound, errors.New("Token not found"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	res := a.store.ORM.WithContext(ctx).Delete(&tokenModel{}, "id = ?", tokenID)
	if res.Error != nil {
		a.respondStoreError(w, "delete token", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		respondError(w, http.StatusNotFound, errors.New("Token not found"))
		return
	}

	a.publishJSON(r.Context(), tokensDeletedTopic, map[string]any{
		"token_id": tokenID,
	})

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
