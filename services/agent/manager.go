package agent

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source tags where a token listing came from, so callers and tests can
// distinguish degraded mode from a healthy read.
type Source int

const (
	SourceRemote Source = iota
	SourceLocalFallback
)

// ListResult is a token listing plus its origin. Reason carries the remote
// failure that forced the fallback, when there was one.
type ListResult struct {
	Tokens []Token
	Source Source
	Reason string
}

// TokenManager mediates between the backend and the local cache.
// Reads are online-first with a silent local fallback; writes always land in
// the cache and reach the backend best-effort.
type TokenManager struct {
	remote *Client
	cache  *Cache
	logger *log.Logger

	mu       sync.Mutex
	deviceID string
	userID   string
}

// NewTokenManager wires a manager from its backend client and cache.
func NewTokenManager(remote *Client, cache *Cache, logger *log.Logger) *TokenManager {
	if logger == nil {
		logger = log.Default()
	}
	return &TokenManager{remote: remote, cache: cache, logger: logger}
}

// DeviceID returns this installation's device id, generating and persisting
// one on first use.
func (m *TokenManager) DeviceID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deviceIDLocked(ctx)
}

func (m *TokenManager) deviceIDLocked(ctx context.Context) (string, error) {
	if m.deviceID != "" {
		return m.deviceID, nil
	}

	stored, err := m.cache.Setting(ctx, settingDeviceID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		stored = "device-" + uuid.New().String()
		if err := m.cache.SetSetting(ctx, settingDeviceID, stored); err != nil {
			return "", err
		}
	}

	m.deviceID = stored
	return stored, nil
}

// UserID resolves this device's backend user id, creating the user remotely
// on first use. When the backend is unreachable the resolution fails and
// dependent calls degrade to local-only behaviour.
func (m *TokenManager) UserID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userID != "" {
		return m.userID, nil
	}

	stored, err := m.cache.Setting(ctx, settingUserID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		deviceID, err := m.deviceIDLocked(ctx)
		if err != nil {
			return "", err
		}
		stored, err = m.remote.CreateUser(ctx, deviceID)
		if err != nil {
			return "", err
		}
		if err := m.cache.SetSetting(ctx, settingUserID, stored); err != nil {
			return "", err
		}
	}

	m.userID = stored
	return stored, nil
}

// ListTokens lists this user's tokens, falling back to the cache when the
// backend cannot be reached. A successful remote read refreshes the mirror.
func (m *TokenManager) ListTokens(ctx context.Context) (ListResult, error) {
	userID, err := m.UserID(ctx)
	if err == nil {
		var tokens []Token
		tokens, err = m.remote.ListTokens(ctx, userID)
		if err == nil {
			if cacheErr := m.cache.ReplaceTokens(ctx, tokens); cacheErr != nil {
				m.logger.Printf("WARN cache refresh failed: %v", cacheErr)
			}
			return ListResult{Tokens: tokens, Source: SourceRemote}, nil
		}
	}

	cached, cacheErr := m.cache.ListTokens(ctx)
	if cacheErr != nil {
		return ListResult{}, cacheErr
	}
	return ListResult{Tokens: cached, Source: SourceLocalFallback, Reason: err.Error()}, nil
}

// GetToken finds a token by id, through the usual read policy.
func (m *TokenManager) GetToken(ctx context.Context, id string) (Token, error) {
	result, err := m.ListTokens(ctx)
	if err != nil {
		return Token{}, err
	}
	for _, t := range result.Tokens {
		if t.ID == id {
			return t, nil
		}
	}
	return Token{}, ErrTokenNotFound
}

// AddToken stores a new named token. The backend write is best-effort: its
// assigned id is adopted when it succeeds, otherwise a local id is generated
// and only the cache holds the token until a later Sync.
func (m *TokenManager) AddToken(ctx context.Context, name string, data TokenData) (Token, error) {
	token := Token{
		ID:        uuid.New().String(),
		Name:      name,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if userID, err := m.UserID(ctx); err != nil {
		m.logger.Printf("WARN saving token locally only: %v", err)
	} else if saved, err := m.remote.CreateToken(ctx, userID, name, data); err != nil {
		m.logger.Printf("WARN remote save failed, saving locally only: %v", err)
	} else {
		token = saved
	}

	if err := m.cache.AppendToken(ctx, token); err != nil {
		return Token{}, err
	}
	return token, nil
}

// DeleteToken removes a token everywhere it can; the remote delete is
// best-effort.
func (m *TokenManager) DeleteToken(ctx context.Context, id string) error {
	if err := m.remote.DeleteToken(ctx, id); err != nil {
		m.logger.Printf("WARN remote delete failed, deleting locally only: %v", err)
	}
	return m.cache.DeleteToken(ctx, id)
}

// ActiveToken returns the currently active token snapshot, nil when none.
func (m *TokenManager) ActiveToken(ctx context.Context) (*Token, error) {
	return m.cache.ActiveToken(ctx)
}

// SetActiveToken records the token with the given id as active.
func (m *TokenManager) SetActiveToken(ctx context.Context, id string) error {
	token, err := m.GetToken(ctx, id)
	if err != nil {
		return err
	}
	return m.cache.SetActiveToken(ctx, &token)
}

// SetActiveSnapshot records an ad-hoc token snapshot as active. Used when a
// feed is activated from raw credentials rather than a stored token.
func (m *TokenManager) SetActiveSnapshot(ctx context.Context, t Token) error {
	return m.cache.SetActiveToken(ctx, &t)
}

// ClearActiveToken clears the active-token marker.
func (m *TokenManager) ClearActiveToken(ctx context.Context) error {
	return m.cache.SetActiveToken(ctx, nil)
}

// Sync uploads every cached token to the backend best-effort, skipping
// individual failures.
func (m *TokenManager) Sync(ctx context.Context) error {
	userID, err := m.UserID(ctx)
	if err != nil {
		return err
	}

	cached, err := m.cache.ListTokens(ctx)
	if err != nil {
		return err
	}

	for _, t := range cached {
		if _, err := m.remote.CreateToken(ctx, userID, t.Name, t.Data); err != nil {
			m.logger.Printf("WARN sync of token %s failed: %v", t.ID, err)
		}
	}
	return nil
}
