package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Settings keys persisted alongside the token mirror.
const (
	settingDeviceID    = "device_id"
	settingUserID      = "user_id"
	settingActiveToken = "active_token"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS tokens (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  csrf_token TEXT NOT NULL,
  auth_token TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`

// Cache is the client-side mirror of the token store plus the handful of
// identity settings the extension keeps. The server stays authoritative;
// the mirror is only read when the backend is unreachable.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and if needed initialises) the SQLite cache at path.
// Use ":memory:" for an ephemeral cache.
func OpenCache(path string) (*Cache, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ListTokens returns all cached tokens in insertion order.
func (c *Cache) ListTokens(ctx context.Context) ([]Token, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, csrf_token, auth_token, created_at FROM tokens ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select tokens: %w", err)
	}
	defer rows.Close()

	var result []Token
	for rows.Next() {
		var t Token
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Data.CsrfToken, &t.Data.AuthToken, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			t.CreatedAt = ts
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// AppendToken adds a token snapshot to the mirror. Duplicate ids overwrite
// the previous snapshot; additions are never deduplicated by content.
func (c *Cache) AppendToken(ctx context.Context, t Token) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tokens (id, name, csrf_token, auth_token, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name,
		   csrf_token = excluded.csrf_token,
		   auth_token = excluded.auth_token,
		   created_at = excluded.created_at`,
		t.ID, t.Name, t.Data.CsrfToken, t.Data.AuthToken, t.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// DeleteToken removes a token from the mirror. Removing an unknown id is a
// no-op.
func (c *Cache) DeleteToken(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// ReplaceTokens refreshes the whole mirror from a server listing.
func (c *Cache) ReplaceTokens(ctx context.Context, tokens []Token) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens`); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	for _, t := range tokens {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tokens (id, name, csrf_token, auth_token, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.Name, t.Data.CsrfToken, t.Data.AuthToken, t.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}
	return tx.Commit()
}

// Setting returns the stored value for key, or "" when unset.
func (c *Cache) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores or overwrites a settings value.
func (c *Cache) SetSetting(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a settings value. Unknown keys are a no-op.
func (c *Cache) DeleteSetting(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// ActiveToken returns the stored active-token snapshot, or nil when none is
// set.
func (c *Cache) ActiveToken(ctx context.Context) (*Token, error) {
	raw, err := c.Setting(ctx, settingActiveToken)
	if err != nil || raw == "" {
		return nil, err
	}

	var t Token
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode active token: %w", err)
	}
	return &t, nil
}

// SetActiveToken stores the active-token snapshot; a nil token clears it.
func (c *Cache) SetActiveToken(ctx context.Context, t *Token) error {
	if t == nil {
		return c.DeleteSetting(ctx, settingActiveToken)
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode active token: %w", err)
	}
	return c.SetSetting(ctx, settingActiveToken, string(raw))
}
