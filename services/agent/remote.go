package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the token store backend over its JSON HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a backend client rooted at base.
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateUser performs the get-or-create user call and returns the user id.
func (c *Client) CreateUser(ctx context.Context, deviceID string) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/users", map[string]string{"deviceId": deviceID}, &resp)
	if err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("user creation failed")
	}
	return resp.UserID, nil
}

// ListUsers returns all backend users.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// ListTokens returns a user's tokens, newest first.
func (c *Client) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	var resp struct {
		Tokens []Token `json:"tokens"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tokens/"+userID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

// CreateToken stores a named token for a user and returns the stored record.
func (c *Client) CreateToken(ctx context.Context, userID, name string, data TokenData) (Token, error) {
	body := map[string]any{
		"userId": userID,
		"name":   name,
		"data":   data,
	}
	var token Token
	if err := c.do(ctx, http.MethodPost, "/api/tokens", body, &token); err != nil {
		return Token{}, err
	}
	return token, nil
}

// DeleteToken removes a token by id.
func (c *Client) DeleteToken(ctx context.Context, tokenID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tokens/"+tokenID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
