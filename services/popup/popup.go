// Package popup implements the presentation controller behind the account
// picker: capture the live session token, list saved accounts, and dispatch
// feed switches to the agent. It holds only transient selection state.
package popup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"feedswitch/pkg/bus"
	"feedswitch/services/agent"
)

// MyFeed is the ActiveFeed value for the user's own, un-overridden session.
const MyFeed = "my"

// Messenger delivers protocol requests to the agent. The bus implementation
// is used in production; tests inject an in-process one.
type Messenger interface {
	Send(ctx context.Context, req agent.Request) (agent.Response, error)
}

// BusMessenger sends requests over the message bus.
type BusMessenger struct {
	bus *bus.Bus
}

// NewBusMessenger returns a Messenger backed by the provided bus.
func NewBusMessenger(b *bus.Bus) (*BusMessenger, error) {
	if b == nil {
		return nil, errors.New("bus is required")
	}
	return &BusMessenger{bus: b}, nil
}

func (m *BusMessenger) Send(ctx context.Context, req agent.Request) (agent.Response, error) {
	var resp agent.Response
	if err := m.bus.Request(ctx, agent.ActionsSubject, req, &resp); err != nil {
		return agent.Response{}, err
	}
	return resp, nil
}

// Account is one selectable entry in the account list. Name comes from the
// account's newest token, falling back to the device id.
type Account struct {
	UserID    string
	DeviceID  string
	Name      string
	CreatedAt time.Time
}

// Controller orchestrates the popup flows against the backend and the agent.
type Controller struct {
	remote   *agent.Client
	msgr     Messenger
	deviceID string
	logger   *log.Logger

	// Transient UI selection state.
	SelectedUserID string
	ActiveFeed     string
}

// NewController wires a controller. deviceID identifies this installation
// for the "my feed" get-or-create lookup.
func NewController(remote *agent.Client, msgr Messenger, deviceID string, logger *log.Logger) (*Controller, error) {
	if remote == nil {
		return nil, errors.New("remote client is required")
	}
	if msgr == nil {
		return nil, errors.New("messenger is required")
	}
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		remote:     remote,
		msgr:       msgr,
		deviceID:   deviceID,
		logger:     logger,
		ActiveFeed: MyFeed,
	}, nil
}

// LoadAccounts lists all backend users with display names derived from
// their newest token.
func (c *Controller) LoadAccounts(ctx context.Context) ([]Account, error) {
	users, err := c.remote.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(users))
	for _, u := range users {
		account := Account{
			UserID:    u.UserID,
			DeviceID:  u.DeviceID,
			Name:      u.DeviceID,
			CreatedAt: u.CreatedAt,
		}
		tokens, err := c.remote.ListTokens(ctx, u.UserID)
		if err != nil {
			c.logger.Printf("WARN listing tokens for %s failed: %v", u.UserID, err)
		} else if len(tokens) > 0 && tokens[0].Name != "" {
			account.Name = tokens[0].Name
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// CaptureAndSave captures the live session token through the agent and
// stores it under the given name for this device's user.
func (c *Controller) CaptureAndSave(ctx context.Context, name string) (agent.Token, error) {
	resp, err := c.msgr.Send(ctx, agent.Request{Action: agent.ActionFetchSessionToken})
	if err != nil {
		return agent.Token{}, err
	}
	if !resp.Success || resp.Token == nil {
		return agent.Token{}, errors.New(errorText(resp, "failed to fetch tokens"))
	}

	userID, err := c.remote.CreateUser(ctx, c.deviceID)
	if err != nil {
		return agent.Token{}, err
	}

	if name == "" {
		name = c.deviceID
	}
	saved, err := c.remote.CreateToken(ctx, userID, name, resp.Token.Data)
	if err != nil {
		return agent.Token{}, fmt.Errorf("token storage failed: %w", err)
	}
	return saved, nil
}

// SwitchFeed activates the newest token of the given user's account.
func (c *Controller) SwitchFeed(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("no user selected")
	}

	tokens, err := c.remote.ListTokens(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return errors.New("no tokens found for user")
	}

	data := tokens[0].Data
	resp, err := c.msgr.Send(ctx, agent.Request{
		Action: agent.ActionSetActiveFeed,
		Feed:   &agent.FeedSelection{Data: &data},
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(errorText(resp, "failed to switch feed"))
	}

	c.SelectedUserID = userID
	c.ActiveFeed = userID
	return nil
}

// SwitchToMyFeed clears any override and returns to the real session.
func (c *Controller) SwitchToMyFeed(ctx context.Context) error {
	resp, err := c.msgr.Send(ctx, agent.Request{
		Action: agent.ActionSetActiveFeed,
		Feed:   &agent.FeedSelection{My: true},
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(errorText(resp, "failed to switch to your real feed"))
	}

	c.SelectedUserID = ""
	c.ActiveFeed = MyFeed
	return nil
}

// DeleteAccount removes every token belonging to the user. The user record
// itself is never deleted by the system.
func (c *Controller) DeleteAccount(ctx context.Context, userID string) error {
	tokens, err := c.remote.ListTokens(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := c.remote.DeleteToken(ctx, t.ID); err != nil {
			return err
		}
	}
	if c.SelectedUserID == userID {
		c.SelectedUserID = ""
	}
	return nil
}

// ActiveToken reports the agent's current active token, nil when browsing
// the real session.
func (c *Controller) ActiveToken(ctx context.Context) (*agent.Token, error) {
	resp, err := c.msgr.Send(ctx, agent.Request{Action: agent.ActionGetActiveToken})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(errorText(resp, "failed to query active token"))
	}
	return resp.Token, nil
}

func errorText(resp agent.Response, fallback string) string {
	if resp.Error != "" {
		return resp.Error
	}
	return fallback
}
