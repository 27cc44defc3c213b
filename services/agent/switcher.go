package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
)

// OverrideState is the switch controller's explicit state: browsing with the
// real session, or under a swapped token.
type OverrideState int

const (
	NoOverride OverrideState = iota
	Overridden
)

func (s OverrideState) String() string {
	if s == Overridden {
		return "overridden"
	}
	return "no-override"
}

// DefaultRuleID is the single fixed dynamic rule id. Only one override rule
// exists at a time; there is no per-tab or per-origin multiplexing.
const DefaultRuleID = 1

const (
	csrfHeader     = "x-csrf-token"
	authCookieName = "auth_token"
	pageCsrfCookie = "ct0"
)

// Switcher drives the feed override: one header-rewrite rule, one session
// cookie, a read-only broadcast, and a forced reload of the site's tabs.
type Switcher struct {
	gw     Gateway
	site   string
	ruleID int
	logger *log.Logger

	mu            sync.Mutex
	state         OverrideState
	activeTokenID string
}

// NewSwitcher creates a controller for the given site (e.g. "x.com").
func NewSwitcher(gw Gateway, site string, ruleID int, logger *log.Logger) (*Switcher, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	if site == "" {
		return nil, errors.New("site is required")
	}
	if ruleID <= 0 {
		ruleID = DefaultRuleID
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Switcher{gw: gw, site: site, ruleID: ruleID, logger: logger}, nil
}

// State reports the current override state and the active token id, which is
// empty when no stored token is associated with the override.
func (s *Switcher) State() (OverrideState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.activeTokenID
}

// Activate installs the override for a stored token. Re-activating while
// already overridden replaces the rule and cookie.
func (s *Switcher) Activate(ctx context.Context, token Token) error {
	return s.activate(ctx, token.Data, token.ID)
}

// ActivateSession installs the override from raw credentials with no stored
// token behind them.
func (s *Switcher) ActivateSession(ctx context.Context, data TokenData) error {
	return s.activate(ctx, data, "")
}

func (s *Switcher) activate(ctx context.Context, data TokenData, tokenID string) error {
	if data.CsrfToken == "" || data.AuthToken == "" {
		return errors.New("token data is incomplete")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rule := HeaderRule{
		ID:           s.ruleID,
		Header:       csrfHeader,
		Value:        data.CsrfToken,
		URLFilter:    fmt.Sprintf("|https://%s/i/api/graphql/*HomeTimeline*", s.site),
		ResourceType: "xmlhttprequest",
	}
	if err := s.gw.SetHeaderRule(ctx, rule); err != nil {
		return err
	}

	cookie := Cookie{
		URL:      fmt.Sprintf("https://%s/", s.site),
		Name:     authCookieName,
		Value:    data.AuthToken,
		Domain:   s.site,
		Path:     "/",
		Secure:   true,
		SameSite: "no_restriction",
	}
	if err := s.gw.SetCookie(ctx, cookie); err != nil {
		return err
	}

	s.broadcastReadOnly(ctx, true)
	s.reloadTabs(ctx)

	s.state = Overridden
	s.activeTokenID = tokenID
	return nil
}

// Clear removes the override rule and signals read-only off. The session
// cookie written during activation is left in place: the user may still be
// signed in as the other account until they sign in again manually.
func (s *Switcher) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gw.ClearHeaderRule(ctx, s.ruleID); err != nil {
		return err
	}

	s.broadcastReadOnly(ctx, false)
	s.reloadTabs(ctx)

	s.state = NoOverride
	s.activeTokenID = ""
	return nil
}

// CaptureSession pulls the live session credentials out of the active tab:
// the csrf token from page cookies and the auth token from the cookie store.
func (s *Switcher) CaptureSession(ctx context.Context) (TokenData, error) {
	tab, err := s.gw.ActiveTab(ctx)
	if err != nil {
		return TokenData{}, err
	}
	if !strings.Contains(tab.URL, s.site) {
		return TokenData{}, fmt.Errorf("please navigate to %s first", s.site)
	}

	pageCookies, err := s.gw.PageCookies(ctx, tab.ID)
	if err != nil {
		return TokenData{}, err
	}

	data := TokenData{CsrfToken: pageCookies[pageCsrfCookie]}

	auth, err := s.gw.ReadCookie(ctx, fmt.Sprintf("https://%s", s.site), authCookieName)
	if err != nil {
		s.logger.Printf("WARN auth cookie read failed: %v", err)
	}
	data.AuthToken = auth

	if data.CsrfToken == "" || data.AuthToken == "" {
		return TokenData{}, errors.New("incomplete token data extracted")
	}
	return data, nil
}

// broadcastReadOnly tells every open tab of the site to toggle read-only
// presentation. Per-tab failures are tolerated; the content side may simply
// not be loaded yet.
func (s *Switcher) broadcastReadOnly(ctx context.Context, enabled bool) {
	tabs, err := s.gw.QueryTabs(ctx, s.tabPattern())
	if err != nil {
		s.logger.Printf("WARN tab query failed: %v", err)
		return
	}

	msg := Request{Action: ActionSetReadOnlyMode, Enabled: &enabled}
	for _, tab := range tabs {
		if err := s.gw.SendToTab(ctx, tab.ID, msg); err != nil {
			s.logger.Printf("INFO tab %d not ready: %v", tab.ID, err)
		}
	}
}

func (s *Switcher) reloadTabs(ctx context.Context) {
	tabs, err := s.gw.QueryTabs(ctx, s.tabPattern())
	if err != nil {
		s.logger.Printf("WARN tab query failed: %v", err)
		return
	}
	for _, tab := range tabs {
		if err := s.gw.ReloadTab(ctx, tab.ID, true); err != nil {
			s.logger.Printf("WARN reload of tab %d failed: %v", tab.ID, err)
		}
	}
}

func (s *Switcher) tabPattern() string {
	return fmt.Sprintf("*://*.%s/*", s.site)
}
