package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGateway records every host call the switch controller makes.
type fakeGateway struct {
	mu sync.Mutex

	rules       map[int]HeaderRule
	cookies     []Cookie
	cookieStore map[string]string
	activeTab   Tab
	tabs        []Tab
	pageCookies map[string]string
	sent        []Request
	reloads     []int

	ruleErr   error
	cookieErr error
	sendErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rules:       make(map[int]HeaderRule),
		cookieStore: make(map[string]string),
		pageCookies: make(map[string]string),
		activeTab:   Tab{ID: 1, URL: "https://x.com/home"},
		tabs:        []Tab{{ID: 1, URL: "https://x.com/home"}, {ID: 2, URL: "https://x.com/explore"}},
	}
}

func (g *fakeGateway) SetHeaderRule(_ context.Context, rule HeaderRule) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ruleErr != nil {
		return g.ruleErr
	}
	g.rules[rule.ID] = rule
	return nil
}

func (g *fakeGateway) ClearHeaderRule(_ context.Context, ruleID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ruleErr != nil {
		return g.ruleErr
	}
	delete(g.rules, ruleID)
	return nil
}

func (g *fakeGateway) SetCookie(_ context.Context, cookie Cookie) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cookieErr != nil {
		return g.cookieErr
	}
	g.cookies = append(g.cookies, cookie)
	g.cookieStore[cookie.Name] = cookie.Value
	return nil
}

func (g *fakeGateway) ReadCookie(_ context.Context, _, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cookieErr != nil {
		return "", g.cookieErr
	}
	return g.cookieStore[name], nil
}

func (g *fakeGateway) ActiveTab(_ context.Context) (Tab, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeTab, nil
}

func (g *fakeGateway) QueryTabs(_ context.Context, _ string) ([]Tab, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tabs, nil
}

func (g *fakeGateway) SendToTab(_ context.Context, _ int, msg Request) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, msg)
	return nil
}

func (g *fakeGateway) ReloadTab(_ context.Context, tabID int, bypassCache bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !bypassCache {
		return errors.New("reload must bypass the cache")
	}
	g.reloads = append(g.reloads, tabID)
	return nil
}

func (g *fakeGateway) PageCookies(_ context.Context, _ int) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pageCookies, nil
}

func (g *fakeGateway) lastReadOnly(t *testing.T) bool {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].Action == ActionSetReadOnlyMode {
			require.NotNil(t, g.sent[i].Enabled)
			return *g.sent[i].Enabled
		}
	}
	t.Fatal("no read-only broadcast recorded")
	return false
}

func newTestSwitcher(t *testing.T) (*Switcher, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	switcher, err := NewSwitcher(gw, "x.com", DefaultRuleID, testLogger())
	require.NoError(t, err)
	return switcher, gw
}

func TestSwitcherActivate(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)

	token := sampleToken("t1", "acct")
	require.NoError(t, switcher.Activate(ctx, token))

	state, activeID := switcher.State()
	require.Equal(t, Overridden, state)
	require.Equal(t, "t1", activeID)

	rule, ok := gw.rules[DefaultRuleID]
	require.True(t, ok)
	require.Equal(t, "x-csrf-token", rule.Header)
	require.Equal(t, token.Data.CsrfToken, rule.Value)
	require.Equal(t, "|https://x.com/i/api/graphql/*HomeTimeline*", rule.URLFilter)
	require.Equal(t, "xmlhttprequest", rule.ResourceType)

	require.Len(t, gw.cookies, 1)
	require.Equal(t, "auth_token", gw.cookies[0].Name)
	require.Equal(t, token.Data.AuthToken, gw.cookies[0].Value)
	require.True(t, gw.cookies[0].Secure)

	require.True(t, gw.lastReadOnly(t))
	require.Equal(t, []int{1, 2}, gw.reloads)
}

func TestSwitcherReactivateReplacesRule(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)

	require.NoError(t, switcher.Activate(ctx, sampleToken("t1", "first")))
	require.NoError(t, switcher.Activate(ctx, sampleToken("t2", "second")))

	require.Len(t, gw.rules, 1)
	require.Equal(t, "csrf-t2", gw.rules[DefaultRuleID].Value)

	_, activeID := switcher.State()
	require.Equal(t, "t2", activeID)
}

func TestSwitcherClearLeavesCookie(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)

	token := sampleToken("t1", "acct")
	require.NoError(t, switcher.Activate(ctx, token))
	require.NoError(t, switcher.Clear(ctx))

	state, activeID := switcher.State()
	require.Equal(t, NoOverride, state)
	require.Empty(t, activeID)

	require.Empty(t, gw.rules)
	require.False(t, gw.lastReadOnly(t))

	// The auth cookie written on activation stays behind.
	require.Equal(t, token.Data.AuthToken, gw.cookieStore["auth_token"])
}

func TestSwitcherActivateIncompleteData(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)

	err := switcher.ActivateSession(ctx, TokenData{CsrfToken: "only-csrf"})
	require.Error(t, err)

	state, _ := switcher.State()
	require.Equal(t, NoOverride, state)
	require.Empty(t, gw.rules)
}

func TestSwitcherActivateRuleFailure(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)
	gw.ruleErr = errors.New("rules api unavailable")

	err := switcher.Activate(ctx, sampleToken("t1", "acct"))
	require.Error(t, err)

	state, _ := switcher.State()
	require.Equal(t, NoOverride, state)
	require.Empty(t, gw.cookies)
}

func TestSwitcherActivateToleratesTabFailures(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)
	gw.sendErr = errors.New("receiving end does not exist")

	require.NoError(t, switcher.Activate(ctx, sampleToken("t1", "acct")))

	state, _ := switcher.State()
	require.Equal(t, Overridden, state)
}

func TestSwitcherCaptureSession(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)
	gw.pageCookies["ct0"] = "live-csrf"
	gw.cookieStore["auth_token"] = "live-auth"

	data, err := switcher.CaptureSession(ctx)
	require.NoError(t, err)
	require.Equal(t, TokenData{CsrfToken: "live-csrf", AuthToken: "live-auth"}, data)
}

func TestSwitcherCaptureSessionWrongSite(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)
	gw.activeTab = Tab{ID: 1, URL: "https://example.com/"}

	_, err := switcher.CaptureSession(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "please navigate to x.com first")
}

func TestSwitcherCaptureSessionIncomplete(t *testing.T) {
	ctx := context.Background()
	switcher, gw := newTestSwitcher(t)
	gw.cookieStore["auth_token"] = "live-auth"
	// No ct0 page cookie present.

	_, err := switcher.CaptureSession(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "incomplete token data extracted")
}
