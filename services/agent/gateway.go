package agent

import (
	"context"
	"errors"
	"fmt"

	"feedswitch/pkg/bus"
)

// Tab identifies one open browser tab.
type Tab struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// HeaderRule is a declarative header-rewrite rule. Installing a rule with an
// id that already exists replaces the previous rule.
type HeaderRule struct {
	ID           int    `json:"id"`
	Header       string `json:"header"`
	Value        string `json:"value"`
	URLFilter    string `json:"urlFilter"`
	ResourceType string `json:"resourceType"`
}

// Cookie describes a browser cookie write.
type Cookie struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	SameSite string `json:"sameSite"`
}

// Gateway abstracts the host browser APIs the switch controller depends on,
// so the switching logic is testable without a real browser.
type Gateway interface {
	SetHeaderRule(ctx context.Context, rule HeaderRule) error
	ClearHeaderRule(ctx context.Context, ruleID int) error
	SetCookie(ctx context.Context, cookie Cookie) error
	ReadCookie(ctx context.Context, url, name string) (string, error)
	ActiveTab(ctx context.Context) (Tab, error)
	QueryTabs(ctx context.Context, urlPattern string) ([]Tab, error)
	SendToTab(ctx context.Context, tabID int, msg Request) error
	ReloadTab(ctx context.Context, tabID int, bypassCache bool) error
	PageCookies(ctx context.Context, tabID int) (map[string]string, error)
}

// Host command subjects answered by the browser-side shim.
const (
	hostRuleSetSubject     = "feedswitch.host.v1.rules.set"
	hostRuleClearSubject   = "feedswitch.host.v1.rules.clear"
	hostCookieSetSubject   = "feedswitch.host.v1.cookies.set"
	hostCookieGetSubject   = "feedswitch.host.v1.cookies.get"
	hostTabsActiveSubject  = "feedswitch.host.v1.tabs.active"
	hostTabsQuerySubject   = "feedswitch.host.v1.tabs.query"
	hostTabsSendSubject    = "feedswitch.host.v1.tabs.send"
	hostTabsReloadSubject  = "feedswitch.host.v1.tabs.reload"
	hostPageCookiesSubject = "feedswitch.host.v1.tabs.cookies"
)

type hostReply struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Value   string            `json:"value,omitempty"`
	Tab     *Tab              `json:"tab,omitempty"`
	Tabs    []Tab             `json:"tabs,omitempty"`
	Cookies map[string]string `json:"cookies,omitempty"`
}

// BusGateway executes host calls over the message bus; the browser-side shim
// subscribes to the host subjects and answers with a hostReply.
type BusGateway struct {
	bus *bus.Bus
}

// NewBusGateway returns a Gateway backed by the provided bus.
func NewBusGateway(b *bus.Bus) (*BusGateway, error) {
	if b == nil {
		return nil, errors.New("bus is required")
	}
	return &BusGateway{bus: b}, nil
}

func (g *BusGateway) call(ctx context.Context, subject string, payload any) (hostReply, error) {
	var reply hostReply
	if err := g.bus.Request(ctx, subject, payload, &reply); err != nil {
		return hostReply{}, err
	}
	if !reply.Success {
		if reply.Error == "" {
			reply.Error = "host call failed"
		}
		return hostReply{}, fmt.Errorf("%s: %s", subject, reply.Error)
	}
	return reply, nil
}

func (g *BusGateway) SetHeaderRule(ctx context.Context, rule HeaderRule) error {
	_, err := g.call(ctx, hostRuleSetSubject, rule)
	return err
}

func (g *BusGateway) ClearHeaderRule(ctx context.Context, ruleID int) error {
	_, err := g.call(ctx, hostRuleClearSubject, map[string]int{"id": ruleID})
	return err
}

func (g *BusGateway) SetCookie(ctx context.Context, cookie Cookie) error {
	_, err := g.call(ctx, hostCookieSetSubject, cookie)
	return err
}

func (g *BusGateway) ReadCookie(ctx context.Context, url, name string) (string, error) {
	reply, err := g.call(ctx, hostCookieGetSubject, map[string]string{"url": url, "name": name})
	if err != nil {
		return "", err
	}
	return reply.Value, nil
}

func (g *BusGateway) ActiveTab(ctx context.Context) (Tab, error) {
	reply, err := g.call(ctx, hostTabsActiveSubject, map[string]any{})
	if err != nil {
		return Tab{}, err
	}
	if reply.Tab == nil {
		return Tab{}, errors.New("no active tab")
	}
	return *reply.Tab, nil
}

func (g *BusGateway) QueryTabs(ctx context.Context, urlPattern string) ([]Tab, error) {
	reply, err := g.call(ctx, hostTabsQuerySubject, map[string]string{"url": urlPattern})
	if err != nil {
		return nil, err
	}
	return reply.Tabs, nil
}

func (g *BusGateway) SendToTab(ctx context.Context, tabID int, msg Request) error {
	_, err := g.call(ctx, hostTabsSendSubject, map[string]any{"tabId": tabID, "message": msg})
	return err
}

func (g *BusGateway) ReloadTab(ctx context.Context, tabID int, bypassCache bool) error {
	_, err := g.call(ctx, hostTabsReloadSubject, map[string]any{"tabId": tabID, "bypassCache": bypassCache})
	return err
}

func (g *BusGateway) PageCookies(ctx context.Context, tabID int) (map[string]string, error) {
	reply, err := g.call(ctx, hostPageCookiesSubject, map[string]int{"tabId": tabID})
	if err != nil {
		return nil, err
	}
	return reply.Cookies, nil
}
