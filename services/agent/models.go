// Package agent hosts the extension-side components: the token manager with
// its local cache, the feed switch controller, the read-only presenter, and
// the message dispatcher that binds them to the extension message channel.
package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TokenData is the credential pair captured from a live session.
type TokenData struct {
	CsrfToken string `json:"csrfToken"`
	AuthToken string `json:"authToken"`
}

// Token is a locally known snapshot of a stored account token. IDs are
// strings: server-assigned UUIDs normally, locally generated ones when a
// token was saved while the backend was unreachable.
type Token struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Data      TokenData `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

// User mirrors a backend user record.
type User struct {
	UserID    string    `json:"userId"`
	DeviceID  string    `json:"deviceId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedSelection is the SET_ACTIVE_FEED payload: either the literal "my"
// (restore the real session) or a credential pair to impersonate.
type FeedSelection struct {
	My   bool
	Data *TokenData
}

func (f FeedSelection) MarshalJSON() ([]byte, error) {
	if f.My {
		return json.Marshal("my")
	}
	return json.Marshal(f.Data)
}

func (f *FeedSelection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != "my" {
			return fmt.Errorf("unknown feed selection %q", s)
		}
		f.My = true
		f.Data = nil
		return nil
	}

	var data TokenData
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	f.My = false
	f.Data = &data
	return nil
}

// ErrTokenNotFound reports a token id unknown to both the backend and the
// local cache.
var ErrTokenNotFound = errors.New("token not found")
