package api

import (
	"time"

	"github.com/google/uuid"
)

// User maps a client-generated device id to a server-side identity.
type User struct {
	UserID    uuid.UUID `json:"userId" db:"id"`
	DeviceID  string    `json:"deviceId" db:"device_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TokenData is the credential pair representing one external account's
// login session.
type TokenData struct {
	CsrfToken string `json:"csrfToken"`
	AuthToken string `json:"authToken"`
}

// Token is a named credential pair owned by a user.
type Token struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Data      TokenData  `json:"data"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
