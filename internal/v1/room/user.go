package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/apierr"
	"github.com/shoutwars/server/internal/v1/types"
)

// UserNameMaxLength is the maximum display name length.
const UserNameMaxLength = 32

// User is a room membership record. It is mutable but not thread-safe;
// all mutation happens under the owning room's lock.
type User struct {
	id         uuid.UUID
	name       string
	lastSyncID uuid.UUID // cursor: highest record id consumed, uuid.Nil when fresh
	lastTime   time.Time
}

// NewUser creates a user with a fresh id and a validated display name.
func NewUser(name string) (*User, error) {
	u := &User{id: types.NewID(), lastTime: time.Now()}
	if err := u.SetName(name); err != nil {
		return nil, err
	}
	return u, nil
}

// ID returns the user's id.
func (u *User) ID() uuid.UUID {
	return u.id
}

// Name returns the display name.
func (u *User) Name() string {
	return u.name
}

// SetName validates and updates the display name.
func (u *User) SetName(name string) error {
	if len(name) == 0 || len(name) > UserNameMaxLength {
		return apierr.BadRequestf("Invalid user name length: %d. Must be between 1 and 32.", len(name))
	}
	u.name = name
	return nil
}

// LastSyncID returns the cursor, uuid.Nil when the user has consumed nothing.
func (u *User) LastSyncID() uuid.UUID {
	return u.lastSyncID
}

// LastTime returns the instant of the last successful sync.
func (u *User) LastTime() time.Time {
	return u.lastTime
}

// UpdateLast moves the cursor and refreshes the last-seen instant.
func (u *User) UpdateLast(syncID uuid.UUID) {
	u.lastSyncID = syncID
	u.lastTime = time.Now()
}

// UserInfo is an immutable snapshot of a user, safe to share outside the
// room lock.
type UserInfo struct {
	ID         uuid.UUID
	Name       string
	LastSyncID uuid.UUID
	LastTime   time.Time
}

func (u *User) info() UserInfo {
	return UserInfo{ID: u.id, Name: u.name, LastSyncID: u.lastSyncID, LastTime: u.lastTime}
}
