package room

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shoutwars/server/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("Alice")
	require.NoError(t, err)

	assert.Equal(t, "Alice", u.Name())
	assert.NotEqual(t, uuid.Nil, u.ID())
	assert.Equal(t, uuid.Nil, u.LastSyncID(), "fresh user has no cursor")
	assert.WithinDuration(t, time.Now(), u.LastTime(), time.Second)
}

func TestNewUserNameValidation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		wantErr  string
	}{
		{"empty", "", "Invalid user name length: 0. Must be between 1 and 32."},
		{"too long", strings.Repeat("a", 33), "Invalid user name length: 33. Must be between 1 and 32."},
		{"max length ok", strings.Repeat("a", 32), ""},
		{"single char ok", "a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.userName)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}

func TestUpdateLast(t *testing.T) {
	u, err := NewUser("Alice")
	require.NoError(t, err)

	before := u.LastTime()
	syncID := types.NewID()
	time.Sleep(time.Millisecond)
	u.UpdateLast(syncID)

	assert.Equal(t, syncID, u.LastSyncID())
	assert.True(t, u.LastTime().After(before))
}
