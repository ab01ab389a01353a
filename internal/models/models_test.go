package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBeforeCreateAssignsTimeOrderedIDs(t *testing.T) {
	first := &User{}
	second := &Item{}
	session := &RefreshSession{}

	require.NoError(t, first.BeforeCreate(nil))
	require.NoError(t, second.BeforeCreate(nil))
	require.NoError(t, session.BeforeCreate(nil))

	for _, id := range []string{first.ID, second.ID, session.ID} {
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(7), parsed.Version())
	}
	require.Less(t, first.ID, second.ID)
	require.Less(t, second.ID, session.ID)
}

func TestBeforeCreateKeepsExistingID(t *testing.T) {
	user := &User{BaseModel: BaseModel{ID: "fixed"}}
	require.NoError(t, user.BeforeCreate(nil))
	require.Equal(t, "fixed", user.ID)

	session := &RefreshSession{ID: "kept"}
	require.NoError(t, session.BeforeCreate(nil))
	require.Equal(t, "kept", session.ID)
}

func TestRefreshSessionExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	session := &RefreshSession{ExpiresAt: now}

	require.True(t, session.IsExpired(now), "a session expiring exactly now is expired")
	require.False(t, session.IsExpired(now.Add(-time.Second)))
}

func TestRateCounterWindowClosed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	counter := &RateCounter{Key: "login|10.0.0.1", Hits: 3, ExpiresAt: now.Add(time.Second)}

	require.False(t, counter.WindowClosed(now))
	require.True(t, counter.WindowClosed(now.Add(time.Second)))
}

func TestUserIsLocked(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Minute)

	var nilUser *User
	require.False(t, nilUser.IsLocked(now))
	require.False(t, (&User{}).IsLocked(now))
	require.True(t, (&User{LockedUntil: &until}).IsLocked(now))
	require.False(t, (&User{LockedUntil: &until}).IsLocked(until), "lockout ends at LockedUntil")
}
