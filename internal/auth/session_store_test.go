package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionStores(t *testing.T) {
	for _, factory := range storeFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			t.Run("create and find", func(t *testing.T) { testStoreCreateAndFind(t, factory) })
			t.Run("duplicate token", func(t *testing.T) { testStoreDuplicateToken(t, factory) })
			t.Run("expired is absent", func(t *testing.T) { testStoreExpiredIsAbsent(t, factory) })
			t.Run("take is single use", func(t *testing.T) { testStoreTakeSingleUse(t, factory) })
			t.Run("concurrent take", func(t *testing.T) { testStoreConcurrentTake(t, factory) })
			t.Run("delete by token", func(t *testing.T) { testStoreDeleteByToken(t, factory) })
			t.Run("list and delete by user", func(t *testing.T) { testStoreListAndDeleteByUser(t, factory) })
			t.Run("delete expired", func(t *testing.T) { testStoreDeleteExpired(t, factory) })
		})
	}
}

func newStoreClock() *testClock {
	return newTestClock(time.Now().UTC().Truncate(time.Second))
}

func testStoreCreateAndFind(t *testing.T, factory storeFactory) {
	clock := newStoreClock()
	fx := factory.open(t, clock)
	ctx := context.Background()
	userID := fx.newUser()

	created, err := fx.store.Create(ctx, userID, "token-1", "device-a", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.True(t, created.ExpiresAt.Equal(clock.Now().Add(time.Hour)))

	found, err := fx.store.FindByToken(ctx, "token-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, userID, found.UserID)
	require.Equal(t, "token-1", found.RefreshToken)
	require.Equal(t, "device-a", found.Fingerprint)

	active, err := fx.store.FindActive(ctx, userID, "device-a")
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, "token-1", active.RefreshToken)

	other, err := fx.store.FindActive(ctx, userID, "device-b")
	require.NoError(t, err)
	require.Nil(t, other)

	missing, err := fx.store.FindByToken(ctx, "token-unknown")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func testStoreDuplicateToken(t *testing.T, factory storeFactory) {
	fx := factory.open(t, newStoreClock())
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "token-dup", "device-a", time.Hour)
	require.NoError(t, err)

	_, err = fx.store.Create(ctx, userID, "token-dup", "device-b", time.Hour)
	require.ErrorIs(t, err, ErrDuplicateToken)
}

func testStoreExpiredIsAbsent(t *testing.T, factory storeFactory) {
	clock := newStoreClock()
	fx := factory.open(t, clock)
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "token-exp", "device-a", time.Hour)
	require.NoError(t, err)

	clock.Advance(time.Hour)

	found, err := fx.store.FindByToken(ctx, "token-exp")
	require.NoError(t, err)
	require.Nil(t, found)

	active, err := fx.store.FindActive(ctx, userID, "device-a")
	require.NoError(t, err)
	require.Nil(t, active)

	sessions, err := fx.store.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, sessions)

	taken, err := fx.store.TakeByToken(ctx, "token-exp")
	require.NoError(t, err)
	require.NotNil(t, taken)
	require.True(t, taken.IsExpired(clock.Now()))

	again, err := fx.store.TakeByToken(ctx, "token-exp")
	require.NoError(t, err)
	require.Nil(t, again)
}

func testStoreTakeSingleUse(t *testing.T, factory storeFactory) {
	fx := factory.open(t, newStoreClock())
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "token-take", "device-a", time.Hour)
	require.NoError(t, err)

	taken, err := fx.store.TakeByToken(ctx, "token-take")
	require.NoError(t, err)
	require.NotNil(t, taken)
	require.Equal(t, userID, taken.UserID)
	require.Equal(t, "device-a", taken.Fingerprint)

	again, err := fx.store.TakeByToken(ctx, "token-take")
	require.NoError(t, err)
	require.Nil(t, again)

	found, err := fx.store.FindByToken(ctx, "token-take")
	require.NoError(t, err)
	require.Nil(t, found)

	active, err := fx.store.FindActive(ctx, userID, "device-a")
	require.NoError(t, err)
	require.Nil(t, active)
}

func testStoreConcurrentTake(t *testing.T, factory storeFactory) {
	fx := factory.open(t, newStoreClock())
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "token-race", "device-a", time.Hour)
	require.NoError(t, err)

	const callers = 8
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		start   = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			session, err := fx.store.TakeByToken(ctx, "token-race")
			if err == nil && session != nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int32(1), winners.Load())
}

func testStoreDeleteByToken(t *testing.T, factory storeFactory) {
	fx := factory.open(t, newStoreClock())
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "token-del", "device-a", time.Hour)
	require.NoError(t, err)

	require.NoError(t, fx.store.DeleteByToken(ctx, "token-del"))
	require.NoError(t, fx.store.DeleteByToken(ctx, "token-del"))
	require.NoError(t, fx.store.DeleteByToken(ctx, uuid.NewString()))

	found, err := fx.store.FindByToken(ctx, "token-del")
	require.NoError(t, err)
	require.Nil(t, found)
}

func testStoreListAndDeleteByUser(t *testing.T, factory storeFactory) {
	clock := newStoreClock()
	fx := factory.open(t, clock)
	ctx := context.Background()
	alice := fx.newUser()
	bob := fx.newUser()

	_, err := fx.store.Create(ctx, alice, "alice-1", "laptop", time.Hour)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = fx.store.Create(ctx, alice, "alice-2", "phone", time.Hour)
	require.NoError(t, err)
	_, err = fx.store.Create(ctx, bob, "bob-1", "laptop", time.Hour)
	require.NoError(t, err)

	sessions, err := fx.store.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "alice-2", sessions[0].RefreshToken)
	require.Equal(t, "alice-1", sessions[1].RefreshToken)

	removed, err := fx.store.DeleteByUser(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	sessions, err = fx.store.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, sessions)

	remaining, err := fx.store.FindByToken(ctx, "bob-1")
	require.NoError(t, err)
	require.NotNil(t, remaining)
}

func testStoreDeleteExpired(t *testing.T, factory storeFactory) {
	clock := newStoreClock()
	fx := factory.open(t, clock)
	ctx := context.Background()
	userID := fx.newUser()

	_, err := fx.store.Create(ctx, userID, "short", "device-a", time.Hour)
	require.NoError(t, err)
	_, err = fx.store.Create(ctx, userID, "long", "device-b", 3*time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	removed, err := fx.store.DeleteExpired(ctx, clock.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	found, err := fx.store.FindByToken(ctx, "long")
	require.NoError(t, err)
	require.NotNil(t, found)

	removed, err = fx.store.DeleteExpired(ctx, clock.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}
