package auth

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database/testutil"
	"github.com/charlesng35/itemhub/internal/models"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{current: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// storeFixture bundles a SessionStore with a way to mint user ids it accepts.
type storeFixture struct {
	store   SessionStore
	newUser func() string
}

type storeFactory struct {
	name string
	open func(t *testing.T, clock *testClock) storeFixture
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: StoreDatabase, open: openGormFixture},
		{name: StoreMemory, open: openMemoryFixture},
		{name: StoreRedis, open: openRedisFixture},
		{name: StoreMongo, open: openMongoFixture},
	}
}

func openGormFixture(t *testing.T, clock *testClock) storeFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store, err := NewGormSessionStore(db, WithStoreClock(clock.Now))
	require.NoError(t, err)

	return storeFixture{
		store:   store,
		newUser: func() string { return createTestUser(t, db).ID },
	}
}

func openMemoryFixture(t *testing.T, clock *testClock) storeFixture {
	t.Helper()

	return storeFixture{
		store:   NewMemorySessionStore(WithStoreClock(clock.Now)),
		newUser: uuid.NewString,
	}
}

func openRedisFixture(t *testing.T, clock *testClock) storeFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisSessionStore(client, WithStoreClock(clock.Now))
	require.NoError(t, err)

	return storeFixture{store: store, newUser: uuid.NewString}
}

func openMongoFixture(t *testing.T, clock *testClock) storeFixture {
	t.Helper()

	uri := strings.TrimSpace(os.Getenv("TEST_MONGO_URI"))
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("itemhub_test_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
	t.Cleanup(func() {
		cleanupCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = db.Drop(cleanupCtx)
		_ = client.Disconnect(cleanupCtx)
	})

	store, err := NewMongoSessionStore(ctx, db, WithStoreClock(clock.Now))
	require.NoError(t, err)

	return storeFixture{store: store, newUser: uuid.NewString}
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := &models.User{
		Email:          uuid.NewString() + "@example.com",
		HashedPassword: "not-used",
		IsActive:       true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
