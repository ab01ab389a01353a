package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database/testutil"
	"github.com/charlesng35/itemhub/internal/models"
)

type recordingRevoker struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingRevoker) RevokeUserSessions(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func mustCreateUser(t *testing.T, svc *UserService, email string, superuser bool) *models.User {
	t.Helper()

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:       email,
		Password:    "password123",
		IsSuperuser: superuser,
	})
	require.NoError(t, err)
	return user
}
