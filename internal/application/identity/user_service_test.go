package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserStore is a mock implementation of shared.Store for users
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Load(ctx context.Context) ([]identity.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserStore) Save(ctx context.Context, users []identity.User) error {
	args := m.Called(ctx, users)
	return args.Error(0)
}

func newUserStore(t *testing.T) *persistence.EntityStore[identity.User] {
	t.Helper()
	backend, err := persistence.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return persistence.NewEntityStore[identity.User](Collection, backend, nil, nil)
}

func newUserService(t *testing.T, store shared.Store[identity.User]) *UserService {
	t.Helper()
	svc := NewUserService(store, bcrypt.MinCost, nil)
	svc.Load(context.Background())
	return svc
}

func TestUserService_AddUser(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newUserStore(t))

	user, err := svc.AddUser(ctx, NewUserInput{Username: " ann ", Password: "secret", IsManager: true})
	require.NoError(t, err)

	assert.Equal(t, "ann", user.Username)
	assert.True(t, user.IsManager)
	assert.NotEqual(t, "secret", user.PasswordHash)
	assert.True(t, user.VerifyPassword("secret"))

	t.Run("rejects duplicate username", func(t *testing.T) {
		_, err := svc.AddUser(ctx, NewUserInput{Username: "ann", Password: "other"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.Len(t, svc.All(), 1)
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		_, err := svc.AddUser(ctx, NewUserInput{Username: "", Password: "x"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = svc.AddUser(ctx, NewUserInput{Username: "   ", Password: "x"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = svc.AddUser(ctx, NewUserInput{Username: "bob", Password: ""})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestUserService_Persistence(t *testing.T) {
	ctx := context.Background()
	store := newUserStore(t)
	svc := newUserService(t, store)

	ann, err := svc.AddUser(ctx, NewUserInput{Username: "ann", Password: "secret"})
	require.NoError(t, err)
	_, err = svc.AddUser(ctx, NewUserInput{Username: "bob", Password: "hunter2"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveUser(ctx, "bob"))

	reloaded := newUserService(t, store)

	require.Len(t, reloaded.All(), 1)
	got, ok := reloaded.FindUser("ann")
	require.True(t, ok)
	assert.Equal(t, ann.ID, got.ID)
	assert.True(t, got.VerifyPassword("secret"))
	_, ok = reloaded.FindUser("bob")
	assert.False(t, ok)
}

func TestUserService_RemoveUser_Missing(t *testing.T) {
	svc := newUserService(t, newUserStore(t))

	assert.ErrorIs(t, svc.RemoveUser(context.Background(), "ghost"), shared.ErrNotFound)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t, newUserStore(t))
	_, err := svc.AddUser(ctx, NewUserInput{Username: "ann", Password: "old"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, "ann", "new"))

	got, _ := svc.FindUser("ann")
	assert.True(t, got.VerifyPassword("new"))
	assert.False(t, got.VerifyPassword("old"))

	assert.ErrorIs(t, svc.ChangePassword(ctx, "ghost", "x"), shared.ErrNotFound)
	assert.ErrorIs(t, svc.ChangePassword(ctx, "ann", ""), shared.ErrInvalidInput)
}

func TestUserService_SaveFailure(t *testing.T) {
	store := new(MockUserStore)
	store.On("Load", mock.Anything).Return([]identity.User{}, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: read-only", shared.ErrPersistence))
	svc := newUserService(t, store)

	_, err := svc.AddUser(context.Background(), NewUserInput{Username: "ann", Password: "secret"})

	assert.ErrorIs(t, err, shared.ErrPersistence)
	assert.Empty(t, svc.All())
	store.AssertExpectations(t)
}
