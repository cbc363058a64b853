package identity

import (
	"strings"
	"testing"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		user, err := NewUser("alice", "s3cret", true, bcrypt.MinCost)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "s3cret", user.PasswordHash)
		assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
		assert.True(t, user.IsManager)
		assert.Equal(t, "manager", user.Role())
	})

	t.Run("hashes are salted", func(t *testing.T) {
		a, err := NewUser("a", "same", false, bcrypt.MinCost)
		require.NoError(t, err)
		b, err := NewUser("b", "same", false, bcrypt.MinCost)
		require.NoError(t, err)

		assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
	})

	t.Run("fails with empty username", func(t *testing.T) {
		_, err := NewUser(" ", "pw", false, bcrypt.MinCost)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("fails with empty password", func(t *testing.T) {
		_, err := NewUser("bob", "", false, bcrypt.MinCost)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("fails with overlong password", func(t *testing.T) {
		_, err := NewUser("bob", strings.Repeat("x", 73), false, bcrypt.MinCost)

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestUser_VerifyPassword(t *testing.T) {
	user, err := NewUser("carol", "correct horse", false, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, user.VerifyPassword("correct horse"))
	assert.False(t, user.VerifyPassword("Correct horse"))
	assert.False(t, user.VerifyPassword(""))
	assert.Equal(t, "cashier", user.Role())
}

func TestUser_SetPassword(t *testing.T) {
	user, err := NewUser("dave", "old", false, bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, user.SetPassword("new", bcrypt.MinCost))

	assert.True(t, user.VerifyPassword("new"))
	assert.False(t, user.VerifyPassword("old"))
	assert.ErrorIs(t, user.SetPassword("", bcrypt.MinCost), shared.ErrInvalidInput)
}
