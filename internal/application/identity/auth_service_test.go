package identity

import (
	"context"
	"testing"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	users := newUserService(t, newUserStore(t))
	_, err := users.AddUser(ctx, NewUserInput{Username: "boss", Password: "s3cret", IsManager: true})
	require.NoError(t, err)
	_, err = users.AddUser(ctx, NewUserInput{Username: "till", Password: "pw"})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	auth := NewAuthService(users, zap.New(core))

	tests := []struct {
		name      string
		input     LoginInput
		wantErr   error
		isManager bool
	}{
		{name: "manager", input: LoginInput{Username: "boss", Password: "s3cret"}, isManager: true},
		{name: "cashier", input: LoginInput{Username: "till", Password: "pw"}},
		{name: "wrong password", input: LoginInput{Username: "boss", Password: "S3CRET"}, wantErr: shared.ErrInvalidCredentials},
		{name: "unknown user", input: LoginInput{Username: "ghost", Password: "pw"}, wantErr: shared.ErrInvalidCredentials},
		{name: "empty password", input: LoginInput{Username: "till", Password: ""}, wantErr: shared.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := auth.Login(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, user.Username)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input.Username, user.Username)
			assert.Equal(t, tt.isManager, user.IsManager)
		})
	}

	assert.Equal(t, 2, logs.FilterMessage("Login successful").Len())
	assert.Equal(t, 3, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
