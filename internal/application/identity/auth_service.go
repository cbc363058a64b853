package identity

import (
	"context"

	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// UserFinder looks users up by username
type UserFinder interface {
	FindUser(username string) (identity.User, bool)
}

// AuthService handles authentication operations
type AuthService struct {
	users  UserFinder
	logger *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users UserFinder, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		logger: logger,
	}
}

// Login verifies the credentials and returns the stored user. Unknown users
// and wrong passwords fail alike with shared.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (identity.User, error) {
	_, span := telemetry.StartServiceSpan(ctx, "AuthService", "Login",
		telemetry.WithAttribute(telemetry.SpanAttrCashier, input.Username))
	defer span.End()

	s.logger.Info("Login attempt", zap.String("username", input.Username))

	user, ok := s.users.FindUser(input.Username)
	if !ok {
		s.logger.Warn("User not found during login", zap.String("username", input.Username))
		telemetry.RecordError(span, shared.ErrInvalidCredentials)
		return identity.User{}, shared.ErrInvalidCredentials
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password", zap.String("username", input.Username))
		telemetry.RecordError(span, shared.ErrInvalidCredentials)
		return identity.User{}, shared.ErrInvalidCredentials
	}

	s.logger.Info("Login successful",
		zap.String("username", user.Username),
		zap.String("role", user.Role()),
	)
	telemetry.SetOK(span)
	return user, nil
}
