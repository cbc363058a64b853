package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/erp/pos/internal/application/validation"
	"github.com/erp/pos/internal/domain/identity"
	"github.com/erp/pos/internal/domain/shared"
	"github.com/erp/pos/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// Collection is the name users are persisted under
const Collection = "users"

// UserService owns the user collection. Usernames are unique and compared
// exactly, after trimming surrounding whitespace.
type UserService struct {
	mu         sync.Mutex
	store      shared.Store[identity.User]
	users      []identity.User
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService creates a new UserService. A zero bcryptCost selects
// identity.DefaultBcryptCost.
func NewUserService(store shared.Store[identity.User], bcryptCost int, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = identity.DefaultBcryptCost
	}
	return &UserService{
		store:      store,
		users:      []identity.User{},
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Load replaces the in-memory users with the persisted ones
func (s *UserService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	persistence.LogLoadWarning(s.logger, Collection, err)
	if users == nil {
		users = []identity.User{}
	}
	s.users = users
}

// AddUser creates a user with a bcrypt hash of the password
func (s *UserService) AddUser(ctx context.Context, input NewUserInput) (identity.User, error) {
	if err := validation.Struct(input); err != nil {
		return identity.User{}, err
	}

	user, err := identity.NewUser(input.Username, input.Password, input.IsManager, s.bcryptCost)
	if err != nil {
		return identity.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(user.Username) >= 0 {
		return identity.User{}, shared.NewDomainErrorf(shared.CodeAlreadyExists, "User %q already exists", user.Username)
	}

	next := append(s.snapshot(), *user)
	if err := s.commit(ctx, next); err != nil {
		return identity.User{}, err
	}

	s.logger.Info("User added",
		zap.String("username", user.Username),
		zap.String("role", user.Role()),
	)
	return *user, nil
}

// RemoveUser removes the user called username
func (s *UserService) RemoveUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(username)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "User %q not found", username)
	}

	next := s.snapshot()
	next = append(next[:idx], next[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("User removed", zap.String("username", username))
	return nil
}

// FindUser looks a user up by username
func (s *UserService) FindUser(username string) (identity.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(username)
	if idx < 0 {
		return identity.User{}, false
	}
	return s.users[idx], true
}

// All returns a copy of the users
func (s *UserService) All() []identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// ChangePassword replaces the password of the user called username
func (s *UserService) ChangePassword(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(username)
	if idx < 0 {
		return shared.NewDomainErrorf(shared.CodeNotFound, "User %q not found", username)
	}

	user := s.users[idx]
	if err := user.SetPassword(password, s.bcryptCost); err != nil {
		return err
	}

	next := s.snapshot()
	next[idx] = user
	if err := s.commit(ctx, next); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("username", user.Username))
	return nil
}

// commit must be called with mu held
func (s *UserService) commit(ctx context.Context, next []identity.User) error {
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("Failed to persist users", zap.Error(err))
		return err
	}
	s.users = next
	return nil
}

func (s *UserService) indexOf(username string) int {
	username = strings.TrimSpace(username)
	for i := range s.users {
		if s.users[i].Username == username {
			return i
		}
	}
	return -1
}

func (s *UserService) snapshot() []identity.User {
	out := make([]identity.User, len(s.users))
	copy(out, s.users)
	return out
}
