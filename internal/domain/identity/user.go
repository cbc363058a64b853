package identity

import (
	"strings"

	"github.com/erp/pos/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt cost used when none is configured
const DefaultBcryptCost = 12

// User is an operator of the point of sale. Managers get the back-office
// view, everybody else the cashier view.
type User struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Username     string    `json:"username" yaml:"username"`
	PasswordHash string    `json:"password_hash" yaml:"password_hash"`
	IsManager    bool      `json:"is_manager" yaml:"is_manager"`
}

// NewUser creates a user, storing a salted bcrypt hash of password.
func NewUser(username, password string, isManager bool, cost int) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password, cost)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		IsManager:    isManager,
	}, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// SetPassword replaces the stored hash
func (u *User) SetPassword(password string, cost int) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// Role returns "manager" or "cashier"
func (u *User) Role() string {
	if u.IsManager {
		return "manager"
	}
	return "cashier"
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Username cannot be empty")
	}
	if len(username) > 100 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Username cannot exceed 100 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Password cannot be empty")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Password cannot exceed 72 bytes")
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
