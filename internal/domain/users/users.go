package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserIDEmpty     = errors.New("user id is empty")
	ErrUserLoginEmpty  = errors.New("user login is empty")
	ErrUserPasswdEmpty = errors.New("user password is empty")
)

// User is a registered account. The ID is the store-assigned durable
// identifier (UUID form) used as the JWT subject; guests never get one.
type User struct {
	id           string
	login        string
	passwordHash string
}

// CreateUser builds a new user from raw credentials, assigning a fresh
// durable identifier and hashing the password.
func CreateUser(login, password string) (*User, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	if password == "" {
		return nil, ErrUserPasswdEmpty
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword: %w", err)
	}

	return &User{
		id:           uuid.NewString(),
		login:        login,
		passwordHash: string(hash),
	}, nil
}

// NewUser restores a user from stored fields.
func NewUser(id, login, passwordHash string) (*User, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	return &User{
		id:           id,
		login:        login,
		passwordHash: passwordHash,
	}, nil
}

func (u *User) ID() string {
	return u.id
}

func (u *User) Login() string {
	return u.login
}

func (u *User) PasswordHash() string {
	return u.passwordHash
}

func ValidateLogin(login string) error {
	if login == "" {
		return ErrUserLoginEmpty
	}

	return nil
}

func ValidateID(id string) error {
	if id == "" {
		return ErrUserIDEmpty
	}

	return nil
}

// VIPStatus is a user's VIP tier with its expiry. The zero value means
// no VIP.
type VIPStatus struct {
	tier      string
	expiresAt time.Time
}

func NewVIPStatus(tier string, expiresAt time.Time) VIPStatus {
	return VIPStatus{
		tier:      tier,
		expiresAt: expiresAt,
	}
}

func (v VIPStatus) Tier() string {
	return v.tier
}

func (v VIPStatus) ExpiresAt() time.Time {
	return v.expiresAt
}

// Active reports whether the tier is set and not yet expired.
func (v VIPStatus) Active(now time.Time) bool {
	return v.tier != "" && now.Before(v.expiresAt)
}
