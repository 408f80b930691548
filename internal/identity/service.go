// Package identity implements login, user registration and user management.
// Authentication is deliberately permissive: configured admin and user
// accounts log in with their fixed credentials, known users must present the
// right password, and any other non-empty credential pair auto-registers a
// regular user.
package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// AdminAccount is a configured administrator allow-list entry.
type AdminAccount struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
}

// UserAccount is a configured regular-user allow-list entry.
type UserAccount struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
}

type fixedAccount struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Role        domain.Role
}

// Authenticator issues tokens for logged-in users.
type Authenticator interface {
	GenerateToken(ctx context.Context, username string, role domain.Role) (string, error)
}

// Service implements identity business logic.
type Service struct {
	store *Store
	auth  Authenticator
	fixed map[string]fixedAccount
	now   func() time.Time
}

// NewService creates a new identity service. Admin entries win when both
// lists carry the same username.
func NewService(store *Store, auth Authenticator, admins []AdminAccount, users []UserAccount) *Service {
	fixed := make(map[string]fixedAccount, len(admins)+len(users))
	for _, u := range users {
		fixed[normalizeUsername(u.Username)] = fixedAccount{
			Username:    u.Username,
			Password:    u.Password,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Role:        domain.RoleUser,
		}
	}
	for _, a := range admins {
		fixed[normalizeUsername(a.Username)] = fixedAccount{
			Username:    a.Username,
			Password:    a.Password,
			DisplayName: a.DisplayName,
			Email:       a.Email,
			Role:        domain.RoleAdmin,
		}
	}
	return &Service{
		store: store,
		auth:  auth,
		fixed: fixed,
		now:   time.Now,
	}
}

// LoginInput holds login credentials.
type LoginInput struct {
	Username string
	Password string
}

// Login authenticates the credentials and returns the user with a bearer
// token. Unknown non-empty credentials register a new regular user.
func (s *Service) Login(ctx context.Context, input LoginInput) (domain.User, string, error) {
	username := normalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return domain.User{}, "", ErrInvalidCredentials
	}

	if acct, ok := s.fixed[username]; ok {
		if subtle.ConstantTimeCompare([]byte(acct.Password), []byte(input.Password)) != 1 {
			return domain.User{}, "", ErrInvalidCredentials
		}
		user, err := s.ensureFixedUser(ctx, acct)
		if err != nil {
			return domain.User{}, "", err
		}
		return s.issueToken(ctx, user)
	}

	user, err := s.store.Get(username)
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
			return domain.User{}, "", ErrInvalidCredentials
		}
		return s.issueToken(ctx, user)
	}

	user, err = s.register(ctx, username, input.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	return s.issueToken(ctx, user)
}

// GetUser returns a user by username.
func (s *Service) GetUser(_ context.Context, username string) (domain.User, error) {
	return s.store.Get(normalizeUsername(username))
}

// ListUsers returns all registered users.
func (s *Service) ListUsers(context.Context) []domain.User {
	return s.store.List()
}

// UpdateRole changes a user's role. Configured admin accounts are immutable.
func (s *Service) UpdateRole(ctx context.Context, username string, role domain.Role) (domain.User, error) {
	username = normalizeUsername(username)
	if acct, ok := s.fixed[username]; ok && acct.Role == domain.RoleAdmin {
		return domain.User{}, ErrCannotModifyAdmin
	}

	user, err := s.store.Get(username)
	if err != nil {
		return domain.User{}, err
	}

	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.store.Put(ctx, user); err != nil {
		return domain.User{}, err
	}

	ctxlog.FromContext(ctx).Info("user role updated", "username", username, "role", role)
	return user, nil
}

// DeleteUser removes a registered user. Configured admin accounts are
// immutable.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	username = normalizeUsername(username)
	if acct, ok := s.fixed[username]; ok && acct.Role == domain.RoleAdmin {
		return ErrCannotModifyAdmin
	}
	return s.store.Delete(ctx, username)
}

func (s *Service) register(ctx context.Context, username, password string) (domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		Username:     username,
		DisplayName:  username,
		Role:         domain.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Put(ctx, user); err != nil {
		return domain.User{}, err
	}

	ctxlog.FromContext(ctx).Info("user auto-registered", "username", username)
	return user, nil
}

func (s *Service) ensureFixedUser(ctx context.Context, acct fixedAccount) (domain.User, error) {
	username := normalizeUsername(acct.Username)
	user, err := s.store.Get(username)
	if err == nil {
		return user, nil
	}

	now := s.now()
	user = domain.User{
		Username:    username,
		DisplayName: acct.DisplayName,
		Email:       acct.Email,
		Role:        acct.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if user.DisplayName == "" {
		user.DisplayName = username
	}
	if err := s.store.Put(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) issueToken(ctx context.Context, user domain.User) (domain.User, string, error) {
	token, err := s.auth.GenerateToken(ctx, user.Username, user.Role)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// normalizeUsername applies NFC normalization so visually identical
// usernames map to one account.
func normalizeUsername(username string) string {
	return norm.NFC.String(username)
}
