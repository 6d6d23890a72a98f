package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dermacare/go-derma-backend/internal/domain"
	"github.com/dermacare/go-derma-backend/internal/repo"
)

// AuthService implements account signup, login and logout on top of the
// relational store. Passwords are hashed with bcrypt and never stored or
// logged in clear text.
type AuthService struct {
	DB *gorm.DB
}

// NewAuthService constructs an AuthService backed by db.
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{DB: db}
}

// Signup registers a new account. Email is normalized to lower case before
// uniqueness is checked. Returns ErrMissingFields when any field is empty and
// ErrEmailTaken when the email is already registered.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(email, "@") {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := repo.CreateUser(ctx, s.DB, email, string(hash), name)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and opens a new auth session. The returned
// session token identifies the user on subsequent requests. Unknown emails
// and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthSession, *domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := repo.CreateAuthSession(ctx, s.DB, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Logout invalidates the session token. Unknown tokens are treated as
// already logged out.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return repo.DeleteAuthSession(ctx, s.DB, token)
}

// UserForToken resolves an auth session token to its user id. Returns
// repo.ErrNotFound for unknown tokens.
func (s *AuthService) UserForToken(ctx context.Context, token string) (string, error) {
	session, err := repo.GetAuthSession(ctx, s.DB, token)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}
