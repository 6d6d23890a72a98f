// Package repo implements the local relational persistence layer, backed by
// GORM. This file provides repository functions for accounts and auth
// sessions.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Creating a user with an already-registered email returns ErrDuplicate.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dermacare/go-derma-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation, e.g. registering an
// email twice.
var ErrDuplicate = errors.New("duplicate")

// CreateUser inserts a new account row with a generated UUID primary key.
// The email is stored lowercased; the caller supplies the bcrypt hash.
func CreateUser(ctx context.Context, db *gorm.DB, email, passwordHash, name string) (*domain.User, error) {
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches an account by (case-insensitive) email, or
// ErrNotFound if missing.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateAuthSession issues a new token for the given account.
func CreateAuthSession(ctx context.Context, db *gorm.DB, userID string) (*domain.AuthSession, error) {
	s := &domain.AuthSession{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetAuthSession resolves a token back to its session, or ErrNotFound.
func GetAuthSession(ctx context.Context, db *gorm.DB, token string) (*domain.AuthSession, error) {
	var s domain.AuthSession
	err := db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteAuthSession revokes a token. Missing tokens are a no-op.
func DeleteAuthSession(ctx context.Context, db *gorm.DB, token string) error {
	return db.WithContext(ctx).Where("token = ?", token).Delete(&domain.AuthSession{}).Error
}

// isUniqueViolation detects unique-constraint failures.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
